// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the error types surfaced by dispatch and hook execution.
// Failures always propagate to the caller; the core never retries and never
// drops a failed element from a result sequence.
package core

import (
	"errors"
	"fmt"
)

// ErrNoBehavior is returned when dispatch resolution finds neither a
// specific nor a default primary behavior for a dispatch key. It signals
// a configuration error and is fatal to the call.
var ErrNoBehavior = errors.New("no behavior registered")

// OpError annotates a failure with the operation kind and model it
// occurred under. Each around layer a failure unwinds through adds one
// OpError breadcrumb, so a deeply nested failure reads as a trail of
// (kind, model) pairs down to the root cause.
type OpError struct {
	Kind  Kind
	Model Tag
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s %s [%s]: %v", e.Kind, e.Model, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Model, e.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *OpError) Unwrap() error {
	return e.Err
}

// opError wraps err with dispatch context, avoiding double-wrapping the
// exact same (kind, model, stage) triple on re-entry.
func opError(kind Kind, model Tag, stage string, err error) error {
	var existing *OpError
	if errors.As(err, &existing) && existing.Kind == kind && existing.Model == model && existing.Stage == stage {
		return err
	}
	return &OpError{Kind: kind, Model: model, Stage: stage, Err: err}
}

// errMissingKey reports a row or record lacking a primary-key column the
// operation needs.
func errMissingKey(column string) error {
	return fmt.Errorf("missing primary key column %q", column)
}

// HookError annotates a failure raised by a registered after hook with
// the record that was being processed when the hook failed.
type HookError struct {
	Kind   Kind
	Model  Tag
	Record Record
	Err    error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("after hook on %s %s (record %v): %v", e.Kind, e.Model, e.Record.Fields().Map(), e.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *HookError) Unwrap() error {
	return e.Err
}
