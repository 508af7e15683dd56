// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the Record, the change-tracking value that pairs a model
// tag with the original (as fetched) and current (as edited) field sets.
package core

import "reflect"

// Record represents one row bound to a model.
//
// A Record carries two FieldSets: original, the state last fetched from or
// persisted to the store, and current, the state including in-memory edits.
// Records are immutable per step: Set, Without, Reset, and WithMeta return
// a new Record and never alter the receiver.
//
// A Record freshly created from a fetch shares the identical FieldSet
// instance between original and current. That identity (not mere equality)
// is what Pristine reports, and it is used as a cheap "unmodified" check.
type Record struct {
	model    Tag
	original FieldSet
	current  FieldSet
	meta     map[string]any
}

// NewRecord creates a Record whose original and current states are the
// same FieldSet instance, as if it had just been fetched.
//
// Example:
//
//	rec := core.NewRecord("venue", core.NewFieldSet(map[string]any{"id": int64(1), "name": "Tempest"}))
//	rec.Pristine() // true
func NewRecord(model Tag, fields FieldSet) Record {
	return Record{model: model, original: fields, current: fields}
}

// Model returns the model tag the record is bound to.
func (r Record) Model() Tag {
	return r.model
}

// Original returns the field set as last fetched or persisted.
func (r Record) Original() FieldSet {
	return r.original
}

// Fields returns the current field set, including in-memory edits.
func (r Record) Fields() FieldSet {
	return r.current
}

// Get returns the current value of a field and whether it is present.
func (r Record) Get(name string) (any, bool) {
	return r.current.Get(name)
}

// Set returns a new Record with the field set to value in the current
// state. The original state is untouched.
func (r Record) Set(name string, value any) Record {
	r.current = r.current.Set(name, value)
	return r
}

// Without returns a new Record with the field removed from the current
// state. The original state is untouched.
func (r Record) Without(name string) Record {
	r.current = r.current.Without(name)
	return r
}

// Pristine reports whether original and current are still the identical
// FieldSet instance, i.e. the record was never modified since creation
// or the last Reset.
func (r Record) Pristine() bool {
	return r.original.shares(r.current)
}

// Changes computes the value-based diff between original and current.
//
// The returned FieldSet holds every field whose current value differs
// from its original value; a field removed from current appears bound
// to nil. Setting a field back to its original value reports no change.
// The boolean is false when there are no changes.
func (r Record) Changes() (FieldSet, bool) {
	if r.Pristine() {
		return FieldSet{}, false
	}
	changed := map[string]any{}
	for _, name := range r.current.Keys() {
		currentValue, _ := r.current.Get(name)
		originalValue, had := r.original.Get(name)
		if !had || !reflect.DeepEqual(originalValue, currentValue) {
			changed[name] = currentValue
		}
	}
	for _, name := range r.original.Keys() {
		if _, ok := r.current.Get(name); !ok {
			changed[name] = nil
		}
	}
	if len(changed) == 0 {
		return FieldSet{}, false
	}
	return NewFieldSet(changed), true
}

// Reset returns a new Record whose original state is collapsed into the
// current one, discarding the previous original. The result is Pristine.
func (r Record) Reset() Record {
	r.original = r.current
	return r
}

// Meta returns the opaque metadata value stored under name, if any.
// Metadata is carried for interop and never interpreted by the core.
func (r Record) Meta(name string) (any, bool) {
	value, ok := r.meta[name]
	return value, ok
}

// WithMeta returns a new Record with the metadata entry attached.
func (r Record) WithMeta(name string, value any) Record {
	copied := make(map[string]any, len(r.meta)+1)
	for k, v := range r.meta {
		copied[k] = v
	}
	copied[name] = value
	r.meta = copied
	return r
}
