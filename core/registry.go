// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the dispatch registry: an open table of behaviors keyed
// by (operation kind, model tag). Extensions attach around behaviors that
// wrap the built-in stage primaries without modifying them, chained from the
// most specific model tag down to the default.
package core

import (
	"context"
	"fmt"
	"sync"
)

// Tag is an opaque identifier naming a logical entity ("venue", "user").
//
// A Tag has no inherent behavior; it is purely a dispatch key and a
// namespace for per-model configuration. Tags may be arranged in an
// is-a hierarchy through Registry.Derive.
type Tag string

// AnyModel is the root of the tag hierarchy. Behaviors registered under
// AnyModel are the defaults every model falls back to.
const AnyModel Tag = "*"

// Kind identifies the result shape of an operation. It is one of a small
// closed set: full records, primary keys, or an affected-row count.
type Kind string

const (
	// KindRecords marks operations returning full records.
	KindRecords Kind = "records"
	// KindKeys marks operations returning primary-key field sets.
	KindKeys Kind = "keys"
	// KindCount marks operations returning an affected-row count.
	KindCount Kind = "count"
)

// Kinds lists the three operation kinds in a stable order.
var Kinds = []Kind{KindRecords, KindKeys, KindCount}

// DispatchKey is the (operation kind, model tag) pair a behavior chain is
// registered and resolved under.
type DispatchKey struct {
	Kind  Kind
	Model Tag
}

// PrimaryFunc is a terminal behavior: it performs the operation and
// produces the result, with nothing left to delegate to.
type PrimaryFunc func(ctx context.Context, op *Operation) (*Result, error)

// AroundFunc is a wrapping behavior. It receives the next more general
// behavior in the chain and may run code before or after delegating,
// skip delegation entirely, or translate failures.
type AroundFunc func(ctx context.Context, op *Operation, next PrimaryFunc) (*Result, error)

// Hook is a per-model after hook, invoked once per record produced by an
// operation on that model. The returned record replaces the element in
// the result sequence.
type Hook func(kind Kind, model Tag, record Record) (Record, error)

type namedAround struct {
	name   string
	around AroundFunc
}

// Registry maintains, per operation kind, an open mapping from model tag
// to a chain of behaviors, and resolves the applicable chain for a
// concrete (kind, model) pair at call time.
//
// Registrations are read-mostly configuration: they are established while
// wiring a Mapper and only consulted afterwards. An RWMutex makes a
// configured Registry safe for concurrent dispatch.
type Registry struct {
	mutex     sync.RWMutex
	parents   map[Tag]Tag
	primaries map[DispatchKey]PrimaryFunc
	arounds   map[DispatchKey][]namedAround
	hooks     map[DispatchKey]Hook
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		parents:   make(map[Tag]Tag),
		primaries: make(map[DispatchKey]PrimaryFunc),
		arounds:   make(map[DispatchKey][]namedAround),
		hooks:     make(map[DispatchKey]Hook),
	}
}

// Derive declares that child is-a parent in the tag hierarchy.
//
// Resolution walks from a model through its ancestors up to AnyModel, so
// behaviors registered on a parent apply to every derived child unless a
// more specific registration shadows them. Redefining a child's parent
// replaces the previous relation. Cycles are rejected.
func (r *Registry) Derive(child, parent Tag) error {
	if child == AnyModel {
		return fmt.Errorf("derive: cannot re-parent %q", AnyModel)
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for ancestor := parent; ancestor != AnyModel && ancestor != ""; ancestor = r.parents[ancestor] {
		if ancestor == child {
			return fmt.Errorf("derive: %q -> %q would create a cycle", child, parent)
		}
	}
	r.parents[child] = parent
	return nil
}

// ancestry returns the resolution order for a model: the model itself,
// its declared ancestors, then AnyModel. Callers must hold the lock.
func (r *Registry) ancestry(model Tag) []Tag {
	chain := []Tag{model}
	for current := model; ; {
		parent, ok := r.parents[current]
		if !ok || parent == "" {
			break
		}
		chain = append(chain, parent)
		if parent == AnyModel {
			return chain
		}
		current = parent
	}
	if model != AnyModel {
		chain = append(chain, AnyModel)
	}
	return chain
}

// RegisterPrimary registers the terminal behavior for a dispatch key.
// Re-registering the same key replaces the previous primary.
func (r *Registry) RegisterPrimary(kind Kind, model Tag, fn PrimaryFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.primaries[DispatchKey{Kind: kind, Model: model}] = fn
}

// RegisterAround registers a named around behavior for a dispatch key.
//
// Arounds for the same key run in registration order, and arounds for
// more specific models wrap arounds for more general ones. Registering
// the same (key, name) again replaces the behavior in place instead of
// stacking a duplicate.
func (r *Registry) RegisterAround(kind Kind, model Tag, name string, fn AroundFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	key := DispatchKey{Kind: kind, Model: model}
	for i, existing := range r.arounds[key] {
		if existing.name == name {
			r.arounds[key][i].around = fn
			return
		}
	}
	r.arounds[key] = append(r.arounds[key], namedAround{name: name, around: fn})
}

// SetHook registers the after hook for a dispatch key, replacing any
// previous hook for the same key.
func (r *Registry) SetHook(kind Kind, model Tag, fn Hook) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.hooks[DispatchKey{Kind: kind, Model: model}] = fn
}

// HookFor resolves the after hook applicable to (kind, model) through the
// tag hierarchy, most specific first. It never executes any behavior, so
// the hook composition layer can probe cheaply before deciding to wrap.
func (r *Registry) HookFor(kind Kind, model Tag) (Hook, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, tag := range r.ancestry(model) {
		if hook, ok := r.hooks[DispatchKey{Kind: kind, Model: tag}]; ok {
			return hook, true
		}
	}
	return nil, false
}

// Handles reports whether a non-default behavior (primary or around) is
// registered at or below the model, excluding the AnyModel defaults. It
// answers without executing anything.
func (r *Registry) Handles(kind Kind, model Tag) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, tag := range r.ancestry(model) {
		if tag == AnyModel {
			continue
		}
		key := DispatchKey{Kind: kind, Model: tag}
		if _, ok := r.primaries[key]; ok {
			return true
		}
		if len(r.arounds[key]) > 0 {
			return true
		}
	}
	return false
}

// Resolve deterministically selects the behavior chain for a concrete
// (kind, model) pair: around behaviors gathered from the most specific
// tag to the most general, terminating at the most specific primary.
//
// The composed chain re-raises any failure wrapped with (kind, model)
// context, so nested dispatches accumulate a breadcrumb trail as the
// error unwinds. Resolution fails with ErrNoBehavior when not even a
// default primary exists.
func (r *Registry) Resolve(kind Kind, model Tag) (PrimaryFunc, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var chain []namedAround
	var primary PrimaryFunc
	for _, tag := range r.ancestry(model) {
		key := DispatchKey{Kind: kind, Model: tag}
		chain = append(chain, r.arounds[key]...)
		if primary == nil {
			if fn, ok := r.primaries[key]; ok {
				primary = fn
			}
		}
	}
	if primary == nil {
		return nil, opError(kind, model, "resolve", ErrNoBehavior)
	}

	composed := primary
	for i := len(chain) - 1; i >= 0; i-- {
		layer := chain[i]
		next := composed
		composed = func(ctx context.Context, op *Operation) (*Result, error) {
			result, err := layer.around(ctx, op, next)
			if err != nil {
				return nil, opError(kind, model, layer.name, err)
			}
			return result, nil
		}
	}

	terminal := composed
	return func(ctx context.Context, op *Operation) (*Result, error) {
		result, err := terminal(ctx, op)
		if err != nil {
			return nil, opError(kind, model, "", err)
		}
		return result, nil
	}, nil
}
