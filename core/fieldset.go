// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the FieldSet, the immutable column-name-to-value collection
// that records, primary keys, and insert rows are made of.
package core

import (
	"reflect"
	"sort"
)

// FieldSet is an immutable set of named field values.
//
// A FieldSet is never mutated in place: Set and Without return a new
// FieldSet backed by a fresh map. Two FieldSets derived from the same
// value therefore never observe each other's changes.
//
// The zero FieldSet is valid and empty.
type FieldSet struct {
	fields map[string]any
}

// NewFieldSet creates a FieldSet from a plain map.
//
// The input map is copied, so the caller remains free to reuse it.
//
// Example:
//
//	fs := core.NewFieldSet(map[string]any{"name": "Tempest", "category": "bar"})
func NewFieldSet(values map[string]any) FieldSet {
	copied := make(map[string]any, len(values))
	for name, value := range values {
		copied[name] = value
	}
	return FieldSet{fields: copied}
}

// Get returns the value stored under name and whether it is present.
func (fs FieldSet) Get(name string) (any, bool) {
	value, ok := fs.fields[name]
	return value, ok
}

// Len returns the number of fields in the set.
func (fs FieldSet) Len() int {
	return len(fs.fields)
}

// Keys returns the field names in sorted order.
func (fs FieldSet) Keys() []string {
	nameList := make([]string, 0, len(fs.fields))
	for name := range fs.fields {
		nameList = append(nameList, name)
	}
	sort.Strings(nameList)
	return nameList
}

// Set returns a new FieldSet with name bound to value.
func (fs FieldSet) Set(name string, value any) FieldSet {
	copied := make(map[string]any, len(fs.fields)+1)
	for k, v := range fs.fields {
		copied[k] = v
	}
	copied[name] = value
	return FieldSet{fields: copied}
}

// Without returns a new FieldSet with name removed.
// Removing an absent name returns an equal FieldSet.
func (fs FieldSet) Without(name string) FieldSet {
	copied := make(map[string]any, len(fs.fields))
	for k, v := range fs.fields {
		if k != name {
			copied[k] = v
		}
	}
	return FieldSet{fields: copied}
}

// Equal reports whether both sets hold the same names bound to equal
// values. Values are compared with reflect.DeepEqual.
func (fs FieldSet) Equal(other FieldSet) bool {
	if len(fs.fields) != len(other.fields) {
		return false
	}
	for name, value := range fs.fields {
		otherValue, ok := other.fields[name]
		if !ok || !reflect.DeepEqual(value, otherValue) {
			return false
		}
	}
	return true
}

// Map returns the fields as a plain map copy.
func (fs FieldSet) Map() map[string]any {
	copied := make(map[string]any, len(fs.fields))
	for name, value := range fs.fields {
		copied[name] = value
	}
	return copied
}

// shares reports whether both FieldSets are backed by the very same map
// instance. Records use this as a cheap "never modified" check.
func (fs FieldSet) shares(other FieldSet) bool {
	if fs.fields == nil || other.fields == nil {
		return fs.fields == nil && other.fields == nil
	}
	return reflect.ValueOf(fs.fields).Pointer() == reflect.ValueOf(other.fields).Pointer()
}
