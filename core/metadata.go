// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines per-model metadata: the physical table name, the
// primary-key columns, and the key-name translation applied to caller-
// supplied field names. Behavior lives in the registry; metadata is pure
// configuration keyed by model tag.
package core

import (
	"strings"
	"sync"
	"unicode"

	"github.com/jinzhu/inflection"
)

// TableInfo describes the physical shape backing a model tag.
type TableInfo struct {
	// Table is the table/collection name. Empty means derive it by
	// pluralizing the snake-cased model tag ("venue" -> "venues").
	Table string
	// PrimaryKey lists the primary-key columns. Empty means ["id"].
	PrimaryKey []string
	// KeyName translates a caller-supplied field name to the stored
	// column name. Nil means snake-casing.
	KeyName func(name string) string
}

// MetadataProvider supplies the model metadata the pipeline stages need
// to shape primary-key field sets and resolve physical table names.
type MetadataProvider interface {
	// Table returns the physical table/collection name for a model.
	Table(model Tag) string
	// PrimaryKey returns the primary-key column set for a model.
	PrimaryKey(model Tag) []string
	// KeyName translates a field name for a model.
	KeyName(model Tag, name string) string
}

// Metadata is the default MetadataProvider: explicit per-model
// definitions with inflection-based fallbacks for everything else.
type Metadata struct {
	mutex  sync.RWMutex
	models map[Tag]TableInfo
}

// NewMetadata creates an empty Metadata provider. Models need no
// definition unless their table name, primary key, or key translation
// deviates from the defaults.
func NewMetadata() *Metadata {
	return &Metadata{models: make(map[Tag]TableInfo)}
}

// Define sets the metadata for a model, replacing any previous definition.
//
// Example:
//
//	meta.Define("venue", core.TableInfo{Table: "venues", PrimaryKey: []string{"id"}})
func (m *Metadata) Define(model Tag, info TableInfo) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.models[model] = info
}

// Table returns the physical table name for a model, deriving it by
// pluralizing the snake-cased tag when no definition exists.
func (m *Metadata) Table(model Tag) string {
	m.mutex.RLock()
	info := m.models[model]
	m.mutex.RUnlock()
	if info.Table != "" {
		return info.Table
	}
	return inflection.Plural(snakeCase(string(model)))
}

// PrimaryKey returns the declared primary-key columns, defaulting to "id".
func (m *Metadata) PrimaryKey(model Tag) []string {
	m.mutex.RLock()
	info := m.models[model]
	m.mutex.RUnlock()
	if len(info.PrimaryKey) > 0 {
		return append([]string(nil), info.PrimaryKey...)
	}
	return []string{"id"}
}

// KeyName translates a field name using the model's translation function,
// defaulting to snake-casing.
func (m *Metadata) KeyName(model Tag, name string) string {
	m.mutex.RLock()
	info := m.models[model]
	m.mutex.RUnlock()
	if info.KeyName != nil {
		return info.KeyName(name)
	}
	return snakeCase(name)
}

// snakeCase converts CamelCase and kebab-case names to snake_case
// column names. Already-lowercase names pass through unchanged.
func snakeCase(name string) string {
	var builder strings.Builder
	builder.Grow(len(name) + 4)
	for i, r := range name {
		switch {
		case r == '-' || r == ' ':
			builder.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 {
				builder.WriteByte('_')
			}
			builder.WriteRune(unicode.ToLower(r))
		default:
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
