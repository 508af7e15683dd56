package core

import (
	"reflect"
	"testing"
)

func TestNewRecordIsPristine(t *testing.T) {
	t.Parallel()

	rec := NewRecord("venue", NewFieldSet(map[string]any{"id": int64(1), "name": "Tempest"}))
	if !rec.Pristine() {
		t.Fatal("freshly created record should be pristine")
	}
	if _, dirty := rec.Changes(); dirty {
		t.Fatal("freshly created record should report no changes")
	}
}

func TestRecordSetDoesNotTouchOriginal(t *testing.T) {
	t.Parallel()

	rec := NewRecord("venue", NewFieldSet(map[string]any{"id": int64(1), "name": "Tempest"}))
	edited := rec.Set("name", "Ground Control")

	if edited.Pristine() {
		t.Fatal("edited record should not be pristine")
	}
	if !rec.Pristine() {
		t.Fatal("Set must not modify the receiver")
	}
	original, _ := edited.Original().Get("name")
	if original != "Tempest" {
		t.Fatalf("original name = %v, want Tempest", original)
	}
	current, _ := edited.Get("name")
	if current != "Ground Control" {
		t.Fatalf("current name = %v, want Ground Control", current)
	}
}

func TestRecordChanges(t *testing.T) {
	t.Parallel()

	base := NewRecord("venue", NewFieldSet(map[string]any{"id": int64(1), "name": "Tempest", "capacity": 250}))

	tcs := []struct {
		name      string
		mutate    func(Record) Record
		want      map[string]any
		wantDirty bool
	}{
		{
			name:   "single field edit",
			mutate: func(r Record) Record { return r.Set("name", "Ground Control") },
			want:   map[string]any{"name": "Ground Control"},

			wantDirty: true,
		},
		{
			name:      "set back to original value reports no change",
			mutate:    func(r Record) Record { return r.Set("name", "Slick").Set("name", "Tempest") },
			want:      nil,
			wantDirty: false,
		},
		{
			name:      "removed field appears as nil",
			mutate:    func(r Record) Record { return r.Without("capacity") },
			want:      map[string]any{"capacity": nil},
			wantDirty: true,
		},
		{
			name:      "new field counts as change",
			mutate:    func(r Record) Record { return r.Set("category", "bar") },
			want:      map[string]any{"category": "bar"},
			wantDirty: true,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			changes, dirty := tc.mutate(base).Changes()
			if dirty != tc.wantDirty {
				t.Fatalf("dirty = %v, want %v", dirty, tc.wantDirty)
			}
			if !tc.wantDirty {
				return
			}
			if got := changes.Map(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("changes = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestRecordResetCollapsesOriginal(t *testing.T) {
	t.Parallel()

	rec := NewRecord("venue", NewFieldSet(map[string]any{"id": int64(1), "name": "Tempest"}))
	edited := rec.Set("name", "Ground Control").Reset()

	if !edited.Pristine() {
		t.Fatal("reset record should be pristine")
	}
	original, _ := edited.Original().Get("name")
	if original != "Ground Control" {
		t.Fatalf("original after reset = %v, want Ground Control", original)
	}
}

func TestRecordMeta(t *testing.T) {
	t.Parallel()

	rec := NewRecord("venue", NewFieldSet(map[string]any{"id": int64(1)}))
	tagged := rec.WithMeta("source", "import")

	if _, ok := rec.Meta("source"); ok {
		t.Fatal("WithMeta must not modify the receiver")
	}
	value, ok := tagged.Meta("source")
	if !ok || value != "import" {
		t.Fatalf("meta source = %v (%v), want import", value, ok)
	}
	if !tagged.Pristine() {
		t.Fatal("metadata must not affect change tracking")
	}
}

func TestFieldSetImmutability(t *testing.T) {
	t.Parallel()

	backing := map[string]any{"id": int64(1)}
	fs := NewFieldSet(backing)
	fs2 := fs.Set("name", "Tempest")

	if fs.Len() != 1 {
		t.Fatalf("original field set grew to %d entries", fs.Len())
	}
	if fs2.Len() != 2 {
		t.Fatalf("derived field set has %d entries, want 2", fs2.Len())
	}
	exported := fs2.Map()
	exported["id"] = int64(99)
	if value, _ := fs2.Get("id"); value != int64(1) {
		t.Fatal("mutating the exported map must not affect the field set")
	}
}
