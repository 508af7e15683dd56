package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestMetadataDefaults(t *testing.T) {
	t.Parallel()

	meta := NewMetadata()

	tcs := []struct {
		model     Tag
		wantTable string
	}{
		{model: "venue", wantTable: "venues"},
		{model: "category", wantTable: "categories"},
		{model: "OrderItem", wantTable: "order_items"},
	}
	for _, tc := range tcs {
		tc := tc
		t.Run(string(tc.model), func(t *testing.T) {
			t.Parallel()

			if got := meta.Table(tc.model); got != tc.wantTable {
				t.Fatalf("Table(%q) = %q, want %q", tc.model, got, tc.wantTable)
			}
			if got := meta.PrimaryKey(tc.model); !reflect.DeepEqual(got, []string{"id"}) {
				t.Fatalf("PrimaryKey(%q) = %v, want [id]", tc.model, got)
			}
		})
	}
}

func TestMetadataDefine(t *testing.T) {
	t.Parallel()

	meta := NewMetadata()
	meta.Define("venue", TableInfo{
		Table:      "venue_records",
		PrimaryKey: []string{"tenant_id", "venue_id"},
		KeyName:    strings.ToUpper,
	})

	if got := meta.Table("venue"); got != "venue_records" {
		t.Fatalf("Table = %q", got)
	}
	if got := meta.PrimaryKey("venue"); !reflect.DeepEqual(got, []string{"tenant_id", "venue_id"}) {
		t.Fatalf("PrimaryKey = %v", got)
	}
	if got := meta.KeyName("venue", "name"); got != "NAME" {
		t.Fatalf("KeyName = %q", got)
	}
}

func TestSnakeCase(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		in   string
		want string
	}{
		{in: "name", want: "name"},
		{in: "createdAt", want: "created_at"},
		{in: "HTTPStatus", want: "h_t_t_p_status"},
		{in: "kebab-case", want: "kebab_case"},
		{in: "two words", want: "two_words"},
	}
	for _, tc := range tcs {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			if got := snakeCase(tc.in); got != tc.want {
				t.Fatalf("snakeCase(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
