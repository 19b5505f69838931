package dataset

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// DefaultTypeField is the discriminator consulted for TypeSchemas when a
// table does not name its own.
const DefaultTypeField = "type"

// Row is one record. Values are the shapes produced by decoding JSON with
// UseNumber: nil, string, bool, json.Number, []any and map[string]any.
type Row map[string]any

// ID returns the row id rendered as a string. Absent and null ids report
// false.
func (r Row) ID() (string, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return "", false
	}
	return FormatValue(v), true
}

// Has reports whether the field is present on the row, even if null.
func (r Row) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Clone deep-copies the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a decoded JSON value.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = CloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// FieldType is a schema type tag such as "string" or "string?". A trailing
// question mark marks the field nullable.
type FieldType string

// Nullable reports whether the field may be absent or null.
func (t FieldType) Nullable() bool {
	return strings.HasSuffix(string(t), "?")
}

// Base returns the tag without its nullability marker.
func (t FieldType) Base() string {
	return strings.TrimSuffix(string(t), "?")
}

// Schema maps field names to type tags.
type Schema map[string]FieldType

// Has reports whether the schema declares the field.
func (s Schema) Has(field string) bool {
	_, ok := s[field]
	return ok
}

// Required returns the non-nullable fields, sorted by name.
func (s Schema) Required() []string {
	var out []string
	for name, t := range s {
		if !t.Nullable() {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Table is a named collection of rows with an optional schema.
type Table struct {
	Name   string
	Schema Schema

	// TypeSchemas holds additional per-type schemas keyed by the value of
	// TypeField on each row.
	TypeSchemas map[string]Schema
	TypeField   string

	Rows []Row
}

// DiscriminatorField returns TypeField or DefaultTypeField.
func (t *Table) DiscriminatorField() string {
	if t.TypeField != "" {
		return t.TypeField
	}
	return DefaultTypeField
}

// FieldPresent reports whether any row carries the field. Presence is read
// from the rows, not the schema, since legacy rows may lack one.
func (t *Table) FieldPresent(field string) bool {
	for _, row := range t.Rows {
		if row.Has(field) {
			return true
		}
	}
	return false
}

// Clone deep-copies the table including its rows. Schemas are shared; they
// are never written after decoding.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:        t.Name,
		Schema:      t.Schema,
		TypeSchemas: t.TypeSchemas,
		TypeField:   t.TypeField,
		Rows:        make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

// Tables is an ordered table set.
type Tables []*Table

// Get returns the table with the given name, or nil.
func (ts Tables) Get(name string) *Table {
	for _, t := range ts {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Names returns table names in set order.
func (ts Tables) Names() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

// Clone deep-copies every table.
func (ts Tables) Clone() Tables {
	if ts == nil {
		return nil
	}
	out := make(Tables, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// Document returns the table set as a plain map of table name to rows,
// the shape written by the materialize command and digested by canon.
func (ts Tables) Document() map[string]any {
	doc := make(map[string]any, len(ts))
	for _, t := range ts {
		rows := make([]any, len(t.Rows))
		for i, row := range t.Rows {
			rows[i] = map[string]any(row)
		}
		doc[t.Name] = rows
	}
	return doc
}

// FormatValue renders a scalar row value for messages and id comparison.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Equal compares two decoded scalar values. Numbers compare by their
// numeric value so 1 and 1.0 match.
func Equal(a, b any) bool {
	an, aok := asNumber(a)
	bn, bok := asNumber(b)
	if aok && bok {
		return an == bn
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
