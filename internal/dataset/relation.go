package dataset

import (
	"fmt"
	"strings"
)

// Ref addresses a field of a table.
type Ref struct {
	Table string
	Field string
}

// String renders the ref in dotted form.
func (r Ref) String() string {
	return r.Table + "." + r.Field
}

// ParseRef splits a dotted "table.field" reference on its first dot.
func ParseRef(s string) (Ref, error) {
	table, field, ok := strings.Cut(s, ".")
	if !ok || table == "" || field == "" {
		return Ref{}, fmt.Errorf("invalid reference %q: expected \"table.field\"", s)
	}
	return Ref{Table: table, Field: field}, nil
}

// Relation is a declared foreign key from one table field to another.
//
// Several relations may share the same From field to express a
// type-discriminated polymorphic reference; each then carries a When
// condition selecting the rows it applies to.
type Relation struct {
	From     Ref
	To       Ref
	Type     string
	Nullable bool

	// When is a conjunction of exact-match conditions on the source row.
	When map[string]any
}

// String renders the relation as "from -> to".
func (r Relation) String() string {
	return r.From.String() + " -> " + r.To.String()
}

// Applies reports whether every When condition matches the row.
// A relation without conditions applies to every row.
func (r Relation) Applies(row Row) bool {
	for field, want := range r.When {
		got, ok := row[field]
		if !ok || !Equal(got, want) {
			return false
		}
	}
	return true
}
