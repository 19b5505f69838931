package overlay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/mockset/internal/dataset"
)

// StackResolver looks up the overlay stack shared with a target identity
// (an email address or a domain) for a dataset. No match yields an empty
// stack and a nil error.
type StackResolver interface {
	ResolveStack(ctx context.Context, target, datasetID string) ([]string, error)
}

// ApplyOverlayStack resolves stackNames through the catalog and
// materializes the result over tables.
//
// The returned tables are a new set; tables is left untouched. If any flat
// overlay in the stack is short of values for a table it touches, nil tables
// and a MaterializationErrors listing every shortfall in the stack are
// returned. Resolution failures return an *UnknownOverlayError.
func ApplyOverlayStack(tables dataset.Tables, cat *Catalog, stackNames []string) (dataset.Tables, error) {
	stack, err := cat.Resolve(stackNames)
	if err != nil {
		return nil, err
	}
	return apply(tables, stack)
}

// ApplyForTarget resolves the stack shared with target and applies it. The
// resolved stack names are returned alongside the tables.
func ApplyForTarget(ctx context.Context, r StackResolver, target, datasetID string, tables dataset.Tables, cat *Catalog) (dataset.Tables, []string, error) {
	names, err := r.ResolveStack(ctx, target, datasetID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve stack for %s: %w", target, err)
	}
	out, err := ApplyOverlayStack(tables, cat, names)
	if err != nil {
		return nil, names, err
	}
	return out, names, nil
}

// Materialize applies a stack of flat overlays.
func Materialize(tables dataset.Tables, stack []*Flat) (dataset.Tables, error) {
	overlays := make([]Overlay, len(stack))
	for i, f := range stack {
		overlays[i] = f
	}
	return apply(tables, overlays)
}

// ApplyLegacy applies a stack of legacy row-override overlays. It cannot
// fail: override ids with no matching row are skipped.
func ApplyLegacy(tables dataset.Tables, stack []*Legacy) dataset.Tables {
	out := tables.Clone()
	for _, l := range stack {
		applyLegacy(out, l)
	}
	return out
}

func apply(tables dataset.Tables, stack []Overlay) (dataset.Tables, error) {
	out := tables.Clone()
	var errs MaterializationErrors

	for _, o := range stack {
		switch ov := o.(type) {
		case *Flat:
			errs = append(errs, applyFlat(out, ov)...)
		case *Legacy:
			applyLegacy(out, ov)
		default:
			return nil, fmt.Errorf("unsupported overlay type %T", o)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// applyFlat writes a permutation of the overlay's values into every field
// it targets on every table carrying that field. Tables it cannot cover are
// reported and left as they are.
func applyFlat(tables dataset.Tables, f *Flat) MaterializationErrors {
	var errs MaterializationErrors

	for _, t := range tables {
		fields := matchingFields(t, f.Fields)
		if len(fields) == 0 {
			continue
		}

		if len(f.Values) < len(t.Rows) {
			for _, field := range fields {
				errs = append(errs, MaterializationError{
					Overlay:   f.Name(),
					Table:     t.Name,
					Field:     field,
					Needed:    len(t.Rows),
					Available: len(f.Values),
				})
			}
			continue
		}

		for _, field := range fields {
			perm := Shuffle(f.Values, SeedKey(f.Name(), t.Name, field))
			for i, row := range t.Rows {
				row[field] = perm[i]
			}
		}
		slog.Debug("overlay applied", "overlay", f.Name(), "table", t.Name, "fields", fields)
	}
	return errs
}

// matchingFields returns the overlay fields, in declared order, that any row
// of the table carries.
func matchingFields(t *dataset.Table, fields []string) []string {
	var out []string
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		if seen[field] {
			continue
		}
		seen[field] = true
		if t.FieldPresent(field) {
			out = append(out, field)
		}
	}
	return out
}

// applyLegacy shallow-merges each override onto the row with that id.
func applyLegacy(tables dataset.Tables, l *Legacy) {
	t := tables.Get(l.Table)
	if t == nil {
		slog.Debug("legacy overlay targets missing table", "overlay", l.Name(), "table", l.Table)
		return
	}

	for _, row := range t.Rows {
		id, ok := row.ID()
		if !ok {
			continue
		}
		patch, ok := l.Overrides[id]
		if !ok {
			continue
		}
		for field, v := range patch {
			row[field] = dataset.CloneValue(v)
		}
	}
}
