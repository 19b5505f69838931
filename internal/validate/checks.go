package validate

import (
	"fmt"

	"github.com/roach88/mockset/internal/dataset"
)

// rowLabel identifies a row by id, or by position when the id is missing.
func rowLabel(row dataset.Row, index int) string {
	if id, ok := row.ID(); ok {
		return id
	}
	return fmt.Sprintf("#%d", index)
}

// checkDataset compares registry tables with loaded tables.
func checkDataset(in *input) []ValidationError {
	var errs []ValidationError

	loaded := make(map[string]bool, len(in.tables))
	for _, t := range in.tables {
		loaded[t.Name] = true
	}

	for _, name := range in.registry.Tables {
		if !loaded[name] {
			errs = append(errs, ValidationError{
				Code:    ErrTableMissing,
				Table:   name,
				Message: "listed in registry but no table file was loaded",
			})
		}
	}

	for _, t := range in.tables {
		if !in.registry.ListsTable(t.Name) {
			errs = append(errs, ValidationError{
				Code:    ErrTableUnlisted,
				Table:   t.Name,
				Message: "table file is not listed in registry",
			})
		}
	}

	return errs
}

// checkSchema verifies non-nullable fields are present on every row.
func checkSchema(in *input) []ValidationError {
	var errs []ValidationError

	for _, t := range in.tables {
		if len(t.Schema) == 0 {
			errs = append(errs, ValidationError{
				Code:    ErrSchemaMissing,
				Table:   t.Name,
				Message: "table declares no schema",
			})
			continue
		}

		required := t.Schema.Required()
		typeField := t.DiscriminatorField()

		for i, row := range t.Rows {
			label := rowLabel(row, i)
			for _, field := range required {
				if msg, bad := missing(row, field); bad {
					errs = append(errs, ValidationError{
						Code:    ErrRequiredField,
						Table:   t.Name,
						Row:     label,
						Field:   field,
						Message: msg,
					})
				}
			}

			if len(t.TypeSchemas) == 0 {
				continue
			}
			kind, ok := row[typeField].(string)
			if !ok {
				continue
			}
			ts, ok := t.TypeSchemas[kind]
			if !ok {
				continue
			}
			for _, field := range ts.Required() {
				if msg, bad := missing(row, field); bad {
					errs = append(errs, ValidationError{
						Code:    ErrTypeRequiredField,
						Table:   t.Name,
						Row:     label,
						Field:   field,
						Message: fmt.Sprintf("%s for %s %q", msg, typeField, kind),
					})
				}
			}
		}
	}

	return errs
}

func missing(row dataset.Row, field string) (string, bool) {
	v, ok := row[field]
	if !ok {
		return "required field is missing", true
	}
	if v == nil {
		return "required field is null", true
	}
	return "", false
}

// checkIDs reports rows without an id and every repeat of an id already
// seen in the same table.
func checkIDs(in *input) []ValidationError {
	var errs []ValidationError

	for _, t := range in.tables {
		seen := make(map[string]bool, len(t.Rows))
		for i, row := range t.Rows {
			id, ok := row.ID()
			if !ok {
				errs = append(errs, ValidationError{
					Code:    ErrIDMissing,
					Table:   t.Name,
					Row:     fmt.Sprintf("#%d", i),
					Field:   "id",
					Message: "row has no id",
				})
				continue
			}
			if seen[id] {
				errs = append(errs, ValidationError{
					Code:    ErrIDDuplicate,
					Table:   t.Name,
					Row:     id,
					Field:   "id",
					Message: fmt.Sprintf("duplicate id %q at row #%d", id, i),
				})
				continue
			}
			seen[id] = true
		}
	}

	return errs
}

// checkForeignKeys resolves every applicable relation.
func checkForeignKeys(in *input) []ValidationError {
	var errs []ValidationError

	for _, rel := range in.registry.Relations {
		from := in.tables.Get(rel.From.Table)
		if from == nil {
			// Reported by the dataset check.
			continue
		}
		to := in.tables.Get(rel.To.Table)
		if to == nil {
			errs = append(errs, ValidationError{
				Code:    ErrFKUnknownTarget,
				Table:   rel.From.Table,
				Field:   rel.From.Field,
				Message: fmt.Sprintf("relation %s targets table %q which is not loaded", rel, rel.To.Table),
			})
			continue
		}

		targets := make(map[string]bool, len(to.Rows))
		for _, row := range to.Rows {
			if v, ok := row[rel.To.Field]; ok && v != nil {
				targets[dataset.FormatValue(v)] = true
			}
		}

		for i, row := range from.Rows {
			if !rel.Applies(row) {
				continue
			}
			label := rowLabel(row, i)

			v, ok := row[rel.From.Field]
			if !ok || v == nil {
				if !rel.Nullable {
					errs = append(errs, ValidationError{
						Code:    ErrFKNull,
						Table:   from.Name,
						Row:     label,
						Field:   rel.From.Field,
						Message: fmt.Sprintf("reference to %s is null", rel.To),
					})
				}
				continue
			}

			for _, ref := range referenceValues(v) {
				if targets[dataset.FormatValue(ref)] {
					continue
				}
				errs = append(errs, ValidationError{
					Code:    ErrFKDangling,
					Table:   from.Name,
					Row:     label,
					Field:   rel.From.Field,
					Message: fmt.Sprintf("value %q not found in %s", dataset.FormatValue(ref), rel.To),
				})
			}
		}
	}

	return errs
}

// referenceValues expands an array-valued reference into its elements.
func referenceValues(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

// checkRelations verifies relation endpoints are declared in the schemas
// of their tables.
func checkRelations(in *input) []ValidationError {
	var errs []ValidationError

	declared := func(ref dataset.Ref) bool {
		t := in.tables.Get(ref.Table)
		return t != nil && t.Schema.Has(ref.Field)
	}

	for _, rel := range in.registry.Relations {
		if !declared(rel.From) {
			errs = append(errs, ValidationError{
				Code:    ErrRelationFromField,
				Table:   rel.From.Table,
				Field:   rel.From.Field,
				Message: fmt.Sprintf("relation %s: from field is not declared in the %q schema", rel, rel.From.Table),
			})
		}
		if !declared(rel.To) {
			errs = append(errs, ValidationError{
				Code:    ErrRelationToField,
				Table:   rel.To.Table,
				Field:   rel.To.Field,
				Message: fmt.Sprintf("relation %s: to field is not declared in the %q schema", rel, rel.To.Table),
			})
		}
	}

	return errs
}
