// Package overlay materializes context-specific rows by layering overlays on
// top of base tables.
//
// Two overlay representations coexist:
//
//   - Flat overlays name the fields they target and carry a list of values.
//     They are table-agnostic: every table whose rows carry one of the
//     fields receives a deterministic permutation of the values, one per
//     row. A table with more rows than values cannot be materialized.
//   - Legacy overlays live under a per-table directory and carry partial
//     row objects keyed by row id, shallow-merged field by field.
//
// ApplyOverlayStack is the single entry point for both. It resolves stack
// names through a Catalog, applies each overlay in order to a working copy
// (later overlays overwrite earlier ones field by field) and returns either
// the complete materialized table set or every insufficiency found across the
// stack. Source tables are never modified.
package overlay
