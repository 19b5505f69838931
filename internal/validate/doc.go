// Package validate runs the consistency checks over a dataset snapshot.
//
// Validate is a pure function: given the same tables, registry and overlays
// it returns the same Report. Malformed data is reported, never returned as
// a Go error. Each check runs independently, so one check's failure never
// hides another's errors. Errors are listed in table and row input order.
//
// Checks:
//   - dataset: registry tables and loaded tables agree
//   - schema: every non-nullable schema field is present on every row
//   - ids: every row has an id, unique within its table
//   - foreign_keys: every applicable relation resolves
//   - relations: relation endpoints are declared in their table schemas
//   - overlays: overlay documents are well formed and consistent
package validate
