// Package dataset defines the in-memory relational snapshot: tables of rows,
// their declared schemas, and the registry that lists tables, relations and
// overlays for one dataset version.
//
// Decoding functions take bytes, not paths. Reading files is the caller's
// job (see package source). Integrity rules are not enforced here; a
// snapshot may be arbitrarily inconsistent and package validate reports
// what is wrong with it.
package dataset
