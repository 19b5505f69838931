// Package source reads a dataset snapshot from disk.
//
// A dataset root holds a registry (dataset.json), one document per table
// under tables/, and overlays under overlays/ in either the flat format
// (overlays/<name>.json) or the legacy directory format
// (overlays/<table>/<visibility>_<name>.json). Frozen copies may live under
// versions/<v>/ with versions/latest naming the current one.
//
// Every document is checked against the CUE definitions in shapes.cue
// before it is decoded, so malformed documents fail with a position rather
// than a decoding error deep inside a row.
package source
