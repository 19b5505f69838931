// Package harness runs materialization scenarios.
//
// A scenario names a dataset root, an overlay stack (or a target identity
// whose stack is looked up in share records), and assertions over the
// materialized tables.
//
// # Scenario Format
//
//	name: kenya_names
//	description: "Kenyan first names cover every user"
//	data: ../data/mock          # relative to the scenario file
//	version: v1                 # optional
//	stack: [kenya]
//	assertions:
//	  - type: materializes
//	  - type: value_from
//	    table: users
//	    field: firstName
//	    overlay: kenya
//	  - type: unchanged
//	    table: users
//	    field: email
//
// Instead of stack, a scenario may give shares and a target:
//
//	shares:
//	  - target: "*@acme.*"
//	    overlays: [kenya]
//	target: ada@acme.com
//
// The shares are written to an in-memory store and the target's stack is
// resolved through it, exactly as the materialize command does with --for.
//
// # Assertion Types
//
//   - materializes: the stack covers every table it touches
//   - insufficient: a specific overlay/table/field shortfall was reported
//   - value_from: every row's field holds a distinct value of the overlay
//   - unchanged: a field equals its value in the base dataset on every row
//   - equals: one row's field equals a value
//
// Materialization is deterministic, so the tables a scenario produces can be
// pinned with RunWithGolden.
package harness
