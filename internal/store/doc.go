// Package store provides SQLite-backed storage for share records.
//
// A share record assigns an overlay stack to a target identity for one
// dataset. Targets are an exact email address, a bare domain, or a glob
// pattern such as "*@acme.*". Records are never rewritten: revoking a share
// marks it inactive.
//
// # Ordering
//
// Every record carries a seq INTEGER assigned at insertion (a logical
// clock). "Most recent" always means highest seq, never a timestamp, and
// every listing is ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Overlay stacks are stored as canonical JSON produced by internal/canon.
package store
