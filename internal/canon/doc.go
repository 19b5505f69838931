// Package canon provides the canonical byte form of dataset values and the
// content hashes derived from it.
//
// Materialized tables are compared and digested through MarshalCanonical so
// two runs over the same inputs produce identical bytes. Tables written back
// to users go through MarshalData, which shares the key order but leaves
// strings and numbers exactly as decoded.
// This package imports nothing internal.
//
// Key constraints:
//   - Object keys are ordered by UTF-16 code units (RFC 8785)
//   - MarshalCanonical NFC normalizes strings; HTML characters are never escaped
//   - NaN and infinities are rejected
package canon
