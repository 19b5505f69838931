package overlay

import (
	"math/rand/v2"
	"slices"

	"github.com/roach88/mockset/internal/canon"
)

// SeedKey builds the composite key seeding the permutation of one field of
// one table under one overlay.
func SeedKey(overlay, table, field string) string {
	return overlay + ":" + table + ":" + field
}

// Shuffle returns a permutation of values determined entirely by key.
//
// The algorithm is part of the output contract: a PCG generator seeded with
// canon.SeedFromKey(key) drives a Fisher–Yates pass from the last index down
// to 1, swapping position i with Uint64() % (i+1). values is not modified.
func Shuffle(values []string, key string) []string {
	out := slices.Clone(values)
	s1, s2 := canon.SeedFromKey(key)
	src := rand.NewPCG(s1, s2)
	for i := len(out) - 1; i > 0; i-- {
		j := int(src.Uint64() % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
