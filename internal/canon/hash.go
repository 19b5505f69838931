package canon

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix leaves room for a
// future algorithm change without colliding with old digests.
const (
	DomainSeed     = "mockset/seed/v1"
	DomainSnapshot = "mockset/snapshot/v1"
)

// sumWithDomain computes SHA256(domain || 0x00 || data).
// The null byte keeps the domain/data boundary unambiguous.
func sumWithDomain(domain string, data []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)

	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// Digest returns the hex encoded domain-separated SHA-256 of data.
func Digest(domain string, data []byte) string {
	sum := sumWithDomain(domain, data)
	return hex.EncodeToString(sum[:])
}

// SeedFromKey derives a 128-bit PRNG seed from a string key. The same key
// yields the same seed on every platform.
func SeedFromKey(key string) (uint64, uint64) {
	sum := sumWithDomain(DomainSeed, []byte(key))
	return binary.BigEndian.Uint64(sum[0:8]), binary.BigEndian.Uint64(sum[8:16])
}

// SnapshotDigest hashes the canonical form of v. Used to fingerprint a
// materialized table set.
func SnapshotDigest(v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("snapshot digest: %w", err)
	}
	return Digest(DomainSnapshot, data), nil
}
