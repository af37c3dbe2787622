// Package sha256 fingerprints archived payloads.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes hex SHA-256 digests.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() Hasher {
	return Hasher{}
}

// Hash returns the hex digest of data.
func (Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
