// Package password provides one-way hashing and verification for user
// passwords and reset codes, backed by bcrypt.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher wraps bcrypt with a fixed work factor. The salt is generated per
// call and embedded in the digest, so equal inputs never produce equal
// digests.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs outside the
// bcrypt-supported range are clamped to the library default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt digest of plaintext. A failure here is fatal to
// the calling operation and must not be treated as a mismatch.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("error hashing secret: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Comparison is
// constant-time within bcrypt. Malformed digests yield false, never an
// error or a panic.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
