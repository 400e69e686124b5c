// Package shortid generates the service's opaque identifiers and URL
// fingerprints. Link ids and token values are drawn from the same
// base-58 alphabet; fingerprints are BLAKE3-256 digests used only for
// deduplication, never as public identifiers.
package shortid

import (
	"crypto/rand"
	"fmt"

	"github.com/zeebo/blake3"
)

// Alphabet is the 58-symbol set used for link ids and token values.
// It is the Bitcoin base-58 set: visually ambiguous characters
// (0, O, I, l) are excluded.
const Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const (
	// LinkIDLength is the length of public link identifiers.
	LinkIDLength = 7
	// TokenLength is the length of issued token values.
	TokenLength = 44
)

// New returns a string of length n with each character drawn
// independently and uniformly from Alphabet, using crypto/rand.
// The generator performs no uniqueness check against existing ids;
// callers that need uniqueness must enforce it at the storage layer.
func New(n int) (string, error) {
	out := make([]byte, n)
	// Rejection sampling keeps the distribution uniform: 256 is not a
	// multiple of 58, so plain modulo would bias the low symbols.
	const limit = 256 - 256%len(Alphabet) // 232
	buf := make([]byte, n)
	filled := 0
	for filled < n {
		if _, err := rand.Read(buf[:n-filled]); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf[:n-filled] {
			if int(b) >= limit {
				continue
			}
			out[filled] = Alphabet[int(b)%len(Alphabet)]
			filled++
		}
	}
	return string(out), nil
}

// Fingerprint returns the BLAKE3-256 digest of the canonical URL
// string. Identical input strings always produce identical digests.
func Fingerprint(canonicalURL string) [32]byte {
	return blake3.Sum256([]byte(canonicalURL))
}
