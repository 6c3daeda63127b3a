// Package resetcode generates the short, human-transcribable codes sent to
// users during password recovery.
package resetcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Generator produces fixed-length codes over a configurable alphabet using
// a cryptographically strong random source. Codes carry no sequential or
// time-derived component.
type Generator struct {
	alphabet string
	length   int
}

// NewGenerator returns a Generator for the given alphabet and code length.
func NewGenerator(alphabet string, length int) (*Generator, error) {
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("reset code alphabet too small: %d symbols", len(alphabet))
	}
	if length < 1 {
		return nil, fmt.Errorf("invalid reset code length: %d", length)
	}
	return &Generator{alphabet: alphabet, length: length}, nil
}

// Generate returns a fresh code. Each position is drawn with rand.Int so the
// selection stays uniform over the alphabet.
func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(g.alphabet)))

	code := make([]byte, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("error generating reset code: %w", err)
		}
		code[i] = g.alphabet[n.Int64()]
	}

	return string(code), nil
}
