// Package token generates share-link capability tokens.
package token

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	mrand "math/rand/v2"
	"strconv"
)

const (
	// Base62 alphabet: 0-9, A-Z, a-z
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultLength gives ~190 bits of entropy.
	DefaultLength = 32
)

// Generator produces URL-safe tokens from a secure random source. When the
// source fails it degrades to two concatenated base36 segments from a
// non-cryptographic generator and says so.
type Generator struct {
	source io.Reader
	length int
}

func NewGenerator() *Generator {
	return &Generator{source: rand.Reader, length: DefaultLength}
}

// NewGeneratorWithSource is used by tests to control the random source.
func NewGeneratorWithSource(source io.Reader, length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{source: source, length: length}
}

// Generate returns a token and whether it came from the secure source.
func (g *Generator) Generate() (string, bool) {
	tok, err := secure(g.source, g.length)
	if err == nil {
		return tok, true
	}
	return Fallback(), false
}

func secure(source io.Reader, length int) (string, error) {
	result := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(alphabet)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(source, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = alphabet[num.Int64()]
	}
	return string(result), nil
}

// Fallback builds a weaker token from two random base36 segments.
func Fallback() string {
	return strconv.FormatUint(mrand.Uint64(), 36) + strconv.FormatUint(mrand.Uint64(), 36)
}
