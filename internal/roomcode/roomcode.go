// Package roomcode generates short, human-shareable room codes.
package roomcode

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"
)

// Crockford's base32 alphabet without the letters that read like digits.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	DefaultLength = 4
	MinLength     = 3
	MaxLength     = 12
)

// Generator produces random codes. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	length int
}

// New returns a generator of codes with the given length seeded from seed, so
// the same seed always yields the same sequence.
func New(length int, seed int64) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	u := uint64(seed)
	return &Generator{
		rng:    rand.New(rand.NewPCG(splitmix(u), splitmix(u^0x9e3779b97f4a7c15))),
		length: length,
	}
}

// NewRandom returns a generator seeded from the current time.
func NewRandom(length int) *Generator {
	return New(length, time.Now().UnixNano())
}

// Next returns a fresh code. Uniqueness is the caller's concern; see Unique.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, g.length)
	for i := range b {
		b[i] = alphabet[g.rng.IntN(len(alphabet))]
	}
	return string(b)
}

// Unique draws codes until taken reports one as free, giving up after
// maxAttempts draws.
func (g *Generator) Unique(taken func(string) bool, maxAttempts int) (string, error) {
	for range maxAttempts {
		code := g.Next()
		if !taken(code) {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free room code after %d attempts", maxAttempts)
}

// Length returns the number of characters per code.
func (g *Generator) Length() int {
	return g.length
}

// Validate checks that code could have been produced by a generator of the
// given length. Lookups are case-sensitive, so lowercase letters are invalid.
func Validate(code string, length int) error {
	if len(code) != length {
		return fmt.Errorf("room code must be %d characters, got %d", length, len(code))
	}
	for i := 0; i < len(code); i++ {
		if !isAlphabet(code[i]) {
			return fmt.Errorf("invalid character %q at position %d", code[i], i)
		}
	}
	return nil
}

func isAlphabet(c byte) bool {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return true
		}
	}
	return false
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
