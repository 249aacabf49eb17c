// internal/words/noise.go
//
// Noise tokens: meaningless strings mixed into every batch as distractors.
// Families: alphanumeric runs, symbol bursts, hex codes, corrupted system
// tags and binary bursts.

package words

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

const (
	alnumChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	symbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"
	binaryChars = "01"
)

var corruptedTags = []string{"ERR", "NULL", "VOID", "NaN", "404", "SEG", "DUMP", "FAIL"}

// NoiseGenerator produces tokens that are not dictionary words by construction.
type NoiseGenerator interface {
	NoiseToken() string
}

// Noise is the default NoiseGenerator. It picks uniformly among five token
// families: high-entropy alphanumerics, symbol bursts, hex snippets,
// corrupted system tags, and binary bursts.
type Noise struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNoise returns a generator drawing from rng.
func NewNoise(rng *rand.Rand) *Noise {
	return &Noise{rng: rng}
}

// NoiseToken returns one noise token.
func (n *Noise) NoiseToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.rng.IntN(5) {
	case 0:
		return n.randomString(alnumChars, 5+n.rng.IntN(6))
	case 1:
		return n.randomString(symbolChars, 4+n.rng.IntN(5))
	case 2:
		return fmt.Sprintf("0x%X", n.rng.IntN(65535))
	case 3:
		return fmt.Sprintf("%s_%d", corruptedTags[n.rng.IntN(len(corruptedTags))], n.rng.IntN(99))
	default:
		return n.randomString(binaryChars, 6+n.rng.IntN(4))
	}
}

func (n *Noise) randomString(chars string, length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(chars[n.rng.IntN(len(chars))])
	}
	return b.String()
}
