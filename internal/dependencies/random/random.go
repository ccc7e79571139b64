package random

import (
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"io"
	"math/big"
	mrand "math/rand/v2"
)

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int

	// Uint64 returns a random 64-bit value
	Uint64() uint64
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a cryptographically random int in [0, n)
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	result, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fall back to 0 on error (should never happen with crypto/rand)
		return 0
	}
	return int(result.Int64())
}

// Uint64 returns a cryptographically random 64-bit value
func (r *CryptoRandom) Uint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// SeededRandom is a deterministic Random. Two instances built from the same
// seed produce the same sequence, which is what lets any client that wins a
// transition election compute identical side effects.
type SeededRandom struct {
	rng *mrand.Rand
}

// NewSeeded creates a deterministic Random from a seed
func NewSeeded(seed uint64) *SeededRandom {
	return &SeededRandom{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Derive builds a deterministic Random for one purpose of one session
func Derive(seed uint64, parts ...string) *SeededRandom {
	return NewSeeded(DeriveSeed(seed, parts...))
}

// DeriveSeed mixes a base seed with labels into a new seed
func DeriveSeed(seed uint64, parts ...string) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	_, _ = h.Write(buf[:])
	for _, p := range parts {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(p))
	}
	return h.Sum64()
}

// Intn returns a deterministic int in [0, n)
func (r *SeededRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return r.rng.IntN(n)
}

// Uint64 returns a deterministic 64-bit value
func (r *SeededRandom) Uint64() uint64 {
	return r.rng.Uint64()
}

// Shuffle permutes n elements in place with Fisher-Yates using r
func Shuffle(r Random, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		swap(i, j)
	}
}

// IntRange returns a random int in [lo, hi]
func IntRange(r Random, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Reader adapts r into an io.Reader, so libraries that draw entropy from a
// reader (uuid generation) stay deterministic under a SeededRandom
func Reader(r Random) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r Random
}

func (rd *reader) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], rd.r.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}
