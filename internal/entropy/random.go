// Package entropy provides the random sources raid resolution draws from.
// Resolution never calls the global math/rand functions; a Source is injected
// so a seeded run reproduces the same outcomes.
package entropy

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// Source is a stream of uniform random numbers.
type Source interface {
	// Float returns a random float64 in [0, 1).
	Float() float64
	// Intn returns a random int in [0, n). n must be > 0.
	Intn(n int) int
}

// Seeded is a reproducible Source backed by math/rand.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded creates a Source that yields the same sequence for the same seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewSource(seed))}
}

// Float returns a random float64 in [0, 1).
func (s *Seeded) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Intn returns a random int in [0, n).
func (s *Seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// NewSeed generates a high-entropy seed using crypto/rand. Falls back to a
// fixed seed if the system source fails.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 42
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}

// Between returns a uniform float in [lo, hi).
func Between(src Source, lo, hi float64) float64 {
	return lo + src.Float()*(hi-lo)
}

// IntBetween returns a uniform int in [lo, hi]. Returns lo when hi <= lo.
func IntBetween(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Chance reports whether a roll against probability p (0–1) succeeds.
func Chance(src Source, p float64) bool {
	return src.Float() < p
}

// Fixed replays a scripted sequence of floats, cycling when exhausted.
// Intn maps the next float onto [0, n). Used to pin outcomes in tests.
type Fixed struct {
	Values []float64
	next   int
}

// Float returns the next scripted value.
func (f *Fixed) Float() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}

// Intn maps the next scripted value onto [0, n).
func (f *Fixed) Intn(n int) int {
	i := int(f.Float() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
