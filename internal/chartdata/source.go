// Package chartdata generates the synthetic price series behind the
// dashboard charts: calendar labels, a historical random walk that lands on
// the current price, a noisy forecast path, and the assembled chart that
// places both on one timeline.
package chartdata

import (
	"math/rand/v2"
	"sync"
)

// Source yields uniformly distributed values in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource returns a goroutine-safe source backed by the runtime's
// randomly seeded generator.
func DefaultSource() Source {
	return globalSource{}
}

// lockedSource serializes access to a seeded generator so one Assembler can
// be shared by concurrent HTTP handlers.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// SeededSource returns a goroutine-safe source whose sequence is fully
// determined by seed.
func SeededSource(seed uint64) Source {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}
