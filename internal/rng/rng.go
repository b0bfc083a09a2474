// Package rng provides the deterministic random streams used by the
// simulation. A parent stream seeds independent child streams so that
// results are reproducible under a fixed seed regardless of how work is
// sharded, as long as streams are split in a stable order.
package rng

import (
	"math"
	"math/rand/v2"
)

// Rand is a single random stream. It is not safe for concurrent use;
// every worker task owns its own stream obtained via Split.
type Rand struct {
	src *rand.Rand
}

// New creates a stream from a seed. The seed is scrambled through
// splitmix64 so that nearby seeds produce unrelated streams.
func New(seed uint64) *Rand {
	s1 := splitmix64(&seed)
	s2 := splitmix64(&seed)
	return &Rand{src: rand.New(rand.NewPCG(s1, s2))}
}

// Split derives an independent child stream. The child is seeded from
// the parent, advancing the parent by one draw.
func (r *Rand) Split() *Rand {
	seed := r.src.Uint64()
	return New(seed)
}

// Float64 returns a uniform draw in [0, 1).
func (r *Rand) Float64() float64 {
	return r.src.Float64()
}

// IntN returns a uniform draw in [0, n).
func (r *Rand) IntN(n int) int {
	return r.src.IntN(n)
}

// Uint64 returns a uniform 64 bit draw.
func (r *Rand) Uint64() uint64 {
	return r.src.Uint64()
}

// Gaussian returns a standard normally distributed draw.
func (r *Rand) Gaussian() float64 {
	return r.src.NormFloat64()
}

// LogNormal returns a draw from exp(N(mu, sigma^2)). A sigma of zero
// yields the deterministic value exp(mu) without consuming a draw.
func (r *Rand) LogNormal(mu, sigma float64) float64 {
	if sigma == 0 {
		return math.Exp(mu)
	}
	return math.Exp(sigma*r.Gaussian() + mu)
}

func splitmix64(state *uint64) uint64 {
	*state += 0x9e3779b97f4a7c15
	z := *state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
