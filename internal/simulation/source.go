package simulation

import (
	"math/rand/v2"

	"github.com/nvandessel/growthsim/internal/design"
)

// Source supplies the uniform and Gaussian draws a run consumes.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// NormFloat64 returns a standard normal value.
	NormFloat64() float64
}

// pcgStream is the fixed PCG stream selector; the seed picks the state.
const pcgStream = 0x9e3779b97f4a7c15

// NewSource returns a deterministic PCG-backed source for seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// RandomSeed returns a non-zero seed from the runtime's auto-seeded
// generator. Zero is reserved for "no seed given".
func RandomSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}

// Uniform draws from [r.Low, r.High).
func Uniform(rng Source, r design.Range) float64 {
	return r.Low + (r.High-r.Low)*rng.Float64()
}
