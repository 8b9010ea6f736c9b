package chain

import (
	"math/rand"
	"time"
)

// Rand is the pseudorandom source used for quote noise.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded source. A zero seed uses the wall clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Uniform samples a float in [lo, hi).
func Uniform(r Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// IntBetween samples an int in [lo, hi], inclusive.
func IntBetween(r Rand, lo, hi int) int {
	return lo + r.Intn(hi-lo+1)
}
