package motion

import "math/rand/v2"

// RandSource supplies uniform draws in [0,1) for blink decisions.
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	Float64() float64
}

// NewRand returns a deterministic source for the given seed.
func NewRand(seed uint64) RandSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// FixedRand always returns the same draw. FixedRand(1) never blinks.
type FixedRand float64

// Float64 returns the fixed value.
func (f FixedRand) Float64() float64 { return float64(f) }
