package randx

import (
	"math/rand/v2"

	"github.com/sw965/heuristune/mathx"
)

// New returns a PCG-backed generator. seed == 0 draws a fresh seed.
func New(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// Derive returns a generator for stream i of seed. Streams of the same seed
// are independent of each other and of the order they are created in.
func Derive(seed uint64, i int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(i)+0x9e3779b97f4a7c15))
}

// Float32 draws uniformly from [min, max).
func Float32(min, max float32, rng *rand.Rand) float32 {
	return mathx.ConvertScale(rng.Float32(), 0.0, 1.0, min, max)
}

// Grid draws uniformly from {min, min+step, ..., max}.
func Grid(min, max, step float32, rng *rand.Rand) float32 {
	n := int((max-min)/step + 0.5)
	return min + float32(rng.IntN(n+1))*step
}
