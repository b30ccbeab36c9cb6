package ga_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/heuristune/ga"
)

func TestRouletteWalk(t *testing.T) {
	fs := []float64{1, 0, 2, 3}
	tests := []struct {
		name string
		r    float64
		want int
	}{
		{name: "first", r: 0, want: 0},
		{name: "first_upper", r: 0.999, want: 0},
		{name: "zero_weight_skipped", r: 1, want: 2},
		{name: "third", r: 2.5, want: 2},
		{name: "last", r: 5.999, want: 3},
		{name: "exhausted_falls_back_to_first", r: 6, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ga.Roulette(fs, tc.r))
		})
	}
}

func TestRouletteUniformOnEqualFitness(t *testing.T) {
	const n = 10
	const draws = 100000
	fs := make([]float64, n)
	for i := range fs {
		fs[i] = 2.5
	}
	sel, err := ga.NewRouletteSelector(fs)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 8))
	counts := make([]int, n)
	for i := 0; i < draws; i++ {
		counts[sel(rng)]++
	}
	// Expected 10000 per bucket, sd ~95; 5% tolerance is > 5 sd.
	for i, c := range counts {
		assert.InDelta(t, draws/n, c, draws/n*0.05, "bucket %d", i)
	}
}

func TestRouletteProportional(t *testing.T) {
	fs := []float64{1, 3}
	sel, err := ga.NewRouletteSelector(fs)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 1))
	hits := 0
	const draws = 20000
	for i := 0; i < draws; i++ {
		if sel(rng) == 1 {
			hits++
		}
	}
	assert.InDelta(t, 0.75, float64(hits)/draws, 0.02)
}

func TestNewRouletteSelectorDegenerate(t *testing.T) {
	tests := []struct {
		name string
		fs   []float64
	}{
		{name: "empty", fs: nil},
		{name: "all_zero", fs: []float64{0, 0, 0}},
		{name: "negative", fs: []float64{5, -1, 2}},
		{name: "all_negative", fs: []float64{-3, -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ga.NewRouletteSelector(tc.fs)
			assert.ErrorIs(t, err, ga.ErrSelectionDegenerate)
		})
	}
}

func TestLinearRankingProb(t *testing.T) {
	for _, n := range []int{1, 2, 5, 40} {
		for _, s := range []float64{1.0, 1.5, 2.0} {
			sum := 0.0
			for rank := 1; rank <= n; rank++ {
				sum += ga.LinearRankingProb(n, rank, s)
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "n=%d s=%g", n, s)
		}
	}
	assert.InDelta(t, 2.0/5.0, ga.LinearRankingProb(5, 1, 2.0), 1e-12)
	assert.InDelta(t, 0.0, ga.LinearRankingProb(5, 5, 2.0), 1e-12)
}

func TestLinearRankingSelectorPrefersFitter(t *testing.T) {
	fs := []float64{-10, -1, -5}
	sel, err := ga.NewLinearRankingSelector(fs, 2.0)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(3, 4))
	counts := make([]int, len(fs))
	for i := 0; i < 30000; i++ {
		counts[sel(rng)]++
	}
	// Probabilities 2/3, 1/3, 0 for ranks 1..3.
	assert.InDelta(t, 20000, counts[1], 600)
	assert.InDelta(t, 10000, counts[2], 600)
	assert.Equal(t, 0, counts[0])

	_, err = ga.NewLinearRankingSelector(fs, 3)
	assert.ErrorIs(t, err, ga.ErrInvalidConfig)
}

func TestParseDegeneratePolicy(t *testing.T) {
	for _, p := range []ga.DegeneratePolicy{ga.DegenerateRank, ga.DegenerateReject, ga.DegenerateUniform} {
		got, err := ga.ParseDegeneratePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ga.ParseDegeneratePolicy("tournament")
	assert.ErrorIs(t, err, ga.ErrInvalidConfig)
}

func TestTerminateFuncs(t *testing.T) {
	gen := func(fs ...float64) ga.Generation {
		g := make(ga.Generation, len(fs))
		for i, f := range fs {
			g[i] = ga.ScoredGenome{Fitness: f, Index: i}
		}
		return g
	}

	reach := ga.TargetFitness(7)
	assert.False(t, reach(gen(1, 6.9)))
	assert.True(t, reach(gen(1, 7)))
	assert.False(t, reach(ga.Generation{}))

	maxGen := ga.MaxGenerations(3)
	assert.False(t, maxGen(nil))
	assert.False(t, maxGen(nil))
	assert.True(t, maxGen(nil))

	plateau := ga.Plateau(2, 0.1)
	assert.False(t, plateau(gen(1)))
	assert.False(t, plateau(gen(2)))
	assert.False(t, plateau(gen(2.05)))
	assert.True(t, plateau(gen(2.08)))

	// AnyOf keeps stateful predicates counting even after one fires.
	counter := ga.MaxGenerations(2)
	stop := ga.AnyOf(ga.TargetFitness(0), counter)
	assert.True(t, stop(gen(1)))
	assert.True(t, stop(gen(-1)))
}
