package ga

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// DegeneratePolicy decides how parents are drawn when roulette selection is
// undefined, i.e. some fitness is negative or the total is not positive.
type DegeneratePolicy int

const (
	// DegenerateRank switches to linear ranking selection.
	DegenerateRank DegeneratePolicy = iota
	// DegenerateReject fails the run with ErrSelectionDegenerate.
	DegenerateReject
	// DegenerateUniform draws parents uniformly.
	DegenerateUniform
)

func (p DegeneratePolicy) String() string {
	switch p {
	case DegenerateRank:
		return "rank"
	case DegenerateReject:
		return "reject"
	case DegenerateUniform:
		return "uniform"
	default:
		return fmt.Sprintf("DegeneratePolicy(%d)", int(p))
	}
}

func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch s {
	case "rank", "":
		return DegenerateRank, nil
	case "reject":
		return DegenerateReject, nil
	case "uniform":
		return DegenerateUniform, nil
	}
	return 0, fmt.Errorf("%w: unknown degenerate policy %q", ErrInvalidConfig, s)
}

// IndexSelector draws the index of one parent.
type IndexSelector func(rng *rand.Rand) int

// Roulette walks fitnesses in order, subtracting each from r, and returns
// the first index where r < fitness. If rounding exhausts the walk it falls
// back to index 0.
func Roulette(fitnesses []float64, r float64) int {
	for i, f := range fitnesses {
		if r < f {
			return i
		}
		r -= f
	}
	return 0
}

// NewRouletteSelector returns a fitness-proportionate selector. The total is
// computed once here.
func NewRouletteSelector(fitnesses []float64) (IndexSelector, error) {
	if len(fitnesses) == 0 {
		return nil, fmt.Errorf("%w: empty generation", ErrSelectionDegenerate)
	}
	total := 0.0
	for i, f := range fitnesses {
		if f < 0 {
			return nil, fmt.Errorf("%w: negative fitness %g at index %d", ErrSelectionDegenerate, f, i)
		}
		total += f
	}
	if !(total > 0) || math.IsInf(total, 1) {
		return nil, fmt.Errorf("%w: total fitness %g", ErrSelectionDegenerate, total)
	}
	return func(rng *rand.Rand) int {
		return Roulette(fitnesses, rng.Float64()*total)
	}, nil
}

// LinearRankingProb is the selection probability of the genome at rank
// (1 = best) among n, with selection pressure s in [1, 2].
func LinearRankingProb(n, rank int, s float64) float64 {
	if n == 1 {
		return 1.0
	}
	m := 2.0 - s
	return 1.0 / float64(n) * (m + (s-m)*(float64(n-rank)/float64(n-1)))
}

// NewLinearRankingSelector ranks genomes by fitness (earlier index first on
// ties) and draws with LinearRankingProb.
func NewLinearRankingSelector(fitnesses []float64, pressure float64) (IndexSelector, error) {
	n := len(fitnesses)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty generation", ErrSelectionDegenerate)
	}
	if pressure < 1 || pressure > 2 {
		return nil, fmt.Errorf("%w: rank pressure %g outside [1, 2]", ErrInvalidConfig, pressure)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return fitnesses[order[i]] > fitnesses[order[j]]
	})

	ws := make([]float64, n)
	for rank, idx := range order {
		ws[idx] = LinearRankingProb(n, rank+1, pressure)
	}
	total := 0.0
	for _, w := range ws {
		total += w
	}
	return func(rng *rand.Rand) int {
		return Roulette(ws, rng.Float64()*total)
	}, nil
}

func NewUniformSelector(n int) IndexSelector {
	return func(rng *rand.Rand) int {
		return rng.IntN(n)
	}
}

func newSelector(fitnesses []float64, cfg Config) (IndexSelector, error) {
	sel, err := NewRouletteSelector(fitnesses)
	if err == nil {
		return sel, nil
	}
	switch cfg.Degenerate {
	case DegenerateRank:
		return NewLinearRankingSelector(fitnesses, cfg.RankPressure)
	case DegenerateUniform:
		return NewUniformSelector(len(fitnesses)), nil
	default:
		return nil, err
	}
}
