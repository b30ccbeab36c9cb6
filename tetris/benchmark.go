package tetris

import (
	"fmt"

	"github.com/sw965/heuristune/mathx/randx"
	"github.com/sw965/omw/parallel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type BenchmarkResult struct {
	Games  []GameResult
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Benchmark plays games games with player, p at a time. Game i uses the piece
// sequence derived from seed and i, so results match Problem.Fitness for the
// same seed.
func Benchmark(player *Player, games, maxMoves int, seed uint64, p int) (BenchmarkResult, error) {
	if games <= 0 {
		return BenchmarkResult{}, fmt.Errorf("games must be > 0, got %d", games)
	}
	if p <= 0 {
		p = 1
	}

	results := make([]GameResult, games)
	err := parallel.For(games, p, func(workerId, idx int) error {
		r, err := player.Play(randx.Derive(seed, idx), maxMoves)
		if err != nil {
			return err
		}
		results[idx] = r
		return nil
	})
	if err != nil {
		return BenchmarkResult{}, err
	}

	rows := make([]float64, games)
	for i, r := range results {
		rows[i] = float64(r.RowsCleared)
	}
	mean, std := stat.MeanStdDev(rows, nil)
	if games == 1 {
		std = 0
	}
	return BenchmarkResult{
		Games:  results,
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(rows),
		Max:    floats.Max(rows),
	}, nil
}
