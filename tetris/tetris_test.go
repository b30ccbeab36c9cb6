package tetris_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/heuristune/forkjoin"
	"github.com/sw965/heuristune/ga"
	"github.com/sw965/heuristune/mathx/randx"
	"github.com/sw965/heuristune/tetris"
)

const (
	pieceO = 0
	pieceI = 1
	pieceS = 5
)

func TestLegalMoves(t *testing.T) {
	rules := tetris.NewRules()
	require.Equal(t, tetris.NumPieces, rules.NumPieces())

	tests := []struct {
		name  string
		piece int
		want  int
	}{
		{name: "O", piece: 0, want: 9},
		{name: "I", piece: 1, want: 17},
		{name: "L", piece: 2, want: 34},
		{name: "J", piece: 3, want: 34},
		{name: "T", piece: 4, want: 34},
		{name: "S", piece: 5, want: 17},
		{name: "Z", piece: 6, want: 17},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			moves, err := rules.LegalMoves(tc.piece)
			require.NoError(t, err)
			assert.Len(t, moves, tc.want)
			for _, m := range moves {
				_, err := rules.Apply(tetris.Board{}, tc.piece, m)
				assert.NoError(t, err)
			}
		})
	}

	_, err := rules.LegalMoves(7)
	assert.ErrorIs(t, err, tetris.ErrInvalidPiece)
	_, err = rules.LegalMoves(-1)
	assert.ErrorIs(t, err, tetris.ErrInvalidPiece)
}

func TestApplyPlacesPiece(t *testing.T) {
	rules := tetris.NewRules()
	var empty tetris.Board

	o, err := rules.Apply(empty, pieceO, tetris.Move{Orient: 0, Slot: 0})
	require.NoError(t, err)
	assert.False(t, o.Lost)
	assert.Zero(t, o.RowsCleared)
	assert.Equal(t, [tetris.Cols]int{2, 2}, o.Board.Top)
	assert.True(t, o.Board.Field[0][0])
	assert.True(t, o.Board.Field[1][1])
	assert.False(t, o.Board.Field[0][2])
	assert.Equal(t, tetris.Board{}, empty)
}

func TestApplyClearsRow(t *testing.T) {
	rules := tetris.NewRules()
	var b tetris.Board
	for _, slot := range []int{0, 4} {
		o, err := rules.Apply(b, pieceI, tetris.Move{Orient: 1, Slot: slot})
		require.NoError(t, err)
		require.Zero(t, o.RowsCleared)
		b = o.Board
	}

	o, err := rules.Apply(b, pieceO, tetris.Move{Orient: 0, Slot: 8})
	require.NoError(t, err)
	assert.Equal(t, 1, o.RowsCleared)
	assert.Equal(t, [tetris.Cols]int{0, 0, 0, 0, 0, 0, 0, 0, 1, 1}, o.Board.Top)
	assert.True(t, o.Board.Field[0][8])
	assert.True(t, o.Board.Field[0][9])
	assert.False(t, o.Board.Field[1][8])
	assert.False(t, o.Board.Field[0][0])
}

func TestApplyLost(t *testing.T) {
	rules := tetris.NewRules()
	var b tetris.Board
	vertical := tetris.Move{Orient: 0, Slot: 0}
	for i := 0; i < 5; i++ {
		o, err := rules.Apply(b, pieceI, vertical)
		require.NoError(t, err)
		require.False(t, o.Lost, "placement %d", i)
		b = o.Board
	}
	require.Equal(t, 20, b.Top[0])

	o, err := rules.Apply(b, pieceI, vertical)
	require.NoError(t, err)
	assert.True(t, o.Lost)
	assert.Equal(t, b, o.Board)
}

func TestApplyRejectsInvalidMove(t *testing.T) {
	rules := tetris.NewRules()
	tests := []struct {
		name  string
		piece int
		move  tetris.Move
		want  error
	}{
		{name: "piece", piece: 9, move: tetris.Move{}, want: tetris.ErrInvalidPiece},
		{name: "orient", piece: pieceO, move: tetris.Move{Orient: 1}, want: tetris.ErrInvalidMove},
		{name: "slot_negative", piece: pieceO, move: tetris.Move{Slot: -1}, want: tetris.ErrInvalidMove},
		{name: "slot_overflow", piece: pieceI, move: tetris.Move{Orient: 1, Slot: 7}, want: tetris.ErrInvalidMove},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rules.Apply(tetris.Board{}, tc.piece, tc.move)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDefaultFeatures(t *testing.T) {
	rules := tetris.NewRules()
	o, err := rules.Apply(tetris.Board{}, pieceS, tetris.Move{Orient: 0, Slot: 0})
	require.NoError(t, err)
	require.Equal(t, 1, o.Board.Holes())
	require.Equal(t, 2, o.Board.MaxHeight())

	features := tetris.DefaultFeatures()
	assert.Equal(t, []string{
		"rows_cleared", "aggregate_height", "holes", "bumpiness", "max_height", "well_depth",
	}, features.Names())

	got := make([]float32, len(features))
	features.Vector(o, got)
	assert.Equal(t, []float32{0, -5, -1, -3, -2, -1}, got)
}

func newPool(t *testing.T, workers int) *forkjoin.Pool {
	t.Helper()
	pool := forkjoin.New(forkjoin.Config{Workers: workers})
	t.Cleanup(pool.Close)
	return pool
}

func TestNewPlayerRejectsWeightsLength(t *testing.T) {
	_, err := tetris.NewPlayer(tetris.NewRules(), tetris.DefaultFeatures(), ga.Genome{1, 2}, newPool(t, 1))
	assert.ErrorIs(t, err, tetris.ErrWeightsLength)
}

func TestPickMove(t *testing.T) {
	rules := tetris.NewRules()
	features := tetris.DefaultFeatures()
	pool := newPool(t, 4)

	var b tetris.Board
	for _, slot := range []int{0, 4} {
		o, err := rules.Apply(b, pieceI, tetris.Move{Orient: 1, Slot: slot})
		require.NoError(t, err)
		b = o.Board
	}

	t.Run("prefers_clearing_move", func(t *testing.T) {
		player, err := tetris.NewPlayer(rules, features, ga.Genome{1, 0, 0, 0, 0, 0}, pool)
		require.NoError(t, err)
		m, o, err := player.PickMove(b, pieceO)
		require.NoError(t, err)
		assert.Equal(t, tetris.Move{Orient: 0, Slot: 8}, m)
		assert.Equal(t, 1, o.RowsCleared)
	})

	t.Run("ties_go_to_first_move", func(t *testing.T) {
		player, err := tetris.NewPlayer(rules, features, make(ga.Genome, len(features)), pool)
		require.NoError(t, err)
		m, _, err := player.PickMove(b, pieceO)
		require.NoError(t, err)
		assert.Equal(t, tetris.Move{Orient: 0, Slot: 0}, m)
	})

	t.Run("all_moves_lose", func(t *testing.T) {
		var full tetris.Board
		for c := range full.Top {
			full.Top[c] = 20
		}
		player, err := tetris.NewPlayer(rules, features, ga.Genome{1, 1, 1, 1, 1, 1}, pool)
		require.NoError(t, err)
		m, o, err := player.PickMove(full, pieceI)
		require.NoError(t, err)
		assert.Equal(t, tetris.Move{Orient: 0, Slot: 0}, m)
		assert.True(t, o.Lost)
	})

	t.Run("invalid_piece", func(t *testing.T) {
		player, err := tetris.NewPlayer(rules, features, make(ga.Genome, len(features)), pool)
		require.NoError(t, err)
		_, _, err = player.PickMove(b, -1)
		assert.ErrorIs(t, err, tetris.ErrInvalidPiece)
	})
}

func TestPlay(t *testing.T) {
	rules := tetris.NewRules()
	features := tetris.DefaultFeatures()
	pool := newPool(t, 2)

	t.Run("respects_max_moves", func(t *testing.T) {
		player, err := tetris.NewPlayer(rules, features, ga.Genome{1, 0.5, 3, 0.3, 0, 0.2}, pool)
		require.NoError(t, err)
		result, err := player.Play(randx.New(3), 25)
		require.NoError(t, err)
		assert.LessOrEqual(t, result.Moves, 25)
		if !result.Lost {
			assert.Equal(t, 25, result.Moves)
		}
	})

	t.Run("deterministic_for_seed", func(t *testing.T) {
		player, err := tetris.NewPlayer(rules, features, ga.Genome{1, 0.5, 3, 0.3, 0, 0.2}, pool)
		require.NoError(t, err)
		a, err := player.Play(randx.Derive(11, 0), 200)
		require.NoError(t, err)
		b, err := player.Play(randx.Derive(11, 0), 200)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestProblemConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*tetris.ProblemConfig)
		ok     bool
	}{
		{name: "default", modify: func(*tetris.ProblemConfig) {}, ok: true},
		{name: "mean", modify: func(c *tetris.ProblemConfig) { c.Aggregate = tetris.AggregateMean }, ok: true},
		{name: "zero_games", modify: func(c *tetris.ProblemConfig) { c.Games = 0 }},
		{name: "zero_gene_max", modify: func(c *tetris.ProblemConfig) { c.GeneMax = 0 }},
		{name: "nan_target", modify: func(c *tetris.ProblemConfig) { c.TargetRows = math.NaN() }},
		{name: "unknown_aggregate", modify: func(c *tetris.ProblemConfig) { c.Aggregate = "median" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tetris.DefaultProblemConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tetris.ErrInvalidProblemConfig)
			}
		})
	}
}

func newProblem(t *testing.T, modify func(*tetris.ProblemConfig)) *tetris.Problem {
	t.Helper()
	cfg := tetris.DefaultProblemConfig()
	cfg.Games = 3
	cfg.MaxMoves = 40
	cfg.Seed = 7
	if modify != nil {
		modify(&cfg)
	}
	problem, err := tetris.NewProblem(cfg, tetris.NewRules(), tetris.DefaultFeatures(), newPool(t, 4))
	require.NoError(t, err)
	return problem
}

func TestProblemGenomes(t *testing.T) {
	problem := newProblem(t, nil)
	rng := randx.New(5)

	g, err := problem.NewGenome(rng)
	require.NoError(t, err)
	require.Len(t, g, len(tetris.DefaultFeatures()))
	for _, v := range g {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(4))
	}

	before := g.Clone()
	require.NoError(t, problem.Mutate(g, 2, rng))
	for i := range g {
		if i != 2 {
			assert.Equal(t, before[i], g[i])
		}
	}
	assert.Error(t, problem.Mutate(g, len(g), rng))
}

func TestProblemFitness(t *testing.T) {
	weights := ga.Genome{1, 0.5, 3, 0.3, 0, 0.2}

	minProblem := newProblem(t, nil)
	a, err := minProblem.Fitness(weights)
	require.NoError(t, err)
	b, err := minProblem.Fitness(weights)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 0.0)

	meanProblem := newProblem(t, func(c *tetris.ProblemConfig) { c.Aggregate = tetris.AggregateMean })
	mean, err := meanProblem.Fitness(weights)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, mean, a)

	_, err = minProblem.Fitness(ga.Genome{1})
	assert.ErrorIs(t, err, tetris.ErrWeightsLength)
}

func TestProblemDomain(t *testing.T) {
	problem := newProblem(t, func(c *tetris.ProblemConfig) { c.MaxGenerations = 2 })
	domain := problem.Domain()
	require.NoError(t, domain.Validate())

	low := ga.Generation{{Genome: ga.Genome{0}, Fitness: 1}}
	assert.False(t, domain.TerminateFunc(low))
	assert.True(t, domain.TerminateFunc(low))

	high := ga.Generation{{Genome: ga.Genome{0}, Fitness: 7}}
	assert.True(t, problem.Domain().TerminateFunc(high))
}

func TestNewProblemRejectsMissingParts(t *testing.T) {
	_, err := tetris.NewProblem(tetris.DefaultProblemConfig(), nil, tetris.DefaultFeatures(), newPool(t, 1))
	assert.ErrorIs(t, err, tetris.ErrInvalidProblemConfig)
}

func TestBenchmarkMatchesProblemMean(t *testing.T) {
	weights := ga.Genome{1, 0.5, 3, 0.3, 0, 0.2}
	problem := newProblem(t, func(c *tetris.ProblemConfig) { c.Aggregate = tetris.AggregateMean })
	want, err := problem.Fitness(weights)
	require.NoError(t, err)

	player, err := tetris.NewPlayer(problem.Rules, problem.Features, weights, problem.Pool)
	require.NoError(t, err)
	got, err := tetris.Benchmark(player, 3, 40, 7, 2)
	require.NoError(t, err)
	require.Len(t, got.Games, 3)
	assert.InDelta(t, want, got.Mean, 1e-9)
	assert.LessOrEqual(t, got.Min, got.Mean)
	assert.GreaterOrEqual(t, got.Max, got.Mean)
	assert.GreaterOrEqual(t, got.StdDev, 0.0)

	_, err = tetris.Benchmark(player, 0, 40, 7, 2)
	assert.Error(t, err)
}

func TestTuneShortRun(t *testing.T) {
	problem := newProblem(t, func(c *tetris.ProblemConfig) {
		c.Games = 2
		c.MaxMoves = 20
		c.TargetRows = math.Inf(1)
		c.MaxGenerations = 3
	})
	cfg := ga.DefaultConfig()
	cfg.PopulationSize = 6
	cfg.Seed = 99

	engine, err := ga.NewEngine(cfg, problem.Domain(), problem.Pool)
	require.NoError(t, err)
	result, err := engine.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Generations)
	assert.Len(t, result.Final, 6)
	assert.Len(t, result.Best.Genome, len(problem.Features))
}
