package tetris

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sw965/heuristune/forkjoin"
	"github.com/sw965/heuristune/ga"
	"github.com/sw965/heuristune/mathx/randx"
	"gonum.org/v1/gonum/stat"
)

var ErrInvalidProblemConfig = errors.New("tetris: invalid problem config")

const (
	AggregateMin  = "min"
	AggregateMean = "mean"
)

type ProblemConfig struct {
	// Games played per fitness evaluation.
	Games int
	// MaxMoves caps the pieces placed per game. <= 0 means no cap.
	MaxMoves int
	// Seed of the piece sequences. Every genome plays the same sequences.
	// 0 picks a random seed once per Problem.
	Seed uint64
	// Genes are drawn from [0, GeneMax).
	GeneMax float32
	// TargetRows ends the run once the best fitness reaches it.
	TargetRows float64
	// MaxGenerations ends the run after this many generations. <= 0 means no cap.
	MaxGenerations int
	// Aggregate combines per-game rows cleared: AggregateMin or AggregateMean.
	Aggregate string
}

func DefaultProblemConfig() ProblemConfig {
	return ProblemConfig{
		Games:      5,
		MaxMoves:   5000,
		Seed:       1,
		GeneMax:    4,
		TargetRows: 7,
		Aggregate:  AggregateMin,
	}
}

func (c ProblemConfig) Validate() error {
	if c.Games <= 0 {
		return fmt.Errorf("%w: games must be > 0, got %d", ErrInvalidProblemConfig, c.Games)
	}
	if !(c.GeneMax > 0) {
		return fmt.Errorf("%w: gene max must be > 0, got %g", ErrInvalidProblemConfig, c.GeneMax)
	}
	if math.IsNaN(c.TargetRows) {
		return fmt.Errorf("%w: target rows is NaN", ErrInvalidProblemConfig)
	}
	switch c.Aggregate {
	case AggregateMin, AggregateMean:
	default:
		return fmt.Errorf("%w: unknown aggregate %q", ErrInvalidProblemConfig, c.Aggregate)
	}
	return nil
}

// Problem tunes Player weights. Fitness is the aggregate of rows cleared over
// Config.Games games, played in parallel on Pool.
type Problem struct {
	Config   ProblemConfig
	Rules    *Rules
	Features Features
	Pool     *forkjoin.Pool

	seed uint64
}

func NewProblem(cfg ProblemConfig, rules *Rules, features Features, pool *forkjoin.Pool) (*Problem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rules == nil || pool == nil || len(features) == 0 {
		return nil, fmt.Errorf("%w: rules, pool and features are required", ErrInvalidProblemConfig)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64() | 1
	}
	return &Problem{Config: cfg, Rules: rules, Features: features, Pool: pool, seed: seed}, nil
}

func (p *Problem) NewGenome(rng *rand.Rand) (ga.Genome, error) {
	g := make(ga.Genome, len(p.Features))
	for i := range g {
		g[i] = randx.Float32(0, p.Config.GeneMax, rng)
	}
	return g, nil
}

func (p *Problem) Mutate(g ga.Genome, geneIdx int, rng *rand.Rand) error {
	if geneIdx < 0 || geneIdx >= len(g) {
		return fmt.Errorf("gene index %d out of range [0, %d)", geneIdx, len(g))
	}
	g[geneIdx] = randx.Float32(0, p.Config.GeneMax, rng)
	return nil
}

func (p *Problem) Fitness(g ga.Genome) (float64, error) {
	player, err := NewPlayer(p.Rules, p.Features, g, p.Pool)
	if err != nil {
		return 0, err
	}

	games := make([]int, p.Config.Games)
	for i := range games {
		games[i] = i
	}
	return forkjoin.MapReduce(p.Pool, games,
		func(i int) (float64, error) {
			result, err := player.Play(randx.Derive(p.seed, i), p.Config.MaxMoves)
			if err != nil {
				return 0, err
			}
			return float64(result.RowsCleared), nil
		},
		p.aggregate)
}

func (p *Problem) aggregate(rows []float64) (float64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	switch p.Config.Aggregate {
	case AggregateMean:
		return stat.Mean(rows, nil), nil
	default:
		worst := rows[0]
		for _, r := range rows[1:] {
			worst = math.Min(worst, r)
		}
		return worst, nil
	}
}

func (p *Problem) Terminate() ga.TerminateFunc {
	target := ga.TargetFitness(p.Config.TargetRows)
	if p.Config.MaxGenerations <= 0 {
		return target
	}
	return ga.AnyOf(target, ga.MaxGenerations(p.Config.MaxGenerations))
}

// Domain returns the contract the ga engine runs against. Each call builds a
// fresh termination predicate.
func (p *Problem) Domain() ga.Domain {
	return ga.Domain{
		NewGenomeFunc: p.NewGenome,
		FitnessFunc:   p.Fitness,
		MutateFunc:    p.Mutate,
		CrossoverFunc: ga.SinglePointCrossover,
		TerminateFunc: p.Terminate(),
	}
}
