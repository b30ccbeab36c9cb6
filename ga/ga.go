// Package ga implements a generational genetic algorithm over real-valued
// genomes. Fitness is evaluated in parallel on a forkjoin.Pool.
package ga

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sw965/heuristune/forkjoin"
	"github.com/sw965/heuristune/mathx/randx"
)

var (
	ErrInvalidConfig       = errors.New("ga: invalid config")
	ErrNilDomainFunc       = errors.New("ga: domain function is nil")
	ErrNilPool             = errors.New("ga: pool is nil")
	ErrGenomeLength        = errors.New("ga: genome length mismatch")
	ErrInvalidFitness      = errors.New("ga: fitness is not finite")
	ErrSelectionDegenerate = errors.New("ga: roulette selection is undefined for this generation")
)

// EvaluationError reports the generation and genome index at which a domain
// function failed. Op is one of "init", "fitness", "crossover", "mutate".
type EvaluationError struct {
	Generation int
	Index      int
	Op         string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("ga: generation %d: %s of genome %d: %v", e.Generation, e.Op, e.Index, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

type Config struct {
	PopulationSize int
	CrossoverRate  float64
	MutationRate   float64
	// Seed of the engine's random source. 0 picks a random seed.
	Seed       uint64
	Degenerate DegeneratePolicy
	// RankPressure is the linear ranking pressure used by DegenerateRank, in [1, 2].
	RankPressure float64
}

func DefaultConfig() Config {
	return Config{
		PopulationSize: 20,
		CrossoverRate:  0.6,
		MutationRate:   0.1,
		Degenerate:     DegenerateRank,
		RankPressure:   1.5,
	}
}

func (c Config) Validate() error {
	if c.PopulationSize <= 0 {
		return fmt.Errorf("%w: population size must be > 0, got %d", ErrInvalidConfig, c.PopulationSize)
	}
	if !(c.CrossoverRate >= 0 && c.CrossoverRate <= 1) {
		return fmt.Errorf("%w: crossover rate must be in [0, 1], got %g", ErrInvalidConfig, c.CrossoverRate)
	}
	if !(c.MutationRate >= 0 && c.MutationRate <= 1) {
		return fmt.Errorf("%w: mutation rate must be in [0, 1], got %g", ErrInvalidConfig, c.MutationRate)
	}
	switch c.Degenerate {
	case DegenerateRank:
		if !(c.RankPressure >= 1 && c.RankPressure <= 2) {
			return fmt.Errorf("%w: rank pressure must be in [1, 2], got %g", ErrInvalidConfig, c.RankPressure)
		}
	case DegenerateReject, DegenerateUniform:
	default:
		return fmt.Errorf("%w: unknown degenerate policy %d", ErrInvalidConfig, int(c.Degenerate))
	}
	return nil
}

type NewGenomeFunc func(rng *rand.Rand) (Genome, error)
type FitnessFunc func(Genome) (float64, error)
type MutateFunc func(g Genome, geneIdx int, rng *rand.Rand) error
type CrossoverFunc func(parent1, parent2 Genome, point int) (Genome, Genome, error)

// Domain is the problem the engine optimizes.
//
// FitnessFunc is called concurrently and may call forkjoin.Map on the same
// pool. MutateFunc changes g in place; the engine only passes genomes that no
// other genome shares. A child returned by CrossoverFunc that shares storage
// with a parent or its sibling is copied.
type Domain struct {
	NewGenomeFunc NewGenomeFunc
	FitnessFunc   FitnessFunc
	MutateFunc    MutateFunc
	CrossoverFunc CrossoverFunc
	TerminateFunc TerminateFunc
}

func (d Domain) Validate() error {
	if d.NewGenomeFunc == nil {
		return fmt.Errorf("%w: NewGenomeFunc", ErrNilDomainFunc)
	}
	if d.FitnessFunc == nil {
		return fmt.Errorf("%w: FitnessFunc", ErrNilDomainFunc)
	}
	if d.MutateFunc == nil {
		return fmt.Errorf("%w: MutateFunc", ErrNilDomainFunc)
	}
	if d.CrossoverFunc == nil {
		return fmt.Errorf("%w: CrossoverFunc", ErrNilDomainFunc)
	}
	if d.TerminateFunc == nil {
		return fmt.Errorf("%w: TerminateFunc", ErrNilDomainFunc)
	}
	return nil
}

type ObserveFunc func(GenerationStats)

type Result struct {
	Best           ScoredGenome
	BestGeneration int
	// Final is the last evaluated generation, sorted by ascending fitness.
	Final       Generation
	Generations int
	History     []GenerationStats
}

type Engine struct {
	Config      Config
	Domain      Domain
	Pool        *forkjoin.Pool
	ObserveFunc ObserveFunc

	rng       *rand.Rand
	genomeLen int
}

func NewEngine(cfg Config, domain Domain, pool *forkjoin.Pool) (*Engine, error) {
	e := &Engine{
		Config: cfg,
		Domain: domain,
		Pool:   pool,
		rng:    randx.New(cfg.Seed),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Validate() error {
	if err := e.Config.Validate(); err != nil {
		return err
	}
	if err := e.Domain.Validate(); err != nil {
		return err
	}
	if e.Pool == nil {
		return ErrNilPool
	}
	return nil
}

// Run evolves populations until TerminateFunc accepts an evaluated generation
// and returns the best genome seen over the whole run. The exported fields are
// validated again before the first generation.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if err := e.Validate(); err != nil {
		return Result{}, err
	}

	population, err := e.initialize()
	if err != nil {
		return Result{}, err
	}

	var result Result
	for gen := 0; ; gen++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := e.evaluate(gen, population)
		if err != nil {
			return result, err
		}

		best, _ := record.Best()
		if gen == 0 || best.Fitness > result.Best.Fitness {
			best.Genome = best.Genome.Clone()
			result.Best = best
			result.BestGeneration = gen
		}
		stats := NewGenerationStats(gen, record)
		result.History = append(result.History, stats)
		result.Generations = gen + 1
		if e.ObserveFunc != nil {
			e.ObserveFunc(stats)
		}

		next, err := e.evolve(gen, record)
		if err != nil {
			return result, err
		}

		if e.Domain.TerminateFunc(record) {
			result.Final = record.SortedAscending()
			return result, nil
		}
		population = next
	}
}

func (e *Engine) initialize() (Population, error) {
	n := e.Config.PopulationSize
	population := make(Population, n)
	for i := range population {
		g, err := e.Domain.NewGenomeFunc(e.rng)
		if err != nil {
			return nil, &EvaluationError{Generation: 0, Index: i, Op: "init", Err: err}
		}
		if len(g) == 0 {
			return nil, &EvaluationError{Generation: 0, Index: i, Op: "init", Err: fmt.Errorf("%w: empty genome", ErrGenomeLength)}
		}
		if i > 0 && len(g) != len(population[0]) {
			return nil, &EvaluationError{
				Generation: 0, Index: i, Op: "init",
				Err: fmt.Errorf("%w: got %d genes, want %d", ErrGenomeLength, len(g), len(population[0])),
			}
		}
		population[i] = g
	}
	e.genomeLen = len(population[0])
	return population, nil
}

func (e *Engine) evaluate(gen int, population Population) (Generation, error) {
	fitnesses, err := forkjoin.Map(e.Pool, population, func(g Genome) (float64, error) {
		f, err := e.Domain.FitnessFunc(g)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%w: %g", ErrInvalidFitness, f)
		}
		return f, nil
	})
	if err != nil {
		idx := -1
		var taskErr *forkjoin.TaskError
		if errors.As(err, &taskErr) {
			idx = taskErr.Index
			err = taskErr.Err
		}
		return nil, &EvaluationError{Generation: gen, Index: idx, Op: "fitness", Err: err}
	}

	record := make(Generation, len(population))
	for i, g := range population {
		record[i] = ScoredGenome{Genome: g, Fitness: fitnesses[i], Index: i}
	}
	return record, nil
}

func (e *Engine) evolve(gen int, record Generation) (Population, error) {
	n := e.Config.PopulationSize
	sel, err := newSelector(record.Fitnesses(), e.Config)
	if err != nil {
		return nil, fmt.Errorf("ga: generation %d: %w", gen, err)
	}

	next := make(Population, 0, n+1)
	for len(next) < n {
		idx1, idx2 := sel(e.rng), sel(e.rng)
		parent1, parent2 := record[idx1].Genome, record[idx2].Genome

		if e.rng.Float64() < e.Config.CrossoverRate {
			point := e.rng.IntN(e.genomeLen)
			child1, child2, err := e.Domain.CrossoverFunc(parent1, parent2, point)
			if err != nil {
				return nil, &EvaluationError{Generation: gen, Index: len(next), Op: "crossover", Err: err}
			}
			for _, child := range [...]Genome{child1, child2} {
				if len(child) != e.genomeLen {
					return nil, &EvaluationError{
						Generation: gen, Index: len(next), Op: "crossover",
						Err: fmt.Errorf("%w: got %d genes, want %d", ErrGenomeLength, len(child), e.genomeLen),
					}
				}
			}
			// Children never share storage with a parent or with each other.
			if sharesArray(child1, parent1) || sharesArray(child1, parent2) {
				child1 = child1.Clone()
			}
			if sharesArray(child2, parent1) || sharesArray(child2, parent2) || sharesArray(child2, child1) {
				child2 = child2.Clone()
			}
			next = append(next, child1, child2)
		} else {
			next = append(next, parent1.Clone(), parent2.Clone())
		}
	}
	// An odd population size overshoots by one child.
	next = next[:n]

	for i, g := range next {
		if e.rng.Float64() < e.Config.MutationRate {
			geneIdx := e.rng.IntN(e.genomeLen)
			if err := e.Domain.MutateFunc(g, geneIdx, e.rng); err != nil {
				return nil, &EvaluationError{Generation: gen, Index: i, Op: "mutate", Err: err}
			}
		}
	}
	return next, nil
}

func sharesArray(a, b Genome) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}
