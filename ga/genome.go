package ga

import (
	"fmt"
	"slices"
	"sort"
)

// Genome is one candidate weight vector.
type Genome []float32

func (g Genome) Len() int {
	return len(g)
}

func (g Genome) Clone() Genome {
	return slices.Clone(g)
}

type Population []Genome

// ScoredGenome pairs a genome with its fitness. Index is the genome's position
// in the evaluated population and breaks fitness ties.
type ScoredGenome struct {
	Genome  Genome
	Fitness float64
	Index   int
}

// Generation is an evaluated population, in population order.
type Generation []ScoredGenome

func (g Generation) Fitnesses() []float64 {
	fs := make([]float64, len(g))
	for i, s := range g {
		fs[i] = s.Fitness
	}
	return fs
}

func (g Generation) Genomes() Population {
	pop := make(Population, len(g))
	for i, s := range g {
		pop[i] = s.Genome
	}
	return pop
}

// Best returns the fittest genome, the earliest one on ties.
func (g Generation) Best() (ScoredGenome, bool) {
	if len(g) == 0 {
		return ScoredGenome{}, false
	}
	best := g[0]
	for _, s := range g[1:] {
		if s.Fitness > best.Fitness {
			best = s
		}
	}
	return best, true
}

// SortedAscending returns a copy ordered by fitness, then by Index.
func (g Generation) SortedAscending() Generation {
	sorted := slices.Clone(g)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Fitness != sorted[j].Fitness {
			return sorted[i].Fitness < sorted[j].Fitness
		}
		return sorted[i].Index < sorted[j].Index
	})
	return sorted
}

// SinglePointCrossover returns parent1[:point]+parent2[point:] and
// parent2[:point]+parent1[point:]. point 0 swaps the parents whole and
// point == len keeps them as they are.
func SinglePointCrossover(parent1, parent2 Genome, point int) (Genome, Genome, error) {
	n := len(parent1)
	if n != len(parent2) {
		return nil, nil, fmt.Errorf("%w: parents have %d and %d genes", ErrGenomeLength, n, len(parent2))
	}
	if point < 0 || point > n {
		return nil, nil, fmt.Errorf("crossover point %d out of range [0, %d]", point, n)
	}

	child1 := make(Genome, n)
	child2 := make(Genome, n)
	copy(child1[:point], parent1[:point])
	copy(child2[:point], parent2[:point])
	copy(child1[point:], parent2[point:])
	copy(child2[point:], parent1[point:])
	return child1, child2, nil
}
