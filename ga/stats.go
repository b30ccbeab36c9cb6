package ga

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type GenerationStats struct {
	Generation int
	Best       float64
	BestIndex  int
	Mean       float64
	StdDev     float64
	Min        float64
}

func NewGenerationStats(generation int, record Generation) GenerationStats {
	s := GenerationStats{Generation: generation, BestIndex: -1}
	fs := record.Fitnesses()
	if len(fs) == 0 {
		return s
	}
	// floats.MaxIdx returns the first maximal index.
	s.BestIndex = floats.MaxIdx(fs)
	s.Best = fs[s.BestIndex]
	s.Min = floats.Min(fs)
	if len(fs) == 1 {
		s.Mean = fs[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(fs, nil)
	return s
}
