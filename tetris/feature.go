package tetris

import (
	"github.com/chewxy/math32"
)

// Feature scores one aspect of a move's outcome. Larger is better, so tuned
// weights are expected to be non-negative.
type Feature struct {
	Name string
	Func func(Outcome) float32
}

type Features []Feature

func (fs Features) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// Vector writes the feature values of o into dst, which must have len(fs)
// elements.
func (fs Features) Vector(o Outcome, dst []float32) {
	for i, f := range fs {
		dst[i] = f.Func(o)
	}
}

func DefaultFeatures() Features {
	return Features{
		{Name: "rows_cleared", Func: func(o Outcome) float32 {
			return float32(o.RowsCleared)
		}},
		{Name: "aggregate_height", Func: func(o Outcome) float32 {
			sum := 0
			for _, t := range o.Board.Top {
				sum += t
			}
			return -float32(sum)
		}},
		{Name: "holes", Func: func(o Outcome) float32 {
			return -float32(o.Board.Holes())
		}},
		{Name: "bumpiness", Func: func(o Outcome) float32 {
			var bump float32
			for c := 1; c < Cols; c++ {
				bump += math32.Abs(float32(o.Board.Top[c] - o.Board.Top[c-1]))
			}
			return -bump
		}},
		{Name: "max_height", Func: func(o Outcome) float32 {
			return -float32(o.Board.MaxHeight())
		}},
		{Name: "well_depth", Func: func(o Outcome) float32 {
			return -float32(wellDepth(o.Board))
		}},
	}
}

// wellDepth sums, over all columns, how far each column lies below both of
// its neighbours. The board edges count as walls.
func wellDepth(b Board) int {
	depth := 0
	for c := 0; c < Cols; c++ {
		left, right := Rows, Rows
		if c > 0 {
			left = b.Top[c-1]
		}
		if c < Cols-1 {
			right = b.Top[c+1]
		}
		if d := min(left, right) - b.Top[c]; d > 0 {
			depth += d
		}
	}
	return depth
}
