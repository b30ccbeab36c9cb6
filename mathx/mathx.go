package mathx

import (
	"github.com/chewxy/math32"
)

func ConvertScale(x, xMin, xMax, yMin, yMax float32) float32 {
	return yMin + (yMax-yMin)*(x-xMin)/(xMax-xMin)
}

// ArgMax returns the index of the largest element, the earliest one on ties.
// NaN never wins. It returns -1 for an empty slice.
func ArgMax(xs []float32) int {
	idx := -1
	best := math32.Inf(-1)
	for i, x := range xs {
		if math32.IsNaN(x) {
			continue
		}
		if idx == -1 || x > best {
			idx = i
			best = x
		}
	}
	return idx
}
