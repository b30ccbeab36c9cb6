package ga

// TerminateFunc is called once per generation with the evaluated record.
type TerminateFunc func(Generation) bool

// TargetFitness stops once the best fitness reaches threshold.
func TargetFitness(threshold float64) TerminateFunc {
	return func(g Generation) bool {
		best, ok := g.Best()
		return ok && best.Fitness >= threshold
	}
}

// MaxGenerations stops after n calls. It counts calls, so one value must not
// be shared between runs.
func MaxGenerations(n int) TerminateFunc {
	count := 0
	return func(Generation) bool {
		count++
		return count >= n
	}
}

// Plateau stops when the best fitness has not improved by more than epsilon
// over the last window generations.
func Plateau(window int, epsilon float64) TerminateFunc {
	var record float64
	stale := -1
	return func(g Generation) bool {
		best, ok := g.Best()
		if !ok {
			return false
		}
		if stale < 0 || best.Fitness > record+epsilon {
			record = best.Fitness
			stale = 0
			return false
		}
		stale++
		return stale >= window
	}
}

// AnyOf stops when any of fs does. Every predicate is called each generation
// so stateful ones keep counting.
func AnyOf(fs ...TerminateFunc) TerminateFunc {
	return func(g Generation) bool {
		stop := false
		for _, f := range fs {
			if f(g) {
				stop = true
			}
		}
		return stop
	}
}
