// Package optimize implements the generic 2-D minimizer (C3) that
// internal/calib drives to null out LO leakage and I/Q imbalance: two
// correction axes, alternating golden-section or full-sweep search,
// with re-narrowing windows between passes.
package optimize

import "fmt"

// MeasureFunc evaluates the cost at one axis value. Run builds one per
// axis as a closure over the 2-D measurement that holds the other axis
// fixed.
type MeasureFunc func(axisValue int) (float64, error)

// Strategy is the tagged variant replacing the original driver's
// function-pointer dispatch between golden-section and full-sweep
// search, per the "tagged variants for polymorphism" design note.
type Strategy int

const (
	// Golden performs golden-section search, assuming a unimodal cost
	// surface within the window.
	Golden Strategy = iota
	// Sweep performs a full linear sweep, stepping by 1+Tuning,
	// used when the surface may be multimodal within a small range.
	Sweep
)

const goldenRatio = 0.61803398875

// result is what a 1-D search returns: the argmin and its cost.
type result struct {
	x   int
	f   float64
}

// search1D dispatches to the strategy's implementation over the
// integer window [start, stop], using measure to evaluate points.
func search1D(strategy Strategy, start, stop int, tuning float64, measure MeasureFunc) (result, error) {
	if start > stop {
		start, stop = stop, start
	}
	switch strategy {
	case Golden:
		return goldenSection(start, stop, measure)
	case Sweep:
		return fullSweep(start, stop, tuning, measure)
	default:
		return result{}, fmt.Errorf("optimize: unknown search strategy %d", strategy)
	}
}

// goldenSection minimizes measure over the integer range [a, b].
// Maintains two interior points x1 = a + d, x2 = b - d where
// d = floor((b-a) * phi); evaluates both, keeps the side holding the
// smaller value, recomputes d, and scans the last window directly
// once it is at most two steps wide. On a strictly convex
// integer function this converges in O(log2(b-a)) evaluations.
func goldenSection(a, b int, measure MeasureFunc) (result, error) {
	best := result{x: a, f: 0}
	haveBest := false

	updateBest := func(x int, f float64) {
		if !haveBest || f < best.f {
			best = result{x: x, f: f}
			haveBest = true
		}
	}

	for {
		d := int(float64(b-a) * goldenRatio)
		if d == 0 || b-a <= 2 {
			// Window collapsed: evaluate the remaining candidates
			// directly so a 1- or 2-point window still returns a
			// real minimum instead of an uninitialized one.
			for x := a; x <= b; x++ {
				f, err := measure(x)
				if err != nil {
					return result{}, err
				}
				updateBest(x, f)
			}
			return best, nil
		}

		x1 := a + d
		x2 := b - d
		// Order the pair so x1 is the left point; with d above half the
		// window, a + d lies right of b - d.
		if x1 > x2 {
			x1, x2 = x2, x1
		}
		if x1 == x2 {
			x2 = x1 + 1
		}

		f1, err := measure(x1)
		if err != nil {
			return result{}, err
		}
		f2, err := measure(x2)
		if err != nil {
			return result{}, err
		}
		updateBest(x1, f1)
		updateBest(x2, f2)

		if f1 <= f2 {
			b = x2
		} else {
			a = x1
		}
		if a >= b {
			return best, nil
		}
	}
}

// fullSweep steps from start to stop by step = 1 + tuning (rounded to
// at least 1), keeping the argmin.
func fullSweep(start, stop int, tuning float64, measure MeasureFunc) (result, error) {
	step := int(1 + tuning)
	if step < 1 {
		step = 1
	}

	best := result{x: start}
	haveBest := false
	for x := start; x <= stop; x += step {
		f, err := measure(x)
		if err != nil {
			return result{}, err
		}
		if !haveBest || f < best.f {
			best = result{x: x, f: f}
			haveBest = true
		}
	}
	return best, nil
}
