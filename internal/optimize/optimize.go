package optimize

import "fmt"

// Bounds is an inclusive integer interval. It is used two ways in
// this package: as the absolute hardware limits of a correction axis,
// and as the offsets a Descriptor adds to the current point to form
// that iteration's search window.
type Bounds struct {
	Min, Max int
}

// Descriptor is one entry of the iteration-descriptor chain described
// in the data model: per-axis search windows (as offsets from the
// current point), the search strategy for each axis, and one tuning
// parameter passed through to whichever search runs.
type Descriptor struct {
	XOffset, YOffset   Bounds
	XStrategy, YStrategy Strategy
	Tuning             float64
}

// Measure2D evaluates the cost at (x, y). Implementations in
// internal/calib drive real hardware; tests use closed-form functions.
type Measure2D func(x, y int) (float64, error)

// Result is the best point the optimizer found plus its cost.
type Result struct {
	X, Y int
	F    float64
}

// Run executes the 2-D optimizer: up to len(descriptors) iterations,
// alternating X then Y search with re-narrowing windows, stopping
// early once the cost drops at or below stopWhen. startX/startY is the
// point to search around initially (cheap clamp: callers pass their
// current hardware correction values here). xBounds/yBounds are the
// absolute hardware range for each axis; every search window is
// clamped into them regardless of what a descriptor's offsets ask for.
//
// Any measurement error aborts the search immediately and is
// propagated to the caller; there is no retry at this layer.
func Run(descriptors []Descriptor, xBounds, yBounds Bounds, startX, startY int, stopWhen float64, measure Measure2D) (Result, error) {
	if len(descriptors) == 0 {
		return Result{}, fmt.Errorf("optimize: no iteration descriptors supplied")
	}

	x, y := startX, startY
	baseline, err := measure(x, y)
	if err != nil {
		return Result{}, err
	}
	best := Result{X: x, Y: y, F: baseline}

	for _, d := range descriptors {
		xWin := clampWindow(x, d.XOffset, xBounds)
		rx, err := search1D(d.XStrategy, xWin.Min, xWin.Max, d.Tuning, func(xv int) (float64, error) {
			return measure(xv, y)
		})
		if err != nil {
			return Result{}, err
		}
		if rx.f < best.F {
			best = Result{X: rx.x, Y: y, F: rx.f}
		}
		x = best.X

		// Commit the best X before the Y search: one measurement at
		// (best_x, current_y) so the hardware reflects the chosen
		// point before Y is searched.
		committed, err := measure(x, y)
		if err != nil {
			return Result{}, err
		}
		if committed < best.F {
			best = Result{X: x, Y: y, F: committed}
		}

		yWin := clampWindow(y, d.YOffset, yBounds)
		ry, err := search1D(d.YStrategy, yWin.Min, yWin.Max, d.Tuning, func(yv int) (float64, error) {
			return measure(x, yv)
		})
		if err != nil {
			return Result{}, err
		}
		if ry.f < best.F {
			best = Result{X: x, Y: ry.x, F: ry.f}
		}
		y = best.Y

		// Commit the best Y at (best_x, best_y).
		final, err := measure(x, y)
		if err != nil {
			return Result{}, err
		}
		if final < best.F {
			best = Result{X: x, Y: y, F: final}
		}

		if best.F <= stopWhen {
			break
		}
		x, y = best.X, best.Y
	}

	return best, nil
}

func clampWindow(center int, offset, abs Bounds) Bounds {
	lo := center + offset.Min
	hi := center + offset.Max
	if lo < abs.Min {
		lo = abs.Min
	}
	if hi > abs.Max {
		hi = abs.Max
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return Bounds{Min: lo, Max: hi}
}
