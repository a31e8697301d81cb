package lmk05318

import "github.com/clocklab/sdrhw/internal/pll"

// solvePrimary computes the APLL1 feedback fraction that steers the
// primary VCO to exactly VCO1Hz from xo, doubled and predivided first.
// The primary VCO frequency is a family constant, never a free
// variable, so this never searches - it is one exact rational divide.
func solvePrimary(xo pll.XOSettings, maxDen uint64) (Fraction, error) {
	pfd := xo.FreqHz
	if xo.DoublerEnabled {
		pfd *= 2
	}
	if pfd == 0 {
		return Fraction{}, pll.ErrInvalidArgument(chipName, "solve_primary", "reference frequency is zero")
	}

	n := VCO1Hz / pfd
	rem := VCO1Hz % pfd
	num, den := pll.ReduceFraction(rem, pfd)
	if den > maxDen {
		return Fraction{}, pll.ErrNoSolution(chipName, "solve_primary",
			"primary feedback fraction %d/%d exceeds %d-bit denominator limit", num, den, bitsFor(maxDen))
	}
	return Fraction{N: n, Num: num, Den: den}, nil
}

func bitsFor(maxDen uint64) int {
	bits := 0
	for maxDen > 0 {
		bits++
		maxDen >>= 1
	}
	return bits
}

// secondaryPFDDivider returns the predivider/R-divider pair that
// brings VCO1Hz down into APLL2's phase-detector range, choosing the
// smallest R that still clears the upper bound (mirrors
// fref_pll2_div_rs in the vendor driver).
func secondaryPFDDivider() (preR, rS int, pfdHz uint64) {
	preR = 1
	rS = int((VCO1Hz + APLL2PDMaxHz - 1) / APLL2PDMaxHz)
	if rS < 1 {
		rS = 1
	}
	pfdHz = VCO1Hz / uint64(preR*rS)
	return preR, rS, pfdHz
}
