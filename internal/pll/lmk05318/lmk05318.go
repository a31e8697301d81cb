// Package lmk05318 solves and programs the TI LMK05318 dual-APLL
// fractional-N clock-tree synthesizer: two cascaded analog PLLs
// (APLL1 fixed at the family's primary VCO, APLL2 free to roam its
// band) feeding eight output ports, each independently muxed,
// dividered, and formatted.
//
// Grounded on original_source/src/lib/hw/lmk05318/lmk05318.c: the
// constants below (VCO bands, phase-detector range, post-divider
// range) and the port-solving skeleton (simple-PLL-first, then
// secondary-PLL band search) mirror that driver's structure, adapted
// to Go's explicit-error, no-global-state idiom.
package lmk05318

import "github.com/clocklab/sdrhw/internal/pll"

const chipName = "LMK05318"

// Fixed family constants. VCO1 never varies per instance - APLL1's
// feedback divider is always solved to hit this exact frequency from
// whatever reference is fed in, matching the vendor driver's
// VCO_APLL1 compile-time constant.
const (
	VCO1Hz uint64 = 2_500_000_000

	VCO2MinHz uint64 = 5_500_000_000
	VCO2MaxHz uint64 = 6_250_000_000

	APLL2PDMinHz uint64 = 10_000_000
	APLL2PDMaxHz uint64 = 150_000_000

	APLL2PDivMin = 2
	APLL2PDivMax = 7

	MaxOutPorts = 8

	// fracDenMax24 is the largest denominator a 24-bit fractional
	// register can hold after GCD reduction.
	fracDenMax24 uint64 = 1<<24 - 1
	// dpllDen40 is the fixed 40-bit denominator DPLL mode always uses.
	dpllDen40 uint64 = 1 << 40
)

// maxOutputDivider mirrors lmk05318_max_odiv: every port but the last
// has an 8-bit output divider; port 7 has an extra cascaded stage
// giving it a much larger effective range.
func maxOutputDivider(port int) uint64 {
	if port == 7 {
		return 1 << 32
	}
	return 1 << 8
}

// pairedPorts lists the output pairs that share one physical divider
// and mux path on this chip: a caller's requests for both ports in a
// pair must agree on everything but the port index.
var pairedPorts = [][2]int{{0, 1}, {2, 3}}

// Fraction is a reduced N + num/den feedback term.
type Fraction struct {
	N   uint64
	Num uint64
	Den uint64
}

// Solution is the complete programmed state for one chip instance:
// the primary and secondary feedback fractions, the secondary
// post-dividers, and each port's routing.
type Solution struct {
	Primary   Fraction
	PreR, RS  int // primary-side predivider/R-divider for the secondary PFD
	Secondary Fraction
	VCO2Hz    uint64
	PD1, PD2  int
	Ports     []pll.OutputSolution
}

var (
	// ErrNoSolution is returned wrapped with chip/op context; kept
	// here only as a doc anchor, sdrerr constructors build the actual
	// values.
	_ = pll.ErrNoSolution
)
