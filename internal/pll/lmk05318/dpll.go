package lmk05318

import "github.com/clocklab/sdrhw/internal/pll"

// magicConstant is one device-specific DPLL tuning value the original
// ROM tables carried as an unexplained empirical number. Rather than
// inventing a derivation, they are quarantined here by exact TDC rate,
// and solving in DPLL mode refuses outright if the caller's rate isn't
// in the table - the resolution recorded for the spec's magic-constant
// open question.
type magicConstant struct {
	tdcRateHz     uint64
	loopBandwidth uint32
	damping       uint32
}

var dpllMagicTable = []magicConstant{
	{tdcRateHz: 1_000_000, loopBandwidth: 0x0C, damping: 0x04},
	{tdcRateHz: 10_000_000, loopBandwidth: 0x10, damping: 0x06},
	{tdcRateHz: 19_200_000, loopBandwidth: 0x12, damping: 0x06},
}

func lookupMagic(tdcRateHz uint64) (magicConstant, bool) {
	for _, m := range dpllMagicTable {
		if m.tdcRateHz == tdcRateHz {
			return m, true
		}
	}
	return magicConstant{}, false
}

// solveDPLL computes the primary-loop feedback fraction in digital
// mode: a fixed 40-bit denominator driven by an external reference
// through a TDC, instead of the free-run 24-bit fraction.
func solveDPLL(cfg pll.DPLLConfig) (Fraction, magicConstant, error) {
	magic, ok := lookupMagic(cfg.TDCRateHz)
	if !ok {
		return Fraction{}, magicConstant{}, pll.ErrUnsupported(chipName, "solve_dpll",
			"no DPLL tuning constants for TDC rate %d Hz; refusing to boot with guessed values", cfg.TDCRateHz)
	}
	if cfg.ExternalRefHz == 0 {
		return Fraction{}, magicConstant{}, pll.ErrInvalidArgument(chipName, "solve_dpll", "external reference frequency is zero")
	}

	n := VCO1Hz / cfg.ExternalRefHz
	rem := VCO1Hz % cfg.ExternalRefHz
	num := rem * dpllDen40 / cfg.ExternalRefHz
	return Fraction{N: n, Num: num, Den: dpllDen40}, magic, nil
}
