package lmx2820

import "github.com/clocklab/sdrhw/internal/pll"

// vcoCore is one of the seven adjacent VCO sub-bands the part's
// calibration picks between; each has its own minimum feedback N per
// mash order, since a higher mash order needs a larger N for the same
// VCO frequency to keep the modulator stable.
type vcoCore struct {
	band    pll.Band
	ndivMin [MashOrderThird + 1]uint16
}

var vcoCores = [...]vcoCore{
	{pll.Band{Min: vcoMinHz, Max: 6_350_000_000}, [4]uint16{12, 18, 19, 24}},
	{pll.Band{Min: 6_350_000_000, Max: 7_300_000_000}, [4]uint16{14, 21, 22, 26}},
	{pll.Band{Min: 7_300_000_000, Max: 8_100_000_000}, [4]uint16{16, 23, 24, 26}},
	{pll.Band{Min: 8_100_000_000, Max: 9_000_000_000}, [4]uint16{16, 26, 27, 29}},
	{pll.Band{Min: 9_000_000_000, Max: 9_800_000_000}, [4]uint16{18, 28, 29, 31}},
	{pll.Band{Min: 9_800_000_000, Max: 10_600_000_000}, [4]uint16{18, 30, 31, 33}},
	{pll.Band{Min: 10_600_000_000, Max: vcoMaxHz + 1}, [4]uint16{20, 33, 34, 36}},
}

var fpdMaxHz = [...]uint64{400_000_000, 300_000_000, 300_000_000, 250_000_000}

// worstVCOCore finds the VCO sub-band containing vcoHz and returns its
// 1-based core selector plus the minimum feedback N that band allows
// at the given mash order. "Worst" because among the cores whose range
// contains vcoHz there is always exactly one (the bands are disjoint
// and exhaustive over [vcoMinHz, vcoMaxHz]); the name matches the
// original driver's, which picks the band covering the request rather
// than optimizing phase noise across overlapping options.
func worstVCOCore(vcoHz uint64, mash MashOrder) (core int, ndivMin uint16, err error) {
	if vcoHz < vcoMinHz || vcoHz > vcoMaxHz || !mash.valid() {
		return 0, 0, pll.ErrInvalidArgument(chipName, "worst_vco_core", "VCO %d Hz or mash order %d out of range", vcoHz, mash)
	}
	for i, c := range vcoCores {
		if vcoHz >= c.band.Min && vcoHz < c.band.Max {
			return i + 1, c.ndivMin[mash], nil
		}
	}
	return 0, 0, pll.ErrInvalidArgument(chipName, "worst_vco_core", "VCO %d Hz matched no core band", vcoHz)
}
