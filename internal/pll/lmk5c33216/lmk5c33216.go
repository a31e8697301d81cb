// Package lmk5c33216 solves and programs the TI LMK5C33216, a smaller
// sibling of the LMK05318 cascade family: the same two-APLL topology
// (fixed primary VCO, free-roaming secondary VCO band, post-dividers
// feeding output ports) but with four ports instead of eight, no
// port-pairing constraint, and a narrower ROM table of DPLL tuning
// constants.
//
// Grounded on the same lmk05318.c algorithm skeleton as package
// lmk05318; this package reuses the numeric primitives in package pll
// and re-derives its own family constants rather than importing
// lmk05318 directly, since the two chips' register maps don't share
// addresses.
package lmk5c33216

import (
	"sort"
	"time"

	"github.com/clocklab/sdrhw/internal/bus"
	"github.com/clocklab/sdrhw/internal/pll"
	"github.com/clocklab/sdrhw/internal/regmap"
)

const chipName = "LMK5C33216"

const (
	VCO1Hz uint64 = 2_211_840_000

	VCO2MinHz uint64 = 4_800_000_000
	VCO2MaxHz uint64 = 5_400_000_000

	APLL2PDMinHz uint64 = 10_000_000
	APLL2PDMaxHz uint64 = 130_000_000

	APLL2PDivMin = 2
	APLL2PDivMax = 5

	MaxOutPorts = 4

	fracDenMax24 uint64 = 1<<24 - 1
	dpllDen40    uint64 = 1 << 40

	maxOutputDivider uint64 = 1 << 8
)

type Fraction struct{ N, Num, Den uint64 }

type Solution struct {
	Primary   Fraction
	Secondary Fraction
	VCO2Hz    uint64
	PD        int
	Ports     []pll.OutputSolution
}

type Chip struct {
	Regs  *regmap.Map
	state pll.State
}

func New(regs *regmap.Map) *Chip { return &Chip{Regs: regs, state: pll.StateUninit} }

func (c *Chip) State() pll.State { return c.state }

func bitsFor(maxDen uint64) int {
	bits := 0
	for maxDen > 0 {
		bits++
		maxDen >>= 1
	}
	return bits
}

func secondaryPFDDivider() uint64 {
	rS := (VCO1Hz + APLL2PDMaxHz - 1) / APLL2PDMaxHz
	if rS < 1 {
		rS = 1
	}
	return VCO1Hz / rS
}

// dpllMagicTable quarantines the device-specific DPLL tuning
// constants this smaller chip needs; as for LMK05318, the table is
// keyed by TDC rate alone.
var dpllMagicTable = map[uint64]uint32{
	1_000_000:  0x08,
	10_000_000: 0x0B,
}

func (c *Chip) Solve(xo pll.XOSettings, dpll *pll.DPLLConfig, reqs []pll.OutputRequest) (Solution, error) {
	c.Regs.Reset()
	c.state = pll.StateUninit

	var primary Fraction
	var err error
	var loopGain uint32
	if dpll != nil {
		lg, ok := dpllMagicTable[dpll.TDCRateHz]
		if !ok {
			return Solution{}, pll.ErrUnsupported(chipName, "solve", "no DPLL tuning constant for TDC rate %d Hz", dpll.TDCRateHz)
		}
		loopGain = lg
		if dpll.ExternalRefHz == 0 {
			return Solution{}, pll.ErrInvalidArgument(chipName, "solve", "external reference frequency is zero")
		}
		n := VCO1Hz / dpll.ExternalRefHz
		rem := VCO1Hz % dpll.ExternalRefHz
		num := rem * dpllDen40 / dpll.ExternalRefHz
		primary = Fraction{N: n, Num: num, Den: dpllDen40}
	} else {
		pfd := xo.FreqHz
		if xo.DoublerEnabled {
			pfd *= 2
		}
		if pfd == 0 {
			return Solution{}, pll.ErrInvalidArgument(chipName, "solve", "reference frequency is zero")
		}
		n := VCO1Hz / pfd
		rem := VCO1Hz % pfd
		num, den := pll.ReduceFraction(rem, pfd)
		if den > fracDenMax24 {
			return Solution{}, pll.ErrNoSolution(chipName, "solve", "primary feedback fraction %d/%d exceeds 24-bit denominator limit", num, den)
		}
		primary = Fraction{N: n, Num: num, Den: den}
	}
	c.Regs.Stage(regPLL1NDiv, uint32(primary.N))
	c.Regs.Stage(regPLL1Num, uint32(primary.Num))
	c.Regs.Stage(regPLL1Den, uint32(primary.Den))
	if dpll != nil {
		c.Regs.Stage(regPLL1Mode, 1|loopGain<<8)
	}
	c.state = pll.StateAPLL1Tuned

	var simple []pll.OutputSolution
	var remaining []pll.OutputRequest
	for _, r := range reqs {
		if r.Disabled() {
			continue
		}
		if r.Port < 0 || r.Port >= MaxOutPorts {
			return Solution{}, pll.ErrInvalidArgument(chipName, "solve", "port %d out of range", r.Port)
		}
		if r.Affinity != pll.AffinitySecondaryPLL && r.FreqHz <= VCO1Hz {
			div := (VCO1Hz + r.FreqHz/2) / r.FreqHz
			if div > 0 && div <= maxOutputDivider && VCO1Hz/div == r.FreqHz && VCO1Hz%div == 0 {
				mux := pll.MuxPrimary
				if r.PhaseInvert {
					mux = pll.MuxPrimaryInverted
				}
				simple = append(simple, pll.OutputSolution{Port: r.Port, Mux: mux, OutputDiv: div, ActualFreqHz: r.FreqHz})
				continue
			}
		}
		if r.Affinity == pll.AffinityPrimaryPLL {
			return Solution{}, pll.ErrOutOfRange(chipName, "solve", "port %d requested primary-PLL affinity but %d Hz does not divide VCO1 exactly", r.Port, r.FreqHz)
		}
		remaining = append(remaining, r)
	}

	var secondary Fraction
	var vco2 uint64
	var pd int
	var secondarySols []pll.OutputSolution
	if len(remaining) > 0 {
		vco2, pd, secondarySols, err = solveSecondary(remaining)
		if err != nil {
			c.state = pll.StateUninit
			return Solution{}, err
		}
		pfd2 := secondaryPFDDivider()
		n := vco2 / pfd2
		rem := vco2 % pfd2
		num, den := pll.ReduceFraction(rem, pfd2)
		if den > fracDenMax24 {
			c.state = pll.StateUninit
			return Solution{}, pll.ErrNoSolution(chipName, "solve", "secondary feedback fraction %d/%d exceeds %d-bit denominator limit", num, den, bitsFor(fracDenMax24))
		}
		secondary = Fraction{N: n, Num: num, Den: den}
		c.Regs.Stage(regPLL2NDiv, uint32(secondary.N))
		c.Regs.Stage(regPLL2Num, uint32(secondary.Num))
		c.Regs.Stage(regPLL2Den, uint32(secondary.Den))
		c.Regs.Stage(regPD, uint32(pd))
	}
	c.state = pll.StateAPLL2Tuned

	ports := append([]pll.OutputSolution{}, simple...)
	ports = append(ports, secondarySols...)
	for _, s := range ports {
		c.Regs.Stage(regPortDiv(s.Port), uint32(s.OutputDiv))
		c.Regs.Stage(regPortMux(s.Port), uint32(s.Mux))
	}
	c.state = pll.StateOutputsRouted

	return Solution{Primary: primary, Secondary: secondary, VCO2Hz: vco2, PD: pd, Ports: ports}, nil
}

// odCandidate is one output-divider choice and the band of VCO2
// values that land a port's request within its tolerance window
// through it, the single-post-divider analogue of package lmk05318's
// secondaryCandidate.
type odCandidate struct {
	od               uint64
	vco2Min, vco2Max uint64
}

// solveSecondary finds one APLL2 VCO value and single post-divider
// reaching every remaining port within tolerance. Unlike LMK05318 this
// chip has only one post-divider, so there's no two-way partitioning
// search: for each candidate pd, every remaining port's tolerance band
// must intersect a common running range through some output divider.
func solveSecondary(reqs []pll.OutputRequest) (uint64, int, []pll.OutputSolution, error) {
	for pd := APLL2PDivMin; pd <= APLL2PDivMax; pd++ {
		odFor := make(map[int][]odCandidate, len(reqs)) // port -> od candidates
		for _, r := range reqs {
			plus, minus := pll.EffectiveTolerance(r)
			loFreq := uint64(1)
			if r.FreqHz > minus {
				loFreq = r.FreqHz - minus
			}
			hiFreq := r.FreqHz + plus

			var cands []odCandidate
			for od := uint64(1); od <= maxOutputDivider; od++ {
				rawMin := uint64(pd) * od * loFreq
				rawMax := uint64(pd) * od * hiFreq
				if rawMin > VCO2MaxHz {
					break
				}
				if rawMax < VCO2MinHz {
					continue
				}
				vco2Min, vco2Max := rawMin, rawMax
				if vco2Min < VCO2MinHz {
					vco2Min = VCO2MinHz
				}
				if vco2Max > VCO2MaxHz {
					vco2Max = VCO2MaxHz
				}
				cands = append(cands, odCandidate{od: od, vco2Min: vco2Min, vco2Max: vco2Max})
			}
			odFor[r.Port] = cands
		}

		anchor := reqs[0].Port
		for _, ac := range odFor[anchor] {
			intersection := pll.Band{Min: ac.vco2Min, Max: ac.vco2Max}
			assign := map[int]odCandidate{anchor: ac}
			ok := true
			for _, r := range reqs[1:] {
				best, narrowed, found := bestODAt(odFor[r.Port], intersection)
				if !found {
					ok = false
					break
				}
				assign[r.Port] = best
				intersection = narrowed
			}
			if !ok {
				continue
			}

			// Prefer a VCO2 that divides some port's own request
			// exactly, same reasoning as package lmk05318's
			// solveSecondary: only fall back to the intersection's
			// midpoint when no port's exact value survives the full
			// across-port intersection.
			vco2 := intersection.Min + (intersection.Max-intersection.Min)/2
			for _, r := range reqs {
				cand := assign[r.Port]
				exact := uint64(pd) * cand.od * r.FreqHz
				if exact >= intersection.Min && exact <= intersection.Max {
					vco2 = exact
					break
				}
			}
			sols := make([]pll.OutputSolution, 0, len(reqs))
			for _, r := range reqs {
				cand := assign[r.Port]
				divisor := uint64(pd) * cand.od
				actual := (vco2 + divisor/2) / divisor
				plus, minus := pll.EffectiveTolerance(r)
				if !pll.WithinTolerance(r.FreqHz, actual, plus, minus) {
					ok = false
					break
				}
				sols = append(sols, pll.OutputSolution{Port: r.Port, Mux: pll.MuxSecondaryPostDiv1, OutputDiv: cand.od, ActualFreqHz: actual})
			}
			if !ok {
				continue
			}
			sort.Slice(sols, func(i, j int) bool { return sols[i].Port < sols[j].Port })
			return vco2, pd, sols, nil
		}
	}
	return 0, 0, nil, pll.ErrNoSolution(chipName, "solve_secondary", "no common APLL2 VCO frequency (within tolerance) reaches every remaining port through the single post-divider")
}

// bestODAt finds, among cands, the output divider whose VCO2 band
// overlaps running, returning the narrowed intersection. It takes the
// first overlap found: this chip has no post-divider budget to
// conserve, so there's nothing to prefer between matches.
func bestODAt(cands []odCandidate, running pll.Band) (odCandidate, pll.Band, bool) {
	for _, c := range cands {
		narrowed, overlaps := running.Intersect(pll.Band{Min: c.vco2Min, Max: c.vco2Max})
		if overlaps {
			return c, narrowed, true
		}
	}
	return odCandidate{}, pll.Band{}, false
}

func (c *Chip) Flush(dev bus.Device, timeout time.Duration, checkLocked func() (bool, error)) error {
	if err := c.Regs.Flush(dev); err != nil {
		c.state = pll.StateUninit
		return err
	}
	if err := pll.PollLock(chipName, "flush", timeout, checkLocked, nil); err != nil {
		return err
	}
	c.state = pll.StateLocked
	return nil
}
