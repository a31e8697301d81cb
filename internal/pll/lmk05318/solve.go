package lmk05318

import (
	"time"

	"github.com/clocklab/sdrhw/internal/bus"
	"github.com/clocklab/sdrhw/internal/pll"
	"github.com/clocklab/sdrhw/internal/regmap"
)

// Chip drives one LMK05318 instance through the full solve → stage →
// flush → lock-poll lifecycle, owning the PLL state machine and a
// deferred register map scoped to one programming episode.
type Chip struct {
	Regs  *regmap.Map
	state pll.State
}

// New wraps an already-constructed register map. The caller owns the
// map's lifetime and the bus device it will eventually flush to.
func New(regs *regmap.Map) *Chip {
	return &Chip{Regs: regs, state: pll.StateUninit}
}

// State reports where the last Solve call left the state machine.
func (c *Chip) State() pll.State { return c.state }

// Solve computes a full register program for reqs against the given
// reference and, when non-nil, digital-PLL configuration. It does not
// touch the bus: call Flush afterward to commit. On any failure the
// state machine rewinds to uninit and the register map holds only what
// this call staged before it failed (Solve always starts by resetting
// it).
func (c *Chip) Solve(xo pll.XOSettings, dpll *pll.DPLLConfig, reqs []pll.OutputRequest) (Solution, error) {
	c.Regs.Reset()
	c.state = pll.StateUninit

	if err := normalizePorts(reqs); err != nil {
		return Solution{}, err
	}

	var primary Fraction
	var err error
	var magic magicConstant
	if dpll != nil {
		primary, magic, err = solveDPLL(*dpll)
	} else {
		primary, err = solvePrimary(xo, fracDenMax24)
	}
	if err != nil {
		return Solution{}, err
	}
	c.stagePrimary(primary, dpll, magic)
	c.state = pll.StateAPLL1Tuned

	var simple []pll.OutputSolution
	var remaining []pll.OutputRequest
	for _, r := range reqs {
		if r.Disabled() {
			continue
		}
		if sol, ok := trySimpleRoute(r); ok {
			simple = append(simple, sol)
			continue
		}
		if r.Affinity == pll.AffinityPrimaryPLL {
			c.state = pll.StateUninit
			return Solution{}, pll.ErrOutOfRange(chipName, "solve",
				"port %d requested primary-PLL affinity but %d Hz does not divide VCO1 exactly", r.Port, r.FreqHz)
		}
		remaining = append(remaining, r)
	}

	var secondary Fraction
	var plan secondaryPlan
	if len(remaining) > 0 {
		plan, err = solveSecondary(remaining)
		if err != nil {
			c.state = pll.StateUninit
			return Solution{}, err
		}
		_, _, pfd2 := secondaryPFDDivider()
		secondary, err = reduceExact(plan.vco2, pfd2, fracDenMax24)
		if err != nil {
			c.state = pll.StateUninit
			return Solution{}, err
		}
		c.stageSecondary(secondary, plan)
	}
	c.state = pll.StateAPLL2Tuned

	solutions := append([]pll.OutputSolution{}, simple...)
	for port, cand := range plan.assign {
		mux := pll.MuxSecondaryPostDiv1
		if cand.pd == plan.pd2 && plan.pd2 != plan.pd1 {
			mux = pll.MuxSecondaryPostDiv2
		}
		divisor := uint64(cand.pd) * uint64(cand.od)
		actual := (plan.vco2 + divisor/2) / divisor
		req := requestFor(reqs, port)
		plus, minus := pll.EffectiveTolerance(req)
		if !pll.WithinTolerance(req.FreqHz, actual, plus, minus) {
			c.state = pll.StateUninit
			return Solution{}, pll.ErrNoSolution(chipName, "solve_secondary",
				"port %d: chosen VCO2 %d Hz divides to %d Hz, outside tolerance of requested %d Hz", port, plan.vco2, actual, req.FreqHz)
		}
		sol := pll.OutputSolution{Port: port, Mux: mux, OutputDiv: uint64(cand.od), ActualFreqHz: actual}
		solutions = append(solutions, sol)
		c.stagePort(sol, formatFor(reqs, port), invertFor(reqs, port))
	}
	for _, s := range simple {
		c.stagePort(s, formatFor(reqs, s.Port), invertFor(reqs, s.Port))
	}
	c.state = pll.StateOutputsRouted

	preR, rS, _ := secondaryPFDDivider()
	return Solution{
		Primary:   primary,
		PreR:      preR,
		RS:        rS,
		Secondary: secondary,
		VCO2Hz:    plan.vco2,
		PD1:       plan.pd1,
		PD2:       plan.pd2,
		Ports:     solutions,
	}, nil
}

// Flush commits the staged register map to dev and, on success, moves
// the state machine on to locked once PollLock confirms both loops.
func (c *Chip) Flush(dev bus.Device, timeout time.Duration, checkLocked func() (bool, error), onTimeout func() string) error {
	if err := c.Regs.Flush(dev); err != nil {
		c.state = pll.StateUninit
		return err
	}
	if err := pll.PollLock(chipName, "flush", timeout, checkLocked, onTimeout); err != nil {
		return err
	}
	c.state = pll.StateLocked
	return nil
}

func reduceExact(target, pfd uint64, maxDen uint64) (Fraction, error) {
	if pfd == 0 {
		return Fraction{}, pll.ErrInvalidArgument(chipName, "solve_secondary", "secondary phase-detector frequency is zero")
	}
	n := target / pfd
	rem := target % pfd
	num, den := pll.ReduceFraction(rem, pfd)
	if den > maxDen {
		return Fraction{}, pll.ErrNoSolution(chipName, "solve_secondary",
			"secondary feedback fraction %d/%d exceeds %d-bit denominator limit", num, den, bitsFor(maxDen))
	}
	return Fraction{N: n, Num: num, Den: den}, nil
}

func requestFor(reqs []pll.OutputRequest, port int) pll.OutputRequest {
	for _, r := range reqs {
		if r.Port == port {
			return r
		}
	}
	return pll.OutputRequest{Port: port}
}

func formatFor(reqs []pll.OutputRequest, port int) pll.Format {
	for _, r := range reqs {
		if r.Port == port {
			return r.Format
		}
	}
	return pll.FormatOff
}

func invertFor(reqs []pll.OutputRequest, port int) bool {
	for _, r := range reqs {
		if r.Port == port {
			return r.PhaseInvert
		}
	}
	return false
}

func (c *Chip) stagePrimary(f Fraction, dpll *pll.DPLLConfig, magic magicConstant) {
	c.Regs.Stage(regPLL1NDiv, uint32(f.N))
	c.Regs.Stage(regPLL1Num, uint32(f.Num))
	c.Regs.Stage(regPLL1Den, uint32(f.Den))
	preR, rS, _ := secondaryPFDDivider()
	c.Regs.Stage(regPLL1RDiv, uint32(preR)<<16|uint32(rS))

	mode := uint32(0)
	if dpll != nil {
		mode = fieldDPLLEnable.Set(mode, 1)
		mode |= uint32(magic.loopBandwidth)<<8 | uint32(magic.damping)<<16
	}
	c.Regs.Stage(regPLL1Mode, mode)
}

func (c *Chip) stageSecondary(f Fraction, plan secondaryPlan) {
	c.Regs.Stage(regPLL2NDiv, uint32(f.N))
	c.Regs.Stage(regPLL2Num, uint32(f.Num))
	c.Regs.Stage(regPLL2Den, uint32(f.Den))
	c.Regs.Stage(regPD1, uint32(plan.pd1))
	c.Regs.Stage(regPD2, uint32(plan.pd2))
}

func (c *Chip) stagePort(sol pll.OutputSolution, format pll.Format, invert bool) {
	c.Regs.Stage(regPortDiv(sol.Port), fieldPortDiv.Set(0, uint32(sol.OutputDiv)))
	word := fieldPortMux.Set(0, uint32(sol.Mux))
	word = fieldPortFormat.Set(word, uint32(format))
	if invert {
		word = fieldPortInvert.Set(word, 1)
	}
	c.Regs.Stage(regPortMux(sol.Port), word)
}
