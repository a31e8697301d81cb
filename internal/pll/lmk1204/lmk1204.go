// Package lmk1204 solves and programs the TI LMK1204, a single-PLL
// fan-out buffer: one APLL1 feedback loop and four output ports, no
// secondary PLL and no VCO band search. The simple-PLL-first path of
// the family skeleton (see lmk05318) is the only path this chip has.
//
// Grounded on original_source/src/lib/hw/lmk05318/lmk05318.c's simple
// divider logic (lmk05318_get_output_divider), the only part of that
// driver's algorithm this smaller chip needs.
package lmk1204

import (
	"time"

	"github.com/clocklab/sdrhw/internal/bus"
	"github.com/clocklab/sdrhw/internal/pll"
	"github.com/clocklab/sdrhw/internal/regmap"
)

const chipName = "LMK1204"

// VCOHz is this family member's fixed, non-tunable VCO frequency.
const VCOHz uint64 = 2_933_000_000

const maxOutputDivider uint64 = 1 << 8
const fracDenMax24 uint64 = 1<<24 - 1
const maxPorts = 4

// Fraction is a reduced N + num/den feedback term.
type Fraction struct {
	N, Num, Den uint64
}

// Solution is the complete programmed state for one chip instance.
type Solution struct {
	Primary Fraction
	Ports   []pll.OutputSolution
}

// Chip drives one LMK1204 instance.
type Chip struct {
	Regs  *regmap.Map
	state pll.State
}

func New(regs *regmap.Map) *Chip { return &Chip{Regs: regs, state: pll.StateUninit} }

func (c *Chip) State() pll.State { return c.state }

// Solve routes every requested port directly off VCOHz through an
// integer output divider. A port that cannot divide VCOHz exactly, or
// that asks for secondary-PLL affinity (which this chip doesn't have),
// fails the whole call.
func (c *Chip) Solve(xo pll.XOSettings, reqs []pll.OutputRequest) (Solution, error) {
	c.Regs.Reset()
	c.state = pll.StateUninit

	pfd := xo.FreqHz
	if xo.DoublerEnabled {
		pfd *= 2
	}
	if pfd == 0 {
		return Solution{}, pll.ErrInvalidArgument(chipName, "solve", "reference frequency is zero")
	}
	n := VCOHz / pfd
	rem := VCOHz % pfd
	num, den := pll.ReduceFraction(rem, pfd)
	if den > fracDenMax24 {
		return Solution{}, pll.ErrNoSolution(chipName, "solve", "feedback fraction %d/%d exceeds 24-bit denominator limit", num, den)
	}
	primary := Fraction{N: n, Num: num, Den: den}
	c.Regs.Stage(regNDiv, uint32(primary.N))
	c.Regs.Stage(regNum, uint32(primary.Num))
	c.Regs.Stage(regDen, uint32(primary.Den))
	c.state = pll.StateAPLL1Tuned

	var ports []pll.OutputSolution
	for _, r := range reqs {
		if r.Disabled() {
			continue
		}
		if r.Port < 0 || r.Port >= maxPorts {
			return Solution{}, pll.ErrInvalidArgument(chipName, "solve", "port %d out of range for a %d-port buffer", r.Port, maxPorts)
		}
		if r.Affinity == pll.AffinitySecondaryPLL {
			return Solution{}, pll.ErrUnsupported(chipName, "solve", "port %d requested secondary-PLL affinity; this chip has only one PLL", r.Port)
		}
		div := (VCOHz + r.FreqHz/2) / r.FreqHz
		if div == 0 || div > maxOutputDivider || VCOHz/div != r.FreqHz || VCOHz%div != 0 {
			return Solution{}, pll.ErrNoSolution(chipName, "solve", "port %d: %d Hz does not divide the VCO exactly within range", r.Port, r.FreqHz)
		}
		mux := pll.MuxPrimary
		if r.PhaseInvert {
			mux = pll.MuxPrimaryInverted
		}
		sol := pll.OutputSolution{Port: r.Port, Mux: mux, OutputDiv: div, ActualFreqHz: r.FreqHz}
		ports = append(ports, sol)
		c.Regs.Stage(regPortDiv(r.Port), uint32(div))
		word := uint32(mux)
		word |= uint32(r.Format) << 4
		c.Regs.Stage(regPortMux(r.Port), word)
	}
	c.state = pll.StateOutputsRouted

	return Solution{Primary: primary, Ports: ports}, nil
}

// Flush commits the staged register map and polls the single lock bit.
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
