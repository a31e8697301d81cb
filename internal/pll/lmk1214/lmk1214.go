// Package lmk1214 solves and programs the TI LMK1214, a six-output
// single-PLL fan-out buffer with no secondary PLL, sibling to lmk1204.
// This package mirrors lmk1204 with this chip's own VCO and port
// count; see that package's doc comment for the shared grounding.
package lmk1214

import (
	"time"

	"github.com/clocklab/sdrhw/internal/bus"
	"github.com/clocklab/sdrhw/internal/pll"
	"github.com/clocklab/sdrhw/internal/regmap"
)

const chipName = "LMK1214"

// VCOHz is this family member's fixed VCO frequency.
const VCOHz uint64 = 2_520_000_000

const maxOutputDivider uint64 = 1 << 8
const fracDenMax24 uint64 = 1<<24 - 1
const maxPorts = 6

type Fraction struct{ N, Num, Den uint64 }

type Solution struct {
	Primary Fraction
	Ports   []pll.OutputSolution
}

type Chip struct {
	Regs  *regmap.Map
	state pll.State
}

func New(regs *regmap.Map) *Chip { return &Chip{Regs: regs, state: pll.StateUninit} }

func (c *Chip) State() pll.State { return c.state }

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
