package lmx2820

import (
	"math"
	"time"

	"github.com/clocklab/sdrhw/internal/bus"
	"github.com/clocklab/sdrhw/internal/pll"
)

// Solve picks a VCO frequency, input chain and output routing that
// drives RF_OUT_A and RF_OUT_B to the requested frequencies, and
// stages the resulting register program. forceMult overrides the
// solver's reference-multiplier choice (0 lets it choose); mash
// selects the fractional modulator order.
func (c *Chip) Solve(oscInHz uint64, mash MashOrder, forceMult int, rfAHz, rfBHz uint64) (Solution, error) {
	c.Regs.Reset()
	c.state = pll.StateUninit

	if oscInHz < oscInMinHz || oscInHz > oscInMaxHz {
		return Solution{}, pll.ErrOutOfRange(chipName, "solve", "reference %d Hz out of [%d;%d]", oscInHz, oscInMinHz, oscInMaxHz)
	}
	if !mash.valid() {
		return Solution{}, pll.ErrInvalidArgument(chipName, "solve", "mash order %d out of range", mash)
	}

	vcoHz, muxA, muxB, divA, divB, err := routeOutputs(rfAHz, rfBHz)
	if err != nil {
		return Solution{}, err
	}

	input, err := solveInputChain(oscInHz, vcoHz, mash, forceMult)
	if err != nil {
		return Solution{}, err
	}
	c.state = pll.StateAPLL1Tuned

	rfAActual := actualFreq(input.FVCOHz, muxA, divA)
	rfBActual := actualFreq(input.FVCOHz, muxB, divB)
	if math.Abs(rfAActual-float64(rfAHz)) > rfAccuracyHz || math.Abs(rfBActual-float64(rfBHz)) > rfAccuracyHz {
		return Solution{}, pll.ErrNoSolution(chipName, "solve", "RF tuning too rough: A wanted %d got %.2f, B wanted %d got %.2f", rfAHz, rfAActual, rfBHz, rfBActual)
	}

	output := OutputChain{
		ChanDivA: divA, ChanDivB: divB,
		MuxA: muxA, MuxB: muxB,
		RFOutAHz: rfAActual, RFOutBHz: rfBActual,
	}

	c.stage(input, output, oscInHz)
	c.state = pll.StateOutputsRouted

	return Solution{Input: input, Output: output}, nil
}

func (c *Chip) stage(in InputChain, out OutputChain, oscInHz uint64) {
	doublerEngaged := out.MuxA == MuxVCODoubler || out.MuxB == MuxVCODoubler

	var lpAdj, hpAdj uint32
	switch {
	case in.FPDHz < 2_500_000:
		lpAdj = 0
	case in.FPDHz < 5_000_000:
		lpAdj = 1
	case in.FPDHz < 10_000_000:
		lpAdj = 2
	default:
		lpAdj = 3
	}
	switch {
	case in.FPDHz <= 100_000_000:
		hpAdj = 0
	case in.FPDHz <= 150_000_000:
		hpAdj = 1
	case in.FPDHz <= 200_000_000:
		hpAdj = 2
	default:
		hpAdj = 3
	}

	var calClkDiv uint32
	switch {
	case oscInHz <= 200_000_000:
		calClkDiv = 0
	case oscInHz <= 400_000_000:
		calClkDiv = 1
	case oscInHz <= 800_000_000:
		calClkDiv = 2
	default:
		calClkDiv = 3
	}

	var control uint32
	control = fieldLPFDAdj.Set(control, lpAdj)
	control = fieldHPFDAdj.Set(control, hpAdj)
	if doublerEngaged {
		control = fieldDoublerCalEngaged.Set(control, 1)
	}
	c.Regs.Stage(regControl, control)
	c.Regs.Stage(regCalClk, fieldCalClkDiv.Set(0, calClkDiv))

	var osc uint32
	if in.Doubler {
		osc = fieldDoubler.Set(osc, 1)
	}
	osc = fieldMult.Set(osc, uint32(in.Mult))
	osc = fieldPLLR.Set(osc, uint32(in.PLLR))
	osc = fieldPLLRPre.Set(osc, uint32(in.PLLRPre))
	c.Regs.Stage(regOsc, osc)

	c.Regs.Stage(regPLLNum, in.PLLNum)
	c.Regs.Stage(regPLLDen, in.PLLDen)
	c.Regs.Stage(regPLLN, uint32(in.PLLN))
	c.Regs.Stage(regMash, fieldMashOrder.Set(0, uint32(in.MashOrder)))
	c.Regs.Stage(regVCOCore, uint32(in.VCOCore))

	var chanDiv uint32
	chanDiv = fieldChanDivA.Set(chanDiv, uint32(out.ChanDivA))
	chanDiv = fieldChanDivB.Set(chanDiv, uint32(out.ChanDivB))
	c.Regs.Stage(regChanDiv, chanDiv)

	var mux uint32
	mux = fieldMuxA.Set(mux, uint32(out.MuxA))
	mux = fieldMuxB.Set(mux, uint32(out.MuxB))
	c.Regs.Stage(regOutMux, mux)
}

// Flush writes the staged program, triggers a frequency calibration
// and waits for lock. The original driver sleeps 10ms between the
// register write and asserting FCAL_EN to let the synthesizer settle;
// that delay is folded into the same pause here.
func (c *Chip) Flush(dev bus.Device, timeout time.Duration, checkLocked func() (bool, error)) error {
	if err := c.Regs.Flush(dev); err != nil {
		c.state = pll.StateUninit
		return err
	}

	time.Sleep(10 * time.Millisecond)

	word, err := dev.ReadReg(regControl)
	if err != nil {
		c.state = pll.StateUninit
		return err
	}
	if err := dev.WriteReg(regControl, fieldFCALEn.Set(word, 1)); err != nil {
		c.state = pll.StateUninit
		return err
	}

	if err := pll.PollLock(chipName, "flush", timeout, checkLocked, DumpLockStatus(dev)); err != nil {
		return err
	}
	c.state = pll.StateLocked
	return nil
}
