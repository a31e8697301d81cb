package lmx2820

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/clocklab/sdrhw/internal/diaglog"
	"github.com/clocklab/sdrhw/internal/pll"
	"github.com/clocklab/sdrhw/internal/regmap"
)

func newChip() *Chip { return New(regmap.New(chipName, diaglog.Default())) }

func regValue(t *testing.T, c *Chip, addr uint16) uint32 {
	t.Helper()
	for _, w := range c.Regs.Writes() {
		if w.Addr == addr {
			return w.Value
		}
	}
	t.Fatalf("register 0x%04x was never staged", addr)
	return 0
}

// TestSolveVeryLowOutput mirrors lmx2820_solver_test3 and the spec's
// "very low output" scenario: a 100 MHz reference driving both
// channels to 45 MHz, which only the VCO's channel-divider chain at
// its maximum depth (divide-by-128) can reach.
func TestSolveVeryLowOutput(t *testing.T) {
	c := newChip()
	sol, err := c.Solve(100_000_000, MashOrderSecond, 0, 45_000_000, 45_000_000)
	require.NoError(t, err)
	assert.Equal(t, 7, sol.Output.ChanDivA)
	assert.Equal(t, 7, sol.Output.ChanDivB)
	assert.Equal(t, MuxChannelDivider, sol.Output.MuxA)
	assert.Equal(t, MuxChannelDivider, sol.Output.MuxB)
	assert.GreaterOrEqual(t, int(sol.Input.PLLN), 18)
	assert.Equal(t, pll.StateOutputsRouted, c.State())
}

// TestSolveDoublerPath mirrors the spec's "doubler path" scenario: a
// request at the very top of the output range forces the VCO doubler
// on both channels and picks the calibration clock divider for a
// reference at or below 200 MHz.
func TestSolveDoublerPath(t *testing.T) {
	c := newChip()
	sol, err := c.Solve(100_000_000, MashOrderSecond, 0, 22_600_000_000, 22_600_000_000)
	require.NoError(t, err)
	assert.Equal(t, MuxVCODoubler, sol.Output.MuxA)
	assert.Equal(t, MuxVCODoubler, sol.Output.MuxB)
	assert.True(t, sol.Input.Doubler)
	assert.InDelta(t, 22_600_000_000, sol.Output.RFOutAHz, rfAccuracyHz)

	calClk := fieldCalClkDiv.Get(regValue(t, c, regCalClk))
	assert.Equal(t, uint32(0), calClk)
}

// TestSolveEqualOutputsAtLowestOutput mirrors lmx2820_solver_test1: the
// lowest permitted reference driving both channels to the lowest
// permitted output, which takes the full divide-by-128 channel-divider
// chain below the VCO band.
func TestSolveEqualOutputsAtLowestOutput(t *testing.T) {
	c := newChip()
	_, err := c.Solve(5_000_000, MashOrderInteger, 0, 45_000_000, 45_000_000)
	require.NoError(t, err)
}

// TestSolveMaxReferenceMaxOutput mirrors lmx2820_solver_test4: the
// highest permitted reference driving both channels to the highest
// permitted output.
func TestSolveMaxReferenceMaxOutput(t *testing.T) {
	c := newChip()
	_, err := c.Solve(1_400_000_000, MashOrderSecond, 0, 22_600_000_000, 22_600_000_000)
	require.NoError(t, err)
}

// TestSolveSplitAcrossVCOBoundary mirrors lmx2820_solver_test6: channel
// A sits below the VCO band and channel B near its top, split by the
// VCO itself - A through the channel divider, B straight off the VCO.
func TestSolveSplitAcrossVCOBoundary(t *testing.T) {
	c := newChip()
	sol, err := c.Solve(250_000_000, MashOrderSecond, 0, 5_600_000_000, 5_600_000_000<<1)
	require.NoError(t, err)
	assert.Equal(t, MuxChannelDivider, sol.Output.MuxA)
	assert.Equal(t, MuxVCO, sol.Output.MuxB)
}

// TestSolveRejectsNonPowerOfTwoRatio checks the RF_OUT_A/RF_OUT_B
// ratio validation: any ratio that isn't an exact power of two must
// fail, since the chip only has binary channel dividers.
func TestSolveRejectsNonPowerOfTwoRatio(t *testing.T) {
	c := newChip()
	_, err := c.Solve(100_000_000, MashOrderSecond, 0, 100_000_000, 70_000_000)
	require.Error(t, err)
}

// TestSolveRejectsReferenceOutOfRange checks the absolute OSC_IN range.
func TestSolveRejectsReferenceOutOfRange(t *testing.T) {
	c := newChip()
	_, err := c.Solve(1_000_000, MashOrderInteger, 0, 100_000_000, 100_000_000)
	require.Error(t, err)
}

// TestSolveRejectsOutputOutOfRange checks the absolute RF_OUT range.
func TestSolveRejectsOutputOutOfRange(t *testing.T) {
	c := newChip()
	_, err := c.Solve(100_000_000, MashOrderInteger, 0, 30_000_000, 30_000_000)
	require.Error(t, err)
}

// TestSolveRejectsInvalidMashOrder checks mash order bounds.
func TestSolveRejectsInvalidMashOrder(t *testing.T) {
	c := newChip()
	_, err := c.Solve(100_000_000, MashOrder(4), 0, 100_000_000, 100_000_000)
	require.Error(t, err)
}

// TestSolveForceMultOutOfRange checks that a forced multiplier above
// the part's maximum of 7 is rejected rather than silently clamped,
// unlike a forced multiplier below the minimum (which the original
// driver clamps up to MULT_MIN, exercised by
// lmx2820_solver_test9_force_mult's loop over 3..7).
func TestSolveForceMultOutOfRange(t *testing.T) {
	c := newChip()
	_, err := c.Solve(250_000_000, MashOrderSecond, 10, 20_000_988_000, 20_000_988_000>>4)
	require.Error(t, err)
}

// TestSolveForceMultBelowMinimumIsClamped mirrors the low end of
// lmx2820_solver_test9_force_mult's loop range: a forced multiplier
// below MULT_MIN still solves, clamped up rather than rejected.
func TestSolveForceMultBelowMinimumIsClamped(t *testing.T) {
	c := newChip()
	sol, err := c.Solve(250_000_000, MashOrderSecond, 1, 20_000_988_000, 20_000_988_000>>4)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sol.Input.Mult, multMin)
}

// TestSolveIsDeterministic re-asserts the universal "same inputs,
// same register writes" invariant for this chip's solver.
func TestSolveIsDeterministic(t *testing.T) {
	c1, c2 := newChip(), newChip()
	_, err1 := c1.Solve(250_000_000, MashOrderSecond, 0, 5_600_000_000, 5_600_000_000>>3)
	_, err2 := c2.Solve(250_000_000, MashOrderSecond, 0, 5_600_000_000, 5_600_000_000>>3)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, c1.Regs.Writes(), c2.Regs.Writes())
}

// TestEveryEqualOutputPairSolves is a property test over the
// "rf_a == rf_b" scenario family the original test suite's
// out_freq2 = out_freq1 pattern exercises repeatedly: any in-range
// equal pair with a reference that can reach it should solve.
func TestEveryEqualOutputPairSolves(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rf := rapid.Uint64Range(outFreqMinHz, vcoMinHz).Draw(rt, "rf")
		mash := MashOrder(rapid.IntRange(0, 3).Draw(rt, "mash"))
		c := newChip()
		sol, err := c.Solve(100_000_000, mash, 0, rf, rf)
		if err != nil {
			return
		}
		require.InDelta(rt, float64(rf), sol.Output.RFOutAHz, rfAccuracyHz)
		require.InDelta(rt, float64(rf), sol.Output.RFOutBHz, rfAccuracyHz)
	})
}
