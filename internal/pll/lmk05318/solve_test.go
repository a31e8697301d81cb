package lmk05318

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/clocklab/sdrhw/internal/diaglog"
	"github.com/clocklab/sdrhw/internal/pll"
	"github.com/clocklab/sdrhw/internal/regmap"
	"github.com/clocklab/sdrhw/internal/sdrerr"
)

func newChip() *Chip {
	return New(regmap.New(chipName, diaglog.Default()))
}

var testXO = pll.XOSettings{FreqHz: 25_000_000, DoublerEnabled: true}

// scenario1Requests mirrors lmk05318_solver_test1: eight ports, four
// of which (0, 1, 4, 7) divide the 2.5 GHz primary VCO exactly and
// route through the simple path, the remaining three frequencies
// (122.88 MHz x2, 3.84 MHz, 491.52 MHz) sharing one APLL2 VCO value at
// 5.8982... GHz through post-dividers 2 and 6.
func scenario1Requests() []pll.OutputRequest {
	mk := func(port int, freq uint64) pll.OutputRequest {
		return pll.OutputRequest{Port: port, FreqHz: freq, TolerancePlusHz: 2, ToleranceMinusHz: 2}
	}
	return []pll.OutputRequest{
		mk(0, 100_000_000),
		mk(1, 100_000_000),
		mk(2, 122_880_000),
		mk(3, 122_880_000),
		mk(4, 31_250_000),
		mk(5, 3_840_000),
		mk(6, 491_520_000),
		mk(7, 1),
	}
}

func TestSolveScenario1RoutesSimpleAndSecondaryPorts(t *testing.T) {
	c := newChip()
	sol, err := c.Solve(testXO, nil, scenario1Requests())
	require.NoError(t, err)
	assert.Equal(t, pll.StateOutputsRouted, c.State())

	byPort := map[int]pll.OutputSolution{}
	for _, s := range sol.Ports {
		byPort[s.Port] = s
	}
	require.Len(t, byPort, 8)

	for _, port := range []int{0, 1, 4, 7} {
		s := byPort[port]
		assert.Contains(t, []pll.MuxSource{pll.MuxPrimary, pll.MuxPrimaryInverted}, s.Mux, "port %d", port)
	}
	assert.Equal(t, uint64(25), byPort[0].OutputDiv)
	assert.Equal(t, uint64(80), byPort[4].OutputDiv)
	assert.Equal(t, uint64(2_500_000_000), byPort[7].OutputDiv)

	// Ports 2, 3 and 6 land on post-divider 2 (the anchor port's own
	// choice), port 5 needs the chip's second post-divider (6) since
	// no pd=2 output divider for it fits within the 8-bit range.
	assert.Equal(t, uint64(5_898_240_000), sol.VCO2Hz)
	assert.Equal(t, 2, sol.PD1)
	assert.Equal(t, 6, sol.PD2)
	assert.Equal(t, pll.MuxSecondaryPostDiv1, byPort[2].Mux)
	assert.Equal(t, pll.MuxSecondaryPostDiv1, byPort[3].Mux)
	assert.Equal(t, pll.MuxSecondaryPostDiv1, byPort[6].Mux)
	assert.Equal(t, pll.MuxSecondaryPostDiv2, byPort[5].Mux)
	assert.Equal(t, uint64(24), byPort[2].OutputDiv)
	assert.Equal(t, uint64(24), byPort[3].OutputDiv)
	assert.Equal(t, uint64(256), byPort[5].OutputDiv)
	assert.Equal(t, uint64(6), byPort[6].OutputDiv)

	for _, r := range scenario1Requests() {
		plus, minus := pll.EffectiveTolerance(r)
		assert.True(t, pll.WithinTolerance(r.FreqHz, byPort[r.Port].ActualFreqHz, plus, minus), "port %d", r.Port)
	}
}

func TestSolvePairedPortsMustMatch(t *testing.T) {
	reqs := scenario1Requests()
	for i := range reqs {
		if reqs[i].Port == 3 {
			reqs[i].FreqHz = 999_999
		}
	}
	c := newChip()
	_, err := c.Solve(testXO, nil, reqs)
	require.Error(t, err)
	assert.Equal(t, pll.StateUninit, c.State())
}

func TestSolveRejectsFrequencyAboveVCO1ForSimpleAffinity(t *testing.T) {
	reqs := []pll.OutputRequest{{Port: 0, FreqHz: 9_000_000_000, Affinity: pll.AffinityPrimaryPLL, TolerancePlusHz: 1, ToleranceMinusHz: 1}}
	c := newChip()
	_, err := c.Solve(testXO, nil, reqs)
	require.Error(t, err)
}

func TestSolveDPLLRefusesUnknownTDCRate(t *testing.T) {
	c := newChip()
	dpll := &pll.DPLLConfig{ExternalRefHz: 10_000_000, TDCRateHz: 7_777_777}
	_, err := c.Solve(testXO, dpll, scenario1Requests())
	require.Error(t, err)
	kind, ok := sdrerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, sdrerr.Unsupported, kind)
}

func TestSolveDPLLWithKnownTDCRateSucceeds(t *testing.T) {
	c := newChip()
	dpll := &pll.DPLLConfig{ExternalRefHz: 10_000_000, TDCRateHz: 10_000_000}
	_, err := c.Solve(testXO, dpll, scenario1Requests())
	require.NoError(t, err)
}

func TestSolveIsDeterministic(t *testing.T) {
	c1, c2 := newChip(), newChip()
	_, err1 := c1.Solve(testXO, nil, scenario1Requests())
	_, err2 := c2.Solve(testXO, nil, scenario1Requests())
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, c1.Regs.Writes(), c2.Regs.Writes(), "running the solver twice with identical inputs must yield identical register writes")
}

func TestSolveNoCommonSecondaryVCOIsNoSolution(t *testing.T) {
	// Three mutually prime frequencies chosen so no shared VCO2 exists
	// within the narrow post-divider/output-divider search space.
	reqs := []pll.OutputRequest{
		{Port: 2, FreqHz: 97_123_457, TolerancePlusHz: 1, ToleranceMinusHz: 1},
		{Port: 5, FreqHz: 88_888_889, TolerancePlusHz: 1, ToleranceMinusHz: 1},
		{Port: 6, FreqHz: 79_999_999, TolerancePlusHz: 1, ToleranceMinusHz: 1},
	}
	c := newChip()
	_, err := c.Solve(testXO, nil, reqs)
	require.Error(t, err)
	assert.Equal(t, pll.StateUninit, c.State())
}

// TestSolveSatisfiesNonExactRequestWithinTolerance checks the
// tolerance-window path through solveSecondary: port 6 asks for
// 491,520,030 Hz, which no (pd, od) pair divides VCO2 down to exactly,
// but its +/-50 Hz tolerance window comfortably contains the
// 491,520,000 Hz the other three ports already share a VCO2 with. The
// solver must find that shared VCO2 rather than reporting NoSolution
// just because the request itself isn't an exact divisor.
func TestSolveSatisfiesNonExactRequestWithinTolerance(t *testing.T) {
	mk := func(port int, freq, plus, minus uint64) pll.OutputRequest {
		return pll.OutputRequest{Port: port, FreqHz: freq, TolerancePlusHz: plus, ToleranceMinusHz: minus}
	}
	reqs := []pll.OutputRequest{
		mk(2, 122_880_000, 2, 2),
		mk(3, 122_880_000, 2, 2),
		mk(5, 3_840_000, 2, 2),
		mk(6, 491_520_030, 50, 50),
	}
	c := newChip()
	sol, err := c.Solve(testXO, nil, reqs)
	require.NoError(t, err)
	assert.Equal(t, pll.StateOutputsRouted, c.State())

	var port6 pll.OutputSolution
	for _, s := range sol.Ports {
		if s.Port == 6 {
			port6 = s
		}
	}
	assert.Equal(t, uint64(491_520_000), port6.ActualFreqHz, "solver should land on the exactly-reachable frequency inside port 6's tolerance window")

	for _, r := range reqs {
		byPort := map[int]pll.OutputSolution{}
		for _, s := range sol.Ports {
			byPort[s.Port] = s
		}
		plus, minus := pll.EffectiveTolerance(r)
		assert.True(t, pll.WithinTolerance(r.FreqHz, byPort[r.Port].ActualFreqHz, plus, minus), "port %d", r.Port)
	}
}

// TestFeedbackDenominatorNeverExceeds24Bits exercises solvePrimary
// over a spread of reference frequencies and checks the universal
// invariant that a free-run fractional denominator fits 24 bits.
func TestFeedbackDenominatorNeverExceeds24Bits(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		refHz := rapid.Uint64Range(1_000_000, 100_000_000).Draw(tt, "refHz")
		frac, err := solvePrimary(pll.XOSettings{FreqHz: refHz}, fracDenMax24)
		if err != nil {
			return
		}
		assert.LessOrEqual(tt, frac.Den, fracDenMax24)
		assert.Equal(tt, VCO1Hz, frac.N*refHz+frac.Num*refHz/frac.Den, "reconstructed frequency must reproduce VCO1Hz")
	})
}
