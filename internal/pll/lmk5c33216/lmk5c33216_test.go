package lmk5c33216

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clocklab/sdrhw/internal/diaglog"
	"github.com/clocklab/sdrhw/internal/pll"
	"github.com/clocklab/sdrhw/internal/regmap"
)

func newChip() *Chip { return New(regmap.New(chipName, diaglog.Default())) }

var testXO = pll.XOSettings{FreqHz: 24_576_000}

func TestSolveSimplePathExactDivision(t *testing.T) {
	c := newChip()
	sol, err := c.Solve(testXO, nil, []pll.OutputRequest{{Port: 0, FreqHz: 122_880_000}})
	require.NoError(t, err)
	require.Len(t, sol.Ports, 1)
	assert.Equal(t, uint64(18), sol.Ports[0].OutputDiv)
	assert.Equal(t, pll.MuxPrimary, sol.Ports[0].Mux)
}

func TestSolveSecondaryPathSharesOnePostDivider(t *testing.T) {
	c := newChip()
	reqs := []pll.OutputRequest{
		{Port: 1, FreqHz: 100_000_000},
		{Port: 2, FreqHz: 60_000_000},
	}
	sol, err := c.Solve(testXO, nil, reqs)
	require.NoError(t, err)
	assert.Equal(t, uint64(4_800_000_000), sol.VCO2Hz)
	assert.Equal(t, 2, sol.PD)

	byPort := map[int]pll.OutputSolution{}
	for _, p := range sol.Ports {
		byPort[p.Port] = p
	}
	assert.Equal(t, uint64(24), byPort[1].OutputDiv)
	assert.Equal(t, uint64(40), byPort[2].OutputDiv)
	assert.Equal(t, pll.StateOutputsRouted, c.State())
}

// TestSolveSecondaryPathSatisfiesNonExactRequestWithinTolerance mirrors
// package lmk05318's equivalent test: port 2 asks for 60,000,030 Hz,
// which no (pd, od) pair divides the shared VCO2 down to exactly, but
// its +/-50 Hz tolerance window contains the 60,000,000 Hz that port 1
// already shares a VCO2 with exactly.
func TestSolveSecondaryPathSatisfiesNonExactRequestWithinTolerance(t *testing.T) {
	c := newChip()
	reqs := []pll.OutputRequest{
		{Port: 1, FreqHz: 100_000_000},
		{Port: 2, FreqHz: 60_000_030, TolerancePlusHz: 50, ToleranceMinusHz: 50},
	}
	sol, err := c.Solve(testXO, nil, reqs)
	require.NoError(t, err)
	assert.Equal(t, uint64(4_800_000_000), sol.VCO2Hz)

	byPort := map[int]pll.OutputSolution{}
	for _, p := range sol.Ports {
		byPort[p.Port] = p
	}
	assert.Equal(t, uint64(60_000_000), byPort[2].ActualFreqHz, "solver should land on the exactly-reachable frequency inside port 2's tolerance window")

	for _, r := range reqs {
		plus, minus := pll.EffectiveTolerance(r)
		assert.True(t, pll.WithinTolerance(r.FreqHz, byPort[r.Port].ActualFreqHz, plus, minus), "port %d", r.Port)
	}
}

func TestSolveDPLLRefusesUnknownTDCRate(t *testing.T) {
	c := newChip()
	_, err := c.Solve(testXO, &pll.DPLLConfig{ExternalRefHz: 10_000_000, TDCRateHz: 5_555_555}, nil)
	require.Error(t, err)
}

func TestSolveDPLLKnownRateSucceeds(t *testing.T) {
	c := newChip()
	sol, err := c.Solve(testXO, &pll.DPLLConfig{ExternalRefHz: 10_000_000, TDCRateHz: 10_000_000}, nil)
	require.NoError(t, err)
	assert.NotZero(t, sol.Primary.N)
}

func TestSolveRejectsPortOutOfRange(t *testing.T) {
	c := newChip()
	_, err := c.Solve(testXO, nil, []pll.OutputRequest{{Port: MaxOutPorts, FreqHz: 100_000_000}})
	require.Error(t, err)
}
