package lmk1204

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

var testXO = pll.XOSettings{FreqHz: 100_000_000}

func TestSolveRoutesExactDivisors(t *testing.T) {
	c := newChip()
	reqs := []pll.OutputRequest{
		{Port: 0, FreqHz: VCOHz / 10},
		{Port: 1, FreqHz: VCOHz / 4},
	}
	sol, err := c.Solve(testXO, reqs)
	require.NoError(t, err)
	assert.Len(t, sol.Ports, 2)
	byPort := map[int]pll.OutputSolution{}
	for _, p := range sol.Ports {
		byPort[p.Port] = p
	}
	assert.Equal(t, uint64(10), byPort[0].OutputDiv)
	assert.Equal(t, uint64(4), byPort[1].OutputDiv)
	assert.Equal(t, pll.StateOutputsRouted, c.State())
}

func TestSolveRejectsPortOutOfRange(t *testing.T) {
	c := newChip()
	_, err := c.Solve(testXO, []pll.OutputRequest{{Port: 4, FreqHz: VCOHz / 4}})
	require.Error(t, err)
}

func TestSolveRejectsSecondaryAffinity(t *testing.T) {
	c := newChip()
	_, err := c.Solve(testXO, []pll.OutputRequest{{Port: 0, FreqHz: VCOHz / 4, Affinity: pll.AffinitySecondaryPLL}})
	require.Error(t, err)
}

func TestSolveRejectsInexactDivision(t *testing.T) {
	c := newChip()
	_, err := c.Solve(testXO, []pll.OutputRequest{{Port: 0, FreqHz: VCOHz/4 + 1}})
	require.Error(t, err)
}

func TestDisabledPortProducesNoSolution(t *testing.T) {
	c := newChip()
	sol, err := c.Solve(testXO, []pll.OutputRequest{{Port: 0, FreqHz: 0}})
	require.NoError(t, err)
	assert.Empty(t, sol.Ports)
	assert.Equal(t, 3, c.Regs.Len(), "only the primary-loop registers staged")
}

func TestExactDivisorsAlwaysSolve(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		div := rapid.Uint64Range(1, 256).Draw(tt, "div")
		if VCOHz%div != 0 {
			return
		}
		c := newChip()
		sol, err := c.Solve(testXO, []pll.OutputRequest{{Port: 0, FreqHz: VCOHz / div}})
		require.NoError(tt, err)
		require.Len(tt, sol.Ports, 1)
		assert.Equal(tt, div, sol.Ports[0].OutputDiv)
	})
}
