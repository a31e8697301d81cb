// Package lmx2820 solves and programs the TI LMX2820, a single wideband
// fractional-N synthesizer: one VCO spanning roughly 5.65-11.3 GHz, an
// output doubler, and a pair of channel-divider output chains (A/B)
// that can each tap the VCO directly, the doubler, or a divide-by-2^k
// stage. Unlike the LMK family this chip has no secondary PLL and no
// multi-port fan-out - callers ask for exactly two RF outputs whose
// ratio must be a power of two.
//
// Grounded on original_source/src/lib/hw/lmx2820/lmx2820.c.
package lmx2820

import (
	"github.com/clocklab/sdrhw/internal/pll"
	"github.com/clocklab/sdrhw/internal/regmap"
)

const chipName = "LMX2820"

// MashOrder selects the primary PLL's fractional modulator order.
// Higher orders push quantization noise further from the carrier at
// the cost of a higher minimum feedback N for a given VCO core.
type MashOrder int

const (
	MashOrderInteger MashOrder = iota
	MashOrderFirst
	MashOrderSecond
	MashOrderThird
)

func (m MashOrder) valid() bool { return m >= MashOrderInteger && m <= MashOrderThird }

// MuxSelect is the source an RF output channel is routed from.
type MuxSelect int

const (
	MuxVCODoubler MuxSelect = iota
	MuxVCO
	MuxChannelDivider
)

const (
	oscInMinHz     uint64 = 5_000_000
	oscInMaxHz     uint64 = 1_400_000_000
	oscInMaxDblrHz uint64 = 250_000_000

	outFreqMinHz uint64 = 45_000_000
	outFreqMaxHz uint64 = 22_600_000_000

	vcoMinHz uint64 = 5_650_000_000
	vcoMaxHz uint64 = 11_300_000_000

	pllRPreDivMin = 1
	pllRPreDivMax = 4095

	multInFreqMinHz  uint64 = 30_000_000
	multInFreqMaxHz  uint64 = 70_000_000
	multOutFreqMinHz uint64 = 180_000_000
	multOutFreqMaxHz uint64 = 250_000_000

	multMin = 3
	multMax = 7

	fpdMinHz uint64 = 5_000_000

	pllRDivMin            = 1
	pllRDivMax            = 255
	pllRDiv2InFreqMaxHz   uint64 = 500_000_000
	pllRDivGT2InFreqMaxHz uint64 = 250_000_000

	outDivLog2Min = 1
	outDivLog2Max = 7
	outDivDiapMax = outDivLog2Max - outDivLog2Min + 1 + 1

	pllNMin = 12
	pllNMax = 32767

	vcoAccuracyHz = 0.1
	rfAccuracyHz  = 1.0

	// pllDen is the fractional denominator every solve fixes the
	// modulator to: the full 32-bit span, matching the original
	// driver's choice of UINT32_MAX rather than a GCD-reduced value.
	pllDen uint32 = 0xFFFFFFFF
)

// InputChain is the reference-to-VCO path: pre-divider, optional
// multiplier, R-divider, and the resulting phase-detector/N-divider
// settings.
type InputChain struct {
	MashOrder MashOrder
	VCOCore   int
	OscInHz   uint64
	Doubler   bool
	PLLRPre   int
	Mult      int
	PLLR      int
	PLLN      uint16
	PLLNum    uint32
	PLLDen    uint32
	FVCOHz    float64
	FPDHz     float64
}

// OutputChain is the VCO-to-RF path for both channels.
type OutputChain struct {
	ChanDivA, ChanDivB int
	MuxA, MuxB         MuxSelect
	RFOutAHz, RFOutBHz float64
}

// Solution is a fully solved, not-yet-flushed tuning.
type Solution struct {
	Input  InputChain
	Output OutputChain
}

type Chip struct {
	Regs  *regmap.Map
	state pll.State
}

func New(regs *regmap.Map) *Chip { return &Chip{Regs: regs, state: pll.StateUninit} }

func (c *Chip) State() pll.State { return c.state }
