package lmx2820

import (
	"math"

	"github.com/clocklab/sdrhw/internal/pll"
)

// routeOutputs picks the VCO frequency and each channel's mux/divider
// so that channel A reaches rfAHz and channel B reaches rfBHz. The
// part can only divide one shared VCO, so the two requested
// frequencies must be related by an exact power-of-two ratio; which of
// the three routing shapes applies (both through the doubler, both
// divided down from the VCO, or split across the VCO boundary) follows
// from where the larger of the two requests falls relative to the VCO
// range.
func routeOutputs(rfAHz, rfBHz uint64) (vcoHz uint64, muxA, muxB MuxSelect, divA, divB int, err error) {
	if rfAHz < outFreqMinHz || rfAHz > outFreqMaxHz {
		return 0, 0, 0, 0, 0, pll.ErrOutOfRange(chipName, "route_outputs", "RF_OUT_A %d Hz out of [%d;%d]", rfAHz, outFreqMinHz, outFreqMaxHz)
	}
	if rfBHz < outFreqMinHz || rfBHz > outFreqMaxHz {
		return 0, 0, 0, 0, 0, pll.ErrOutOfRange(chipName, "route_outputs", "RF_OUT_B %d Hz out of [%d;%d]", rfBHz, outFreqMinHz, outFreqMaxHz)
	}

	rfMax, rfMin := rfAHz, rfBHz
	aIsMax := true
	if rfBHz > rfAHz {
		rfMax, rfMin = rfBHz, rfAHz
		aIsMax = false
	}

	ratio := math.Log2(float64(rfMax) / float64(rfMin))
	ratioN := int(ratio)
	if math.Abs(ratio-float64(ratioN)) > 1e-8 {
		return 0, 0, 0, 0, 0, pll.ErrInvalidArgument(chipName, "route_outputs", "RF_OUT_A/RF_OUT_B ratio must be a power of two, got %.6f", math.Pow(2, ratio))
	}
	if ratioN > outDivDiapMax {
		return 0, 0, 0, 0, 0, pll.ErrOutOfRange(chipName, "route_outputs", "RF ratio 2^%d exceeds the channel-divider span", ratioN)
	}

	var muxMax, muxMin MuxSelect
	var divMax, divMin = 1, 1

	switch {
	case rfMax > vcoMaxHz:
		// rfMax only reachable through the doubler; rfMin may share
		// the doubler, tap the VCO directly, or fall through the
		// channel-divider chain.
		muxMax = MuxVCODoubler
		vcoHz = uint64(float64(rfMax)/2 + 0.5)

		switch ratioN {
		case 0:
			muxMin = MuxVCODoubler
		case 1:
			muxMin = MuxVCO
		default:
			divMin = ratioN - 1
			muxMin = MuxChannelDivider
			if divMin == outDivLog2Max {
				divMax = divMin
			}
		}

	case rfMax < vcoMinHz:
		// both channels fall below the VCO's floor: every output taps
		// the channel-divider chain.
		if ratioN > outDivDiapMax-2 {
			return 0, 0, 0, 0, 0, pll.ErrOutOfRange(chipName, "route_outputs", "RF ratio 2^%d exceeds the dual-divided span", ratioN)
		}

		trial := rfMax << outDivLog2Min
		if trial < vcoMinHz {
			trial = vcoMinHz
		}
		divMax = int(math.Ceil(math.Log2(float64(trial) / float64(rfMax))))
		if divMax < outDivLog2Min {
			divMax = outDivLog2Min
		}
		divMin = divMax + ratioN

		if divMax < outDivLog2Min || divMax > outDivLog2Max || divMin < outDivLog2Min || divMin > outDivLog2Max {
			return 0, 0, 0, 0, 0, pll.ErrOutOfRange(chipName, "route_outputs", "no divider pair spans RF_OUT_A/RF_OUT_B (div_min=%d div_max=%d)", divMin, divMax)
		}
		if (divMin == outDivLog2Max || divMax == outDivLog2Max) && divMin != divMax {
			return 0, 0, 0, 0, 0, pll.ErrOutOfRange(chipName, "route_outputs", "invalid divider pair (div_min=%d div_max=%d)", divMin, divMax)
		}

		vcoHz = rfMax << divMax
		muxMin, muxMax = MuxChannelDivider, MuxChannelDivider

	default:
		// rfMax sits inside the VCO band: it taps the VCO directly,
		// rfMin either matches it or falls through the divider chain.
		if ratioN > outDivDiapMax-1 {
			return 0, 0, 0, 0, 0, pll.ErrOutOfRange(chipName, "route_outputs", "RF ratio 2^%d exceeds the VCO-anchored span", ratioN)
		}

		vcoHz = rfMax
		muxMax = MuxVCO

		switch ratioN {
		case 0:
			muxMin = MuxVCO
		default:
			divMin = ratioN
			muxMin = MuxChannelDivider
			if divMin == outDivLog2Max {
				divMax = divMin
			}
		}
	}

	if divMax < outDivLog2Min || divMax > outDivLog2Max || divMin < outDivLog2Min || divMin > outDivLog2Max {
		return 0, 0, 0, 0, 0, pll.ErrOutOfRange(chipName, "route_outputs", "channel dividers out of range (div_min=%d div_max=%d)", divMin, divMax)
	}

	if aIsMax {
		return vcoHz, muxMax, muxMin, divMax, divMin, nil
	}
	return vcoHz, muxMin, muxMax, divMin, divMax, nil
}

// actualFreq computes the RF frequency a channel produces given the
// tuned VCO and its mux/divider selection.
func actualFreq(fvcoHz float64, mux MuxSelect, div int) float64 {
	switch mux {
	case MuxVCODoubler:
		return fvcoHz * 2
	case MuxVCO:
		return fvcoHz
	default:
		return fvcoHz / float64(uint64(1)<<uint(div))
	}
}
