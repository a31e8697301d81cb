package lmx2820

import (
	"math"

	"github.com/clocklab/sdrhw/internal/pll"
)

// solveInputChain picks the pre-divider, optional reference multiplier,
// R-divider and feedback N/frac pair that drive the VCO to vcoHz from
// fOscIn, honouring forceMult (0 means "let the solver choose"; the
// multiplier is otherwise only engaged when the reference alone cannot
// reach the PLL's phase-detector floor).
//
// Ported from lmx2820_calculate_input_chain, keeping its floating-point
// arithmetic rather than switching to an exact rational: the original
// tunes FVCO to within 0.1 Hz and the 32-bit modulator denominator is
// fixed at UINT32_MAX, so there is no GCD reduction step to make exact
// in the first place.
func solveInputChain(fOscIn, vcoHz uint64, mash MashOrder, forceMult int) (InputChain, error) {
	vcoCore, minPLLN, err := worstVCOCore(vcoHz, mash)
	if err != nil {
		return InputChain{}, err
	}

	minNTotal := float64(minPLLN)
	maxNTotal := float64(pllNMax + 1)

	fpdMax := fpdMaxHz[mash]
	fpdMin := fpdMinHz

	if v := uint64(float64(vcoHz) / minNTotal); v < fpdMax {
		fpdMax = v
	}
	if v := uint64(float64(vcoHz) / maxNTotal); v > fpdMin {
		fpdMin = v
	}

	needMult := fOscIn < fpdMin || forceMult != 0
	doubler := fOscIn <= oscInMaxDblrHz && !needMult
	oscIn := fOscIn
	if doubler {
		oscIn *= 2
	}

	var mult, pllRPre, pllR int

	switch {
	case oscIn < fpdMin || forceMult != 0:
		mult = forceMult
		if mult == 0 {
			mult = int(math.Ceil(float64(fpdMin) / float64(oscIn)))
		}
		if mult < multMin {
			mult = multMin
		}
		if mult > multMax {
			return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "reference multiplier %d out of range [%d;%d]", mult, multMin, multMax)
		}

		pllRPre, pllR = 1, 1

		if oscIn < multInFreqMinHz {
			return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "effective reference %d Hz too low for the multiplier, need at least %d Hz", oscIn, multInFreqMinHz)
		}
		if oscIn > multInFreqMaxHz {
			pllRPre = int(math.Ceil(float64(oscIn) / float64(multInFreqMaxHz)))
		}

		freqPre := oscIn / uint64(pllRPre)
		freqMult := freqPre * uint64(mult)

		for freqMult < multOutFreqMinHz {
			if mult == multMax {
				return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "no multiplier reaches the multiplier's output range")
			}
			mult++
			freqMult = freqPre * uint64(mult)
			if freqMult > multOutFreqMaxHz {
				return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "no multiplier reaches the multiplier's output range")
			}
		}
		for freqMult > multOutFreqMaxHz {
			if mult == multMin {
				return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "no multiplier reaches the multiplier's output range")
			}
			mult--
			freqMult = freqPre * uint64(mult)
			if freqMult < multOutFreqMinHz {
				return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "no multiplier reaches the multiplier's output range")
			}
		}

		if freqMult > fpdMax {
			pllR = int(math.Ceil(float64(freqMult) / float64(fpdMax)))
		}

	case oscIn > fpdMax:
		mult = 1
		div := int(math.Ceil(float64(oscIn) / float64(fpdMax)))
		if div > pllRPreDivMax*pllRDivMax {
			return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "total divider %d exceeds the pre/R divider range", div)
		}
		if div <= pllRPreDivMax {
			pllRPre, pllR = div, 1
		} else {
			pllRPre = pllRPreDivMax
			pllR = int(math.Ceil(float64(div) / float64(pllRPreDivMax)))
		}

	default:
		mult, pllRPre, pllR = 1, 1, 1
	}

	if pllR > pllRDivMax {
		return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "R divider %d out of range", pllR)
	}

	fInPLLR := oscIn * uint64(mult) / uint64(pllRPre)
	maxFInPLLR := pllRDivGT2InFreqMaxHz
	if pllR <= 2 {
		maxFInPLLR = pllRDiv2InFreqMaxHz
	}
	if fInPLLR > maxFInPLLR {
		return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "R-divider input %d Hz exceeds %d Hz for R=%d", fInPLLR, maxFInPLLR, pllR)
	}

	fpd := float64(oscIn) * float64(mult) / float64(pllRPre*pllR)
	fpdRounded := uint64(fpd + 0.5)
	if fpdRounded < fpdMin || fpdRounded > fpdMax {
		return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "phase-detector frequency %d Hz out of [%d;%d]", fpdRounded, fpdMin, fpdMax)
	}

	nTotal := float64(vcoHz) / fpd
	if nTotal < minNTotal || nTotal > maxNTotal {
		return InputChain{}, pll.ErrOutOfRange(chipName, "solve_input_chain", "feedback N %.6f out of [%.0f;%.0f)", nTotal, minNTotal, maxNTotal)
	}

	n := uint16(nTotal)
	frac := nTotal - float64(n)
	num := uint32(frac * float64(pllDen))
	fvco := fpd * (float64(n) + float64(num)/float64(pllDen))

	if math.Abs(fvco-float64(vcoHz)) > vcoAccuracyHz {
		return InputChain{}, pll.ErrNoSolution(chipName, "solve_input_chain", "VCO tuning too rough: wanted %d Hz, got %.2f Hz", vcoHz, fvco)
	}

	return InputChain{
		MashOrder: mash,
		VCOCore:   vcoCore,
		OscInHz:   fOscIn,
		Doubler:   doubler,
		PLLRPre:   pllRPre,
		Mult:      mult,
		PLLR:      pllR,
		PLLN:      n,
		PLLNum:    num,
		PLLDen:    pllDen,
		FVCOHz:    fvco,
		FPDHz:     fpd,
	}, nil
}
