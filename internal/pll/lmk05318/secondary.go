package lmk05318

import (
	"sort"

	"github.com/clocklab/sdrhw/internal/pll"
)

// normalizePorts validates that the two hardwired port pairs (0,1)
// and (2,3) carry identical requests bar the port index, matching the
// vendor driver's "dup ports values detected, or ports #0:1 & #2:3
// differ" rejection.
func normalizePorts(reqs []pll.OutputRequest) error {
	byPort := map[int]pll.OutputRequest{}
	for _, r := range reqs {
		byPort[r.Port] = r
	}
	for _, pair := range pairedPorts {
		a, aok := byPort[pair[0]]
		b, bok := byPort[pair[1]]
		if !aok || !bok {
			continue
		}
		if a.Disabled() != b.Disabled() {
			continue
		}
		if a.Disabled() {
			continue
		}
		if a.FreqHz != b.FreqHz || a.Format != b.Format {
			return pll.ErrInvalidArgument(chipName, "solve",
				"ports %d and %d share one divider and must request identical frequency and format", pair[0], pair[1])
		}
	}
	return nil
}

// trySimpleRoute attempts to drive req directly off the primary VCO
// through an integer output divider, the cheapest and lowest-jitter
// path. It requires exact division (no tolerance slack), matching
// lmk05318_get_output_divider's factf == wanted.freq check.
func trySimpleRoute(req pll.OutputRequest) (pll.OutputSolution, bool) {
	if req.Affinity == pll.AffinitySecondaryPLL {
		return pll.OutputSolution{}, false
	}
	maxDiv := maxOutputDivider(req.Port)
	if req.FreqHz == 0 || req.FreqHz > VCO1Hz {
		return pll.OutputSolution{}, false
	}
	div := (VCO1Hz + req.FreqHz/2) / req.FreqHz
	if div == 0 || div > maxDiv {
		return pll.OutputSolution{}, false
	}
	if VCO1Hz/div != req.FreqHz || VCO1Hz%div != 0 {
		return pll.OutputSolution{}, false
	}
	mux := pll.MuxPrimary
	if req.PhaseInvert {
		mux = pll.MuxPrimaryInverted
	}
	return pll.OutputSolution{Port: req.Port, Mux: mux, OutputDiv: div, ActualFreqHz: req.FreqHz}, true
}

// secondaryCandidate is one (port, post-divider, output-divider)
// combination and the range of VCO2 values that reproduce req.FreqHz
// within the port's tolerance window through it.
type secondaryCandidate struct {
	pd, od         int
	vco2Min, vco2Max uint64
}

// candidatesFor enumerates every (pd, od) pair in range and, for each,
// the band of VCO2 values that land req within its tolerance window
// once divided by pd*od, mirroring lmk05318_solver_helper's per-port
// fvco2_min/fvco2_max construction (lmk05318.c's
// lmk05318_get_freq_range plus the VCO_APLL2 clamp).
func candidatesFor(req pll.OutputRequest) []secondaryCandidate {
	maxOD := maxOutputDivider(req.Port)
	plus, minus := pll.EffectiveTolerance(req)

	loFreq := uint64(1)
	if req.FreqHz > minus {
		loFreq = req.FreqHz - minus
	}
	hiFreq := req.FreqHz + plus

	var out []secondaryCandidate
	for pd := APLL2PDivMin; pd <= APLL2PDivMax; pd++ {
		for od := uint64(1); od <= maxOD; od++ {
			rawMin := uint64(pd) * od * loFreq
			rawMax := uint64(pd) * od * hiFreq
			if rawMin > VCO2MaxHz {
				break
			}
			if rawMax < VCO2MinHz {
				continue
			}
			vco2Min, vco2Max := rawMin, rawMax
			if vco2Min < VCO2MinHz {
				vco2Min = VCO2MinHz
			}
			if vco2Max > VCO2MaxHz {
				vco2Max = VCO2MaxHz
			}
			out = append(out, secondaryCandidate{pd: pd, od: int(od), vco2Min: vco2Min, vco2Max: vco2Max})
		}
	}
	return out
}

// secondaryPlan is the result of routing every remaining port through
// APLL2: a single shared VCO2 value and, per port, which of the chip's
// two post-dividers and what output divider it uses.
type secondaryPlan struct {
	vco2     uint64
	pd1, pd2 int
	assign   map[int]secondaryCandidate // port -> candidate, pd equal to pd1 or pd2
}

// solveSecondary finds one VCO2 value simultaneously reachable, within
// tolerance, by every remaining port, using at most two distinct
// post-dividers chip-wide. It mirrors lmk05318_solver_helper's
// band-enumeration and range-intersection approach: every (port, pd,
// od) triple contributes a [vco2Min, vco2Max] band instead of a single
// exact value, and a plan exists only where every port's band
// intersects a common running range.
func solveSecondary(reqs []pll.OutputRequest) (secondaryPlan, error) {
	if len(reqs) == 0 {
		return secondaryPlan{}, nil
	}

	freqByPort := make(map[int]uint64, len(reqs))
	perPort := make(map[int][]secondaryCandidate, len(reqs))
	for _, r := range reqs {
		freqByPort[r.Port] = r.FreqHz
		cands := candidatesFor(r)
		if len(cands) == 0 {
			return secondaryPlan{}, pll.ErrNoSolution(chipName, "solve_secondary",
				"port %d: no post-divider/output-divider pair reaches %d Hz (within tolerance) in the APLL2 VCO band", r.Port, r.FreqHz)
		}
		perPort[r.Port] = cands
	}

	ports := make([]int, 0, len(reqs))
	for p := range perPort {
		ports = append(ports, p)
	}
	sort.Ints(ports)

	// Every VCO2 band reachable by the first port seeds a candidate
	// running intersection; test each against every other port.
	anchor := ports[0]
	for _, ac := range perPort[anchor] {
		assign := map[int]secondaryCandidate{anchor: ac}
		pds := map[int]bool{ac.pd: true}
		intersection := pll.Band{Min: ac.vco2Min, Max: ac.vco2Max}
		ok := true
		for _, p := range ports[1:] {
			best, narrowed, found := bestCandidateAt(perPort[p], intersection, pds)
			if !found {
				ok = false
				break
			}
			assign[p] = best
			pds[best.pd] = true
			intersection = narrowed
		}
		if !ok || len(pds) > 2 {
			continue
		}
		// Prefer a VCO2 that divides some port's own request exactly:
		// lmk05318_solver_helper scans the intersected band looking
		// for a realizable frequency, and in the common case an exact
		// (pd, od, freq) triple already sits inside every other port's
		// tolerance band. Only when no port's exact value survives
		// the full intersection do we fall back to the band's
		// midpoint, which keeps every port within tolerance without
		// favoring one edge over the other.
		vco2 := intersection.Min + (intersection.Max-intersection.Min)/2
		for _, p := range ports {
			cand := assign[p]
			exact := uint64(cand.pd) * uint64(cand.od) * freqByPort[p]
			if exact >= intersection.Min && exact <= intersection.Max {
				vco2 = exact
				break
			}
		}
		plan := secondaryPlan{vco2: vco2, assign: assign}
		pdList := make([]int, 0, 2)
		for pd := range pds {
			pdList = append(pdList, pd)
		}
		sort.Ints(pdList)
		plan.pd1 = pdList[0]
		if len(pdList) > 1 {
			plan.pd2 = pdList[1]
		} else {
			plan.pd2 = pdList[0]
		}
		return plan, nil
	}

	return secondaryPlan{}, pll.ErrNoSolution(chipName, "solve_secondary",
		"no common APLL2 VCO frequency (within tolerance) reaches every remaining port through at most two post-dividers")
}

// bestCandidateAt finds, among cands, one whose VCO2 band overlaps
// running, preferring a post-divider already in use so the chip-wide
// two-post-divider budget isn't spent unnecessarily. It returns the
// chosen candidate and the narrowed intersection of running and that
// candidate's band.
func bestCandidateAt(cands []secondaryCandidate, running pll.Band, pdsInUse map[int]bool) (secondaryCandidate, pll.Band, bool) {
	var fallback secondaryCandidate
	var fallbackBand pll.Band
	haveFallback := false
	for _, c := range cands {
		narrowed, overlaps := running.Intersect(pll.Band{Min: c.vco2Min, Max: c.vco2Max})
		if !overlaps {
			continue
		}
		if pdsInUse[c.pd] {
			return c, narrowed, true
		}
		if !haveFallback {
			fallback, fallbackBand = c, narrowed
			haveFallback = true
		}
	}
	return fallback, fallbackBand, haveFallback
}
