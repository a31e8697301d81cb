package calib

import (
	"time"

	"github.com/clocklab/sdrhw/internal/optimize"
)

// Config is the calibrate_ops-equivalent input record: sample-rate
// parameters, current LO frequencies, per-axis tolerance windows, the
// Q0.31 test-tone offsets for each calibration type, and the backend
// the orchestrator drives.
type Config struct {
	Backend Backend

	ADCRateHz, DACRateHz int64
	RXRateHz, TXRateHz   int64 // post-decimation/interpolation rates
	RXLOHz, TXLOHz       int64

	// IQCorrBounds is the hardware range of the I/Q DC-offset
	// correction registers (used by LO-leakage calibration).
	IQCorrBounds optimize.Bounds
	// PhaseBounds/GainBounds are the hardware ranges of the
	// phase-correction and gain-imbalance correction registers.
	PhaseBounds, GainBounds optimize.Bounds

	// RXTXLOFrac is the Q0.31 fractional test-tone offset shared by
	// RX and TX LO-leakage calibration.
	RXTXLOFrac int64
	// RXIQImbFrac/TXIQImbFrac are the Q0.31 fractional test-tone
	// offsets for the RX and TX I/Q-imbalance calibrations.
	RXIQImbFrac, TXIQImbFrac int64

	// IntegrationDur is the baseband integration window (deflogdur)
	// a single power measurement uses.
	IntegrationDur time.Duration

	// PrevRXCorr/PrevTXCorr are the correction values in effect
	// before this calibration run. The orchestrator never restores
	// them itself on error - per §4.5 failure semantics the caller
	// owns that - but carries them through so a caller can.
	PrevRXCorr, PrevTXCorr [2]int
}

// Result is the calibrated (I, Q) or (phase, gain) pair and the cost
// at that point, written back to the caller's output area.
type Result struct {
	X, Y           int
	BestMeasurement float64
}

// q31Offset converts a Q0.31 fractional numerator into a frequency
// offset in Hz at the given sample rate: offset = rate * frac / 2^31.
func q31Offset(rateHz, frac int64) int64 {
	return (rateHz * frac) >> 31
}
