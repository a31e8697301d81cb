// Package calib implements the RF calibration orchestrator (C5): it
// sequences LO-leakage and I/Q-imbalance calibrations, owns test-tone
// injection, and drives internal/optimize with chip-specific
// measurement and set-correction callbacks reached through the
// Backend capability below.
//
// Backend replaces the original driver's calibrate_ops
// v-table of function pointers plus opaque context with a plain Go
// interface, per the "callback-heavy design" design note: any type
// implementing it can be driven by this package, whether that is a
// real transceiver, a bench rig (internal/bench), or a test double.
package calib

import "time"

// Axis identifies one of the four correction registers a transceiver
// exposes for calibration.
type Axis int

const (
	AxisI Axis = iota
	AxisQ
	AxisPhase
	AxisGain
)

func (a Axis) String() string {
	switch a {
	case AxisI:
		return "I"
	case AxisQ:
		return "Q"
	case AxisPhase:
		return "phase"
	case AxisGain:
		return "gain"
	default:
		return "unknown"
	}
}

// Backend is the capability a transceiver (or a test double) exposes
// to the calibration orchestrator.
type Backend interface {
	// SetCorrection programs one correction register.
	SetCorrection(axis Axis, value int) error
	// MeasurePower integrates baseband power over duration and
	// returns it in the chip's native dBFS*100 units (so -7000 means
	// -70.00 dBFS, matching the tone-auto-ranging threshold in §4.5).
	MeasurePower(duration time.Duration) (float64, error)
	// SetNCOOffset retunes the receive NCO by offsetHz relative to
	// the configured RX LO.
	SetNCOOffset(offsetHz int64) error
	// SetTestSignal injects a transmit test tone at offsetHz from the
	// configured TX LO with the given amplitude (0 disables it).
	SetTestSignal(offsetHz int64, amplitude int) error
}
