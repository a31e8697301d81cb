package calib

import (
	"time"

	"github.com/clocklab/sdrhw/internal/optimize"
	"github.com/clocklab/sdrhw/internal/sdrerr"
)

// CalibrateRXLOLeakage nulls out LO leakage on the receive path: one
// call to the 2-D optimizer with a single golden-section descriptor
// spanning the full RX I/Q correction window. The measurement offsets
// the RX NCO by a small amount (controlled by RXTXLOFrac) and
// integrates power over IntegrationDur.
func CalibrateRXLOLeakage(cfg *Config) (Result, error) {
	offset := q31Offset(cfg.RXRateHz, cfg.RXTXLOFrac)

	measure := func(i, q int) (float64, error) {
		if err := cfg.Backend.SetCorrection(AxisI, i); err != nil {
			return 0, wrapMeasure("rx_lo_leakage", err)
		}
		if err := cfg.Backend.SetCorrection(AxisQ, q); err != nil {
			return 0, wrapMeasure("rx_lo_leakage", err)
		}
		if err := cfg.Backend.SetNCOOffset(offset); err != nil {
			return 0, wrapMeasure("rx_lo_leakage", err)
		}
		p, err := cfg.Backend.MeasurePower(cfg.IntegrationDur)
		if err != nil {
			return 0, wrapMeasure("rx_lo_leakage", err)
		}
		return p, nil
	}

	descriptors := []optimize.Descriptor{{
		XOffset:   cfg.IQCorrBounds,
		YOffset:   cfg.IQCorrBounds,
		XStrategy: optimize.Golden,
		YStrategy: optimize.Golden,
	}}

	res, err := optimize.Run(descriptors, cfg.IQCorrBounds, cfg.IQCorrBounds, cfg.PrevRXCorr[0], cfg.PrevRXCorr[1], -1<<30, measure)
	if err != nil {
		return Result{}, err
	}
	return Result{X: res.X, Y: res.Y, BestMeasurement: res.F}, nil
}

// txLOPhase describes one row of the four-phase descriptor chain
// CalibrateTXLOLeakage runs; each phase gets its own optimize.Run call
// because phase 4 lengthens the integration window, something a
// single Measure2D closure shared across all phases can't express.
type txLOPhase struct {
	window           optimize.Bounds
	strategy         optimize.Strategy
	tuning           float64
	durationMultiplier int
}

var txLOPhases = []txLOPhase{
	{strategy: optimize.Golden, tuning: 0, durationMultiplier: 1},       // phase 1: full range, set below
	{strategy: optimize.Golden, tuning: 0, durationMultiplier: 1},       // phase 2: 1/8 of full range
	{window: optimize.Bounds{Min: -80, Max: 80}, strategy: optimize.Sweep, tuning: 4, durationMultiplier: 1},
	{window: optimize.Bounds{Min: -8, Max: 8}, strategy: optimize.Sweep, tuning: 0, durationMultiplier: 4},
}

// CalibrateTXLOLeakage nulls out LO leakage on the transmit path
// through the four-phase chain in §4.5: full range, then 1/8 of the
// full range, then a ±80 sweep, then a ±8 sweep with 4x the
// integration time. Before the first phase, the orchestrator
// silences the TX test tone and retunes the RX NCO to TX_LO - offset
// so any residual TX_LO carrier reappears centered in the RX NCO.
func CalibrateTXLOLeakage(cfg *Config) (Result, error) {
	if err := cfg.Backend.SetTestSignal(0, 0); err != nil {
		return Result{}, wrapMeasure("tx_lo_leakage", err)
	}
	offset := q31Offset(cfg.RXRateHz, cfg.RXTXLOFrac)
	rxNCOTarget := (cfg.TXLOHz - offset) - cfg.RXLOHz
	if err := cfg.Backend.SetNCOOffset(rxNCOTarget); err != nil {
		return Result{}, wrapMeasure("tx_lo_leakage", err)
	}

	full := cfg.IQCorrBounds
	eighth := optimize.Bounds{Min: full.Min / 8, Max: full.Max / 8}
	phases := make([]txLOPhase, len(txLOPhases))
	copy(phases, txLOPhases)
	phases[0].window = full
	phases[1].window = eighth

	x, y := cfg.PrevTXCorr[0], cfg.PrevTXCorr[1]
	var best optimize.Result
	for _, p := range phases {
		dur := cfg.IntegrationDur * time.Duration(p.durationMultiplier)
		measure := func(i2, q int) (float64, error) {
			if err := cfg.Backend.SetCorrection(AxisI, i2); err != nil {
				return 0, wrapMeasure("tx_lo_leakage", err)
			}
			if err := cfg.Backend.SetCorrection(AxisQ, q); err != nil {
				return 0, wrapMeasure("tx_lo_leakage", err)
			}
			return measurePower(cfg.Backend, dur, "tx_lo_leakage")
		}

		descriptors := []optimize.Descriptor{{
			XOffset: p.window, YOffset: p.window,
			XStrategy: p.strategy, YStrategy: p.strategy,
			Tuning: p.tuning,
		}}

		res, err := optimize.Run(descriptors, full, full, x, y, -1<<30, measure)
		if err != nil {
			return Result{}, err
		}
		x, y = res.X, res.Y
		best = res
	}

	return Result{X: x, Y: y, BestMeasurement: best.F}, nil
}

func measurePower(b Backend, dur time.Duration, op string) (float64, error) {
	p, err := b.MeasurePower(dur)
	if err != nil {
		return 0, wrapMeasure(op, err)
	}
	return p, nil
}

func wrapMeasure(op string, err error) error {
	if err == nil {
		return nil
	}
	return sdrerr.Wrap("transceiver", op, err)
}
