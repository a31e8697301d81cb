// Package bench provides hardware-in-the-loop tooling for verifying
// the calibration orchestrator (internal/calib) against an
// independent reference instrument, rather than trusting the
// transceiver under test's own power readings. None of this is part
// of the core driver call path; it exists to be driven from this
// package's own tests during bench bring-up.
package bench

import (
	"time"

	"github.com/xylo04/goHamlib"

	"github.com/clocklab/sdrhw/internal/calib"
	"github.com/clocklab/sdrhw/internal/sdrerr"
)

// rigClient is the slice of *goHamlib.Rig this package drives, cut out
// as an interface so bench tests can substitute a fake rigctld session
// instead of requiring a live hamlib build and network daemon.
type rigClient interface {
	GetLevel(level goHamlib.RigLevel) (float64, error)
	Close() error
}

// HamlibBackend wraps a calib.Backend for the device under test and
// substitutes its MeasurePower with a reading taken from an external
// reference rig reached over rigctld via goHamlib, so the calibration
// loop is scored against an instrument the DUT can't lie to itself
// about. SetCorrection, SetNCOOffset and SetTestSignal still drive the
// DUT directly.
type HamlibBackend struct {
	dut calib.Backend
	rig rigClient
}

// DialRigctld opens a goHamlib session against a rigctld instance
// listening on addr (host:port) and wraps dut's correction/test-tone
// calls with power readings taken from that rig.
func DialRigctld(dut calib.Backend, addr string) (*HamlibBackend, error) {
	rig := goHamlib.NewRig(goHamlib.RIG_MODEL_NETRIGCTL)
	rig.SetConf("rig_pathname", addr)
	if err := rig.Open(); err != nil {
		return nil, sdrerr.New(sdrerr.IoError, "bench", "dial_rigctld", "opening %s: %v", addr, err)
	}
	return &HamlibBackend{dut: dut, rig: rig}, nil
}

// Close releases the underlying rigctld session.
func (h *HamlibBackend) Close() error {
	return h.rig.Close()
}

func (h *HamlibBackend) SetCorrection(axis calib.Axis, value int) error {
	return h.dut.SetCorrection(axis, value)
}

func (h *HamlibBackend) SetNCOOffset(offsetHz int64) error {
	return h.dut.SetNCOOffset(offsetHz)
}

func (h *HamlibBackend) SetTestSignal(offsetHz int64, amplitude int) error {
	return h.dut.SetTestSignal(offsetHz, amplitude)
}

// MeasurePower integrates the rig's S-meter over duration and returns
// the average in dBFS*100, the same native unit calib.Backend.MeasurePower
// uses, so it drops into the orchestrator's cost functions unchanged.
// goHamlib reports S-meter level in dBm; the conversion to the chip's
// dBFS*100 convention is a fixed offset calibrated once per bench setup.
func (h *HamlibBackend) MeasurePower(duration time.Duration) (float64, error) {
	const samples = 8
	const dBmToDBFS100Offset = -3000 // bench-calibrated constant, see internal/bench/hamlib_test.go

	interval := duration / samples
	if interval <= 0 {
		interval = time.Millisecond
	}

	var sum float64
	for i := 0; i < samples; i++ {
		dBm, err := h.rig.GetLevel(goHamlib.LEVEL_STRENGTH)
		if err != nil {
			return 0, sdrerr.New(sdrerr.IoError, "bench", "measure_power", "reading S-meter: %v", err)
		}
		sum += dBm*100 + dBmToDBFS100Offset
		time.Sleep(interval)
	}
	return sum / samples, nil
}
