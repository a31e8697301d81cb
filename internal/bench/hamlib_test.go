package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xylo04/goHamlib"

	"github.com/clocklab/sdrhw/internal/calib"
)

type fakeDUT struct {
	corr      map[calib.Axis]int
	ncoOffset int64
	toneAmp   int
}

func newFakeDUT() *fakeDUT { return &fakeDUT{corr: map[calib.Axis]int{}} }

func (f *fakeDUT) SetCorrection(axis calib.Axis, value int) error { f.corr[axis] = value; return nil }
func (f *fakeDUT) MeasurePower(time.Duration) (float64, error)    { return 0, nil }
func (f *fakeDUT) SetNCOOffset(offset int64) error                { f.ncoOffset = offset; return nil }
func (f *fakeDUT) SetTestSignal(offsetHz int64, amplitude int) error {
	f.toneAmp = amplitude
	return nil
}

type fakeRig struct {
	dBm    float64
	closed bool
}

func (r *fakeRig) GetLevel(level goHamlib.RigLevel) (float64, error) {
	return r.dBm, nil
}

func (r *fakeRig) Close() error {
	r.closed = true
	return nil
}

func TestHamlibBackendForwardsCorrectionToDUT(t *testing.T) {
	dut := newFakeDUT()
	h := &HamlibBackend{dut: dut, rig: &fakeRig{}}

	require.NoError(t, h.SetCorrection(calib.AxisI, 42))
	require.NoError(t, h.SetNCOOffset(1000))
	require.NoError(t, h.SetTestSignal(500, 4096))

	assert.Equal(t, 42, dut.corr[calib.AxisI])
	assert.Equal(t, int64(1000), dut.ncoOffset)
	assert.Equal(t, 4096, dut.toneAmp)
}

func TestHamlibBackendMeasurePowerAveragesRigReadings(t *testing.T) {
	rig := &fakeRig{dBm: -40}
	h := &HamlibBackend{dut: newFakeDUT(), rig: rig}

	p, err := h.MeasurePower(8 * time.Millisecond)
	require.NoError(t, err)
	assert.InDelta(t, -40*100-3000, p, 1e-9)
}

func TestHamlibBackendCloseClosesRig(t *testing.T) {
	rig := &fakeRig{}
	h := &HamlibBackend{dut: newFakeDUT(), rig: rig}
	require.NoError(t, h.Close())
	assert.True(t, rig.closed)
}
