package regmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/clocklab/sdrhw/internal/bus"
)

type captureLog struct {
	warns []string
}

func (c *captureLog) Debug(interface{}, ...interface{}) {}
func (c *captureLog) Info(interface{}, ...interface{})  {}
func (c *captureLog) Warn(msg interface{}, kv ...interface{}) {
	c.warns = append(c.warns, msg.(string))
}
func (c *captureLog) Error(interface{}, ...interface{}) {}

type fakeDevice struct {
	chip   string
	writes []bus.Write
	fail   error
}

func (d *fakeDevice) Chip() string       { return d.chip }
func (d *fakeDevice) ValueWidth() bus.Width { return bus.Width8 }
func (d *fakeDevice) WriteReg(addr uint16, value uint32) error {
	if d.fail != nil {
		return d.fail
	}
	d.writes = append(d.writes, bus.Write{Addr: addr, Value: value})
	return nil
}
func (d *fakeDevice) ReadReg(uint16) (uint32, error) { return 0, nil }

func TestStageFirstWriteIsStored(t *testing.T) {
	m := New("LMK05318", &captureLog{})
	m.Stage(0x10, 5)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, []bus.Write{{Addr: 0x10, Value: 5}}, m.Writes())
}

func TestStageConflictLogsButReplaces(t *testing.T) {
	cl := &captureLog{}
	m := New("LMK05318", cl)
	m.Stage(0x10, 5)
	m.Stage(0x10, 7)

	assert.Equal(t, []bus.Write{{Addr: 0x10, Value: 7}}, m.Writes())
	assert.Len(t, cl.warns, 1)
}

func TestStageSameValueNoWarning(t *testing.T) {
	cl := &captureLog{}
	m := New("LMK05318", cl)
	m.Stage(0x10, 5)
	m.Stage(0x10, 5)
	assert.Empty(t, cl.warns)
}

func TestResetInvalidatesAll(t *testing.T) {
	m := New("LMK05318", &captureLog{})
	m.Stage(0x10, 5)
	m.Reset()
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Writes())
}

func TestFlushOrdersAscending(t *testing.T) {
	m := New("LMK05318", &captureLog{})
	m.Stage(0x30, 3)
	m.Stage(0x10, 1)
	m.Stage(0x20, 2)

	dev := &fakeDevice{chip: "LMK05318"}
	require.NoError(t, m.Flush(dev))
	assert.Equal(t, []bus.Write{{Addr: 0x10, Value: 1}, {Addr: 0x20, Value: 2}, {Addr: 0x30, Value: 3}}, dev.writes)
}

func TestFlushPropagatesIoError(t *testing.T) {
	m := New("LMK05318", &captureLog{})
	m.Stage(0x10, 1)

	wantErr := assert.AnError
	dev := &fakeDevice{chip: "LMK05318", fail: wantErr}
	err := m.Flush(dev)
	require.Error(t, err)
}

// Property: no matter what sequence of Stage calls happens, Writes()
// always comes back address-sorted and every address appears once.
func TestWritesAlwaysSortedAndUnique(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := New("LMK05318", &captureLog{})
		addrs := rapid.SliceOf(rapid.Uint16Range(0, 64)).Draw(t, "addrs")
		for _, a := range addrs {
			m.Stage(a, uint32(a)+1)
		}

		writes := m.Writes()
		seen := map[uint16]bool{}
		for i, w := range writes {
			if i > 0 {
				if writes[i-1].Addr >= w.Addr {
					t.Fatalf("not strictly ascending at %d: %v", i, writes)
				}
			}
			if seen[w.Addr] {
				t.Fatalf("duplicate address %d", w.Addr)
			}
			seen[w.Addr] = true
		}
	})
}
