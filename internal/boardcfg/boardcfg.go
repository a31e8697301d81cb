// Package boardcfg provides the board bring-up and fixture-loading
// helpers that sit ahead of the bus abstraction (C6) and behind the
// solver test suites (C7): a GPIO-driven chip reset sequence and a
// YAML board-profile loader that feeds the same pll.OutputRequest /
// XOSettings / DPLLConfig types the solvers consume directly.
//
// Board discovery remains a non-goal: every GPIO chip/line and every
// profile path is supplied by the caller, never probed.
package boardcfg

import (
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/clocklab/sdrhw/internal/sdrerr"
)

// ResetSequence describes one chip reset pulse ahead of C1 bus use.
// BareMode resolves the spec's USDR_BARE_DEV open question as an
// explicit field instead of an environment-variable read inside the
// driver core: when true, Run skips the GPIO pulse entirely and
// returns immediately, matching a bench setup where the chip is
// already out of reset and no reset line is wired to the host.
type ResetSequence struct {
	BareMode bool

	// Chip is the gpiod character-device path, e.g. "gpiochip0".
	Chip string
	// Line is the GPIO offset on Chip driving the chip's active-low
	// reset pin.
	Line int
	// SettleDelay is how long Run waits after driving the line high
	// again before returning, giving the chip's internal POR sequence
	// time to complete.
	SettleDelay time.Duration
}

// Run drives the reset line low then high and waits SettleDelay, or
// does nothing when BareMode is set. It opens and releases the GPIO
// line itself; callers don't hold a gpiocdev handle across calls.
func (r ResetSequence) Run() error {
	if r.BareMode {
		return nil
	}

	line, err := gpiocdev.RequestLine(r.Chip, r.Line,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer("sdrhw-boardcfg"),
	)
	if err != nil {
		return sdrerr.New(sdrerr.IoError, "boardcfg", "reset", "requesting %s line %d: %v", r.Chip, r.Line, err)
	}
	defer line.Close()

	if err := line.SetValue(0); err != nil {
		return sdrerr.New(sdrerr.IoError, "boardcfg", "reset", "driving reset low: %v", err)
	}
	delay := r.SettleDelay
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}
	time.Sleep(delay)

	if err := line.SetValue(1); err != nil {
		return sdrerr.New(sdrerr.IoError, "boardcfg", "reset", "driving reset high: %v", err)
	}
	time.Sleep(delay)

	return nil
}
