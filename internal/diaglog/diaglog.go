// Package diaglog is the thin structured-logging shim every solver and
// calibration routine logs through. It exists so that a chip's WARNING
// diagnostics (naming chip, operation, and the failed constraint per
// the driver's error-handling policy) always carry the same fields,
// and so tests can swap in a buffer-backed logger instead of stderr.
package diaglog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the interface every component logs through. *log.Logger
// from charmbracelet/log satisfies it directly.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

var std Logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Level:           log.InfoLevel,
})

// Default returns the package-wide logger. Components accept a Logger
// in their constructor and fall back to Default() when none is given,
// so tests can substitute a capturing logger without a global reset.
func Default() Logger { return std }

// SetDefault replaces the package-wide logger, e.g. to raise verbosity
// or to redirect to a file during board bring-up.
func SetDefault(l Logger) { std = l }

// Chip returns a Logger that always carries a "chip" field, mirroring
// the original driver's USDR_LOG(tag, level, ...) convention where
// every line names the chip.
func Chip(l Logger, chip string) Logger {
	if cl, ok := l.(*log.Logger); ok {
		return cl.With("chip", chip)
	}
	return &prefixed{base: l, chip: chip}
}

// prefixed backs Chip() when the supplied Logger isn't a
// *log.Logger (e.g. a test double), prepending a "chip" key/value pair
// to the key/value list of every call.
type prefixed struct {
	base Logger
	chip string
}

func (p *prefixed) Debug(msg interface{}, kv ...interface{}) {
	p.base.Debug(msg, append([]interface{}{"chip", p.chip}, kv...)...)
}
func (p *prefixed) Info(msg interface{}, kv ...interface{}) {
	p.base.Info(msg, append([]interface{}{"chip", p.chip}, kv...)...)
}
func (p *prefixed) Warn(msg interface{}, kv ...interface{}) {
	p.base.Warn(msg, append([]interface{}{"chip", p.chip}, kv...)...)
}
func (p *prefixed) Error(msg interface{}, kv ...interface{}) {
	p.base.Error(msg, append([]interface{}{"chip", p.chip}, kv...)...)
}
