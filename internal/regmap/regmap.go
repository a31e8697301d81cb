// Package regmap implements the deferred register map (C2): a
// scratchpad indexed by chip register address that solvers stage
// writes into, in whatever order their constraint search happens to
// produce them, before flushing the whole program as one ordered bus
// transaction.
//
// Solvers compute many derived register values in a non-linear order;
// writing each immediately would be wrong because some register pairs
// must transition atomically. Staging plus an ordered flush makes the
// final write sequence reproducible and easy to dump for debugging.
package regmap

import (
	"sort"

	"github.com/clocklab/sdrhw/internal/bus"
	"github.com/clocklab/sdrhw/internal/diaglog"
)

type entry struct {
	value uint32
	valid bool
}

// Map is an owned child of a chip's solver state: one Map per
// programming episode, reset at the start of that episode and never
// reused across calls.
type Map struct {
	chip    string
	log     diaglog.Logger
	entries map[uint16]entry
}

// New creates an empty deferred register map for chip, logging
// conflicting writes through log (diaglog.Default() if nil).
func New(chip string, log diaglog.Logger) *Map {
	if log == nil {
		log = diaglog.Default()
	}
	return &Map{chip: chip, log: diaglog.Chip(log, chip), entries: map[uint16]entry{}}
}

// Reset invalidates every entry, as at the start of a new programming episode.
func (m *Map) Reset() {
	m.entries = map[uint16]entry{}
}

// Stage records a pending write to addr. The first write to an
// address stores it; a later write to the same address replaces it -
// the new value always wins - but logs a WARNING if it disagrees with
// what was already staged, since that usually means two solver steps
// computed the same register differently.
func (m *Map) Stage(addr uint16, value uint32) {
	if prev, ok := m.entries[addr]; ok && prev.valid && prev.value != value {
		m.log.Warn("conflicting register write", "addr", addr, "old", prev.value, "new", value)
	}
	m.entries[addr] = entry{value: value, valid: true}
}

// Len reports how many addresses currently hold a valid staged value.
func (m *Map) Len() int {
	n := 0
	for _, e := range m.entries {
		if e.valid {
			n++
		}
	}
	return n
}

// Writes returns the staged (addr, value) pairs in ascending address
// order, the same order Flush issues them on the wire.
func (m *Map) Writes() []bus.Write {
	addrs := make([]uint16, 0, len(m.entries))
	for a, e := range m.entries {
		if e.valid {
			addrs = append(addrs, a)
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	out := make([]bus.Write, len(addrs))
	for i, a := range addrs {
		out[i] = bus.Write{Addr: a, Value: m.entries[a].value}
	}
	return out
}

// Flush issues every valid staged write through dev in ascending
// address order, matching the ordering guarantee a caller needs when
// some register pairs must transition atomically.
func (m *Map) Flush(dev bus.Device) error {
	return bus.WriteBurst(dev, m.Writes())
}
