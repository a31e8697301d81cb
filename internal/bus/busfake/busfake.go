// Package busfake exercises internal/bus/serialbridge end to end
// without hardware: it opens a pty pair with github.com/creack/pty and
// runs a scripted "fake chip" responder on the master side that speaks
// the same framing serialbridge.Transport expects, while the code under
// test opens the slave end, so the real framing and read/write-ordering
// code paths can run without hardware.
package busfake

import (
	"bufio"
	"io"
	"os"

	"github.com/creack/pty"
)

// RegModel is a tiny in-memory register file the fake chip responder
// reads and writes, letting tests assert on what a solver actually
// wrote on the wire.
type RegModel struct {
	Regs map[uint16]uint32
}

// NewRegModel returns an empty register model.
func NewRegModel() *RegModel { return &RegModel{Regs: map[uint16]uint32{}} }

// Chip is a loopback pty pair plus the responder goroutine driving it.
// PTYName is the path the device-under-test (e.g. serialbridge.Open)
// should open.
type Chip struct {
	PTYName string

	master *os.File
	slave  *os.File
	done   chan struct{}
}

// StartSPI spins up a responder that understands the serialbridge SPI
// frame ['>','s', a3,a2,a1,a0] -> ['<', 0, r2,r1,r0], treating the bits
// above the low addrShift bits of the word as the address and the low
// addrShift bits as the value, against model.
func StartSPI(model *RegModel, addrShift uint) (*Chip, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, err
	}
	c := &Chip{PTYName: slave.Name(), master: master, slave: slave, done: make(chan struct{})}
	go c.serveSPI(model, addrShift)
	return c, nil
}

// Close stops the responder and releases both ends of the pty.
func (c *Chip) Close() error {
	close(c.done)
	_ = c.slave.Close()
	return c.master.Close()
}

func (c *Chip) serveSPI(model *RegModel, addrShift uint) {
	r := bufio.NewReader(c.master)
	for {
		hdr := make([]byte, 2)
		if _, err := io.ReadFull(r, hdr); err != nil {
			return
		}
		if hdr[0] != '>' || hdr[1] != 's' {
			continue
		}
		body := make([]byte, 4)
		if _, err := io.ReadFull(r, body); err != nil {
			return
		}
		word := uint32(body[0])<<24 | uint32(body[1])<<16 | uint32(body[2])<<8 | uint32(body[3])
		mask := uint32(1)<<addrShift - 1
		addr := uint16(word >> addrShift)
		readBit := uint32(1) << (addrShift - 1)
		var value uint32
		if word&readBit != 0 && (word&mask) == readBit {
			value = model.Regs[addr]
		} else {
			value = word & mask
			model.Regs[addr] = value
		}
		reply := []byte{'<', 0, byte(value >> 16), byte(value >> 8), byte(value)}
		if _, err := c.master.Write(reply); err != nil {
			return
		}
	}
}
