// Package serialbridge implements bus.Transport over a USB-UART
// bridge that speaks a simple framed protocol to an SPI or I2C device
// on its far side - the common bench rig when the board's main SoC
// isn't available and a chip needs to be driven from a host directly.
//
// Wire framing: an SPI request is the 6-byte frame
// ['>', 's', w3, w2, w1, w0] carrying the 32-bit word most significant
// byte first, answered by the 5-byte frame ['<', status, r2, r1, r0].
// An I2C request is ['>', 'i', addr, len(payload), nread, payload...],
// answered by ['<', status] followed by nread data bytes. This mirrors the framing the bridge firmware used on the
// bench boards this backend was written against.
package serialbridge

import (
	"bufio"
	"fmt"

	"github.com/pkg/term"
)

const (
	opI2C byte = 'i'
	opSPI byte = 's'
	frameStart byte = '>'
	replyStart byte = '<'
)

// Transport talks to a serial-attached SPI/I2C bridge.
type Transport struct {
	port *term.Term
	r    *bufio.Reader
}

// Open puts the named serial device (e.g. "/dev/ttyUSB0") into raw
// mode at baud and returns a Transport ready for use.
func Open(device string, baud int) (*Transport, error) {
	t, err := term.Open(device, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serialbridge: open %s: %w", device, err)
	}
	return &Transport{port: t, r: bufio.NewReader(t)}, nil
}

// Close restores the serial line and releases its file descriptor.
func (t *Transport) Close() error {
	_ = t.port.Flush()
	return t.port.Close()
}

// SPITransfer sends one 32-bit word and returns the 24 bits of MISO
// response that the bridge's reply frame carries.
func (t *Transport) SPITransfer(word uint32) (uint32, error) {
	frame := []byte{
		frameStart, opSPI,
		byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word),
	}
	if _, err := t.port.Write(frame); err != nil {
		return 0, fmt.Errorf("serialbridge: spi write: %w", err)
	}
	reply := make([]byte, 5)
	if _, err := fullRead(t.r, reply); err != nil {
		return 0, fmt.Errorf("serialbridge: spi reply: %w", err)
	}
	if reply[0] != replyStart {
		return 0, fmt.Errorf("serialbridge: spi reply out of sync: got 0x%02x", reply[0])
	}
	if reply[1] != 0 {
		return 0, fmt.Errorf("serialbridge: bridge reported status %d", reply[1])
	}
	return uint32(reply[2])<<16 | uint32(reply[3])<<8 | uint32(reply[4]), nil
}

// I2CTransfer forwards a write (and optional subsequent read) to the
// bridge's I2C port.
func (t *Transport) I2CTransfer(addr uint8, payload []byte, nread int) ([]byte, error) {
	frame := make([]byte, 0, 4+len(payload))
	frame = append(frame, frameStart, opI2C, addr, byte(len(payload)), byte(nread))
	frame = append(frame, payload...)
	if _, err := t.port.Write(frame); err != nil {
		return nil, fmt.Errorf("serialbridge: i2c write: %w", err)
	}
	header := make([]byte, 2)
	if _, err := fullRead(t.r, header); err != nil {
		return nil, fmt.Errorf("serialbridge: i2c reply header: %w", err)
	}
	if header[0] != replyStart {
		return nil, fmt.Errorf("serialbridge: i2c reply out of sync: got 0x%02x", header[0])
	}
	if header[1] != 0 {
		return nil, fmt.Errorf("serialbridge: bridge reported status %d", header[1])
	}
	if nread <= 0 {
		return nil, nil
	}
	data := make([]byte, nread)
	if _, err := fullRead(t.r, data); err != nil {
		return nil, fmt.Errorf("serialbridge: i2c reply data: %w", err)
	}
	return data, nil
}

func fullRead(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
