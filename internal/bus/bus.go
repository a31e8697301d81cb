// Package bus presents I2C-device and SPI-device register access as a
// single read(addr)->word / write(addr, word) primitive, with address
// and value widths parameterised per chip. It does not own a
// transport; callers construct a Device from a concrete backend
// (internal/bus/i2cdev, internal/bus/serialbridge) and hand it to a
// solver or calibration routine.
package bus

import "github.com/clocklab/sdrhw/internal/sdrerr"

// Width describes how many bits a register address or value occupies
// on the wire. Chips in this family use one of three shapes: 16-bit
// address / 8-bit value (LMK05318 family over I2C), 16-bit address /
// 16-bit value (LMS7002M-style SPI), or a packed 32-bit transfer where
// the address is shifted into the high bits of the word (SPI chips
// that have no separate address phase, e.g. LMX2820).
type Width int

const (
	// Width8 values fit in a byte (LMK05318, LMK5C33216, LP8758, ...).
	Width8 Width = 8
	// Width16 values fit in a 16-bit word (LMS7002M SPI registers).
	Width16 Width = 16
	// Width32Packed means addr and value are packed into one 32-bit
	// MOSI word, as used by LMX2820 and LMK1204/LMK1214's SPI frames.
	Width32Packed Width = 32
)

// Write is one (address, value) pair, used by WriteBurst to describe
// an ordered sequence of register writes.
type Write struct {
	Addr  uint16
	Value uint32
}

// Device is the synchronous register-access contract every chip
// driver programs against. Implementations must preserve write
// ordering: WriteBurst is defined as the sequential application of
// WriteReg, not a scatter-gather operation.
type Device interface {
	// Chip is the human-readable chip name used in diagnostics, e.g.
	// "LMK05318" or "LMX2820".
	Chip() string
	// ValueWidth reports the wire width this device was constructed for.
	ValueWidth() Width
	// WriteReg performs a synchronous register write.
	WriteReg(addr uint16, value uint32) error
	// ReadReg performs a synchronous register read.
	ReadReg(addr uint16) (uint32, error)
}

// WriteBurst writes each (addr, value) pair in order, stopping at the
// first failure. It is a convenience wrapper, not a distinct wire
// operation: deferred register maps (internal/regmap) use it to flush
// their staged writes in ascending-address order.
func WriteBurst(d Device, writes []Write) error {
	for _, w := range writes {
		if err := d.WriteReg(w.Addr, w.Value); err != nil {
			return sdrerr.Wrap(d.Chip(), "write_burst", err)
		}
	}
	return nil
}

// Transport is the low-level operation a Device performs against
// physical hardware; concrete backends implement one of these shapes
// and bus.Device wraps it with chip identity and width bookkeeping.
type Transport interface {
	// I2CTransfer writes payload to, then optionally reads back
	// nread bytes from, an I2C device at addr.
	I2CTransfer(addr uint8, payload []byte, nread int) ([]byte, error)
	// SPITransfer clocks out word and returns the simultaneously
	// clocked-in MISO word (full-duplex 32-bit transfer).
	SPITransfer(word uint32) (uint32, error)
}
