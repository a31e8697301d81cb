// Package i2cdev implements bus.Transport against a Linux /dev/i2c-N
// character device, the backend real board bring-up uses for every
// I2C-addressed chip in this family (LMK05318, and peripherals such as
// TCA9555/LP8758 reachable through the same mux).
package i2cdev

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// ioctl request codes from linux/i2c-dev.h. This package never reads
// i2c_smbus_ioctl_data; it locks the slave address with I2C_SLAVE and
// then uses plain file Read/Write, the same approach the smaller
// Linux I2C client libraries in the ecosystem take.
const ioctlI2CSlave = 0x0703

// Transport talks to one I2C bus file descriptor. It is safe for
// concurrent use from multiple goroutines against different slave
// addresses: I2C_SLAVE is a per-fd property, so Transport serialises
// address selection and the following transfer under a mutex.
type Transport struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens the bus character device at path (typically
// "/dev/i2c-N"). The caller is responsible for closing the returned
// Transport when the chip handle it backs is torn down.
func Open(path string) (*Transport, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2cdev: open %s: %w", path, err)
	}
	return &Transport{f: f, path: path}, nil
}

// Close releases the underlying file descriptor.
func (t *Transport) Close() error { return t.f.Close() }

func (t *Transport) setSlave(addr uint8) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, t.f.Fd(), ioctlI2CSlave, uintptr(addr))
	if errno != 0 {
		return fmt.Errorf("i2cdev: set slave 0x%02x on %s: %w", addr, t.path, errno)
	}
	return nil
}

// I2CTransfer writes payload (typically [register-address, ...data]),
// then if nread > 0 issues a subsequent read of nread bytes, matching
// the write-then-read idiom register-addressed I2C peripherals expect.
func (t *Transport) I2CTransfer(addr uint8, payload []byte, nread int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.setSlave(addr); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if _, err := t.f.Write(payload); err != nil {
			return nil, fmt.Errorf("i2cdev: write to 0x%02x: %w", addr, err)
		}
	}
	if nread <= 0 {
		return nil, nil
	}
	buf := make([]byte, nread)
	if _, err := unix.Read(int(t.f.Fd()), buf); err != nil {
		return nil, fmt.Errorf("i2cdev: read from 0x%02x: %w", addr, err)
	}
	return buf, nil
}

// SPITransfer is unsupported on this backend: LMK05318-family boards
// reach their chips over I2C, never SPI, through this transport.
func (t *Transport) SPITransfer(uint32) (uint32, error) {
	return 0, fmt.Errorf("i2cdev: SPI transfer not supported on %s", t.path)
}
