package lmx2820

import (
	"fmt"

	"github.com/clocklab/sdrhw/internal/bus"
)

// CheckLocked reads the lock-detect status register. A closure over dev
// that calls it serves as Chip.Flush's lock-poll predicate.
func CheckLocked(dev bus.Device) (bool, error) {
	word, err := dev.ReadReg(regStatus)
	if err != nil {
		return false, err
	}
	return fieldLockDetect.Get(word) == lockDetectLocked, nil
}

// DumpLockStatus reads the status register one more time for the
// diagnostic string PollLock attaches to a LockTimeout error.
func DumpLockStatus(dev bus.Device) func() string {
	return func() string {
		word, err := dev.ReadReg(regStatus)
		if err != nil {
			return fmt.Sprintf("status register unreadable: %v", err)
		}
		return fmt.Sprintf("lock_detect=%d raw=0x%08x", fieldLockDetect.Get(word), word)
	}
}
