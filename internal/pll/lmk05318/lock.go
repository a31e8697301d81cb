package lmk05318

import (
	"fmt"

	"github.com/clocklab/sdrhw/internal/bus"
)

// CheckLocked reads the status register and reports whether both the
// primary and secondary loops report lock. A closure over dev that
// calls it serves as Chip.Flush's lock-poll predicate.
func CheckLocked(dev bus.Device) (bool, error) {
	word, err := dev.ReadReg(regStatus)
	if err != nil {
		return false, err
	}
	return fieldPrimaryLock.Get(word) == 1 && fieldSecondaryLock.Get(word) == 1, nil
}

// DumpLockStatus reads the status register one more time for the
// diagnostic string PollLock attaches to a LockTimeout error. Errors
// reading the register are folded into the returned string rather than
// propagated, since this only ever runs on an already-failing path.
func DumpLockStatus(dev bus.Device) func() string {
	return func() string {
		word, err := dev.ReadReg(regStatus)
		if err != nil {
			return fmt.Sprintf("status register unreadable: %v", err)
		}
		return fmt.Sprintf("primary_lock=%d secondary_lock=%d raw=0x%08x",
			fieldPrimaryLock.Get(word), fieldSecondaryLock.Get(word), word)
	}
}
