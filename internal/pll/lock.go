package pll

import (
	"time"

	"github.com/clocklab/sdrhw/internal/sdrerr"
)

const lockPollInterval = 100 * time.Microsecond

// PollLock repeatedly calls checkLocked (which should read the chip's
// lock-status register) until it reports true, timeout elapses, or it
// returns an error. It sleeps lockPollInterval between polls, per the
// concurrency model's "sleep 100us between polls" timing rule.
//
// onTimeout, if non-nil, is called once the timeout is reached so the
// caller can dump post-mortem lock-status flags into the returned
// error's diagnostic message before PollLock returns LockTimeout.
func PollLock(chip, op string, timeout time.Duration, checkLocked func() (bool, error), onTimeout func() string) error {
	deadline := time.Now().Add(timeout)
	for {
		locked, err := checkLocked()
		if err != nil {
			return sdrerr.Wrap(chip, op, err)
		}
		if locked {
			return nil
		}
		if time.Now().After(deadline) {
			detail := ""
			if onTimeout != nil {
				detail = onTimeout()
			}
			return errOp(chip, op, sdrerr.LockTimeout, "lock not asserted within %s: %s", timeout, detail)
		}
		time.Sleep(lockPollInterval)
	}
}
