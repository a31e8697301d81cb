package regmap

import (
	"fmt"
	"os"
	"time"

	"github.com/lestrrat-go/strftime"
)

// DumpTo writes the staged write sequence to a file for post-mortem
// analysis, expanding pattern (e.g. "lmk05318-%Y%m%d-%H%M%S.regs") with
// strftime against at. One line per register, in the same ascending
// address order Flush would use, so a dump taken right before a lock
// failure reproduces exactly what went out on the wire.
func (m *Map) DumpTo(pattern string, at time.Time) (string, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return "", fmt.Errorf("regmap: bad dump pattern %q: %w", pattern, err)
	}
	path := f.FormatString(at)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("regmap: create dump %s: %w", path, err)
	}
	defer file.Close()

	for _, w := range m.Writes() {
		if _, err := fmt.Fprintf(file, "0x%04x 0x%08x\n", w.Addr, w.Value); err != nil {
			return "", fmt.Errorf("regmap: write dump %s: %w", path, err)
		}
	}
	return path, nil
}
