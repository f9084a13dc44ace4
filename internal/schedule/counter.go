package schedule

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Counter is the persisted 1-based index of the next schedule entry to run.
// The file holds a single integer; it is rewritten whole on advancement and
// only after the entry succeeded. Concurrent writers are not guarded here;
// the tool assumes a single cron-style invocation at a time.
type Counter struct {
	path string
}

// NewCounter returns a counter backed by the given file path.
func NewCounter(path string) *Counter {
	return &Counter{path: path}
}

// Path returns the backing file path.
func (c *Counter) Path() string {
	return c.path
}

// Read returns the current counter value, validated against total. A missing
// file reads as 1 (first run). A corrupt or out-of-range file is an error,
// never a silent reset: a truncated write needs an operator decision.
func (c *Counter) Read(total int) (int, error) {
	if total <= 0 {
		return 0, fmt.Errorf("schedule has no entries")
	}

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter file: %w", err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("counter file %s does not hold an integer: %q", c.path, strings.TrimSpace(string(data)))
	}
	if value < 1 || value > total {
		return 0, fmt.Errorf("counter file %s holds %d, outside [1, %d]", c.path, value, total)
	}
	return value, nil
}

// Write persists the counter value.
func (c *Counter) Write(value int) error {
	if err := os.WriteFile(c.path, []byte(strconv.Itoa(value)), 0o644); err != nil {
		return fmt.Errorf("failed to write counter file: %w", err)
	}
	return nil
}

// Next applies the wrap law: after entry current of total, the next entry is
// (current mod total) + 1, so the last entry wraps back to 1.
func Next(current, total int) int {
	return current%total + 1
}
