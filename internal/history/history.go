// Package history keeps the bounded list of entered command lines and
// persists it as an append-order line list. File access is guarded by an
// advisory lock so concurrent shell sessions do not interleave writes.
package history

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gofrs/flock"
)

// DefaultMax is the entry cap used when none is configured.
const DefaultMax = 200

// History is a capacity-bounded command line list. Oldest entries are
// evicted first; consecutive duplicates collapse to one entry.
type History struct {
	path    string
	max     int
	entries []string
}

// New returns an empty history persisted at path. A max of zero or less
// selects DefaultMax.
func New(path string, max int) *History {
	if max <= 0 {
		max = DefaultMax
	}
	return &History{path: path, max: max}
}

// Add records a command line. Empty lines and lines equal to the previous
// entry are ignored.
func (h *History) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	if len(h.entries) == h.max {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, line)
}

// Entries returns the recorded lines, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len reports the number of recorded lines.
func (h *History) Len() int { return len(h.entries) }

// Load reads the history file, if it exists, applying the usual bounding
// and dedup rules.
func (h *History) Load() error {
	if h.path == "" {
		return nil
	}
	lock := flock.New(h.path + ".lock")
	if err := lock.RLock(); err != nil {
		return fmt.Errorf("locking history: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		h.Add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	return nil
}

// Save writes the current entries back to the history file, one per line.
func (h *History) Save() error {
	if h.path == "" {
		return nil
	}
	lock := flock.New(h.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking history: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.OpenFile(h.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, line := range h.entries {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing history: %w", err)
	}
	return f.Close()
}
