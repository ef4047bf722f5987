package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// StateFile is the single-line command|unixtime file consumed by the
// local AI session. Writes overwrite the previous command.
type StateFile struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewStateFile creates a state file handle at path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path, now: time.Now}
}

// SetClock overrides the file's clock. Test hook.
func (f *StateFile) SetClock(now func() time.Time) { f.now = now }

// Write replaces the file contents with "command|<unix seconds>".
func (f *StateFile) Write(command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	secs := float64(f.now().UnixMilli()) / 1000
	line := fmt.Sprintf("%s|%s\n", command, strconv.FormatFloat(secs, 'f', 3, 64))
	if err := os.WriteFile(f.path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// Read returns the last written command and its timestamp.
func (f *StateFile) Read() (command string, at time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read %s: %w", f.path, err)
	}
	line := strings.TrimSpace(string(raw))
	cmd, stamp, ok := strings.Cut(line, "|")
	if !ok {
		return line, time.Time{}, nil
	}
	secs, err := strconv.ParseFloat(stamp, 64)
	if err != nil {
		return cmd, time.Time{}, nil
	}
	return cmd, time.UnixMilli(int64(secs * 1000)), nil
}
