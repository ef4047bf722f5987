package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStateFileWriteFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gesture_command.txt")
	f := NewStateFile(path)
	f.SetClock(func() time.Time {
		return time.UnixMilli(1761998400500)
	})

	if err := f.Write("thumbs_up"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "thumbs_up|1761998400.500\n"
	if string(raw) != want {
		t.Errorf("file = %q, want %q", raw, want)
	}
}

func TestStateFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gesture_command.txt")
	f := NewStateFile(path)

	if err := f.Write("open_palm"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Write("fist"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	cmd, _, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cmd != "fist" {
		t.Errorf("command = %q, want fist (last write wins)", cmd)
	}
}

func TestStateFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gesture_command.txt")
	f := NewStateFile(path)
	at := time.UnixMilli(1761998400250)
	f.SetClock(func() time.Time { return at })

	if err := f.Write("peace"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	cmd, got, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cmd != "peace" {
		t.Errorf("command = %q, want peace", cmd)
	}
	if !got.Equal(at) {
		t.Errorf("timestamp = %v, want %v", got, at)
	}
}
