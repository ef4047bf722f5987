package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLogAppendAndAll(t *testing.T) {
	l, err := OpenLog[string](filepath.Join(t.TempDir(), "log.json"))
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}

	for _, v := range []string{"a", "b", "c"} {
		if err := l.Append(v); err != nil {
			t.Fatalf("Append(%q): %v", v, err)
		}
	}

	got, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("All = %v, want [a b c]", got)
	}
}

func TestLogCreatesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.json")
	l, err := OpenLog[int](path)
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("initial file = %q, want []", raw)
	}

	got, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("All on empty log = %v, want empty", got)
	}
}

func TestLogAppendTrim(t *testing.T) {
	l, err := OpenLog[int](filepath.Join(t.TempDir(), "log.json"))
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := l.AppendTrim(i, 5); err != nil {
			t.Fatalf("AppendTrim(%d): %v", i, err)
		}
	}

	got, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	if got[0] != 5 || got[4] != 9 {
		t.Errorf("trimmed entries = %v, want [5..9]", got)
	}
}

func TestLogReplaceNilResets(t *testing.T) {
	l, err := OpenLog[string](filepath.Join(t.TempDir(), "log.json"))
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	if err := l.Append("x"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Replace(nil); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("after Replace(nil) len = %d, want 0", len(got))
	}
}

// Concurrent appends must serialize: every entry survives, none are
// lost to overlapping read-modify-write cycles.
func TestLogConcurrentAppends(t *testing.T) {
	l, err := OpenLog[int](filepath.Join(t.TempDir(), "log.json"))
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if err := l.Append(v); err != nil {
				t.Errorf("Append(%d): %v", v, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != n {
		t.Errorf("len = %d, want %d (lost appends)", len(got), n)
	}
}

func TestLogUpdateAtomic(t *testing.T) {
	l, err := OpenLog[int](filepath.Join(t.TempDir(), "log.json"))
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	if err := l.Replace([]int{1, 2, 3}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	err = l.Update(func(entries []int) []int {
		return append(entries, len(entries))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := l.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 4 || got[3] != 3 {
		t.Errorf("entries = %v, want [1 2 3 3]", got)
	}
}
