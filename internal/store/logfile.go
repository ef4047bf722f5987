// Package store provides the append-only persisted log stores backing
// the bridge: chat messages, instructions, agent signatures, and the
// single-line gesture state file.
//
// Each log is one on-disk JSON array. Every operation rewrites the
// whole file, so all operations on a store are serialized by a
// per-store mutex; concurrent appends can never overwrite each other's
// file state.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Log is a file-backed, append-only JSON array of T.
type Log[T any] struct {
	mu   sync.Mutex
	path string
}

// OpenLog opens (creating if needed) the JSON array file at path.
func OpenLog[T any](path string) (*Log[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("init log file %s: %w", path, err)
		}
	}
	return &Log[T]{path: path}, nil
}

// All returns every entry in insertion order.
func (l *Log[T]) All() ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Append adds one entry to the end of the log.
func (l *Log[T]) Append(entry T) error {
	return l.AppendTrim(entry, 0)
}

// AppendTrim adds one entry and, when max > 0, drops the oldest
// entries so at most max remain.
func (l *Log[T]) AppendTrim(entry T, max int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if max > 0 && len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	return l.write(entries)
}

// Replace overwrites the log with the given entries. A nil slice
// resets the log to empty.
func (l *Log[T]) Replace(entries []T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write(entries)
}

// Update applies fn to the current entries and persists the result.
// fn runs under the store lock, so read-modify-write cycles are atomic.
func (l *Log[T]) Update(fn func(entries []T) []T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return err
	}
	return l.write(fn(entries))
}

func (l *Log[T]) read() ([]T, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	if len(raw) == 0 {
		return []T{}, nil
	}
	var entries []T
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.path, err)
	}
	return entries, nil
}

func (l *Log[T]) write(entries []T) error {
	if entries == nil {
		entries = []T{}
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", l.path, err)
	}
	if err := os.WriteFile(l.path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	return nil
}
