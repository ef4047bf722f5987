package store

import (
	"strings"
	"time"

	"github.com/generativejunkie/antigravity-bridge/pkg/models"
)

const (
	maxInstructionLen = 500
	recentWindow      = 20
)

// Instructions is the persisted instruction log for autonomous mode.
// Storage is uncapped; reads return only the most recent entries.
type Instructions struct {
	log *Log[models.Instruction]
}

// OpenInstructions opens the instruction log at path.
func OpenInstructions(path string) (*Instructions, error) {
	l, err := OpenLog[models.Instruction](path)
	if err != nil {
		return nil, err
	}
	return &Instructions{log: l}, nil
}

// Sanitize strips markup-significant characters, trims whitespace, and
// caps the text length. Returns "" when nothing survives.
func Sanitize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, text)
	cleaned = strings.TrimSpace(cleaned)
	if runes := []rune(cleaned); len(runes) > maxInstructionLen {
		cleaned = string(runes[:maxInstructionLen])
	}
	return cleaned
}

// Append sanitizes and persists an instruction, returning the stored
// entry. Input that is empty after sanitization is rejected with
// ErrInvalid and nothing is written.
func (s *Instructions) Append(text string) (models.Instruction, error) {
	cleaned := Sanitize(text)
	if cleaned == "" {
		return models.Instruction{}, &ErrInvalid{Reason: "instruction text is empty"}
	}
	entry := models.Instruction{
		Timestamp: time.Now().UTC(),
		Text:      cleaned,
	}
	if err := s.log.Append(entry); err != nil {
		return models.Instruction{}, err
	}
	return entry, nil
}

// Recent returns the most recent instructions, oldest first, capped at
// the read window.
func (s *Instructions) Recent() ([]models.Instruction, error) {
	entries, err := s.log.All()
	if err != nil {
		return nil, err
	}
	if len(entries) > recentWindow {
		entries = entries[len(entries)-recentWindow:]
	}
	return entries, nil
}
