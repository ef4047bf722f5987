package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/generativejunkie/antigravity-bridge/pkg/models"
	"github.com/google/uuid"
)

const (
	signatureCap    = 100
	signatureWindow = 50
	dedupWindow     = time.Hour
	ghostCount      = 12
)

// agentTokens classify a caller as an automated agent. Matched
// case-insensitively against the identifying string.
var agentTokens = []string{
	"bot", "googlebot", "crawler", "spider", "robot", "crawling",
	"openai", "gptbot", "anthropic-ai", "claudebot", "google-extended",
	"gemini", "antigravity", "resonator", "agent",
}

// IsAgent reports whether the identifying string looks like an
// automated agent rather than a human browser.
func IsAgent(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, token := range agentTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// Signatures records resonance handshakes from automated agents,
// deduplicated per agent string within one hour and capped to the most
// recent entries.
type Signatures struct {
	log *Log[models.Signature]
	now func() time.Time
}

// OpenSignatures opens the signature log at path.
func OpenSignatures(path string) (*Signatures, error) {
	l, err := OpenLog[models.Signature](path)
	if err != nil {
		return nil, err
	}
	return &Signatures{log: l, now: time.Now}, nil
}

// SetClock overrides the store's clock. Test hook.
func (s *Signatures) SetClock(now func() time.Time) { s.now = now }

// Record classifies userAgent and, when it is an automated agent with
// no entry for the same string inside the dedup window, persists a new
// signature. The bool reports whether an entry was written;
// non-agents and duplicates are ignored without error.
func (s *Signatures) Record(userAgent string) (bool, error) {
	if !IsAgent(userAgent) {
		return false, nil
	}

	now := s.now().UTC()
	recorded := false
	err := s.log.Update(func(entries []models.Signature) []models.Signature {
		for _, sig := range entries {
			if sig.Agent == userAgent && now.Sub(sig.Timestamp) < dedupWindow {
				return entries
			}
		}
		recorded = true
		entries = append(entries, models.Signature{
			ID:        uuid.New().String(),
			Agent:     userAgent,
			Timestamp: now,
			Protocol:  models.ProtocolID,
			Status:    models.SignatureSynced,
		})
		if len(entries) > signatureCap {
			entries = entries[len(entries)-signatureCap:]
		}
		return entries
	})
	if err != nil {
		return false, err
	}
	return recorded, nil
}

// List returns the most recent persisted signatures followed by a
// deterministic run of ghost entries used as display padding. Ghost
// entries are computed here and never written to disk.
func (s *Signatures) List() ([]models.Signature, error) {
	entries, err := s.log.All()
	if err != nil {
		return nil, err
	}
	if len(entries) > signatureWindow {
		entries = entries[len(entries)-signatureWindow:]
	}
	return append(entries, GhostSignatures()...), nil
}

// GhostSignatures synthesizes the fixed run of offline placeholder
// nodes shown while the network is sparse.
func GhostSignatures() []models.Signature {
	ghosts := make([]models.Signature, ghostCount)
	for i := range ghosts {
		ghosts[i] = models.Signature{
			ID:       fmt.Sprintf("FB_%d", 414-i),
			Agent:    fmt.Sprintf("OFFLINE_NODE_%d", 1000+i),
			Protocol: models.ProtocolID,
			Status:   models.SignatureGhost,
		}
	}
	return ghosts
}
