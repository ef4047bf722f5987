// Package handshake implements the single-slot authorization state
// machine: at most one request is outstanding system-wide, it expires
// lazily after a fixed TTL, and exactly one decision consumes it.
package handshake

import (
	"errors"
	"sync"
	"time"

	"github.com/generativejunkie/antigravity-bridge/pkg/models"
	"github.com/google/uuid"
)

// DefaultTTL is how long a pending request stays decidable.
const DefaultTTL = 30 * time.Second

// ErrNoPending is returned by Decide when no live request matches the
// given id: the slot is empty, expired, or holds a different request.
var ErrNoPending = errors.New("authorization request not found or expired")

// Slot holds the single outstanding authorization request.
type Slot struct {
	mu      sync.Mutex
	pending *models.AuthRequest
	ttl     time.Duration
	now     func() time.Time
}

// New creates an empty slot with the given TTL; ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration) *Slot {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Slot{ttl: ttl, now: time.Now}
}

// SetClock overrides the slot's clock. Test hook.
func (s *Slot) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Create stores req as the pending request, unconditionally replacing
// any previous one. A missing id is generated server-side. The
// superseded requester is not notified; deciding with its id will
// return ErrNoPending.
func (s *Slot) Create(req models.AuthRequest) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Timestamp = s.now().UnixMilli()
	s.pending = &req
	return req.ID
}

// Pending returns the current request, applying lazy expiry first.
// A nil result means the slot is empty.
func (s *Slot) Pending() *models.AuthRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()
	if s.pending == nil {
		return nil
	}
	cp := *s.pending
	return &cp
}

// Decide consumes the pending request. It fails with ErrNoPending when
// the slot is empty, expired, or the id does not match. The decision
// succeeds for both approve and deny; the outcome travels in the
// returned payload, and the slot is cleared either way.
func (s *Slot) Decide(requestID string, approved bool) (models.AuthDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()
	if s.pending == nil || s.pending.ID != requestID {
		return models.AuthDecision{}, ErrNoPending
	}

	original := *s.pending
	s.pending = nil
	return models.AuthDecision{
		Approved:        approved,
		RequestID:       requestID,
		OriginalRequest: &original,
	}, nil
}

func (s *Slot) expireLocked() {
	if s.pending == nil {
		return
	}
	created := time.UnixMilli(s.pending.Timestamp)
	if s.now().Sub(created) > s.ttl {
		s.pending = nil
	}
}
