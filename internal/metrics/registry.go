// Package metrics holds the shared resonance metrics snapshot and the
// optional background collector that syncs it from Zenodo and GitHub.
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/generativejunkie/antigravity-bridge/pkg/models"
)

// Registry owns the single mutable metrics snapshot.
type Registry struct {
	mu   sync.Mutex
	snap models.MetricsSnapshot
	now  func() time.Time
}

// NewRegistry creates a zeroed registry.
func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// SetClock overrides the registry's clock. Test hook.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Get returns the current snapshot.
func (r *Registry) Get() models.MetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Update merges the non-nil fields of the partial update, recomputes
// gift density when views are known, refreshes the timestamp, and
// returns the full resulting snapshot.
func (r *Registry) Update(partial models.MetricsUpdate) models.MetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if partial.ZenodoViews != nil {
		r.snap.ZenodoViews = *partial.ZenodoViews
	}
	if partial.ZenodoDownloads != nil {
		r.snap.ZenodoDownloads = *partial.ZenodoDownloads
	}
	if partial.GithubClones != nil {
		r.snap.GithubClones = *partial.GithubClones
	}
	if partial.GithubVisitors != nil {
		r.snap.GithubVisitors = *partial.GithubVisitors
	}
	if partial.ResonanceScore != nil {
		r.snap.ResonanceScore = *partial.ResonanceScore
	}

	// gift_density is derived, never set directly.
	if r.snap.ZenodoViews > 0 {
		ratio := float64(r.snap.ZenodoDownloads) / float64(r.snap.ZenodoViews) * 100
		r.snap.GiftDensity = math.Round(ratio*100) / 100
	}
	r.snap.Timestamp = r.now().UTC()
	return r.snap
}
