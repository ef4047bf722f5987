package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/generativejunkie/antigravity-bridge/internal/config"
	"github.com/generativejunkie/antigravity-bridge/pkg/models"
	"github.com/rs/zerolog/log"
)

// Collector periodically pulls Zenodo record stats and GitHub traffic
// counters into the registry. Failures are logged and the next tick
// tries again; the collector never takes the hub down.
type Collector struct {
	registry *Registry
	cfg      config.MetricsConfig
	client   *http.Client

	zenodoBase string
	githubBase string

	// OnUpdate, when set, receives each refreshed snapshot so the
	// server can fan it out to connected clients.
	OnUpdate func(models.MetricsSnapshot)
}

// NewCollector creates a collector feeding the given registry.
func NewCollector(registry *Registry, cfg config.MetricsConfig) *Collector {
	return &Collector{
		registry:   registry,
		cfg:        cfg,
		client:     &http.Client{Timeout: 15 * time.Second},
		zenodoBase: "https://zenodo.org",
		githubBase: "https://api.github.com",
	}
}

// Run syncs once immediately and then on every interval tick until the
// context is cancelled.
func (c *Collector) Run(ctx context.Context) {
	c.sync(ctx)
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sync(ctx)
		}
	}
}

func (c *Collector) sync(ctx context.Context) {
	var partial models.MetricsUpdate
	changed := false

	if views, downloads, err := c.fetchZenodo(ctx); err != nil {
		log.Warn().Err(err).Msg("Zenodo metrics sync failed")
	} else {
		partial.ZenodoViews = &views
		partial.ZenodoDownloads = &downloads
		changed = true
	}

	if c.cfg.GithubToken != "" {
		if clones, err := c.fetchGithubCount(ctx, "clones", "count"); err != nil {
			log.Warn().Err(err).Msg("GitHub clones sync failed")
		} else {
			partial.GithubClones = &clones
			changed = true
		}
		if visitors, err := c.fetchGithubCount(ctx, "views", "uniques"); err != nil {
			log.Warn().Err(err).Msg("GitHub visitors sync failed")
		} else {
			partial.GithubVisitors = &visitors
			changed = true
		}
	}

	if !changed {
		return
	}
	snap := c.registry.Update(partial)
	log.Info().
		Int64("zenodo_views", snap.ZenodoViews).
		Int64("zenodo_downloads", snap.ZenodoDownloads).
		Float64("gift_density", snap.GiftDensity).
		Msg("Resonance metrics synced")
	if c.OnUpdate != nil {
		c.OnUpdate(snap)
	}
}

func (c *Collector) fetchZenodo(ctx context.Context) (views, downloads int64, err error) {
	url := c.zenodoBase + "/api/records/" + c.cfg.ZenodoRecord
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("zenodo HTTP %d", resp.StatusCode)
	}

	var record struct {
		Stats struct {
			Views     int64 `json:"views"`
			Downloads int64 `json:"downloads"`
		} `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return 0, 0, fmt.Errorf("decode zenodo record: %w", err)
	}
	return record.Stats.Views, record.Stats.Downloads, nil
}

func (c *Collector) fetchGithubCount(ctx context.Context, metric, field string) (int64, error) {
	url := fmt.Sprintf("%s/repos/%s/traffic/%s", c.githubBase, c.cfg.GithubRepo, metric)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "token "+c.cfg.GithubToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "Antigravity-Resonator")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("github %s HTTP %d", metric, resp.StatusCode)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode github %s: %w", metric, err)
	}
	var count int64
	if raw, ok := payload[field]; ok {
		if err := json.Unmarshal(raw, &count); err != nil {
			return 0, fmt.Errorf("decode github %s.%s: %w", metric, field, err)
		}
	}
	return count, nil
}
