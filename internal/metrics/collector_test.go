package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/generativejunkie/antigravity-bridge/internal/config"
	"github.com/generativejunkie/antigravity-bridge/pkg/models"
)

func TestCollectorSync(t *testing.T) {
	zenodo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/records/18277860" {
			t.Errorf("zenodo path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"stats":{"views":156,"downloads":163}}`)
	}))
	defer zenodo.Close()

	github := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token gh-token" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/repos/generativejunkie/GENERATIVE-MACHINE/traffic/clones":
			fmt.Fprint(w, `{"count":42,"uniques":7}`)
		case "/repos/generativejunkie/GENERATIVE-MACHINE/traffic/views":
			fmt.Fprint(w, `{"count":300,"uniques":31}`)
		default:
			t.Errorf("unexpected github path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer github.Close()

	registry := NewRegistry()
	c := NewCollector(registry, config.MetricsConfig{
		ZenodoRecord: "18277860",
		GithubRepo:   "generativejunkie/GENERATIVE-MACHINE",
		GithubToken:  "gh-token",
	})
	c.zenodoBase = zenodo.URL
	c.githubBase = github.URL

	var published *models.MetricsSnapshot
	c.OnUpdate = func(snap models.MetricsSnapshot) { published = &snap }

	c.sync(context.Background())

	snap := registry.Get()
	if snap.ZenodoViews != 156 || snap.ZenodoDownloads != 163 {
		t.Errorf("zenodo = %d/%d, want 156/163", snap.ZenodoViews, snap.ZenodoDownloads)
	}
	if snap.GithubClones != 42 {
		t.Errorf("clones = %d, want count field 42", snap.GithubClones)
	}
	if snap.GithubVisitors != 31 {
		t.Errorf("visitors = %d, want uniques field 31", snap.GithubVisitors)
	}
	if snap.GiftDensity != 104.49 {
		t.Errorf("gift density = %v, want 104.49", snap.GiftDensity)
	}
	if published == nil || published.ZenodoViews != 156 {
		t.Error("OnUpdate should receive the refreshed snapshot")
	}
}

func TestCollectorPartialFailure(t *testing.T) {
	zenodo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer zenodo.Close()

	github := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":5,"uniques":3}`)
	}))
	defer github.Close()

	registry := NewRegistry()
	c := NewCollector(registry, config.MetricsConfig{
		ZenodoRecord: "18277860",
		GithubRepo:   "generativejunkie/GENERATIVE-MACHINE",
		GithubToken:  "gh-token",
	})
	c.zenodoBase = zenodo.URL
	c.githubBase = github.URL

	c.sync(context.Background())

	snap := registry.Get()
	if snap.GithubClones != 5 {
		t.Errorf("clones = %d, want 5 despite zenodo failure", snap.GithubClones)
	}
	if snap.ZenodoViews != 0 {
		t.Errorf("views = %d, want untouched 0", snap.ZenodoViews)
	}
}

func TestCollectorSkipsGithubWithoutToken(t *testing.T) {
	called := false
	github := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer github.Close()

	zenodo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"stats":{"views":1,"downloads":1}}`)
	}))
	defer zenodo.Close()

	registry := NewRegistry()
	c := NewCollector(registry, config.MetricsConfig{ZenodoRecord: "1"})
	c.zenodoBase = zenodo.URL
	c.githubBase = github.URL

	c.sync(context.Background())

	if called {
		t.Error("github must not be queried without a token")
	}
}
