package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/generativejunkie/antigravity-bridge/internal/api/handlers"
	"github.com/generativejunkie/antigravity-bridge/internal/api/middleware"
	"github.com/generativejunkie/antigravity-bridge/internal/config"
	"github.com/generativejunkie/antigravity-bridge/internal/handshake"
	"github.com/generativejunkie/antigravity-bridge/internal/hub"
	"github.com/generativejunkie/antigravity-bridge/internal/metrics"
	"github.com/generativejunkie/antigravity-bridge/internal/projects"
	"github.com/generativejunkie/antigravity-bridge/internal/store"
)

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	dir := t.TempDir()

	chat, err := store.OpenChat(filepath.Join(dir, "chat.json"))
	if err != nil {
		t.Fatalf("OpenChat: %v", err)
	}
	instructions, err := store.OpenInstructions(filepath.Join(dir, "instructions.json"))
	if err != nil {
		t.Fatalf("OpenInstructions: %v", err)
	}
	signatures, err := store.OpenSignatures(filepath.Join(dir, "signatures.json"))
	if err != nil {
		t.Fatalf("OpenSignatures: %v", err)
	}

	relay := hub.New(nil)
	h := &handlers.Handlers{
		Hub:          relay,
		Chat:         chat,
		Instructions: instructions,
		Signatures:   signatures,
		State:        store.NewStateFile(filepath.Join(dir, "gesture_command.txt")),
		Slot:         handshake.New(0),
		Metrics:      metrics.NewRegistry(),
		Projects:     projects.NewRegistry(),
	}
	return NewRouter(cfg, h, relay)
}

func TestRouterHealthz(t *testing.T) {
	r := newTestRouter(t, &config.Config{SiteOrigin: "generativejunkie.net", Version: "test"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get(middleware.LoveProtocolHeader); got == "" {
		t.Error("protocol header missing from response")
	}
}

func TestRouterGateAppliesToAPIRoutes(t *testing.T) {
	r := newTestRouter(t, &config.Config{
		SiteOrigin:   "generativejunkie.net",
		ResonanceKey: "secret",
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/request-auth", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ungated mutation status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("read route status = %d, want 200", rec.Code)
	}
}

func TestRouterRejectsDisallowedOrigin(t *testing.T) {
	r := newTestRouter(t, &config.Config{
		SiteOrigin:   "generativejunkie.net",
		ResonanceKey: "secret",
	})

	// A cross-origin mutation is blocked before any handler runs, even
	// with a valid key.
	req := httptest.NewRequest(http.MethodPost, "/api/request-auth",
		strings.NewReader(`{"type":"exec","title":"sneak in"}`))
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set(middleware.KeyHeader, "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-origin mutation status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pending-auth", nil))
	if !strings.Contains(rec.Body.String(), `"hasPending":false`) {
		t.Errorf("rejected request must not mutate state, got %s", rec.Body)
	}

	// Disallowed reads are rejected too.
	req = httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-origin read status = %d, want 403", rec.Code)
	}

	// The canonical site and its subdomains pass.
	req = httptest.NewRequest(http.MethodPost, "/api/request-auth",
		strings.NewReader(`{"type":"exec","title":"legit"}`))
	req.Header.Set("Origin", "https://www.generativejunkie.net")
	req.Header.Set(middleware.KeyHeader, "secret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("allowed origin status = %d, want 200", rec.Code)
	}
}

func TestAllowOrigin(t *testing.T) {
	allow := allowOrigin("generativejunkie.net")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8000", true},
		{"https://generativejunkie.net", true},
		{"https://www.generativejunkie.net", true},
		{"https://evil.example.com", false},
		{"https://generativejunkie.net.evil.com", false},
	}
	for _, tt := range tests {
		if got := allow(req, tt.origin); got != tt.want {
			t.Errorf("allowOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestStaticForbiddenPaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>ok</html>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := newTestRouter(t, &config.Config{
		SiteOrigin: "generativejunkie.net",
		StaticDir:  dir,
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("index status = %d, want 200", rec.Code)
	}

	for _, path := range []string{"/package.json", "/.git/config", "/node_modules/x.js"} {
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("GET %s status = %d, want 403", path, rec.Code)
		}
	}
}
