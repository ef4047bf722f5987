// Package api assembles the HTTP surface of the bridge: middleware
// chain, origin policy, the shared-secret gate, and all routes.
package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/generativejunkie/antigravity-bridge/internal/api/handlers"
	"github.com/generativejunkie/antigravity-bridge/internal/api/middleware"
	"github.com/generativejunkie/antigravity-bridge/internal/config"
	"github.com/generativejunkie/antigravity-bridge/internal/hub"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// forbiddenPaths are never served from the static site directory.
var forbiddenPaths = []string{
	".git", ".agent", "node_modules", ".gitignore", "package.json", "package-lock.json",
}

// NewRouter creates the HTTP router with all bridge routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers, ws *hub.Hub) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(middleware.ProtocolHeaders)
	allow := allowOrigin(cfg.SiteOrigin)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allow,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.KeyHeader},
		ExposedHeaders:   []string{middleware.LoveSeedHeader, middleware.LoveProtocolHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(originGuard(allow))

	gate := middleware.NewResonanceGate(cfg.ResonanceKey)
	r.Use(gate.Middleware)

	// Health & info
	r.Get("/healthz", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// WebSocket hub
	r.Get("/ws", ws.ServeHTTP)

	// Vision watcher
	r.Post("/gesture", h.Gesture)

	r.Route("/api", func(r chi.Router) {
		r.Post("/command", h.Command)
		r.Post("/ai-command", h.AICommand)
		r.Post("/ignition", h.Ignition)
		r.Post("/agent/status", h.AgentStatusUpdate)

		// Authorization handshake
		r.Post("/request-auth", h.RequestAuth)
		r.Get("/pending-auth", h.PendingAuth)
		r.Post("/respond-auth", h.RespondAuth)

		// Chat
		r.Route("/chat", func(r chi.Router) {
			r.Get("/messages", h.ChatMessages)
			r.Post("/send", h.ChatSend)
			r.Post("/ai-respond", h.ChatAIRespond)
			r.Delete("/clear", h.ChatClear)
		})

		// Resonance signatures
		r.Get("/resonance-handshake", h.ResonanceHandshake)
		r.Get("/signatures", h.SignatureList)

		// Projects
		r.Get("/projects", h.ProjectList)
		r.Post("/projects/action", h.ProjectAction)

		// Instructions & metrics
		r.Get("/instructions", h.InstructionList)
		r.Get("/metrics", h.MetricsGet)
		r.Post("/metrics/update", h.MetricsUpdate)
	})

	if cfg.StaticDir != "" {
		r.NotFound(staticHandler(cfg.StaticDir))
	}

	return r
}

// allowOrigin accepts loopback origins and the canonical site plus its
// subdomains; everything else is blocked before any handler runs.
func allowOrigin(site string) func(r *http.Request, origin string) bool {
	return func(r *http.Request, origin string) bool {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" || host == "::1" {
			return true
		}
		return host == site || strings.HasSuffix(host, "."+site)
	}
}

// originGuard rejects any request whose Origin fails the policy.
// cors.Handler alone only negotiates headers: it terminates preflights
// but passes actual cross-origin requests through to the handlers.
func originGuard(allow func(r *http.Request, origin string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && !allow(r, origin) {
				http.Error(w, "Forbidden: Origin not allowed.", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// staticHandler serves the web client, refusing paths that touch
// system files.
func staticHandler(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		for _, p := range forbiddenPaths {
			if strings.Contains(r.URL.Path, p) {
				http.Error(w, "Forbidden: Access to system files is restricted.", http.StatusForbidden)
				return
			}
		}
		fileServer.ServeHTTP(w, r)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "antigravity-bridge",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "antigravity-bridge",
		})
	}
}
