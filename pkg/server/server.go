// Package server provides the public entry point for initializing the
// antigravity bridge.
//
// It lives in pkg/ (not internal/) so that deployment wrappers can
// compose the bridge with their own middleware:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8000", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/generativejunkie/antigravity-bridge/internal/api"
	"github.com/generativejunkie/antigravity-bridge/internal/api/handlers"
	"github.com/generativejunkie/antigravity-bridge/internal/config"
	"github.com/generativejunkie/antigravity-bridge/internal/handshake"
	"github.com/generativejunkie/antigravity-bridge/internal/hub"
	"github.com/generativejunkie/antigravity-bridge/internal/metrics"
	"github.com/generativejunkie/antigravity-bridge/internal/projects"
	"github.com/generativejunkie/antigravity-bridge/internal/store"
	"github.com/generativejunkie/antigravity-bridge/internal/telemetry"
	"github.com/generativejunkie/antigravity-bridge/pkg/models"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized bridge.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware,
	// including the WebSocket relay endpoint.
	Handler http.Handler

	// Hub is the WebSocket relay. Exposed so wrappers can broadcast
	// their own events.
	Hub *hub.Hub

	// Config is the loaded server configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush
	// telemetry and stop background sync.
	ShutdownFunc func(context.Context) error
}

// New initializes all bridge components from the environment and
// returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the bridge with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	chat, err := store.OpenChat(filepath.Join(cfg.DataDir, "chat_history.json"))
	if err != nil {
		return nil, fmt.Errorf("open chat store: %w", err)
	}
	instructions, err := store.OpenInstructions(filepath.Join(cfg.DataDir, "agent_instructions.json"))
	if err != nil {
		return nil, fmt.Errorf("open instruction store: %w", err)
	}
	signatures, err := store.OpenSignatures(filepath.Join(cfg.DataDir, "resonance_log.json"))
	if err != nil {
		return nil, fmt.Errorf("open signature store: %w", err)
	}
	log.Info().Str("dir", cfg.DataDir).Msg("✅ Log stores opened")

	relay := hub.New(originPatterns(cfg.SiteOrigin))
	slot := handshake.New(handshake.DefaultTTL)
	metricsReg := metrics.NewRegistry()
	projectReg := projects.NewRegistry()

	h := &handlers.Handlers{
		Hub:             relay,
		Chat:            chat,
		Instructions:    instructions,
		Signatures:      signatures,
		State:           store.NewStateFile(cfg.StateFile),
		Slot:            slot,
		Metrics:         metricsReg,
		Projects:        projectReg,
		IgnitionCommand: cfg.IgnitionCommand,
	}
	router := api.NewRouter(cfg, h, relay)

	syncCtx, stopSync := context.WithCancel(context.Background())
	if cfg.Metrics.SyncEnabled {
		collector := metrics.NewCollector(metricsReg, cfg.Metrics)
		collector.OnUpdate = func(snap models.MetricsSnapshot) {
			relay.Broadcast(hub.EventMetricsUpdate, snap)
		}
		go collector.Run(syncCtx)
		log.Info().
			Dur("interval", cfg.Metrics.Interval).
			Msg("✅ Metrics sync started")
	}

	shutdown := func(ctx context.Context) error {
		stopSync()
		return shutdownTelemetry(ctx)
	}

	return &Server{
		Handler:      router,
		Hub:          relay,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// originPatterns builds the hub's accepted WebSocket origins from the
// canonical site: the site, its subdomains, and loopback on any port.
func originPatterns(site string) []string {
	return []string{
		"localhost:*", "localhost",
		"127.0.0.1:*", "127.0.0.1",
		site, "*." + site,
	}
}
