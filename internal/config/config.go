package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the bridge server.
type Config struct {
	Port    int
	Version string

	// ResonanceKey is the shared secret required on mutating requests.
	// An empty key means the gate can never be satisfied (fail closed).
	ResonanceKey string

	// SiteOrigin is the canonical site; the origin policy accepts it,
	// its subdomains, and loopback addresses.
	SiteOrigin string

	// DataDir holds the persisted JSON log files.
	DataDir string

	// StateFile is the single-line command|unixtime file shared with
	// the local AI session.
	StateFile string

	// StaticDir serves the web client when non-empty.
	StaticDir string

	// IgnitionCommand, when non-empty, is executed by POST /api/ignition.
	IgnitionCommand string

	Telemetry TelemetryConfig
	Metrics   MetricsConfig
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// MetricsConfig drives the optional background sync of Zenodo and
// GitHub traffic counters into the metrics registry.
type MetricsConfig struct {
	SyncEnabled  bool
	ZenodoRecord string
	GithubRepo   string
	GithubToken  string
	Interval     time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:            envInt("BRIDGE_PORT", 8000),
		Version:         envStr("BRIDGE_VERSION", "0.4.0"),
		ResonanceKey:    envStr("BRIDGE_RESONANCE_KEY", ""),
		SiteOrigin:      envStr("BRIDGE_SITE_ORIGIN", "generativejunkie.net"),
		DataDir:         envStr("BRIDGE_DATA_DIR", "data"),
		StateFile:       envStr("BRIDGE_STATE_FILE", "gesture_command.txt"),
		StaticDir:       envStr("BRIDGE_STATIC_DIR", ""),
		IgnitionCommand: envStr("BRIDGE_IGNITION_COMMAND", ""),
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "antigravity-bridge"),
		},
		Metrics: MetricsConfig{
			SyncEnabled:  envBool("BRIDGE_METRICS_SYNC", false),
			ZenodoRecord: envStr("BRIDGE_ZENODO_RECORD", "18277860"),
			GithubRepo:   envStr("BRIDGE_GITHUB_REPO", "generativejunkie/GENERATIVE-MACHINE"),
			GithubToken:  envStr("GH_TOKEN", ""),
			Interval:     envDuration("BRIDGE_METRICS_INTERVAL", 10*time.Minute),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
