// Package models defines the wire and domain types shared across the
// Antigravity Bridge: relay envelopes, the authorization handshake,
// persisted log entries, the resonance metrics snapshot, and the
// project dashboard records.
package models

import (
	"encoding/json"
	"time"
)

// ── Command Relay ────────────────────────────────────────────

// CommandMessage is a transient typed event relayed between clients.
// Detail is kept raw so arbitrary client payloads survive the round
// trip untouched.
type CommandMessage struct {
	Type   string          `json:"type"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

// InstructionDetail is the shape of CommandMessage.Detail when
// Type == "instruction".
type InstructionDetail struct {
	Text string `json:"text"`
}

// AgentStatus is a best-effort status report from the autonomous agent,
// relayed to dashboards and never persisted.
type AgentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// ── Authorization Handshake ──────────────────────────────────

// AuthRequest is the single outstanding authorization request.
// Timestamp is Unix milliseconds at creation.
type AuthRequest struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
}

// AuthDecision is broadcast exactly once when the pending request is
// approved or denied, after which the slot is cleared.
type AuthDecision struct {
	Approved        bool         `json:"approved"`
	RequestID       string       `json:"requestId"`
	OriginalRequest *AuthRequest `json:"originalRequest"`
}

// ── Log Entries ──────────────────────────────────────────────

// Chat message senders.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// ChatMessage is one immutable entry in the chat log.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Instruction is one persisted instruction for autonomous mode.
type Instruction struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Signature statuses. Real entries are SYNCHRONIZED; ghost entries are
// synthesized at read time for display padding and never persisted.
const (
	SignatureSynced = "SYNCHRONIZED"
	SignatureGhost  = "GHOST_SYNCED"
)

// ProtocolID identifies the resonance protocol version stamped on
// signatures and response headers.
const ProtocolID = "GJ-X-010"

// Signature records a handshake from a caller classified as an
// automated agent.
type Signature struct {
	ID        string    `json:"id"`
	Agent     string    `json:"agent"`
	Timestamp time.Time `json:"timestamp"`
	Protocol  string    `json:"protocol"`
	Status    string    `json:"status"`
}

// ── Metrics ──────────────────────────────────────────────────

// MetricsSnapshot is the single mutable resonance metrics record.
// GiftDensity is derived from downloads/views and never set directly.
type MetricsSnapshot struct {
	ZenodoViews     int64     `json:"zenodo_views"`
	ZenodoDownloads int64     `json:"zenodo_downloads"`
	GithubClones    int64     `json:"github_clones"`
	GithubVisitors  int64     `json:"github_visitors"`
	GiftDensity     float64   `json:"gift_density"`
	ResonanceScore  float64   `json:"resonance_score"`
	Timestamp       time.Time `json:"timestamp"`
}

// MetricsUpdate is a partial snapshot update; nil fields are left
// untouched by the merge.
type MetricsUpdate struct {
	ZenodoViews     *int64   `json:"zenodo_views,omitempty"`
	ZenodoDownloads *int64   `json:"zenodo_downloads,omitempty"`
	GithubClones    *int64   `json:"github_clones,omitempty"`
	GithubVisitors  *int64   `json:"github_visitors,omitempty"`
	ResonanceScore  *float64 `json:"resonance_score,omitempty"`
}

// ── Projects ─────────────────────────────────────────────────

// ProjectStatus is the dashboard status of a named workload.
type ProjectStatus string

const (
	ProjectActive  ProjectStatus = "ACTIVE"
	ProjectStandby ProjectStatus = "STANDBY"
	ProjectPending ProjectStatus = "PENDING"
)

// Project is one named workload on the dashboard. Resonance is always
// clamped to [0,100].
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      ProjectStatus `json:"status"`
	Description string        `json:"description"`
	Resonance   int           `json:"resonance"`
}
