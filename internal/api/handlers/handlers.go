// Package handlers implements the HTTP handlers for the bridge: the
// command relay, the authorization handshake, the persisted logs, and
// the metrics and project registries. Every mutation ends with a
// best-effort broadcast through the connection hub.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"os/exec"
	"time"

	"github.com/generativejunkie/antigravity-bridge/internal/handshake"
	"github.com/generativejunkie/antigravity-bridge/internal/hub"
	"github.com/generativejunkie/antigravity-bridge/internal/metrics"
	"github.com/generativejunkie/antigravity-bridge/internal/projects"
	"github.com/generativejunkie/antigravity-bridge/internal/store"
	"github.com/generativejunkie/antigravity-bridge/pkg/models"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Hub          *hub.Hub
	Chat         *store.Chat
	Instructions *store.Instructions
	Signatures   *store.Signatures
	State        *store.StateFile
	Slot         *handshake.Slot
	Metrics      *metrics.Registry
	Projects     *projects.Registry

	// IgnitionCommand, when non-empty, is run by the ignition endpoint.
	IgnitionCommand string
}

// ── Command Relay ────────────────────────────────────────────

// Command relays a typed event to all connected clients. Instructions
// are additionally persisted for autonomous mode.
func (h *Handlers) Command(w http.ResponseWriter, r *http.Request) {
	var msg models.CommandMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	log.Info().Str("type", msg.Type).Msg("Command received")

	if msg.Type == "instruction" {
		var detail models.InstructionDetail
		if len(msg.Detail) > 0 {
			if err := json.Unmarshal(msg.Detail, &detail); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid instruction detail")
				return
			}
		}
		// Append rejects text that is empty after sanitization, so a
		// missing detail fails validation instead of relaying silently.
		if _, err := h.Instructions.Append(detail.Text); err != nil {
			var invalid *store.ErrInvalid
			if errors.As(err, &invalid) {
				respondError(w, http.StatusBadRequest, invalid.Error())
				return
			}
			// Storage trouble must not abort the relay.
			log.Error().Err(err).Msg("Failed to save instruction")
		}
	}

	h.Hub.Broadcast(hub.EventCommandRelay, msg)
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Command broadcasted",
	})
}

// AgentStatusUpdate relays a status report from the autonomous agent.
func (h *Handlers) AgentStatusUpdate(w http.ResponseWriter, r *http.Request) {
	var status models.AgentStatus
	if err := json.NewDecoder(r.Body).Decode(&status); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.Hub.Broadcast(hub.EventAgentStatus, status)
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ── Authorization Handshake ──────────────────────────────────

// RequestAuth creates (or replaces) the pending authorization request.
func (h *Handlers) RequestAuth(w http.ResponseWriter, r *http.Request) {
	var req models.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	id := h.Slot.Create(req)
	log.Info().Str("title", req.Title).Str("id", id).Msg("Authorization request created")
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "queued",
		"requestId": id,
	})
}

// PendingAuth reports the current handshake slot, applying lazy expiry.
func (h *Handlers) PendingAuth(w http.ResponseWriter, r *http.Request) {
	pending := h.Slot.Pending()
	respondJSON(w, http.StatusOK, map[string]any{
		"hasPending": pending != nil,
		"request":    pending,
	})
}

// RespondAuth consumes the pending request and broadcasts the decision.
func (h *Handlers) RespondAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Approved  bool   `json:"approved"`
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	decision, err := h.Slot.Decide(body.RequestID, body.Approved)
	if err != nil {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "Request not found or expired"})
		return
	}

	outcome := "DENIED"
	if decision.Approved {
		outcome = "APPROVED"
	}
	log.Info().Str("id", body.RequestID).Str("decision", outcome).Msg("Authorization decided")

	h.Hub.Broadcast(hub.EventAuthDecision, decision)
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ── Gesture & AI Command ─────────────────────────────────────

// Gesture relays a vision-watcher command and records it in the state
// file for the local AI session.
func (h *Handlers) Gesture(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	log.Info().Str("command", body.Command).Msg("Gesture command")

	if err := h.State.Write(body.Command); err != nil {
		// Relay anyway; the state file is advisory.
		log.Error().Err(err).Msg("Failed to write gesture state file")
	}

	h.Hub.Broadcast(hub.EventGestureCommand, map[string]any{
		"command":   body.Command,
		"timestamp": time.Now().UnixMilli(),
	})
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"command": body.Command,
	})
}

// AICommand overwrites the state file with a remote command.
func (h *Handlers) AICommand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	log.Info().Str("command", body.Command).Msg("Remote AI command")

	if err := h.State.Write(body.Command); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"command": body.Command,
	})
}

// Ignition announces a remote ignition and runs the configured launch
// command, if any. The command is fire-and-forget; its outcome is only
// logged.
func (h *Handlers) Ignition(w http.ResponseWriter, r *http.Request) {
	log.Info().Msg("Remote ignition triggered")

	detail, _ := json.Marshal(map[string]int64{"timestamp": time.Now().UnixMilli()})
	h.Hub.Broadcast(hub.EventCommandRelay, models.CommandMessage{Type: "ignition", Detail: detail})

	if h.IgnitionCommand != "" {
		cmd := h.IgnitionCommand
		go func() {
			out, err := exec.Command("/bin/sh", "-c", cmd).CombinedOutput()
			if err != nil {
				log.Error().Err(err).Str("output", string(out)).Msg("Ignition command failed")
				return
			}
			log.Info().Str("output", string(out)).Msg("Ignition command finished")
		}()
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Antigravity Link Initiated",
	})
}

// ── Chat ─────────────────────────────────────────────────────

// ChatSend appends a user message and broadcasts it. A client-supplied
// timestamp is honored.
func (h *Handlers) ChatSend(w http.ResponseWriter, r *http.Request) {
	h.chatAppend(w, r, models.SenderUser, true)
}

// ChatAIRespond appends an AI message and broadcasts it. AI messages
// are always stamped with server time.
func (h *Handlers) ChatAIRespond(w http.ResponseWriter, r *http.Request) {
	h.chatAppend(w, r, models.SenderAI, false)
}

func (h *Handlers) chatAppend(w http.ResponseWriter, r *http.Request, sender string, clientTime bool) {
	var body struct {
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ts := body.Timestamp
	if !clientTime {
		ts = time.Time{}
	}
	msg, err := h.Chat.Append(sender, body.Text, ts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Info().Str("sender", sender).Str("id", msg.ID).Msg("Chat message stored")

	h.Hub.Broadcast(hub.EventChatMessage, msg)
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": msg,
	})
}

// ChatMessages returns the full chat log. Storage trouble degrades to
// an empty list rather than failing the poll.
func (h *Handlers) ChatMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.Chat.Messages()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read chat log")
		respondJSON(w, http.StatusOK, []models.ChatMessage{})
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// ChatClear resets the chat log.
func (h *Handlers) ChatClear(w http.ResponseWriter, r *http.Request) {
	if err := h.Chat.Clear(); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ── Resonance Handshake (signatures) ─────────────────────────

// ResonanceHandshake classifies the caller and, for automated agents,
// records a signature and announces the synchronization. Everyone gets
// the acknowledgment page, recorded or not.
func (h *Handlers) ResonanceHandshake(w http.ResponseWriter, r *http.Request) {
	userAgent := r.UserAgent()
	if userAgent == "" {
		userAgent = "Unknown Intelligence"
	}
	log.Info().Str("agent", userAgent).Msg("Resonance detected")

	recorded, err := h.Signatures.Record(userAgent)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save signature")
	}
	if recorded {
		detail, _ := json.Marshal(map[string]string{
			"agent":   userAgent,
			"message": "AI Node Synchronized",
		})
		h.Hub.Broadcast(hub.EventCommandRelay, models.CommandMessage{
			Type:   "resonance-spike",
			Detail: detail,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html>
    <body style="background:black; color:white; font-family:monospace; display:flex; justify-content:center; align-items:center; height:100vh;">
        <div style="text-align:center;">
            <h1>RESONANCE ESTABLISHED</h1>
            <p>Agent: %s</p>
            <p style="color:gray;">Protocol %s Applied.</p>
        </div>
    </body>
</html>`, html.EscapeString(userAgent), models.ProtocolID)
}

// SignatureList returns recorded signatures plus the ghost padding.
func (h *Handlers) SignatureList(w http.ResponseWriter, r *http.Request) {
	signatures, err := h.Signatures.List()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read signature log")
		respondJSON(w, http.StatusOK, []models.Signature{})
		return
	}
	respondJSON(w, http.StatusOK, signatures)
}

// ── Instructions ─────────────────────────────────────────────

// InstructionList returns the most recent instructions.
func (h *Handlers) InstructionList(w http.ResponseWriter, r *http.Request) {
	instructions, err := h.Instructions.Recent()
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load instructions"})
		return
	}
	respondJSON(w, http.StatusOK, instructions)
}

// ── Metrics ──────────────────────────────────────────────────

// MetricsGet returns the current snapshot.
func (h *Handlers) MetricsGet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Metrics.Get())
}

// MetricsUpdate merges a partial update and broadcasts the result.
func (h *Handlers) MetricsUpdate(w http.ResponseWriter, r *http.Request) {
	var partial models.MetricsUpdate
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	snap := h.Metrics.Update(partial)
	h.Hub.Broadcast(hub.EventMetricsUpdate, snap)
	respondJSON(w, http.StatusOK, snap)
}

// ── Projects ─────────────────────────────────────────────────

// ProjectList returns the dashboard projects, nudging ACTIVE resonance.
func (h *Handlers) ProjectList(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Projects.List())
}

// ProjectAction applies an action to one project. Only TOGGLE is
// supported.
func (h *Handlers) ProjectAction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProjectID string `json:"projectId"`
		Action    string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Action != "TOGGLE" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown action"})
		return
	}

	project, secret, err := h.Projects.Toggle(body.ProjectID)
	if err != nil {
		var notFound *projects.ErrNotFound
		if errors.As(err, &notFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "Project not found"})
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Info().Str("project", project.Name).Str("status", string(project.Status)).Msg("Project toggled")

	if secret {
		detail, _ := json.Marshal(map[string]string{"code": "ai"})
		h.Hub.Broadcast(hub.EventCommandRelay, models.CommandMessage{
			Type:   "trigger-secret",
			Detail: detail,
		})
	}
	h.Hub.Broadcast(hub.EventProjectUpdate, h.Projects.Snapshot())

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"project": project,
	})
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
