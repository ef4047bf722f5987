// Package hub fans events out to every connected WebSocket client.
//
// Clients are symmetric and unauthenticated: any of them may ask the
// hub to relay an event to all the others, and every server-side
// mutation is announced here. Delivery is best effort; a slow or
// disconnected client never blocks the publisher or its peers.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Relay event names on the server→client path.
const (
	EventCommandRelay   = "command-relay"
	EventAuthDecision   = "auth-decision"
	EventChatMessage    = "chat-message"
	EventGestureCommand = "gesture-command"
	EventProjectUpdate  = "project-update"
	EventMetricsUpdate  = "metrics-update"
	EventAgentStatus    = "agent-status"
)

// eventClientBroadcast is the one client→server message: relay my
// payload to everyone else.
const eventClientBroadcast = "client-broadcast"

const (
	sendQueueSize = 32
	writeTimeout  = 5 * time.Second
)

// Envelope is the wire frame for every hub message.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub tracks connected clients and broadcasts envelopes to them.
type Hub struct {
	originPatterns []string

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Envelope
}

// New creates an empty hub. originPatterns is passed to the WebSocket
// accept handshake; same-origin requests are always allowed.
func New(originPatterns []string) *Hub {
	return &Hub{
		originPatterns: originPatterns,
		clients:        make(map[*client]struct{}),
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues the event for every connected client. It never
// blocks: a client whose queue is full has the event dropped, and the
// drop is logged rather than swallowed.
func (h *Hub) Broadcast(event string, data any) {
	h.broadcast(nil, event, data)
}

func (h *Hub) broadcast(exclude *client, event string, data any) {
	env := Envelope{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c == exclude {
			continue
		}
		select {
		case c.send <- env:
		default:
			log.Warn().Str("client", c.id).Str("event", event).Msg("Send queue full, event dropped")
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and runs
// the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket accept rejected")
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan Envelope, sendQueueSize),
	}
	h.add(c)
	log.Info().Str("client", c.id).Msg("Web client connected")

	writeCtx, cancelWrites := context.WithCancel(context.Background())
	go c.writeLoop(writeCtx)

	defer func() {
		h.remove(c)
		cancelWrites()
		conn.Close(websocket.StatusNormalClosure, "bye")
		log.Info().Str("client", c.id).Msg("Web client disconnected")
	}()

	for {
		var inbound struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(r.Context(), conn, &inbound); err != nil {
			return
		}
		if inbound.Event != eventClientBroadcast {
			continue
		}
		log.Info().Str("client", c.id).Msg("Relay broadcast")
		h.broadcast(c, EventCommandRelay, inbound.Data)
	}
}

func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, env)
			cancel()
			if err != nil {
				log.Warn().Str("client", c.id).Err(err).Msg("Broadcast write failed")
				c.conn.Close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}
