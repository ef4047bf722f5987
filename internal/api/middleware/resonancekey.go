package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// KeyHeader carries the shared secret on mutating requests.
const KeyHeader = "X-Resonance-Key"

// ResonanceGate validates the shared-secret header on mutating
// requests under the command namespace.
//
// POST and DELETE requests to /api/* and /gesture must present the
// configured key in X-Resonance-Key. Read-only routes and everything
// outside the namespace pass through untouched. An empty configured
// key fails closed: no request can satisfy the gate until one is set.
type ResonanceGate struct {
	key string
}

// NewResonanceGate creates a gate for the given shared secret.
func NewResonanceGate(key string) *ResonanceGate {
	if key == "" {
		log.Warn().Msg("No resonance key configured; all mutating requests will be rejected")
	}
	return &ResonanceGate{key: key}
}

// Middleware returns an http.Handler middleware enforcing the gate.
func (g *ResonanceGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.guards(r) {
			next.ServeHTTP(w, r)
			return
		}

		candidate := r.Header.Get(KeyHeader)
		if g.key == "" || subtle.ConstantTimeCompare([]byte(candidate), []byte(g.key)) != 1 {
			log.Warn().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Msg("Unauthorized access attempt")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"status":  "error",
				"message": "Unauthorized: Invalid Resonance Key",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *ResonanceGate) guards(r *http.Request) bool {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/gesture"
}
