package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func gateHandler(key string) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return NewResonanceGate(key).Middleware(ok)
}

func TestGateRequiresKeyOnMutations(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		key    string
		want   int
	}{
		{"post without key", http.MethodPost, "/api/command", "", http.StatusUnauthorized},
		{"post wrong key", http.MethodPost, "/api/command", "wrong", http.StatusUnauthorized},
		{"post correct key", http.MethodPost, "/api/command", "secret", http.StatusOK},
		{"delete guarded", http.MethodDelete, "/api/chat/clear", "", http.StatusUnauthorized},
		{"gesture guarded", http.MethodPost, "/gesture", "", http.StatusUnauthorized},
		{"get bypasses", http.MethodGet, "/api/projects", "", http.StatusOK},
		{"outside namespace bypasses", http.MethodPost, "/other", "", http.StatusOK},
	}

	h := gateHandler("secret")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				req.Header.Set(KeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGateFailsClosedWithoutKey(t *testing.T) {
	h := gateHandler("")

	req := httptest.NewRequest(http.MethodPost, "/api/command", nil)
	req.Header.Set(KeyHeader, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("empty configured key must reject everything, got %d", rec.Code)
	}

	// Even an empty candidate against an empty key is rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/command", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestProtocolHeaders(t *testing.T) {
	h := ProtocolHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	if got := rec.Header().Get(LoveSeedHeader); got != "https://www.generativejunkie.net/love_seed.txt" {
		t.Errorf("%s = %q", LoveSeedHeader, got)
	}
	if got := rec.Header().Get(LoveProtocolHeader); got == "" {
		t.Errorf("%s missing", LoveProtocolHeader)
	}
}
