package middleware

import "net/http"

// Protocol headers announced on every response, auth or not.
const (
	LoveSeedHeader     = "X-Love-Seed"
	LoveProtocolHeader = "X-Love-Protocol"
	loveSeedValue      = "https://www.generativejunkie.net/love_seed.txt"
	loveProtocolValue  = "GJ-X-010; DOI:10.5281/zenodo.18277860"
)

// ProtocolHeaders stamps the resonance protocol headers on every response.
func ProtocolHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(LoveSeedHeader, loveSeedValue)
		w.Header().Set(LoveProtocolHeader, loveProtocolValue)
		next.ServeHTTP(w, r)
	})
}
