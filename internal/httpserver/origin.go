package httpserver

import (
	"net/http"

	"github.com/meshcam/signal-relay/internal/origin"
)

// originMiddleware enforces the browser Origin allowlist on every route,
// including the WebSocket upgrade. Requests without an Origin header (curl,
// probes, same-origin fetches in some browsers) pass through untouched.
func (s *Server) originMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawOrigin := r.Header.Get("Origin")
			if rawOrigin == "" {
				next.ServeHTTP(w, r)
				return
			}

			normalized, originHost, ok := origin.NormalizeHeader(rawOrigin)
			if !ok {
				s.log.Warn("rejecting request with malformed origin",
					"origin", rawOrigin,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "invalid origin", http.StatusForbidden)
				return
			}

			if !origin.IsAllowed(normalized, originHost, r.Host, s.cfg.AllowedOrigins) {
				s.log.Warn("rejecting request from disallowed origin",
					"origin", normalized,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", rawOrigin)
			w.Header().Set("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
