// Package api exposes the caregiving agent over a small JSON HTTP
// surface: one consultation endpoint plus health probes.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/calmcare/calm-agent/internal/security"
)

// ServerConfig configures the API server.
type ServerConfig struct {
	Logger     *slog.Logger
	Runner     Runner // Required
	Pinger     Pinger // Optional: nil skips the database readiness check
	Defaults   AskDefaults
	RateLimit  float64 // Tokens per second per IP (0 = default 2)
	RateBurst  int     // Burst size per IP (0 = default 5)
	TrustProxy bool    // Trust X-Real-IP/X-Forwarded-For
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ah := &askHandler{
		runner:    cfg.Runner,
		defaults:  cfg.Defaults,
		validator: security.NewPromptValidator(),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ask", ah.ask)

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 2
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 5
	}
	rl := newRateLimiter(limit, burst)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> RateLimit -> Routes
	// RequestID must come before Logging so request_id is available in
	// log attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes live outside the middleware stack so monitoring
	// traffic is never rate limited or logged per request.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pinger, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
