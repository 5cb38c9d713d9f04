// Package webhook implements the HTTP boundary in front of the dialogue
// engine.
//
// Two routes share one path:
//
//	GET  /webhook   subscription verification (challenge/token exchange)
//	POST /webhook   inbound event delivery
//
// The POST handler always answers 200 with {"status": tag}, including when
// the engine reports an internal error, because the platform redelivers
// webhooks it considers failed, and redelivering a poisoned event forever
// helps nobody.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigbell/bellhop/common/trace"
	"github.com/bigbell/bellhop/internal/bellhop/dialogue"
	"github.com/bigbell/bellhop/internal/bellhop/event"
)

// DefaultRateLimit is the default maximum number of inbound events accepted
// per sender per minute.
const DefaultRateLimit = 30

// maxBodyBytes caps inbound request bodies to prevent memory exhaustion
// from oversized payloads.
const maxBodyBytes = 1 * 1024 * 1024 // 1 MiB

// Engine is the slice of the dialogue engine the server needs.
type Engine interface {
	Evaluate(ctx context.Context, body []byte) dialogue.Status
}

// Server handles webhook verification and event dispatch.
type Server struct {
	verifyToken string
	engine      Engine
	limiter     *rateLimiter
}

// Config holds options for creating a Server.
type Config struct {
	// RateLimit is the maximum number of events accepted per sender per
	// minute. Defaults to DefaultRateLimit when zero or negative.
	RateLimit int
}

// New creates a webhook server delegating to the given engine.
func New(verifyToken string, engine Engine, cfg Config) *Server {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	return &Server{
		verifyToken: verifyToken,
		engine:      engine,
		limiter:     newRateLimiter(limit, time.Minute),
	}
}

// RouteRegistrar is satisfied by *http.ServeMux, allowing the server to
// register its routes without owning the mux.
type RouteRegistrar interface {
	Handle(pattern string, handler http.Handler)
}

// RegisterRoutes mounts the webhook handler on the given registrar.
func (s *Server) RegisterRoutes(r RouteRegistrar) {
	r.Handle("/webhook", http.HandlerFunc(s.handleWebhook))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleVerify(w, r)
	case http.MethodPost:
		s.handleEvent(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVerify answers the platform's subscription handshake: when the
// token matches, the raw challenge is echoed back as plain text.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != s.verifyToken {
		slog.Info("webhook: verification rejected", "mode", q.Get("hub.mode"))
		http.Error(w, "Invalid verification token", http.StatusForbidden)
		return
	}

	slog.Info("webhook: subscription verified")
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(q.Get("hub.challenge")))
}

// handleEvent reads the delivery, applies per-sender rate limiting and runs
// the engine.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		slog.Warn("webhook: failed to read request body", "err", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	ctx := trace.WithTraceID(r.Context(), trace.GenerateID())

	// Rate limiting needs the sender, which sits inside the payload. An
	// over-limit event is acknowledged and dropped: answering non-200 would
	// only make the platform redeliver it.
	if msg, ok := event.Extract(body); ok && msg.From != "" {
		if !s.limiter.Allow(msg.From) {
			slog.Info("webhook: rate limit exceeded, dropping event",
				"sender", msg.From, "trace", trace.FromContext(ctx))
			respond(w, dialogue.StatusOK)
			return
		}
	}

	status := s.engine.Evaluate(ctx, body)
	slog.Info("webhook: event evaluated", "status", status, "trace", trace.FromContext(ctx))
	respond(w, status)
}

func respond(w http.ResponseWriter, status dialogue.Status) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
}
