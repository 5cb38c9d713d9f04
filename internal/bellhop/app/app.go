// Package app wires the bot together and owns the HTTP server lifecycle.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bigbell/bellhop/common/retry"
	"github.com/bigbell/bellhop/common/version"
	"github.com/bigbell/bellhop/internal/bellhop/catalog"
	"github.com/bigbell/bellhop/internal/bellhop/config"
	"github.com/bigbell/bellhop/internal/bellhop/dialogue"
	"github.com/bigbell/bellhop/internal/bellhop/jenkins"
	"github.com/bigbell/bellhop/internal/bellhop/session"
	"github.com/bigbell/bellhop/internal/bellhop/webhook"
	"github.com/bigbell/bellhop/internal/bellhop/whatsapp"
)

// shutdownTimeout bounds the graceful drain of in-flight webhook requests.
const shutdownTimeout = 10 * time.Second

// App is the assembled bot.
type App struct {
	cfg       *config.Config
	store     session.Store
	mux       *http.ServeMux
	server    *http.Server
	startedAt time.Time
}

// New builds the session store, the remote clients, the dialogue engine and
// the HTTP routes. It does not start listening; call Run.
func New(cfg *config.Config) (*App, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	store, err := session.Open(session.Options{
		Backend:       cfg.SessionBackend,
		DatabasePath:  cfg.DatabasePath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		TTL:           cfg.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	ci := jenkins.New(jenkins.Config{
		BaseURL:  cfg.JenkinsURL,
		Username: cfg.JenkinsUsername,
		APIToken: cfg.JenkinsToken,
		Timeout:  cfg.RemoteTimeout,
	})

	chat := whatsapp.New(whatsapp.Config{
		Token:   cfg.WhatsAppToken,
		PhoneID: cfg.PhoneID,
		BaseURL: cfg.WhatsAppBaseURL,
		Timeout: cfg.RemoteTimeout,
	})

	engine := dialogue.New(store, ci, chat, cat, retry.Config{
		MaxAttempts: cfg.PollAttempts,
		Delay:       cfg.PollDelay,
	})

	a := &App{
		cfg:       cfg,
		store:     store,
		mux:       http.NewServeMux(),
		startedAt: time.Now(),
	}

	wh := webhook.New(cfg.VerifyToken, engine, webhook.Config{RateLimit: cfg.WebhookRateLimit})
	wh.RegisterRoutes(a.mux)
	a.mux.HandleFunc("/health", a.handleHealth)
	a.mux.HandleFunc("/status", a.handleStatus)
	a.mux.HandleFunc("/", a.handleRoot)

	a.server = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: a.mux,
	}

	return a, nil
}

// Handler exposes the route table for tests.
func (a *App) Handler() http.Handler {
	return a.mux
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then drains
// in-flight requests.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", a.cfg.HTTPAddr, "session_backend", a.cfg.SessionBackend)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Stop releases resources. Safe to call after Run returns.
func (a *App) Stop() {
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close session store", "err", err)
	}
}

func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{"message": "BigBell WhatsApp Bot is running!"})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.GitCommit,
	})
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":          "ok",
		"version":         version.Version,
		"commit":          version.GitCommit,
		"build_time":      version.BuildTime,
		"started_at":      a.startedAt,
		"uptime_seconds":  time.Since(a.startedAt).Seconds(),
		"session_backend": a.cfg.SessionBackend,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}
