// Package config loads the process configuration from environment
// variables. The parsed struct is passed explicitly into constructors; no
// package reads the environment on its own.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration.
type Config struct {
	// VerifyToken is the static token the platform presents during webhook
	// subscription verification.
	VerifyToken string `env:"VERIFY_TOKEN"`

	// WhatsApp Cloud API credentials.
	WhatsAppToken   string `env:"WHATSAPP_TOKEN"`
	PhoneID         string `env:"PHONE_ID"`
	WhatsAppBaseURL string `env:"WHATSAPP_BASE_URL"`

	// Jenkins endpoint and credentials.
	JenkinsURL      string `env:"JENKINS_URL"`
	JenkinsUsername string `env:"JENKINS_USERNAME"`
	JenkinsToken    string `env:"JENKINS_TOKEN"`

	// RemoteTimeout bounds each Jenkins and WhatsApp call.
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"5s"`

	// Session store selection.
	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"sqlite"`
	DatabasePath   string        `env:"DATABASE_PATH" envDefault:"./bellhop.db"`
	RedisAddr      string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// HTTPAddr is the listen address of the webhook server.
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CatalogPath optionally points at a YAML file overriding the built-in
	// customer catalog and reply texts.
	CatalogPath string `env:"CATALOG_PATH"`

	// WebhookRateLimit caps inbound events per sender per minute. Zero
	// means the built-in default.
	WebhookRateLimit int `env:"WEBHOOK_RATE_LIMIT"`

	// Post-trigger build-number polling policy.
	PollAttempts int           `env:"BUILD_POLL_ATTEMPTS" envDefault:"5"`
	PollDelay    time.Duration `env:"BUILD_POLL_DELAY" envDefault:"2s"`
}

// Load parses the environment and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.VerifyToken == "" {
		return nil, fmt.Errorf("VERIFY_TOKEN is required")
	}
	if cfg.WhatsAppToken == "" {
		return nil, fmt.Errorf("WHATSAPP_TOKEN is required")
	}
	if cfg.PhoneID == "" {
		return nil, fmt.Errorf("PHONE_ID is required")
	}
	if cfg.JenkinsURL == "" {
		return nil, fmt.Errorf("JENKINS_URL is required")
	}

	return cfg, nil
}
