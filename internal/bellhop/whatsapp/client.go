// Package whatsapp provides the outbound chat delivery adapter for the
// WhatsApp Business Cloud API.
//
// Delivery is at-most-once with no confirmation: a failed send is logged and
// reported to the caller, but the dialogue engine never rolls back state
// because of it; the session has already been persisted by the time a
// message goes out.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v19.0"
	defaultTimeout = 5 * time.Second
)

// Config holds the Cloud API credentials.
type Config struct {
	// Token is the bearer token for the Graph API.
	Token string
	// PhoneID is the business phone number ID messages are sent from.
	PhoneID string
	// BaseURL overrides the Graph API endpoint (tests). Empty means the
	// public endpoint.
	BaseURL string
	// Timeout bounds each send. Defaults to 5s when zero.
	Timeout time.Duration
}

// Client sends messages through the Cloud API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a delivery client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send delivers the payload to the given recipient. The recipient and
// messaging product are filled in here so builders stay recipient-agnostic.
func (c *Client) Send(ctx context.Context, to string, p Payload) error {
	p.MessagingProduct = "whatsapp"
	p.To = to

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	u := c.cfg.BaseURL + "/" + c.cfg.PhoneID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("whatsapp: send failed", "to", to, "type", p.Type, "err", err)
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		slog.Error("whatsapp: send rejected",
			"to", to, "type", p.Type, "status", resp.StatusCode, "body", string(detail))
		return fmt.Errorf("send rejected with status %d", resp.StatusCode)
	}

	slog.Info("whatsapp: message sent", "to", to, "type", p.Type)
	return nil
}
