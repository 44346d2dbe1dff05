package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"club-operations-core/config"
	"club-operations-core/internal/core/ports"

	"github.com/rs/zerolog"
)

// retryDelays staggers CRM sync retries. The CRM is a convenience
// mirror, so we give up after the last delay rather than queue forever.
var retryDelays = []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second}

// HTTPClient is the subset of http.Client the CRM client depends on.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.CRMClient against the club's CRM HTTP API.
// An empty base URL disables sync entirely.
type Client struct {
	cfg  config.CRMConfig
	http HTTPClient
	log  zerolog.Logger
}

// NewClient creates a CRM sync client.
func NewClient(cfg config.CRMConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log.With().Str("component", "crm_client").Logger(),
	}
}

// NewClientWithHTTP creates a CRM client with a custom HTTP client.
func NewClientWithHTTP(cfg config.CRMConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{cfg: cfg, http: httpClient, log: log.With().Str("component", "crm_client").Logger()}
}

// Enabled reports whether a CRM endpoint is configured.
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != ""
}

// SyncMembership pushes one membership update to the CRM, retrying on
// transient failures. Returns nil without calling out when disabled.
func (c *Client) SyncMembership(ctx context.Context, update ports.CRMMembershipUpdate) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal crm update: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelays[attempt-1]):
			}
		}

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		c.log.Warn().Err(lastErr).
			Int("attempt", attempt+1).
			Str("email", update.Email).
			Msg("CRM sync attempt failed")
	}
	return fmt.Errorf("crm sync exhausted retries: %w", lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/memberships/sync", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build crm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("crm responded %d", resp.StatusCode)
	}
	return nil
}
