// Package minerva provides the HTTP client for Minerva, the semantic
// name-normalization service. Calls run behind a circuit breaker so a dead
// Minerva degrades to the local fallback instead of stacking timeouts.
package minerva

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/XavierBriggs/Argus/pkg/contracts"
	"github.com/XavierBriggs/Argus/pkg/models"
)

const (
	defaultTimeout = 5 * time.Second
	normalizePath  = "/v1/normalize"

	// breakerCooldown is how long the breaker stays open before probing again
	breakerCooldown = 30 * time.Second
	// breakerTripAfter is the consecutive-failure count that opens the breaker
	breakerTripAfter = 5
)

// Config holds configuration for the Minerva client
type Config struct {
	BaseURL string // e.g., "http://localhost:5010"
	APIKey  string // empty means Minerva is not configured
	Enabled bool
	Timeout time.Duration
}

// Client handles HTTP communication with Minerva
type Client struct {
	baseURL    string
	apiKey     string
	enabled    bool
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

var _ contracts.RemoteNormalizer = (*Client)(nil)

// NewClient creates a new Minerva client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "minerva",
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// IsEnabled reports whether remote normalization is configured.
// A missing base URL or credential is a valid state, not an error.
func (c *Client) IsEnabled() bool {
	return c.enabled && c.baseURL != "" && c.apiKey != ""
}

// Normalize asks Minerva to resolve a raw vendor string into a canonical name
func (c *Client) Normalize(ctx context.Context, raw, hint string) (models.NormalizationResult, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doNormalize(ctx, raw, hint)
	})
	if err != nil {
		return models.NormalizationResult{}, err
	}
	return out.(models.NormalizationResult), nil
}

func (c *Client) doNormalize(ctx context.Context, raw, hint string) (models.NormalizationResult, error) {
	jsonData, err := json.Marshal(normalizeRequest{Text: raw, Hint: hint})
	if err != nil {
		return models.NormalizationResult{}, fmt.Errorf("marshal normalize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+normalizePath, bytes.NewReader(jsonData))
	if err != nil {
		return models.NormalizationResult{}, fmt.Errorf("create normalize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return models.NormalizationResult{}, fmt.Errorf("minerva request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NormalizationResult{}, fmt.Errorf("read minerva response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return models.NormalizationResult{}, fmt.Errorf("minerva returned status %d: %s", resp.StatusCode, string(body))
	}

	var nr normalizeResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return models.NormalizationResult{}, fmt.Errorf("unmarshal minerva response: %w", err)
	}

	return models.NormalizationResult{
		Name:       nr.Normalized,
		Confidence: nr.Confidence,
		Reasoning:  nr.Reasoning,
	}, nil
}

// normalizeRequest is the request format for the normalize endpoint
type normalizeRequest struct {
	Text string `json:"text"`
	Hint string `json:"hint,omitempty"`
}

// normalizeResponse is the response format from the normalize endpoint
type normalizeResponse struct {
	Normalized string  `json:"normalized"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}
