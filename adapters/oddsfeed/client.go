package oddsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/XavierBriggs/Argus/pkg/contracts"
	"github.com/XavierBriggs/Argus/pkg/models"
)

const (
	userAgent       = "Argus/1.0 (Fortuna Odds Aggregator)"
	timeout         = 10 * time.Second
	maxRetries      = 3
	baseRetryDelay  = 2 * time.Second
	defaultOddsPath = "/v1/odds"
)

// Client implements the SourceFetcher interface for JSON odds feeds.
// One client serves every configured source; the per-source address and
// endpoint path arrive with each call.
type Client struct {
	httpClient *http.Client
	retryDelay time.Duration
}

// Ensure Client implements SourceFetcher
var _ contracts.SourceFetcher = (*Client)(nil)

// NewClient creates a new odds feed client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryDelay: baseRetryDelay,
	}
}

// Fetch retrieves the current selections a source offers for a sport
func (c *Client) Fetch(ctx context.Context, source models.SourceConfig, sport string) ([]models.RawSelection, error) {
	path := source.OddsPath
	if path == "" {
		path = defaultOddsPath
	}
	endpoint := strings.TrimRight(source.BaseURL, "/") + path

	params := url.Values{}
	params.Set("sport", sport)

	fullURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	body, err := c.doRequestWithRetry(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s odds: %w", source.Name, err)
	}

	var apiResp []eventOdds
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse %s odds response: %w", source.Name, err)
	}

	return parseSelections(apiResp), nil
}

// doRequestWithRetry performs HTTP request with retry logic
func (c *Client) doRequestWithRetry(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := c.doRequest(ctx, fullURL)
		if err == nil {
			return body, nil
		}

		lastErr = err

		// Don't retry on client errors (4xx except 429)
		if httpErr, ok := err.(*httpError); ok {
			if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 && httpErr.StatusCode != 429 {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request
func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &httpError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return body, nil
}

// parseSelections flattens the feed response, dropping malformed entries at
// the fetch boundary
func parseSelections(apiResp []eventOdds) []models.RawSelection {
	selections := make([]models.RawSelection, 0, len(apiResp))

	for _, evt := range apiResp {
		if evt.Event == "" {
			continue
		}
		for _, mkt := range evt.Markets {
			if mkt.Key == "" {
				continue
			}
			for _, sel := range mkt.Selections {
				if sel.Name == "" || sel.Price <= 0 {
					continue // Skip malformed selections
				}
				selections = append(selections, models.RawSelection{
					Event:     evt.Event,
					Market:    mkt.Key,
					Selection: sel.Name,
					Price:     sel.Price,
				})
			}
		}
	}

	return selections
}

// httpError represents an HTTP error with status code
type httpError struct {
	StatusCode int
	Message    string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Feed response structures

type eventOdds struct {
	Event   string       `json:"event"`
	Markets []marketOdds `json:"markets"`
}

type marketOdds struct {
	Key        string      `json:"key"`
	Selections []selection `json:"selections"`
}

type selection struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
