package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ortelius/cve-triage/internal/ingest"
	"github.com/ortelius/cve-triage/model"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned before any request when the base URL is empty
var ErrNotConfigured = errors.New("enrichment API base URL is not configured")

// StatusError is returned for a non-2xx answer from the enrichment API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("enrichment API returned %d", e.StatusCode)
	}
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("enrichment API returned %d: %s", e.StatusCode, body)
}

// Client posts identifier batches to {BaseURL}/enrich.
// One call is one request: no chunking, no retry.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a client with a bounded request timeout
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// Enrich sends all items in a single batch and decodes the returned rows
func (c *Client) Enrich(ctx context.Context, items []model.Item) ([]model.Row, error) {
	if c.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	payload := model.EnrichRequest{Cves: make([]string, 0, len(items))}
	for _, it := range items {
		payload.Cves = append(payload.Cves, it.CveID)
	}
	if ingest.HasContext(items) {
		payload.Items = items
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding enrichment request: %w", err)
	}

	url := c.BaseURL + "/enrich"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.Logger.Debug("Posting identifiers to enrichment API", zap.String("url", url), zap.Int("count", len(items)))

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling enrichment API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// best effort: a failed body read still reports the status
		text, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			text = nil
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(text)}
	}

	var decoded model.EnrichResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding enrichment response: %w", err)
	}

	c.Logger.Debug("Enrichment API answered", zap.Int("rows", len(decoded.Rows)))
	if decoded.Rows == nil {
		decoded.Rows = []model.Row{}
	}
	return decoded.Rows, nil
}

var _ Provider = (*Client)(nil)
