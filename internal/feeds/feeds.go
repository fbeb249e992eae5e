// Package feeds fetches vulnerability data from public sources: NVD, FIRST EPSS,
// the CISA KEV catalogue and OSV.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Public endpoints
const (
	NVDBaseURL  = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	EPSSBaseURL = "https://api.first.org/data/v1/epss"
	KEVFeedURL  = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	OSVBaseURL  = "https://api.osv.dev/v1/vulns"
)

const userAgent = "cve-triage/1.0"

// ErrNotFound is returned when a source has no record for the identifier
var ErrNotFound = errors.New("record not found")

// HTTPError is a non-2xx answer from a feed
type HTTPError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Source, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// get performs a GET and returns the response body for 2xx answers
func get(ctx context.Context, client *http.Client, source, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", source, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", source, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 {
			text = text[:200]
		}
		return nil, &HTTPError{Source: source, StatusCode: resp.StatusCode, Body: text}
	}
	return body, nil
}
