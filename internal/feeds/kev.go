package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// KEVEntry is one entry of the CISA Known Exploited Vulnerabilities catalogue
type KEVEntry struct {
	CveID                      string `json:"cveID"`
	VendorProject              string `json:"vendorProject"`
	Product                    string `json:"product"`
	DateAdded                  string `json:"dateAdded"`
	RequiredAction             string `json:"requiredAction"`
	DueDate                    string `json:"dueDate"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse"`
}

type kevCatalog struct {
	CatalogVersion  string     `json:"catalogVersion"`
	DateReleased    string     `json:"dateReleased"`
	Count           int        `json:"count"`
	Vulnerabilities []KEVEntry `json:"vulnerabilities"`
}

// KEVCatalog answers membership queries against the KEV feed. The feed is
// downloaded on first use and kept for the life of the process; a failed
// download is retried on the next query.
type KEVCatalog struct {
	URL        string
	HTTPClient *http.Client

	mu      sync.Mutex
	entries map[string]KEVEntry
}

// NewKEVCatalog creates a catalogue backed by the public CISA feed
func NewKEVCatalog(timeout time.Duration) *KEVCatalog {
	return &KEVCatalog{URL: KEVFeedURL, HTTPClient: &http.Client{Timeout: timeout}}
}

// Lookup returns the catalogue entry for cveID, if listed
func (k *KEVCatalog) Lookup(ctx context.Context, cveID string) (KEVEntry, bool, error) {
	entries, err := k.load(ctx)
	if err != nil {
		return KEVEntry{}, false, err
	}
	e, ok := entries[strings.ToUpper(strings.TrimSpace(cveID))]
	return e, ok, nil
}

// Contains reports whether cveID is known to be exploited
func (k *KEVCatalog) Contains(ctx context.Context, cveID string) (bool, error) {
	_, ok, err := k.Lookup(ctx, cveID)
	return ok, err
}

func (k *KEVCatalog) load(ctx context.Context) (map[string]KEVEntry, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.entries != nil {
		return k.entries, nil
	}

	body, err := get(ctx, k.HTTPClient, "kev", k.URL, nil)
	if err != nil {
		return nil, err
	}

	var catalog kevCatalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("kev: decode: %w", err)
	}

	entries := make(map[string]KEVEntry, len(catalog.Vulnerabilities))
	for _, v := range catalog.Vulnerabilities {
		entries[strings.ToUpper(v.CveID)] = v
	}
	k.entries = entries
	return entries, nil
}
