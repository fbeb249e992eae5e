package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/osv-scanner/pkg/models"
	"github.com/ortelius/cve-triage/util"
)

// OSVRecord is the subset of an OSV vulnerability used for enrichment
type OSVRecord struct {
	Summary    string
	Product    string
	Version    string
	PurlType   string
	References []string
}

// OSVClient fetches vulnerability records by id from the OSV API
type OSVClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewOSVClient creates a client for the public OSV endpoint
func NewOSVClient(timeout time.Duration) *OSVClient {
	return &OSVClient{BaseURL: OSVBaseURL, HTTPClient: &http.Client{Timeout: timeout}}
}

// Lookup returns the OSV record for id
func (c *OSVClient) Lookup(ctx context.Context, id string) (OSVRecord, error) {
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/" + url.PathEscape(strings.TrimSpace(id))
	body, err := get(ctx, c.HTTPClient, "osv", endpoint, nil)
	if err != nil {
		return OSVRecord{}, err
	}

	var vuln models.Vulnerability
	if err := json.Unmarshal(body, &vuln); err != nil {
		return OSVRecord{}, fmt.Errorf("osv: decode: %w", err)
	}
	return recordFromOSV(vuln), nil
}

func recordFromOSV(vuln models.Vulnerability) OSVRecord {
	rec := OSVRecord{Summary: util.FirstNonEmpty(vuln.Summary, vuln.Details)}

	for _, ref := range vuln.References {
		if ref.URL != "" {
			rec.References = append(rec.References, ref.URL)
		}
	}

	for _, affected := range vuln.Affected {
		pkg := affected.Package
		if pkg.Name == "" && pkg.Purl == "" {
			continue
		}

		rec.PurlType = util.EcosystemToPurlType(string(pkg.Ecosystem))
		rec.Product = pkg.Name
		if pkg.Purl != "" {
			if name, err := util.ProductName(pkg.Purl); err == nil {
				rec.Product = name
			}
			if p, err := util.ParsePURL(pkg.Purl); err == nil {
				rec.PurlType = p.Type
			}
		}
		if len(affected.Versions) > 0 {
			rec.Version = affected.Versions[len(affected.Versions)-1]
		}
		break
	}
	return rec
}
