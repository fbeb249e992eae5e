package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ortelius/cve-triage/model"
)

type epssResponse struct {
	Status string `json:"status"`
	Data   []struct {
		CVE        string `json:"cve"`
		EPSS       string `json:"epss"`
		Percentile string `json:"percentile"`
		Date       string `json:"date"`
	} `json:"data"`
}

// EPSSClient reads exploitation probability scores from the FIRST API
type EPSSClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewEPSSClient creates a client for the public FIRST endpoint
func NewEPSSClient(timeout time.Duration) *EPSSClient {
	return &EPSSClient{BaseURL: EPSSBaseURL, HTTPClient: &http.Client{Timeout: timeout}}
}

// Score returns the EPSS probability of cveID. An identifier without a score yields
// an absent Score and no error.
func (c *EPSSClient) Score(ctx context.Context, cveID string) (model.Score, error) {
	endpoint := c.BaseURL + "?cve=" + url.QueryEscape(strings.TrimSpace(cveID))
	body, err := get(ctx, c.HTTPClient, "epss", endpoint, nil)
	if err != nil {
		return model.Score{}, err
	}

	var decoded epssResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return model.Score{}, fmt.Errorf("epss: decode: %w", err)
	}
	if len(decoded.Data) == 0 {
		return model.Score{}, nil
	}

	v, err := strconv.ParseFloat(decoded.Data[0].EPSS, 64)
	if err != nil {
		return model.Score{}, fmt.Errorf("epss: invalid score %q: %w", decoded.Data[0].EPSS, err)
	}
	return model.NewScore(v), nil
}
