package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ortelius/cve-triage/model"
	"github.com/ortelius/cve-triage/util"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxSummaryLen = 600

// patch reference markers, matched as substrings of the URL
var patchMarkers = []string{"advis", "patch", "security"}

// NVDRecord is the subset of an NVD CVE record used for enrichment
type NVDRecord struct {
	Summary    string
	CVSS       model.Score
	Vector     string
	References []string
	PatchURL   string
}

type nvdResponse struct {
	Vulnerabilities []struct {
		CVE nvdCVE `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCVE struct {
	ID           string `json:"id"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics    map[string][]nvdMetric `json:"metrics"`
	References []struct {
		URL    string `json:"url"`
		Source string `json:"source"`
	} `json:"references"`
}

type nvdMetric struct {
	Source   string `json:"source"`
	Type     string `json:"type"`
	CvssData struct {
		Version      string  `json:"version"`
		VectorString string  `json:"vectorString"`
		BaseScore    float64 `json:"baseScore"`
	} `json:"cvssData"`
}

// metric keys in preference order
var cvssMetricKeys = []string{"cvssMetricV40", "cvssMetricV31", "cvssMetricV30", "cvssMetricV2"}

// NVDConfig holds the NVD client settings
type NVDConfig struct {
	BaseURL           string
	APIKey            string
	RateLimitRequests float64
	RateLimitPeriod   time.Duration
	Burst             int
	MaxRetries        int
	InitialBackoff    time.Duration
	Timeout           time.Duration
}

// NVDClient looks up CVE records in the NVD 2.0 API, rate limited and retried
type NVDClient struct {
	cfg        NVDConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewNVDClient creates an NVD client. Zero values fall back to the public endpoint
// and the anonymous rate limit.
func NewNVDClient(cfg NVDConfig, logger *zap.Logger) *NVDClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = NVDBaseURL
	}
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = 5
	}
	if cfg.RateLimitPeriod <= 0 {
		cfg.RateLimitPeriod = 30 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Limit(cfg.RateLimitRequests / cfg.RateLimitPeriod.Seconds())
	logger.Debug("NVD rate limiter configured", zap.Float64("per_sec", float64(limit)), zap.Int("burst", cfg.Burst))

	return &NVDClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		logger:     logger,
	}
}

// Lookup fetches one CVE. 429 and 5xx answers are retried with exponential backoff;
// each attempt waits on the rate limiter.
func (c *NVDClient) Lookup(ctx context.Context, cveID string) (NVDRecord, error) {
	cveID = strings.ToUpper(strings.TrimSpace(cveID))

	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("apiKey", c.cfg.APIKey)
	}
	endpoint := c.cfg.BaseURL + "?cveId=" + url.QueryEscape(cveID)

	var body []byte
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxElapsedTime = 2 * time.Minute

	retries := c.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithMaxRetries(bo, uint64(retries))

	err := backoff.RetryNotify(func() error {
		// every attempt, retries included, spends a rate limit token
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		b, err := get(ctx, c.httpClient, "nvd", endpoint, header)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.Retryable() {
				return err
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if errors.Is(err, ErrNotFound) || errors.As(err, &httpErr) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		c.logger.Warn("Retrying NVD request", zap.String("cve", cveID), zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return NVDRecord{}, err
	}

	var decoded nvdResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return NVDRecord{}, err
	}
	if len(decoded.Vulnerabilities) == 0 {
		return NVDRecord{}, ErrNotFound
	}
	return decoded.Vulnerabilities[0].CVE.record(), nil
}

func (c nvdCVE) record() NVDRecord {
	rec := NVDRecord{}

	for _, d := range c.Descriptions {
		if d.Lang == "en" {
			rec.Summary = d.Value
			break
		}
	}
	if rec.Summary == "" && len(c.Descriptions) > 0 {
		rec.Summary = c.Descriptions[0].Value
	}
	rec.Summary = util.Truncate(rec.Summary, maxSummaryLen)

	for _, key := range cvssMetricKeys {
		metrics := c.Metrics[key]
		if len(metrics) == 0 {
			continue
		}
		data := metrics[0].CvssData
		rec.Vector = data.VectorString
		score := data.BaseScore
		if score == 0 && data.VectorString != "" {
			score = util.CalculateCVSSScore(data.VectorString)
		}
		rec.CVSS = model.NewScore(score)
		break
	}

	for _, ref := range c.References {
		if ref.URL == "" {
			continue
		}
		rec.References = append(rec.References, ref.URL)
		if rec.PatchURL == "" && isPatchURL(ref.URL) {
			rec.PatchURL = ref.URL
		}
	}
	return rec
}

func isPatchURL(u string) bool {
	for _, m := range patchMarkers {
		if strings.Contains(u, m) {
			return true
		}
	}
	return false
}
