package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ortelius/cve-triage/model"
)

const nvdLog4Shell = `{
  "vulnerabilities": [{
    "cve": {
      "id": "CVE-2021-44228",
      "descriptions": [
        {"lang": "es", "value": "Apache Log4j2 ..."},
        {"lang": "en", "value": "Apache Log4j2 JNDI features do not protect against attacker controlled LDAP."}
      ],
      "metrics": {
        "cvssMetricV2": [{"cvssData": {"version": "2.0", "baseScore": 9.3}}],
        "cvssMetricV31": [{"cvssData": {"version": "3.1", "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H", "baseScore": 10.0}}]
      },
      "references": [
        {"url": "https://logging.apache.org/log4j/2.x/changes.html"},
        {"url": "https://logging.apache.org/log4j/2.x/security.html"},
        {"url": "https://github.com/advisories/GHSA-jfh8-c2jp-5v3q"}
      ]
    }
  }]
}`

func fastNVD(url string) *NVDClient {
	return NewNVDClient(NVDConfig{
		BaseURL:           url,
		RateLimitRequests: 1000,
		RateLimitPeriod:   time.Second,
		Burst:             10,
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		Timeout:           5 * time.Second,
	}, nil)
}

func TestNVDLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cveId"); got != "CVE-2021-44228" {
			t.Errorf("unexpected cveId %q", got)
		}
		_, _ = w.Write([]byte(nvdLog4Shell))
	}))
	defer srv.Close()

	rec, err := fastNVD(srv.URL).Lookup(context.Background(), "cve-2021-44228")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := NVDRecord{
		Summary: "Apache Log4j2 JNDI features do not protect against attacker controlled LDAP.",
		CVSS:    model.NewScore(10),
		Vector:  "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H",
		References: []string{
			"https://logging.apache.org/log4j/2.x/changes.html",
			"https://logging.apache.org/log4j/2.x/security.html",
			"https://github.com/advisories/GHSA-jfh8-c2jp-5v3q",
		},
		PatchURL: "https://logging.apache.org/log4j/2.x/security.html",
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestNVDRecordScoreFromVector(t *testing.T) {
	c := nvdCVE{Metrics: map[string][]nvdMetric{}}
	m := nvdMetric{}
	m.CvssData.VectorString = "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"
	c.Metrics["cvssMetricV31"] = []nvdMetric{m}

	rec := c.record()
	if !rec.CVSS.Valid || rec.CVSS.Value != 9.8 {
		t.Errorf("expected 9.8 computed from vector, got %+v", rec.CVSS)
	}
}

func TestNVDRecordTruncatesSummary(t *testing.T) {
	c := nvdCVE{}
	c.Descriptions = append(c.Descriptions, struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	}{Lang: "en", Value: strings.Repeat("a", 700)})

	if got := len(c.record().Summary); got != maxSummaryLen {
		t.Errorf("expected %d chars, got %d", maxSummaryLen, got)
	}
}

func TestNVDRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(nvdLog4Shell))
	}))
	defer srv.Close()

	if _, err := fastNVD(srv.URL).Lookup(context.Background(), "CVE-2021-44228"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestNVDRetriesWaitOnRateLimiter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	// two tokens up front, the next one an hour away
	client := NewNVDClient(NVDConfig{
		BaseURL:           srv.URL,
		RateLimitRequests: 1,
		RateLimitPeriod:   time.Hour,
		Burst:             2,
		MaxRetries:        5,
		InitialBackoff:    time.Millisecond,
		Timeout:           time.Second,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if _, err := client.Lookup(ctx, "CVE-2021-44228"); err == nil {
		t.Fatal("expected an error once the limiter runs dry")
	}
	if calls.Load() != 2 {
		t.Errorf("expected only the 2 rate-limited attempts to reach the server, got %d", calls.Load())
	}
}

func TestNVDDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := fastNVD(srv.URL).Lookup(context.Background(), "CVE-1")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 HTTPError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestNVDEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"vulnerabilities":[]}`))
	}))
	defer srv.Close()

	if _, err := fastNVD(srv.URL).Lookup(context.Background(), "CVE-0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEPSSScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cve") == "CVE-2021-44228" {
			_, _ = w.Write([]byte(`{"status":"OK","data":[{"cve":"CVE-2021-44228","epss":"0.944570000","percentile":"0.999"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","data":[]}`))
	}))
	defer srv.Close()

	c := &EPSSClient{BaseURL: srv.URL, HTTPClient: srv.Client()}

	got, err := c.Score(context.Background(), "CVE-2021-44228")
	if err != nil || got != model.NewScore(0.94457) {
		t.Errorf("expected 0.94457, got %+v (%v)", got, err)
	}

	missing, err := c.Score(context.Background(), "CVE-0")
	if err != nil || missing.Valid {
		t.Errorf("expected absent score, got %+v (%v)", missing, err)
	}
}

func TestKEVMemoisedOnSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"catalogVersion":"2024.01.01","count":1,"vulnerabilities":[{"cveID":"CVE-2021-44228","vendorProject":"Apache","product":"Log4j2"}]}`))
	}))
	defer srv.Close()

	k := &KEVCatalog{URL: srv.URL, HTTPClient: srv.Client()}

	if _, err := k.Contains(context.Background(), "CVE-2021-44228"); err == nil {
		t.Fatal("expected first load to fail")
	}

	for _, tc := range []struct {
		id   string
		want bool
	}{
		{"CVE-2021-44228", true},
		{"cve-2021-44228", true},
		{"CVE-2023-4863", false},
	} {
		got, err := k.Contains(context.Background(), tc.id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.id, tc.want, got)
		}
	}

	if calls.Load() != 2 {
		t.Errorf("expected one failed and one successful download, got %d calls", calls.Load())
	}
}

func TestOSVLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/GHSA-jfh8-c2jp-5v3q" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{
			"id": "GHSA-jfh8-c2jp-5v3q",
			"summary": "Remote code injection in Log4j",
			"affected": [{
				"package": {"ecosystem": "Maven", "name": "org.apache.logging.log4j:log4j-core", "purl": "pkg:maven/org.apache.logging.log4j/log4j-core"},
				"versions": ["2.0", "2.14.1"]
			}],
			"references": [{"type": "ADVISORY", "url": "https://nvd.nist.gov/vuln/detail/CVE-2021-44228"}]
		}`))
	}))
	defer srv.Close()

	c := &OSVClient{BaseURL: srv.URL, HTTPClient: srv.Client()}

	rec, err := c.Lookup(context.Background(), "GHSA-jfh8-c2jp-5v3q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := OSVRecord{
		Summary:    "Remote code injection in Log4j",
		Product:    "org.apache.logging.log4j/log4j-core",
		Version:    "2.14.1",
		PurlType:   "maven",
		References: []string{"https://nvd.nist.gov/vuln/detail/CVE-2021-44228"},
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.Lookup(context.Background(), "CVE-0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
