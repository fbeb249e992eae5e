package backend

import (
	"context"
	"time"

	"github.com/ortelius/cve-triage/internal/feeds"
	"github.com/ortelius/cve-triage/model"
)

// NVDSource looks up CVE records
type NVDSource interface {
	Lookup(ctx context.Context, cveID string) (feeds.NVDRecord, error)
}

// EPSSSource returns exploitation probability scores
type EPSSSource interface {
	Score(ctx context.Context, cveID string) (model.Score, error)
}

// KEVSource answers known-exploited membership
type KEVSource interface {
	Contains(ctx context.Context, cveID string) (bool, error)
}

// OSVSource looks up OSV records
type OSVSource interface {
	Lookup(ctx context.Context, id string) (feeds.OSVRecord, error)
}

// BriefWriter produces a short remediation-oriented brief for a record
type BriefWriter interface {
	Brief(ctx context.Context, f Facts) (string, error)
}

// Cache stores gathered facts by CVE id
type Cache interface {
	Get(ctx context.Context, cveID string) (Facts, bool, error)
	Put(ctx context.Context, f Facts) error
}

// Facts is everything learned about one CVE, independent of where it was detected
type Facts struct {
	CveID      string      `json:"cve_id"`
	Summary    string      `json:"summary"`
	CVSS       model.Score `json:"cvss"`
	Vector     string      `json:"vector,omitempty"`
	EPSS       model.Score `json:"epss"`
	KEV        bool        `json:"kev"`
	References []string    `json:"references"`
	PatchURL   string      `json:"patch_url"`
	Product    string      `json:"product,omitempty"`
	Version    string      `json:"version,omitempty"`
	Brief      string      `json:"brief,omitempty"`
	FetchedAt  time.Time   `json:"fetched_at"`
}
