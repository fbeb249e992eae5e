package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/ortelius/cve-triage/internal/backend"
	"github.com/ortelius/cve-triage/util"
	"go.uber.org/zap"
)

// cachedFacts is the stored document shape
type cachedFacts struct {
	Key       string        `json:"_key"`
	Facts     backend.Facts `json:"facts"`
	FetchedAt string        `json:"fetched_at"`
}

// EnrichmentCache stores gathered CVE facts with a freshness window
type EnrichmentCache struct {
	db     *DBConnection
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewEnrichmentCache wraps an open connection
func NewEnrichmentCache(db *DBConnection, ttl time.Duration, logger *zap.Logger) *EnrichmentCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichmentCache{db: db, ttl: ttl, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CacheKey maps a CVE id onto a valid document key
func CacheKey(cveID string) string {
	return util.SanitizeKey(strings.ToUpper(cveID))
}

func (c *EnrichmentCache) cutoff() string {
	return c.now().Add(-c.ttl).Format(time.RFC3339)
}

// Get returns fresh facts for cveID
func (c *EnrichmentCache) Get(ctx context.Context, cveID string) (backend.Facts, bool, error) {
	query := `
		FOR d IN cve_enrichment
			FILTER d._key == @key AND d.fetched_at >= @cutoff
			LIMIT 1
			RETURN d
	`
	bindVars := map[string]interface{}{
		"key":    CacheKey(cveID),
		"cutoff": c.cutoff(),
	}

	cursor, err := c.db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return backend.Facts{}, false, fmt.Errorf("querying cache: %w", err)
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return backend.Facts{}, false, nil
	}

	var doc cachedFacts
	if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
		return backend.Facts{}, false, fmt.Errorf("reading cached facts: %w", err)
	}
	return doc.Facts, true, nil
}

// Put stores facts, replacing any previous entry
func (c *EnrichmentCache) Put(ctx context.Context, f backend.Facts) error {
	query := `
		UPSERT { _key: @key }
		INSERT { _key: @key, facts: @facts, fetched_at: @time }
		UPDATE { facts: @facts, fetched_at: @time }
		IN cve_enrichment
	`
	fetched := f.FetchedAt
	if fetched.IsZero() {
		fetched = c.now()
	}
	bindVars := map[string]interface{}{
		"key":   CacheKey(f.CveID),
		"facts": f,
		"time":  fetched.UTC().Format(time.RFC3339),
	}

	if _, err := c.db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars}); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// PurgeExpired removes entries older than the freshness window
func (c *EnrichmentCache) PurgeExpired(ctx context.Context) error {
	query := `
		FOR d IN cve_enrichment
			FILTER d.fetched_at < @cutoff
			REMOVE d IN cve_enrichment
	`
	_, err := c.db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: map[string]interface{}{"cutoff": c.cutoff()}})
	if err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	c.logger.Debug("Purged expired cache entries", zap.String("cutoff", c.cutoff()))
	return nil
}

var _ backend.Cache = (*EnrichmentCache)(nil)
