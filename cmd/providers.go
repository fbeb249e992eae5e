package cmd

import (
	"context"
	"time"

	"github.com/ortelius/cve-triage/database"
	"github.com/ortelius/cve-triage/internal/backend"
	"github.com/ortelius/cve-triage/internal/config"
	"github.com/ortelius/cve-triage/internal/enrich"
	"github.com/ortelius/cve-triage/internal/feeds"
	"github.com/ortelius/cve-triage/internal/normalize"
	"go.uber.org/zap"
)

const feedTimeout = 20 * time.Second

// triageProvider picks what answers submits: the configured API, the demo table, or
// nothing (every submit then fails with config.ErrNoEndpoint)
func triageProvider(c config.Config, log *zap.Logger) (enrich.Provider, error) {
	switch {
	case c.APIBaseURL != "":
		return enrich.NewClient(c.APIBaseURL, c.RequestTimeout(), log), nil
	case c.DemoMode:
		return enrich.NewStaticProvider()
	default:
		return nil, nil
	}
}

func normalizer(c config.Config) (normalize.Normalizer, error) {
	policy, err := normalize.ParsePolicy(c.RemediationPolicy)
	if err != nil {
		return normalize.Normalizer{}, err
	}
	return normalize.Normalizer{Policy: policy, DefaultOwner: c.DefaultOwner}, nil
}

// newBackend assembles the in-process enrichment backend from the public feeds.
// Briefs need an OpenAI key; the cache needs an ArangoDB URL.
func newBackend(ctx context.Context, c config.Config, log *zap.Logger) (*backend.Service, *database.EnrichmentCache, error) {
	svc := &backend.Service{
		NVD: feeds.NewNVDClient(feeds.NVDConfig{
			APIKey:            c.NvdAPIKey,
			RateLimitRequests: c.RateLimitRequests,
			RateLimitPeriod:   time.Duration(c.RateLimitPeriodSec) * time.Second,
			MaxRetries:        c.MaxRetries,
			Timeout:           feedTimeout,
		}, log),
		EPSS:    feeds.NewEPSSClient(feedTimeout),
		KEV:     feeds.NewKEVCatalog(feedTimeout),
		OSV:     feeds.NewOSVClient(feedTimeout),
		Workers: c.MaxConcurrentFetches,
		Logger:  log,
	}

	if c.OpenAIAPIKey != "" {
		svc.Briefs = backend.NewOpenAIBriefs(c.OpenAIAPIKey, c.OpenAIModel)
		log.Info("AI briefs enabled", zap.String("model", c.OpenAIModel))
	}

	var cache *database.EnrichmentCache
	if c.ArangoURL != "" {
		db, err := database.Connect(ctx, database.Options{
			URL:      c.ArangoURL,
			User:     c.ArangoUser,
			Password: c.ArangoPass,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		cache = database.NewEnrichmentCache(db, c.CacheTTL(), log)
		svc.Cache = cache
		log.Info("Enrichment cache enabled", zap.Duration("ttl", c.CacheTTL()))
	}

	return svc, cache, nil
}
