// Package backend implements the enrichment service behind POST /enrich. Each
// identifier is looked up in NVD, EPSS, KEV and OSV; any source that fails simply
// leaves its fields empty.
package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ortelius/cve-triage/internal/feeds"
	"github.com/ortelius/cve-triage/model"
	"github.com/ortelius/cve-triage/util"
	"go.uber.org/zap"
)

// Service enriches items with a bounded pool of workers. Nil sources are skipped.
type Service struct {
	NVD     NVDSource
	EPSS    EPSSSource
	KEV     KEVSource
	OSV     OSVSource
	Briefs  BriefWriter
	Cache   Cache
	Workers int
	Logger  *zap.Logger

	now func() time.Time
}

type job struct {
	index int
	item  model.Item
}

// Enrich returns one row per item in request order
func (s *Service) Enrich(ctx context.Context, items []model.Item) ([]model.Row, error) {
	logger := s.logger()
	rows := make([]model.Row, len(items))
	if len(items) == 0 {
		return rows, nil
	}

	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range jobs {
				rows[j.index] = BuildRow(j.item, s.facts(ctx, j.item.CveID))
			}
			logger.Debug("Enrichment worker finished", zap.Int("worker", id))
		}(w)
	}

	var cancelled error
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case jobs <- job{index: i, item: it}:
		case <-ctx.Done():
			cancelled = ctx.Err()
		}
		if cancelled != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}

	logger.Info("Enriched identifiers", zap.Int("count", len(items)), zap.Int("workers", workers))
	return rows, nil
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// facts gathers everything known about cveID, reading through the cache
func (s *Service) facts(ctx context.Context, cveID string) Facts {
	logger := s.logger().With(zap.String("cve", cveID))

	if s.Cache != nil {
		f, ok, err := s.Cache.Get(ctx, cveID)
		if err != nil {
			logger.Warn("Cache read failed", zap.Error(err))
		} else if ok {
			return f
		}
	}

	f := Facts{CveID: cveID, FetchedAt: s.clock()}
	complete := true

	if s.NVD != nil {
		rec, err := s.NVD.Lookup(ctx, cveID)
		switch {
		case err == nil:
			f.Summary = rec.Summary
			f.CVSS = rec.CVSS
			f.Vector = rec.Vector
			f.References = rec.References
			f.PatchURL = rec.PatchURL
		case errors.Is(err, feeds.ErrNotFound):
			logger.Debug("No NVD record")
		default:
			complete = false
			logger.Warn("NVD lookup failed", zap.Error(err))
		}
	}

	if s.EPSS != nil {
		score, err := s.EPSS.Score(ctx, cveID)
		if err != nil {
			complete = false
			logger.Warn("EPSS lookup failed", zap.Error(err))
		}
		f.EPSS = score
	}

	if s.KEV != nil {
		listed, err := s.KEV.Contains(ctx, cveID)
		if err != nil {
			complete = false
			logger.Warn("KEV lookup failed", zap.Error(err))
		}
		f.KEV = listed
	}

	if s.OSV != nil {
		rec, err := s.OSV.Lookup(ctx, cveID)
		switch {
		case err == nil:
			f.Summary = util.FirstNonEmpty(f.Summary, rec.Summary)
			if len(f.References) == 0 {
				f.References = rec.References
			}
			f.Product = rec.Product
			f.Version = rec.Version
		case errors.Is(err, feeds.ErrNotFound):
			logger.Debug("No OSV record")
		default:
			logger.Warn("OSV lookup failed", zap.Error(err))
		}
	}

	if s.Briefs != nil && f.Summary != "" {
		brief, err := s.Briefs.Brief(ctx, f)
		if err != nil {
			logger.Warn("Brief generation failed", zap.Error(err))
		}
		f.Brief = brief
	}

	// partial results are served but not cached
	if s.Cache != nil && complete {
		if err := s.Cache.Put(ctx, f); err != nil {
			logger.Warn("Cache write failed", zap.Error(err))
		}
	}
	return f
}
