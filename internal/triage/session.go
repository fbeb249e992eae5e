// Package triage holds the submit flow and the current result set of a triage session:
// identifiers in, one enrichment call, normalized rows out.
package triage

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ortelius/cve-triage/internal/config"
	"github.com/ortelius/cve-triage/internal/enrich"
	"github.com/ortelius/cve-triage/internal/ingest"
	"github.com/ortelius/cve-triage/internal/normalize"
	"github.com/ortelius/cve-triage/model"
	"go.uber.org/zap"
)

// Input is one submit action. When CSV is non-blank it is used and Text is ignored.
type Input struct {
	Text  string `json:"text"`
	CSV   string `json:"csv"`
	Owner string `json:"owner"`
}

// Publisher announces completed enrichments
type Publisher interface {
	PublishCompleted(ctx context.Context, sessionID string, rows []model.Row) error
}

// Options configures a Session. A nil Provider means no enrichment endpoint is
// configured and every submit fails validation.
type Options struct {
	Provider         enrich.Provider
	Normalizer       normalize.Normalizer
	IdentifierColumn string
	Publisher        Publisher
	Logger           *zap.Logger
}

// Session owns the displayed result set of one user
type Session struct {
	id   string
	opts Options

	loading atomic.Bool

	mu   sync.RWMutex
	rows []model.Row
}

// NewSession creates an empty session
func NewSession(id string, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if strings.TrimSpace(opts.IdentifierColumn) == "" {
		opts.IdentifierColumn = "cve_id"
	}
	return &Session{id: id, opts: opts, rows: []model.Row{}}
}

// ID is the opaque session identifier
func (s *Session) ID() string { return s.id }

// Loading reports whether a submit is in flight
func (s *Session) Loading() bool { return s.loading.Load() }

// Submit collects identifiers from in, enriches them in a single call and replaces the
// result set. On any error the previous result set is kept.
func (s *Session) Submit(ctx context.Context, in Input) ([]model.Row, error) {
	if !s.loading.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.loading.Store(false)

	items, err := s.collect(in)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	if s.opts.Provider == nil {
		return nil, &ValidationError{Err: config.ErrNoEndpoint}
	}

	rows, err := s.opts.Provider.Enrich(ctx, items)
	if err != nil {
		s.opts.Logger.Error("Enrichment request failed",
			zap.String("session", s.id),
			zap.Int("identifiers", len(items)),
			zap.Error(err))
		return nil, &TransportError{Err: err}
	}

	rows = s.opts.Normalizer.Normalize(rows, in.Owner)

	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()

	s.opts.Logger.Info("Enrichment completed",
		zap.String("session", s.id),
		zap.Int("identifiers", len(items)),
		zap.Int("rows", len(rows)))

	if s.opts.Publisher != nil {
		if err := s.opts.Publisher.PublishCompleted(ctx, s.id, rows); err != nil {
			s.opts.Logger.Warn("Failed to publish enrichment event", zap.String("session", s.id), zap.Error(err))
		}
	}

	return cloneRows(rows), nil
}

func (s *Session) collect(in Input) ([]model.Item, error) {
	if strings.TrimSpace(in.CSV) != "" {
		return ingest.ExtractItems(ingest.Headers(in.CSV), ingest.ParseCSV(in.CSV), s.opts.IdentifierColumn)
	}

	ids := ingest.ParseText(in.Text)
	if len(ids) == 0 {
		return nil, ingest.ErrNoIdentifiers
	}
	return model.ItemsFromIDs(ids), nil
}

// Rows returns a copy of the current result set
func (s *Session) Rows() []model.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRows(s.rows)
}

// Reset clears the result set
func (s *Session) Reset() {
	s.mu.Lock()
	s.rows = []model.Row{}
	s.mu.Unlock()
}

func cloneRows(rows []model.Row) []model.Row {
	out := make([]model.Row, len(rows))
	copy(out, rows)
	return out
}
