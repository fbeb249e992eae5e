package rows

import (
	"context"
	"errors"

	"github.com/ortelius/cve-triage/internal/triage"
	"github.com/ortelius/cve-triage/model"
)

type sessionKey struct{}

// ErrNoSession is returned when a query runs without a triage session in context
var ErrNoSession = errors.New("no triage session")

// WithSession attaches the caller's triage session to ctx
func WithSession(ctx context.Context, s *triage.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func sessionFrom(ctx context.Context) (*triage.Session, error) {
	if ctx == nil {
		return nil, ErrNoSession
	}
	s, ok := ctx.Value(sessionKey{}).(*triage.Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

func score(s model.Score) interface{} {
	if !s.Valid {
		return nil
	}
	return s.Value
}

func toMap(r triage.TaggedRow) map[string]interface{} {
	return map[string]interface{}{
		"cve_id":                 r.CveID,
		"cvss_base":              score(r.CVSSBase),
		"epss":                   score(r.EPSS),
		"exploited_in_wild":      string(r.ExploitedInWild),
		"affected_product":       r.AffectedProduct,
		"version":                r.Version,
		"detected_on_asset":      r.DetectedOnAsset,
		"description_short":      r.DescriptionShort,
		"remediation_steps":      r.RemediationSteps,
		"patch_url":              r.PatchURL,
		"workaround":             r.Workaround,
		"references":             r.References,
		"owner_suggested":        r.OwnerSuggested,
		"priority_score":         score(r.PriorityScore),
		"suggested_ticket_title": r.SuggestedTicketTitle,
		"suggested_ticket_body":  r.SuggestedTicketBody,
		"tags":                   r.Tags,
	}
}

// ResolveRows returns the session's rows sorted and filtered
func ResolveRows(ctx context.Context, sort string, desc bool, tag string) ([]map[string]interface{}, error) {
	s, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	sorted, err := s.Sorted(sort, desc)
	if err != nil {
		return nil, err
	}

	tagged := triage.FilterTag(triage.Tag(sorted), tag)
	out := make([]map[string]interface{}, 0, len(tagged))
	for _, r := range tagged {
		out = append(out, toMap(r))
	}
	return out, nil
}

// ResolveSummary aggregates the session's rows
func ResolveSummary(ctx context.Context) (map[string]interface{}, error) {
	s, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	var kev, patch int
	maxPriority := 0.0
	rows := s.Rows()
	for _, r := range rows {
		if r.KEV() {
			kev++
		}
		if r.PatchURL != "" {
			patch++
		}
		if p := r.PriorityScore.Or(0); p > maxPriority {
			maxPriority = p
		}
	}

	return map[string]interface{}{
		"total":        len(rows),
		"kev_count":    kev,
		"patch_count":  patch,
		"max_priority": maxPriority,
		"loading":      s.Loading(),
	}, nil
}
