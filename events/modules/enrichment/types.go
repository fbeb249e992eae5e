// Package enrichment defines the Kafka event contract of the enrichment service.
package enrichment

import (
	"time"

	"github.com/ortelius/cve-triage/model"
)

// Event types
const (
	EventRequested = "enrichment.requested"
	EventCompleted = "enrichment.completed"
	schemaVersion  = "v1"
)

// RequestedEvent asks the worker to enrich a batch of items
type RequestedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	RequestID string       `json:"request_id"`
	Items     []model.Item `json:"items"`
}

// CompletedEvent carries the rows of a finished enrichment
type CompletedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	// SessionID is the triage session or request id the rows belong to
	SessionID string      `json:"session_id"`
	Summary   Summary     `json:"summary"`
	Rows      []model.Row `json:"rows"`
}

// Summary is a quick digest of a completed batch
type Summary struct {
	Count       int     `json:"count"`
	KEV         int     `json:"kev"`
	MaxPriority float64 `json:"max_priority"`
}

// Summarize digests rows
func Summarize(rows []model.Row) Summary {
	s := Summary{Count: len(rows)}
	for _, r := range rows {
		if r.KEV() {
			s.KEV++
		}
		if p := r.PriorityScore.Or(0); p > s.MaxPriority {
			s.MaxPriority = p
		}
	}
	return s
}
