package enrichment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ortelius/cve-triage/model"
	"go.uber.org/zap"
)

// Provider enriches a batch of items
type Provider interface {
	Enrich(ctx context.Context, items []model.Item) ([]model.Row, error)
}

// Publisher announces completed batches
type Publisher interface {
	PublishCompleted(ctx context.Context, sessionID string, rows []model.Row) error
}

// HandleRequested processes one enrichment.requested message
func HandleRequested(ctx context.Context, msg []byte, provider Provider, publisher Publisher, logger *zap.Logger) error {
	var event RequestedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("failed to unmarshal RequestedEvent: %w", err)
	}

	req := model.EnrichRequest{Items: event.Items}
	items := req.ResolveItems()
	if event.RequestID == "" || len(items) == 0 {
		return fmt.Errorf("invalid event: missing request_id or items")
	}

	logger.Info("Processing enrichment request", zap.String("request", event.RequestID), zap.Int("items", len(items)))

	rows, err := provider.Enrich(ctx, items)
	if err != nil {
		return fmt.Errorf("enrichment failed for request %s: %w", event.RequestID, err)
	}

	if err := publisher.PublishCompleted(ctx, event.RequestID, rows); err != nil {
		return fmt.Errorf("failed to publish result for request %s: %w", event.RequestID, err)
	}

	logger.Info("Enrichment request completed", zap.String("request", event.RequestID), zap.Int("rows", len(rows)))
	return nil
}
