// Package enrich contains the providers that turn submitted items into enrichment rows:
// the HTTP client for the enrichment API and a static demo table.
package enrich

import (
	"context"

	"github.com/ortelius/cve-triage/model"
)

// Provider returns enrichment rows for a batch of items.
// Cardinality of the result is not guaranteed to match the input.
type Provider interface {
	Enrich(ctx context.Context, items []model.Item) ([]model.Row, error)
}

// ProviderFunc adapts a plain function to the Provider interface
type ProviderFunc func(ctx context.Context, items []model.Item) ([]model.Row, error)

// Enrich calls f
func (f ProviderFunc) Enrich(ctx context.Context, items []model.Item) ([]model.Row, error) {
	return f(ctx, items)
}
