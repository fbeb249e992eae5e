// Package model - API types for the enrichment endpoint request/response
package model

import (
	"fmt"
	"strings"
)

// EnrichRequest is the body of POST /enrich.
// The triage client sends Cves and, when the CSV carried asset context, Items.
type EnrichRequest struct {
	Cves  []string `json:"cves,omitempty"`
	Items []Item   `json:"items,omitempty"`
}

// EnrichResponse is the body returned by POST /enrich
type EnrichResponse struct {
	Rows []Row `json:"rows"`
}

// ResolveItems merges Items and Cves into a single ordered item list.
// Items come first, the first item per identifier wins; bare identifiers not already
// covered by an item are appended.
func (r EnrichRequest) ResolveItems() []Item {
	seen := make(map[string]bool)
	out := make([]Item, 0, len(r.Items)+len(r.Cves))

	for _, it := range r.Items {
		it.CveID = strings.TrimSpace(it.CveID)
		if it.CveID == "" || seen[it.CveID] {
			continue
		}
		seen[it.CveID] = true
		out = append(out, it)
	}

	for _, id := range r.Cves {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, Item{CveID: id})
	}

	return out
}

// ItemsFromIDs wraps bare identifiers as items
func ItemsFromIDs(ids []string) []Item {
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, Item{CveID: id})
	}
	return items
}

// TicketTitle is the suggested remediation ticket title for the item
func (it Item) TicketTitle() string {
	asset := it.Asset
	if asset == "" {
		asset = "target asset"
	}
	return fmt.Sprintf("[%s] Remediate on %s", it.CveID, asset)
}
