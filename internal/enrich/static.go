package enrich

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/ortelius/cve-triage/model"
	"github.com/ortelius/cve-triage/util"
	"gopkg.in/yaml.v2"
)

//go:embed demo_data.yaml
var demoData []byte

// demoEntry is one canned record of the demo table
type demoEntry struct {
	CVSS        *float64 `yaml:"cvss"`
	EPSS        *float64 `yaml:"epss"`
	KEV         bool     `yaml:"kev"`
	Product     string   `yaml:"product"`
	Version     string   `yaml:"version"`
	Summary     string   `yaml:"summary"`
	Brief       string   `yaml:"brief"`
	Remediation string   `yaml:"remediation"`
	Links       string   `yaml:"links"`
	Patch       string   `yaml:"patch"`
	Workaround  string   `yaml:"workaround"`
	References  []string `yaml:"references"`
}

// StaticProvider answers from a fixed lookup table. It stands in for the live API
// in demo mode and in tests.
type StaticProvider struct {
	entries map[string]demoEntry
}

// NewStaticProvider loads the embedded demo table
func NewStaticProvider() (*StaticProvider, error) {
	return ParseStaticTable(demoData)
}

// ParseStaticTable builds a provider from a YAML table keyed by identifier
func ParseStaticTable(data []byte) (*StaticProvider, error) {
	entries := make(map[string]demoEntry)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing demo table: %w", err)
	}

	normalized := make(map[string]demoEntry, len(entries))
	for id, e := range entries {
		normalized[strings.ToUpper(strings.TrimSpace(id))] = e
	}
	return &StaticProvider{entries: normalized}, nil
}

// Enrich returns one row per item; unknown identifiers get a placeholder row
func (p *StaticProvider) Enrich(ctx context.Context, items []model.Item) ([]model.Row, error) {
	rows := make([]model.Row, 0, len(items))
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e, ok := p.entries[strings.ToUpper(strings.TrimSpace(it.CveID))]
		if !ok {
			rows = append(rows, model.Row{
				CveID:                it.CveID,
				ExploitedInWild:      "No",
				AffectedProduct:      it.Product,
				Version:              it.Version,
				DetectedOnAsset:      it.Asset,
				DescriptionShort:     "No demo data available for this identifier.",
				SuggestedTicketTitle: it.TicketTitle(),
			})
			continue
		}
		rows = append(rows, e.row(it))
	}
	return rows, nil
}

func (e demoEntry) row(it model.Item) model.Row {
	row := model.Row{
		CveID:                it.CveID,
		ExploitedInWild:      "No",
		AffectedProduct:      e.Product,
		Version:              e.Version,
		DetectedOnAsset:      it.Asset,
		DescriptionShort:     e.Summary,
		BriefDescription:     e.Brief,
		RemediationSteps:     e.Remediation,
		RemediationLinks:     e.Links,
		PatchURL:             e.Patch,
		Workaround:           e.Workaround,
		References:           strings.Join(e.References, " | "),
		SuggestedTicketTitle: it.TicketTitle(),
	}
	if e.KEV {
		row.ExploitedInWild = model.FlagYes
	}
	if it.Product != "" {
		row.AffectedProduct = it.Product
	}
	if it.Version != "" {
		row.Version = it.Version
	}
	if e.CVSS != nil {
		row.CVSSBase = model.NewScore(*e.CVSS)
	}
	if e.EPSS != nil {
		row.EPSS = model.NewScore(*e.EPSS)
	}
	row.PriorityScore = model.NewScore(util.PriorityScore(row.CVSSBase.Or(0), row.EPSS.Or(0), row.KEV()))
	row.SuggestedTicketBody = fmt.Sprintf("CVE: %s\nCVSS: %s | EPSS: %s | KEV: %s\nSummary: %s\nRemediation: %s\nPatch: %s",
		row.CveID, row.CVSSBase, row.EPSS, row.ExploitedInWild, row.DescriptionShort, row.RemediationSteps, row.PatchURL)
	return row
}

var _ Provider = (*StaticProvider)(nil)
