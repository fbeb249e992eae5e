package enrich

import (
	"context"
	"testing"

	"github.com/ortelius/cve-triage/model"
)

func TestStaticProviderKnownIdentifier(t *testing.T) {
	p, err := NewStaticProvider()
	if err != nil {
		t.Fatalf("loading demo table: %v", err)
	}

	rows, err := p.Enrich(context.Background(), []model.Item{{CveID: "cve-2021-44228", Asset: "web-01"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}

	row := rows[0]
	if row.CveID != "cve-2021-44228" {
		t.Errorf("identifier should be echoed as submitted, got %q", row.CveID)
	}
	if !row.KEV() || row.CVSSBase != model.NewScore(10) {
		t.Errorf("unexpected scores %+v", row)
	}
	if row.BriefDescription == "" || row.RemediationLinks == "" {
		t.Errorf("demo row should carry brief and links: %+v", row)
	}
	if row.SuggestedTicketTitle != "[cve-2021-44228] Remediate on web-01" {
		t.Errorf("unexpected ticket title %q", row.SuggestedTicketTitle)
	}
	if row.PriorityScore != model.NewScore(1.378) {
		t.Errorf("unexpected priority %v", row.PriorityScore)
	}
}

func TestStaticProviderUnknownIdentifier(t *testing.T) {
	p, err := ParseStaticTable([]byte("CVE-1:\n  cvss: 5.0\n"))
	if err != nil {
		t.Fatal(err)
	}

	rows, err := p.Enrich(context.Background(), []model.Item{{CveID: "CVE-404", Product: "thing"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].AffectedProduct != "thing" || rows[0].CVSSBase.Valid {
		t.Errorf("unexpected placeholder row %+v", rows)
	}
}

func TestParseStaticTableRejectsGarbage(t *testing.T) {
	if _, err := ParseStaticTable([]byte("- just\n- a list\n")); err == nil {
		t.Fatal("expected error for non-map table")
	}
}
