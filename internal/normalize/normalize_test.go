package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ortelius/cve-triage/model"
)

func TestBriefPrecedence(t *testing.T) {
	tests := []struct {
		name string
		row  model.Row
		want string
	}{
		{"ai_brief_wins", model.Row{AIBrief: "x", BriefDescription: "y", DescriptionShort: "z"}, "x"},
		{"legacy_brief", model.Row{BriefDescription: "y", DescriptionShort: "z"}, "y"},
		{"existing_short", model.Row{DescriptionShort: "z"}, "z"},
		{"blank_ai_brief_skipped", model.Row{AIBrief: "  ", BriefDescription: "y"}, "y"},
		{"nothing", model.Row{}, ""},
	}

	n := Normalizer{Policy: LinksOnly}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize([]model.Row{tt.row}, "")
			if got[0].DescriptionShort != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got[0].DescriptionShort)
			}
		})
	}
}

func TestRemediationPolicies(t *testing.T) {
	withLinks := model.Row{RemediationLinks: "https://fix", RemediationSteps: "patch it"}
	withoutLinks := model.Row{RemediationSteps: "patch it"}

	tests := []struct {
		name   string
		policy RemediationPolicy
		row    model.Row
		want   string
	}{
		{"links_only_with_links", LinksOnly, withLinks, "https://fix"},
		{"links_only_drops_legacy_steps", LinksOnly, withoutLinks, ""},
		{"legacy_with_links", LegacyFallback, withLinks, "https://fix"},
		{"legacy_falls_back", LegacyFallback, withoutLinks, "patch it"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalizer{Policy: tt.policy}.Normalize([]model.Row{tt.row}, "")
			if got[0].RemediationSteps != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got[0].RemediationSteps)
			}
		})
	}
}

func TestOwnerOverlay(t *testing.T) {
	tests := []struct {
		name          string
		configured    string
		submitted     string
		recordOwner   string
		expectedOwner string
	}{
		{"default_fills_missing_owner", "", "team@x.com", "", "team@x.com"},
		{"default_overrides_record_owner", "", "team@x.com", "dev@y.com", "team@x.com"},
		{"no_default_keeps_record_owner", "", "", "dev@y.com", "dev@y.com"},
		{"nothing_anywhere", "", "", "", ""},
		{"configured_default_applies", "sec@x.com", "", "dev@y.com", "sec@x.com"},
		{"submitted_beats_configured", "sec@x.com", "team@x.com", "", "team@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalizer{Policy: LinksOnly, DefaultOwner: tt.configured}
			got := n.Normalize([]model.Row{{OwnerSuggested: tt.recordOwner}}, tt.submitted)
			if got[0].OwnerSuggested != tt.expectedOwner {
				t.Errorf("expected %q, got %q", tt.expectedOwner, got[0].OwnerSuggested)
			}
		})
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []model.Row{{CveID: "CVE-1", AIBrief: "x", DescriptionShort: "z", RemediationSteps: "s"}}
	snapshot := append([]model.Row(nil), in...)

	out := Normalizer{Policy: LinksOnly}.Normalize(in, "team@x.com")

	if diff := cmp.Diff(snapshot, in); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
	if out[0].DescriptionShort != "x" || out[0].OwnerSuggested != "team@x.com" {
		t.Errorf("unexpected output %+v", out[0])
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := (Normalizer{}).Normalize(nil, "x"); len(got) != 0 {
		t.Errorf("expected no rows, got %v", got)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(" Legacy "); err != nil || p != LegacyFallback {
		t.Errorf("expected legacy, got %q, %v", p, err)
	}
	if p, err := ParsePolicy(""); err != nil || p != LinksOnly {
		t.Errorf("expected links default, got %q, %v", p, err)
	}
	if _, err := ParsePolicy("nope"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
