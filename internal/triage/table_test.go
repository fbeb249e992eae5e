package triage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ortelius/cve-triage/model"
)

func ids(rows []model.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.CveID
	}
	return out
}

func TestSorted(t *testing.T) {
	rows := []model.Row{
		{CveID: "CVE-A", CVSSBase: model.NewScore(5), Version: "1.10.0", ExploitedInWild: "No"},
		{CveID: "CVE-B", Version: "1.2.0", ExploitedInWild: "Yes"},
		{CveID: "CVE-C", CVSSBase: model.NewScore(9.8), Version: "1.9.3"},
	}

	tests := []struct {
		name  string
		field string
		desc  bool
		want  []string
	}{
		{"unsorted", "", false, []string{"CVE-A", "CVE-B", "CVE-C"}},
		{"cvss_desc", "cvss", true, []string{"CVE-C", "CVE-A", "CVE-B"}},
		{"cvss_column_alias", "CVSS_Base", false, []string{"CVE-B", "CVE-A", "CVE-C"}},
		{"version_semver", "version", false, []string{"CVE-B", "CVE-C", "CVE-A"}},
		{"kev_desc", "kev", true, []string{"CVE-B", "CVE-A", "CVE-C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sorted(rows, tt.field, tt.desc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if ids(rows)[0] != "CVE-A" {
		t.Error("input reordered")
	}
}

func TestSortedUnknownField(t *testing.T) {
	if _, err := Sorted(nil, "colour", false); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestTags(t *testing.T) {
	tests := []struct {
		name string
		row  model.Row
		want []string
	}{
		{"kev_critical_patch", model.Row{ExploitedInWild: "Yes", CVSSBase: model.NewScore(10), PatchURL: "https://p"}, []string{"KEV", "CRITICAL", "PATCH"}},
		{"medium_only", model.Row{ExploitedInWild: "No", CVSSBase: model.NewScore(5.3)}, []string{"MEDIUM"}},
		{"nothing", model.Row{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Tags(tt.row)); diff != "" {
				t.Errorf("tags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterTag(t *testing.T) {
	tagged := Tag([]model.Row{
		{CveID: "CVE-1", ExploitedInWild: "Yes"},
		{CveID: "CVE-2"},
	})
	got := FilterTag(tagged, "kev")
	if len(got) != 1 || got[0].CveID != "CVE-1" {
		t.Errorf("unexpected filter result %v", got)
	}
	if len(FilterTag(tagged, "")) != 2 {
		t.Error("empty tag should keep every row")
	}
}
