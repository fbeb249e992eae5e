package triage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ortelius/cve-triage/model"
	"github.com/ortelius/cve-triage/util"
)

// Row tags shown next to each record
const (
	TagKEV   = "KEV"
	TagPatch = "PATCH"
)

// TaggedRow is a result row plus its display tags
type TaggedRow struct {
	model.Row
	Tags []string `json:"tags"`
}

// Tags derives the display tags of a row: KEV, the CVSS severity rating and PATCH
func Tags(r model.Row) []string {
	tags := []string{}
	if r.KEV() {
		tags = append(tags, TagKEV)
	}
	if r.CVSSBase.Valid {
		tags = append(tags, util.GetSeverityRating(r.CVSSBase.Value))
	}
	if strings.TrimSpace(r.PatchURL) != "" {
		tags = append(tags, TagPatch)
	}
	return tags
}

// Tag attaches tags to every row
func Tag(rows []model.Row) []TaggedRow {
	out := make([]TaggedRow, len(rows))
	for i, r := range rows {
		out[i] = TaggedRow{Row: r, Tags: Tags(r)}
	}
	return out
}

// FilterTag keeps rows carrying tag (case-insensitive). An empty tag keeps everything.
func FilterTag(rows []TaggedRow, tag string) []TaggedRow {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return rows
	}
	out := []TaggedRow{}
	for _, r := range rows {
		for _, t := range r.Tags {
			if strings.EqualFold(t, tag) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

type lessFunc func(a, b model.Row) int

func compareScores(a, b model.Score) int {
	// absent scores sort below every real score
	va, vb := a.Or(-1), b.Or(-1)
	switch {
	case va < vb:
		return -1
	case va > vb:
		return 1
	}
	return 0
}

func compareText(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// ecosystem guesses the version scheme of a row from a purl-shaped product
func ecosystem(r model.Row) string {
	if strings.HasPrefix(r.AffectedProduct, "pkg:") {
		if p, err := util.ParsePURL(r.AffectedProduct); err == nil {
			return p.Type
		}
	}
	return ""
}

var sortFields = map[string]lessFunc{
	"cve_id":   func(a, b model.Row) int { return compareText(a.CveID, b.CveID) },
	"cvss":     func(a, b model.Row) int { return compareScores(a.CVSSBase, b.CVSSBase) },
	"epss":     func(a, b model.Row) int { return compareScores(a.EPSS, b.EPSS) },
	"priority": func(a, b model.Row) int { return compareScores(a.PriorityScore, b.PriorityScore) },
	"kev": func(a, b model.Row) int {
		ka, kb := a.KEV(), b.KEV()
		switch {
		case ka == kb:
			return 0
		case kb:
			return -1
		}
		return 1
	},
	"product": func(a, b model.Row) int { return compareText(a.AffectedProduct, b.AffectedProduct) },
	"version": func(a, b model.Row) int {
		return util.CompareVersions(util.FirstNonEmpty(ecosystem(a), ecosystem(b)), a.Version, b.Version)
	},
	"asset": func(a, b model.Row) int { return compareText(a.DetectedOnAsset, b.DetectedOnAsset) },
	"owner": func(a, b model.Row) int { return compareText(a.OwnerSuggested, b.OwnerSuggested) },
}

// column name aliases accepted by Sorted
var sortAliases = map[string]string{
	"cvss_base":         "cvss",
	"priority_score":    "priority",
	"exploited_in_wild": "kev",
	"affected_product":  "product",
	"detected_on_asset": "asset",
	"owner_suggested":   "owner",
}

// SortFields lists the accepted sort keys
func SortFields() []string {
	keys := make([]string, 0, len(sortFields))
	for k := range sortFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sorted returns rows ordered by field. The sort is stable; an empty field keeps
// the backend order.
func Sorted(rows []model.Row, field string, desc bool) ([]model.Row, error) {
	out := cloneRows(rows)
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "" {
		return out, nil
	}
	if alias, ok := sortAliases[field]; ok {
		field = alias
	}
	cmp, ok := sortFields[field]
	if !ok {
		return nil, fmt.Errorf("unknown sort field %q", field)
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

// Sorted orders the session's current rows
func (s *Session) Sorted(field string, desc bool) ([]model.Row, error) {
	return Sorted(s.Rows(), field, desc)
}
