// Package normalize maps enrichment rows onto the fields the triage table displays.
package normalize

import (
	"fmt"
	"strings"

	"github.com/ortelius/cve-triage/model"
	"github.com/ortelius/cve-triage/util"
)

// RemediationPolicy selects how Remediation_Steps is derived
type RemediationPolicy string

const (
	// LinksOnly copies Remediation_Links into Remediation_Steps unconditionally
	LinksOnly RemediationPolicy = "links"
	// LegacyFallback keeps the backend's Remediation_Steps when no links are present
	LegacyFallback RemediationPolicy = "legacy"
)

// ParsePolicy validates a configured policy name
func ParsePolicy(name string) (RemediationPolicy, error) {
	switch p := RemediationPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case LinksOnly, LegacyFallback:
		return p, nil
	case "":
		return LinksOnly, nil
	default:
		return "", fmt.Errorf("unknown remediation policy %q", name)
	}
}

// Normalizer rewrites rows for display. It is safe for concurrent use.
type Normalizer struct {
	Policy       RemediationPolicy
	DefaultOwner string
}

// Normalize returns new rows; the input slice and its rows are left untouched.
// owner is the per-submission default owner and takes precedence over DefaultOwner.
func (n Normalizer) Normalize(rows []model.Row, owner string) []model.Row {
	out := make([]model.Row, len(rows))
	defaultOwner := util.FirstNonEmpty(strings.TrimSpace(owner), strings.TrimSpace(n.DefaultOwner))
	for i, r := range rows {
		out[i] = n.row(r, defaultOwner)
	}
	return out
}

func (n Normalizer) row(r model.Row, defaultOwner string) model.Row {
	r.DescriptionShort = util.FirstNonEmpty(r.AIBrief, r.BriefDescription, r.DescriptionShort)

	switch n.Policy {
	case LegacyFallback:
		r.RemediationSteps = util.FirstNonEmpty(r.RemediationLinks, r.RemediationSteps)
	default:
		r.RemediationSteps = r.RemediationLinks
	}

	// a user-supplied default owner wins over the backend suggestion
	if defaultOwner != "" {
		r.OwnerSuggested = defaultOwner
	}
	return r
}
