package backend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ortelius/cve-triage/model"
	"github.com/ortelius/cve-triage/util"
)

const (
	maxReferences   = 6
	refSeparator    = " | "
	remediationText = "Apply vendor patch/update per advisory; if delayed, add compensating controls (WAF, restrict exposure, monitor)."
	kevWorkaround   = "Restrict access/virtual patching; enhanced monitoring"
)

// BuildRow turns the facts about a CVE plus the submitted item into an enrichment row
func BuildRow(it model.Item, f Facts) model.Row {
	kev := model.FlagNo
	if f.KEV {
		kev = model.FlagYes
	}

	epss := f.EPSS
	if epss.Valid {
		epss = model.NewScore(math.Round(epss.Value*10000) / 10000)
	}

	refs := f.References
	if len(refs) > maxReferences {
		refs = refs[:maxReferences]
	}
	references := strings.Join(refs, refSeparator)

	row := model.Row{
		CveID:                it.CveID,
		CVSSBase:             f.CVSS,
		EPSS:                 epss,
		ExploitedInWild:      kev,
		AffectedProduct:      util.FirstNonEmpty(it.Product, f.Product),
		Version:              util.FirstNonEmpty(it.Version, f.Version),
		DetectedOnAsset:      it.Asset,
		DescriptionShort:     f.Summary,
		AIBrief:              f.Brief,
		RemediationSteps:     remediationText,
		RemediationLinks:     remediationLinks(f.PatchURL, refs),
		PatchURL:             f.PatchURL,
		References:           references,
		PriorityScore:        model.NewScore(util.PriorityScore(f.CVSS.Or(0), f.EPSS.Or(0), f.KEV)),
		SuggestedTicketTitle: it.TicketTitle(),
	}
	if f.KEV {
		row.Workaround = kevWorkaround
	}

	row.SuggestedTicketBody = fmt.Sprintf(
		"CVE: %s\nCVSS: %s | EPSS: %s | KEV: %s\nSummary: %s\nRemediation: Apply vendor patch/update.\nPatch: %s\nRefs: %s",
		it.CveID, f.CVSS, strconv.FormatFloat(f.EPSS.Or(0), 'f', -1, 64), kev, f.Summary, f.PatchURL, references)

	return row
}

// remediationLinks lists the patch URL first, then the references, without repeats
func remediationLinks(patch string, refs []string) string {
	seen := make(map[string]bool)
	var links []string
	for _, u := range append([]string{patch}, refs...) {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		links = append(links, u)
	}
	return strings.Join(links, refSeparator)
}
