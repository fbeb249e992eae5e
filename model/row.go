// Package model defines the data structures shared by the triage surface and the
// enrichment backend: submitted items, enrichment rows and their wire envelopes.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Score is a numeric enrichment field that the backend may send as a number,
// a numeric string, an empty string or null.
type Score struct {
	Value float64
	Valid bool
}

// NewScore returns a valid score holding v
func NewScore(v float64) Score {
	return Score{Value: v, Valid: true}
}

// UnmarshalJSON accepts numbers, numeric strings, "" and null
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Score{}
		return nil
	}

	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*s = Score{}
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", str, err)
		}
		*s = NewScore(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid score %s: %w", string(data), err)
	}
	*s = NewScore(v)
	return nil
}

// MarshalJSON writes the number, or "" for an absent score (the backend's own convention)
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return []byte(`""`), nil
	}
	return json.Marshal(s.Value)
}

// String renders the score for text output
func (s Score) String() string {
	if !s.Valid {
		return ""
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// Or returns the score value, or def when the score is absent
func (s Score) Or(def float64) float64 {
	if !s.Valid {
		return def
	}
	return s.Value
}

// Flag is a yes/no enrichment field. The backend may send a JSON boolean, a
// "Yes"/"No" string or null; it is always re-encoded as "Yes" or "No".
type Flag string

// Flag values written by this module
const (
	FlagYes Flag = "Yes"
	FlagNo  Flag = "No"
)

// UnmarshalJSON accepts booleans, strings and null
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case bytes.Equal(data, []byte("true")):
		*f = FlagYes
	case bytes.Equal(data, []byte("false")):
		*f = FlagNo
	case data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*f = Flag(strings.TrimSpace(str))
	default:
		return fmt.Errorf("invalid flag %s", string(data))
	}
	return nil
}

// True reports whether the flag is set
func (f Flag) True() bool {
	switch strings.ToLower(strings.TrimSpace(string(f))) {
	case "yes", "true", "1":
		return true
	}
	return false
}

// Item is a single submitted identifier plus the optional asset context a CSV row can carry
type Item struct {
	CveID   string `json:"cve_id"`
	Product string `json:"product,omitempty"`
	Version string `json:"version,omitempty"`
	Asset   string `json:"asset,omitempty"`
}

// Row is one enrichment record as returned by the enrichment backend.
// Field names follow the backend's wire names so rows round-trip unchanged.
type Row struct {
	CveID                string `json:"CVE_ID"`
	CVSSBase             Score  `json:"CVSS_Base"`
	EPSS                 Score  `json:"EPSS"`
	ExploitedInWild      Flag   `json:"Exploited_in_Wild"`
	AffectedProduct      string `json:"Affected_Product"`
	Version              string `json:"Version"`
	DetectedOnAsset      string `json:"Detected_On_Asset"`
	DescriptionShort     string `json:"Description_Short"`
	AIBrief              string `json:"AI_Brief,omitempty"`
	BriefDescription     string `json:"Brief_Description,omitempty"`
	RemediationSteps     string `json:"Remediation_Steps"`
	RemediationLinks     string `json:"Remediation_Links,omitempty"`
	PatchURL             string `json:"Patch_URL"`
	Workaround           string `json:"Workaround"`
	References           string `json:"References"`
	OwnerSuggested       string `json:"Owner_Suggested"`
	PriorityScore        Score  `json:"Priority_Score"`
	SuggestedTicketTitle string `json:"Suggested_Ticket_Title"`
	SuggestedTicketBody  string `json:"Suggested_Ticket_Body"`
}

// KEV reports whether the row is flagged as exploited in the wild
func (r Row) KEV() bool {
	return r.ExploitedInWild.True()
}

// Column describes one exported/displayed field of a Row
type Column struct {
	Name   string
	Number bool
	Value  func(Row) interface{}
}

// Columns lists every Row field in display order
var Columns = []Column{
	{Name: "CVE_ID", Value: func(r Row) interface{} { return r.CveID }},
	{Name: "CVSS_Base", Number: true, Value: func(r Row) interface{} { return r.CVSSBase }},
	{Name: "EPSS", Number: true, Value: func(r Row) interface{} { return r.EPSS }},
	{Name: "Exploited_in_Wild", Value: func(r Row) interface{} { return string(r.ExploitedInWild) }},
	{Name: "Affected_Product", Value: func(r Row) interface{} { return r.AffectedProduct }},
	{Name: "Version", Value: func(r Row) interface{} { return r.Version }},
	{Name: "Detected_On_Asset", Value: func(r Row) interface{} { return r.DetectedOnAsset }},
	{Name: "Description_Short", Value: func(r Row) interface{} { return r.DescriptionShort }},
	{Name: "AI_Brief", Value: func(r Row) interface{} { return r.AIBrief }},
	{Name: "Brief_Description", Value: func(r Row) interface{} { return r.BriefDescription }},
	{Name: "Remediation_Steps", Value: func(r Row) interface{} { return r.RemediationSteps }},
	{Name: "Remediation_Links", Value: func(r Row) interface{} { return r.RemediationLinks }},
	{Name: "Patch_URL", Value: func(r Row) interface{} { return r.PatchURL }},
	{Name: "Workaround", Value: func(r Row) interface{} { return r.Workaround }},
	{Name: "References", Value: func(r Row) interface{} { return r.References }},
	{Name: "Owner_Suggested", Value: func(r Row) interface{} { return r.OwnerSuggested }},
	{Name: "Priority_Score", Number: true, Value: func(r Row) interface{} { return r.PriorityScore }},
	{Name: "Suggested_Ticket_Title", Value: func(r Row) interface{} { return r.SuggestedTicketTitle }},
	{Name: "Suggested_Ticket_Body", Value: func(r Row) interface{} { return r.SuggestedTicketBody }},
}
