package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ortelius/cve-triage/model"
)

// Context columns copied onto items when a CSV carries them
const (
	ProductColumn = "product"
	VersionColumn = "version"
	AssetColumn   = "asset"
)

// ErrNoIdentifiers is returned when no non-empty identifier survives extraction
var ErrNoIdentifiers = errors.New("no CVE identifiers found")

// MissingColumnError is returned when the CSV header lacks the identifier column
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("CSV is missing the required %q column", e.Column)
}

// IdentifierSet is an ordered collection of distinct, non-empty identifiers
type IdentifierSet []string

// add appends id when it is not blank and not already in seen
func (s IdentifierSet) add(id string, seen map[string]bool) IdentifierSet {
	id = strings.TrimSpace(id)
	if id == "" || seen[id] {
		return s
	}
	seen[id] = true
	return append(s, id)
}

// ParseText builds the identifier set from newline separated text. Lines are trimmed,
// blanks dropped and duplicates removed; first appearance decides order.
func ParseText(text string) IdentifierSet {
	set := IdentifierSet{}
	seen := make(map[string]bool)
	for _, line := range splitLines(text) {
		set = set.add(line, seen)
	}
	return set
}

// ExtractIdentifiers pulls column out of every record, trimmed and de-duplicated
func ExtractIdentifiers(headers []string, records []Record, column string) (IdentifierSet, error) {
	items, err := ExtractItems(headers, records, column)
	if err != nil {
		return nil, err
	}
	set := make(IdentifierSet, 0, len(items))
	for _, it := range items {
		set = append(set, it.CveID)
	}
	return set, nil
}

// ExtractItems is ExtractIdentifiers plus the product/version/asset context of the
// first row carrying each identifier. headers may be nil when only records are known,
// in which case the column check looks at the first record.
func ExtractItems(headers []string, records []Record, column string) ([]model.Item, error) {
	if !hasColumn(headers, records, column) {
		return nil, &MissingColumnError{Column: column}
	}

	seen := make(map[string]bool)
	var items []model.Item
	for _, rec := range records {
		id := strings.TrimSpace(rec[column])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, model.Item{
			CveID:   id,
			Product: rec[ProductColumn],
			Version: rec[VersionColumn],
			Asset:   rec[AssetColumn],
		})
	}

	if len(items) == 0 {
		return nil, ErrNoIdentifiers
	}
	return items, nil
}

// HasContext reports whether any item carries product, version or asset data
func HasContext(items []model.Item) bool {
	for _, it := range items {
		if it.Product != "" || it.Version != "" || it.Asset != "" {
			return true
		}
	}
	return false
}

func hasColumn(headers []string, records []Record, column string) bool {
	if headers != nil {
		for _, h := range headers {
			if h == column {
				return true
			}
		}
		return false
	}
	if len(records) == 0 {
		return true
	}
	_, ok := records[0][column]
	return ok
}
