// Package ingest turns the two submit inputs (free text and uploaded CSV) into the
// de-duplicated identifier set sent to the enrichment API.
//
// The CSV reader is deliberately minimal: the first line is the header, every other
// line is split on commas, and there is no quote or escape handling. A literal comma
// inside a cell shifts the remaining cells one column to the right, and a short line
// resolves its missing cells to "". Uploads are expected to be simple exports.
package ingest

import "strings"

// Record maps a header name to the cell found in the same position
type Record map[string]string

// ParseCSV splits text into header-keyed records. Blank input yields no records.
// Malformed lines are never rejected.
func ParseCSV(text string) []Record {
	lines := splitLines(text)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return []Record{}
	}

	headers := splitCells(lines[0])
	records := make([]Record, 0, len(lines)-1)

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := splitCells(line)
		rec := make(Record, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				rec[h] = cells[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}

	return records
}

// Headers returns the trimmed header cells of text, or nil for blank input
func Headers(text string) []string {
	lines := splitLines(text)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil
	}
	return splitCells(lines[0])
}

func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func splitCells(line string) []string {
	cells := strings.Split(line, ",")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
