// Package export writes enrichment rows to an XLSX workbook.
//
// The workbook template is prepared lazily on first use and shared by the whole
// process. A template that fails to prepare is remembered, so every later export
// reports the same *LoadError instead of retrying.
package export

import (
	"fmt"
	"io"
	"sync"

	"github.com/ortelius/cve-triage/model"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single worksheet in every export
const SheetName = "CVE Enrichment"

// DefaultFilename is the attachment name used when none is configured
const DefaultFilename = "cve_enrichment.xlsx"

// ContentType is the MIME type of the produced workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter writes rows as a spreadsheet
type Exporter interface {
	Write(w io.Writer, rows []model.Row) error
}

// LoadError reports that the spreadsheet writer could not be initialised
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("spreadsheet writer unavailable: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Template holds the workbook layout applied to each export
type Template struct {
	Sheet       string
	Columns     []model.Column
	HeaderStyle *excelize.Style
	ColWidth    float64
}

// Loader prepares a Template
type Loader func() (*Template, error)

// Service is an Exporter backed by excelize
type Service struct {
	load Loader

	once    sync.Once
	tmpl    *Template
	loadErr error
}

// New returns a Service that prepares its template with load on first use
func New(load Loader) *Service {
	return &Service{load: load}
}

var (
	defaultOnce    sync.Once
	defaultService *Service
)

// Default returns the process-wide exporter
func Default() *Service {
	defaultOnce.Do(func() {
		defaultService = New(DefaultTemplate)
	})
	return defaultService
}

// DefaultTemplate is the standard single-sheet layout covering every row field
func DefaultTemplate() (*Template, error) {
	if len(model.Columns) == 0 {
		return nil, fmt.Errorf("no columns defined")
	}
	return &Template{
		Sheet:   SheetName,
		Columns: model.Columns,
		HeaderStyle: &excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
		},
		ColWidth: 20,
	}, nil
}

func (s *Service) template() (*Template, error) {
	s.once.Do(func() {
		if s.load == nil {
			s.loadErr = &LoadError{Err: fmt.Errorf("no template loader")}
			return
		}
		tmpl, err := s.load()
		if err != nil {
			s.loadErr = &LoadError{Err: err}
			return
		}
		s.tmpl = tmpl
	})
	return s.tmpl, s.loadErr
}

// Write renders rows into a workbook and writes it to w.
// An empty row set produces a workbook with only the header row.
func (s *Service) Write(w io.Writer, rows []model.Row) error {
	tmpl, err := s.template()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", tmpl.Sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(tmpl.Columns))
	for i, col := range tmpl.Columns {
		header[i] = col.Name
	}
	if err := f.SetSheetRow(tmpl.Sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(tmpl.Columns))
	if err != nil {
		return fmt.Errorf("failed to resolve column range: %w", err)
	}

	if tmpl.HeaderStyle != nil {
		styleID, err := f.NewStyle(tmpl.HeaderStyle)
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		if err := f.SetCellStyle(tmpl.Sheet, "A1", lastCol+"1", styleID); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	if tmpl.ColWidth > 0 {
		if err := f.SetColWidth(tmpl.Sheet, "A", lastCol, tmpl.ColWidth); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, row := range rows {
		cells := make([]interface{}, len(tmpl.Columns))
		for j, col := range tmpl.Columns {
			cells[j] = cellValue(col, row)
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(tmpl.Sheet, axis, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// cellValue maps scores to numeric cells; absent scores become empty cells
func cellValue(col model.Column, row model.Row) interface{} {
	v := col.Value(row)
	if score, ok := v.(model.Score); ok {
		if !score.Valid {
			return nil
		}
		return score.Value
	}
	return v
}
