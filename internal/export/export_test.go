package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ortelius/cve-triage/model"
	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteRows(t *testing.T) {
	rows := []model.Row{
		{CveID: "CVE-2021-44228", CVSSBase: model.NewScore(10), EPSS: model.NewScore(0.9447), ExploitedInWild: "Yes"},
		{CveID: "CVE-2023-4863"},
	}

	var buf bytes.Buffer
	if err := New(DefaultTemplate).Write(&buf, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := openWorkbook(t, buf.Bytes())
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("unexpected sheets %v", sheets)
	}

	got, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(got))
	}
	if got[0][0] != "CVE_ID" || len(got[0]) != len(model.Columns) {
		t.Errorf("unexpected header %v", got[0])
	}
	if got[1][0] != "CVE-2021-44228" || got[2][0] != "CVE-2023-4863" {
		t.Errorf("row order not preserved: %v / %v", got[1][0], got[2][0])
	}

	cellType, err := f.GetCellType(SheetName, "B2")
	if err != nil {
		t.Fatal(err)
	}
	if cellType != excelize.CellTypeNumber && cellType != excelize.CellTypeUnset {
		t.Errorf("expected numeric CVSS cell, got type %v", cellType)
	}
	if v, _ := f.GetCellValue(SheetName, "B2"); v != "10" {
		t.Errorf("expected CVSS 10, got %q", v)
	}
	if v, _ := f.GetCellValue(SheetName, "B3"); v != "" {
		t.Errorf("expected empty cell for absent score, got %q", v)
	}
}

func TestWriteEmptyProducesHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := New(DefaultTemplate).Write(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := openWorkbook(t, buf.Bytes()).GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only a header row, got %d rows", len(got))
	}
}

func TestLoadFailureIsMemoised(t *testing.T) {
	calls := 0
	svc := New(func() (*Template, error) {
		calls++
		return nil, errors.New("broken")
	})

	for i := 0; i < 2; i++ {
		err := svc.Write(&bytes.Buffer{}, nil)
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("expected LoadError, got %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected loader to run once, ran %d times", calls)
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Error("expected a single process-wide exporter")
	}
}
