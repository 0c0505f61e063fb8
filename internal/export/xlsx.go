package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "SNAPSHOTS"
	positionsSheet = "POSITIONS"
)

// XLSXWriter writes valuation rows to a local Excel workbook, one file
// per run.
type XLSXWriter struct {
	dir string
}

// NewXLSXWriter creates a writer targeting the given directory.
func NewXLSXWriter(dir string) *XLSXWriter {
	return &XLSXWriter{dir: dir}
}

func (w *XLSXWriter) Write(_ context.Context, summaries [][]any, positions [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, summarySheet, summaries); err != nil {
		return err
	}
	if err := writeSheet(f, positionsSheet, positions); err != nil {
		return err
	}

	// Drop the default sheet created by excelize.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	path := filepath.Join(w.dir, "folio_snapshots.xlsx")
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("writing sheet %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}
