// Package writer renders an OutputBundle to spreadsheet files. It is the
// thin boundary between the pipeline's structured tables and the file
// formats finance teams upload: one workbook with a sheet per table, or one
// CSV per table.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/mwtools/docpipe/internal/document"
)

// Excel writes bundles as .xlsx workbooks.
type Excel struct {
	logger *slog.Logger
}

func NewExcel(logger *slog.Logger) *Excel {
	return &Excel{logger: logger}
}

// Write renders every table in the bundle as its own worksheet, header row
// first, and streams the workbook to out.
func (w *Excel) Write(bundle *document.OutputBundle, out io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, table := range bundle.Tables {
		sheet := table.Name
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("add sheet %q: %w", sheet, err)
			}
		}

		header := make([]any, len(table.Columns))
		for c, col := range table.Columns {
			header[c] = col
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header of %q: %w", sheet, err)
		}
		for r, row := range table.Rows {
			cells := make([]any, len(row))
			for c, v := range row {
				cells[c] = v
			}
			addr, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return fmt.Errorf("cell address in %q: %w", sheet, err)
			}
			if err := f.SetSheetRow(sheet, addr, &cells); err != nil {
				return fmt.Errorf("write row %d of %q: %w", r+1, sheet, err)
			}
		}
		w.logger.Debug("sheet written",
			slog.String("sheet", sheet),
			slog.Int("rows", len(table.Rows)))
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteCSV renders one table as CSV, header row first.
func WriteCSV(table *document.Table, out io.Writer) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("write header of %q: %w", table.Name, err)
	}
	for i, row := range table.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+1, table.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
