// Package refdata loads caller-supplied reference/master tables (CSV or
// Excel) into the rows the matcher joins against. Master workbooks often
// carry banner rows above the real header, so the header row position is
// configurable per document family.
package refdata

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/mwtools/docpipe/internal/match"
	"github.com/mwtools/docpipe/pkg/money"
)

// Config describes where the key and price live in the reference table.
type Config struct {
	// KeyColumn is the header of the join-key column. Required.
	KeyColumn string
	// PriceColumn is the header of the unit-price column. Optional; without
	// it every RefRow carries a zero price.
	PriceColumn string
	// AttrColumns are extra headers carried through into RefRow.Attrs.
	AttrColumns []string
	// HeaderRow is the zero-based row index of the header in Excel sheets.
	HeaderRow int
	// Sheet selects the worksheet by name. Empty means the first sheet.
	Sheet string
	// European selects the price-parsing convention.
	European bool
}

// Loader reads reference tables.
type Loader struct {
	logger *slog.Logger
	cfg    Config
}

func New(logger *slog.Logger, cfg Config) *Loader {
	return &Loader{logger: logger, cfg: cfg}
}

// LoadCSV reads a CSV reference table. The header must be the first row.
func (l *Loader) LoadCSV(r io.Reader) ([]match.RefRow, error) {
	maps, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("read reference csv: %w", err)
	}
	var header []string
	if len(maps) > 0 {
		for k := range maps[0] {
			header = append(header, k)
		}
	}
	keyCol, err := l.findColumn(header, l.cfg.KeyColumn)
	if err != nil {
		return nil, err
	}

	rows := make([]match.RefRow, 0, len(maps))
	for i, m := range maps {
		row := l.buildRow(i+2, func(col string) string {
			for k, v := range m {
				if equalHeader(k, col) {
					return v
				}
			}
			return ""
		}, keyCol)
		if row != nil {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

// LoadExcel reads an Excel reference table from the configured sheet,
// treating HeaderRow as the header and everything below it as data.
func (l *Loader) LoadExcel(r io.Reader) ([]match.RefRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open reference workbook: %w", err)
	}
	defer f.Close()

	sheet := l.cfg.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if l.cfg.HeaderRow >= len(grid) {
		return nil, fmt.Errorf("sheet %q has no header row at index %d", sheet, l.cfg.HeaderRow)
	}

	header := grid[l.cfg.HeaderRow]
	keyCol, err := l.findColumn(header, l.cfg.KeyColumn)
	if err != nil {
		return nil, err
	}
	colIdx := func(name string) int {
		for i, h := range header {
			if equalHeader(h, name) {
				return i
			}
		}
		return -1
	}

	var rows []match.RefRow
	for i, cells := range grid[l.cfg.HeaderRow+1:] {
		row := l.buildRow(l.cfg.HeaderRow+i+2, func(col string) string {
			c := colIdx(col)
			if c < 0 || c >= len(cells) {
				return ""
			}
			return cells[c]
		}, keyCol)
		if row != nil {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

// buildRow assembles one RefRow via the cell accessor. Rows with a blank key
// are skipped; unparsable prices skip the row with a warning since a silent
// zero price would misclassify every match against it.
func (l *Loader) buildRow(rowNum int, cell func(string) string, keyCol string) *match.RefRow {
	key := strings.TrimSpace(cell(keyCol))
	if key == "" {
		return nil
	}
	row := match.RefRow{Key: key}
	if l.cfg.PriceColumn != "" {
		raw := strings.TrimSpace(cell(l.cfg.PriceColumn))
		if raw != "" {
			price, err := money.ParseAmount(raw, l.cfg.European)
			if err != nil {
				l.logger.Warn("reference row has unparsable price",
					slog.Int("row", rowNum),
					slog.String("key", key),
					slog.String("raw", raw))
				return nil
			}
			row.Price = price
		}
	}
	for _, attr := range l.cfg.AttrColumns {
		v := strings.TrimSpace(cell(attr))
		if v == "" {
			continue
		}
		if row.Attrs == nil {
			row.Attrs = make(map[string]string)
		}
		row.Attrs[attr] = v
	}
	return &row
}

func (l *Loader) findColumn(header []string, name string) (string, error) {
	for _, h := range header {
		if equalHeader(h, name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("reference table is missing column %q", name)
}

func equalHeader(a, b string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(a) == norm(b)
}
