// Package assembler selects the line-item table among candidate regions by
// header-signature matching and converts its rows into typed LineItems.
// Numeric parse failures are row-scoped; the document keeps its good rows.
package assembler

import (
	"log/slog"
	"strings"

	"github.com/mwtools/docpipe/internal/document"
	"github.com/mwtools/docpipe/pkg/money"
)

// Canonical typed fields a column can bind to. Any other field name lands in
// LineItem.Extra.
const (
	FieldCode        = "code"
	FieldDescription = "description"
	FieldQuantity    = "quantity"
	FieldUnitPrice   = "unit_price"
	FieldAmount      = "amount"
)

// ColumnSpec binds one table column to a LineItem field.
type ColumnSpec struct {
	Field string
	// Synonyms are accepted header strings, compared case-insensitively with
	// punctuation stripped.
	Synonyms []string
	// Numeric columns are parsed as amounts; failures produce a RowError.
	Numeric bool
	// Required columns form the header signature. A region whose header row
	// is missing any required column is not the line-item table.
	Required bool
}

// Config describes the expected table shape for one document family.
type Config struct {
	Columns []ColumnSpec
	// European selects dot-thousand/comma-decimal amount parsing.
	European bool
	// SkipWhenEmpty names the field whose blank cell marks a non-data row
	// (blank line or subtotal spacer). Such rows are skipped, not errored.
	SkipWhenEmpty string
	// SkipMarkers are cell prefixes that mark summary rows ("subtotal",
	// "total", "vat"). Compared against the row's first non-empty cell.
	SkipMarkers []string
}

// Assembler builds the LineItem sequence for one document.
type Assembler struct {
	logger *slog.Logger
	cfg    Config
}

func New(logger *slog.Logger, cfg Config) *Assembler {
	return &Assembler{logger: logger, cfg: cfg}
}

// Result carries the assembled rows plus everything row-scoped that went
// wrong along the way.
type Result struct {
	Items   []document.LineItem
	Skipped []document.SkippedRow
	Errors  []document.RowError
	// Signature is the matched header row, normalized. The classifier
	// consumes it for signature-based variant rules.
	Signature []string
}

// Assemble finds the table and converts its rows. The table may span several
// regions; continuation regions repeat the header or omit it, and their rows
// are appended contiguously. Returns document.ErrTableNotFound when no region
// matches the signature.
func (a *Assembler) Assemble(doc *document.SourceDocument) (*Result, error) {
	var (
		res     Result
		colIdx  map[string]int
		numRow  int
		started bool
	)

	for _, region := range doc.Tables {
		if !started {
			headerAt, idx := a.findHeader(region.Cells)
			if idx == nil {
				continue
			}
			started = true
			colIdx = idx
			res.Signature = normalizeRow(region.Cells[headerAt])
			a.logger.Debug("line-item table found",
				slog.String("document_id", doc.ID),
				slog.Int("page", region.Page))
			a.consumeRows(region.Cells[headerAt+1:], colIdx, &numRow, &res)
			continue
		}

		rows := region.Cells
		// A continuation page may repeat the header row.
		if headerAt, idx := a.findHeader(rows); idx != nil {
			rows = rows[headerAt+1:]
		}
		a.consumeRows(rows, colIdx, &numRow, &res)
	}

	if !started {
		return nil, document.ErrTableNotFound
	}
	return &res, nil
}

// findHeader scans a region for the first row containing every required
// column synonym. It returns the row index and the field-to-column mapping.
func (a *Assembler) findHeader(rows [][]string) (int, map[string]int) {
	for r, row := range rows {
		idx := a.matchHeader(row)
		if idx != nil {
			return r, idx
		}
	}
	return 0, nil
}

func (a *Assembler) matchHeader(row []string) map[string]int {
	norm := normalizeRow(row)
	idx := make(map[string]int, len(a.cfg.Columns))
	for _, col := range a.cfg.Columns {
		found := -1
		for c, cell := range norm {
			if matchesAny(cell, col.Synonyms) {
				found = c
				break
			}
		}
		if found == -1 {
			if col.Required {
				return nil
			}
			continue
		}
		idx[col.Field] = found
	}
	return idx
}

func (a *Assembler) consumeRows(rows [][]string, colIdx map[string]int, numRow *int, res *Result) {
	for _, row := range rows {
		*numRow++
		if blankRow(row) {
			res.Skipped = append(res.Skipped, document.SkippedRow{Row: *numRow, Reason: "blank row"})
			continue
		}
		if marker := a.summaryMarker(row); marker != "" {
			res.Skipped = append(res.Skipped, document.SkippedRow{Row: *numRow, Reason: "summary row: " + marker})
			continue
		}
		if a.cfg.SkipWhenEmpty != "" {
			if c, ok := colIdx[a.cfg.SkipWhenEmpty]; ok && (c >= len(row) || strings.TrimSpace(row[c]) == "") {
				res.Skipped = append(res.Skipped, document.SkippedRow{Row: *numRow, Reason: "empty " + a.cfg.SkipWhenEmpty + " column"})
				continue
			}
		}

		item, rowErr := a.buildItem(*numRow, row, colIdx)
		if rowErr != nil {
			res.Errors = append(res.Errors, *rowErr)
			continue
		}
		res.Items = append(res.Items, item)
	}
}

func (a *Assembler) buildItem(rowNum int, row []string, colIdx map[string]int) (document.LineItem, *document.RowError) {
	item := document.LineItem{Row: rowNum}
	for _, col := range a.cfg.Columns {
		c, ok := colIdx[col.Field]
		if !ok {
			continue
		}
		var raw string
		if c < len(row) {
			raw = strings.TrimSpace(row[c])
		}
		if col.Numeric {
			if raw == "" {
				continue
			}
			d, err := money.ParseAmount(raw, a.cfg.European)
			if err != nil {
				return item, &document.RowError{Row: rowNum, Column: col.Field, Raw: raw, Message: "unparsable amount"}
			}
			switch col.Field {
			case FieldQuantity:
				item.Quantity = d
			case FieldUnitPrice:
				item.UnitPrice = d
			case FieldAmount:
				item.Amount = d
			default:
				if item.Extra == nil {
					item.Extra = make(map[string]string)
				}
				item.Extra[col.Field] = d.String()
			}
			continue
		}
		switch col.Field {
		case FieldCode:
			item.Code = raw
		case FieldDescription:
			item.Description = raw
		default:
			if item.Extra == nil {
				item.Extra = make(map[string]string)
			}
			item.Extra[col.Field] = raw
		}
	}
	return item, nil
}

func (a *Assembler) summaryMarker(row []string) string {
	for _, cell := range row {
		v := strings.ToLower(strings.TrimSpace(cell))
		if v == "" {
			continue
		}
		for _, m := range a.cfg.SkipMarkers {
			if strings.HasPrefix(v, strings.ToLower(m)) {
				return m
			}
		}
		return ""
	}
	return ""
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func matchesAny(normCell string, synonyms []string) bool {
	for _, s := range synonyms {
		if normCell == normalizeHeader(s) {
			return true
		}
	}
	return false
}

func normalizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = normalizeHeader(cell)
	}
	return out
}

// normalizeHeader lowercases a header cell and strips punctuation so "Unit
// Price ($)" and "unit price" compare equal.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
