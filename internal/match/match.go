// Package match joins extracted line items against a caller-supplied
// reference table by exact key. Each item is classified as matched,
// price_mismatch or unmatched; the classification is attached alongside the
// original rows so a review view can show all three categories together.
package match

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mwtools/docpipe/internal/document"
)

// RefRow is one reference/master-data row.
type RefRow struct {
	Key   string
	Price decimal.Decimal
	Attrs map[string]string
}

// Config controls the join.
type Config struct {
	// KeyField selects the line-item field used as join key: "code",
	// "description", or an extra column name.
	KeyField string
	// PriceTolerance is the maximum absolute unit-price difference that
	// still counts as matched. Zero means prices must be equal.
	PriceTolerance decimal.Decimal
}

// Matcher classifies line items against a reference table.
type Matcher struct {
	logger *slog.Logger
	cfg    Config
}

func New(logger *slog.Logger, cfg Config) *Matcher {
	return &Matcher{logger: logger, cfg: cfg}
}

// Match classifies every item, preserving source order. Keys are compared
// after whitespace/case normalization but never fuzzily; a key absent from
// the reference is unmatched no matter how close it looks.
func (m *Matcher) Match(docID string, items []document.LineItem, ref []RefRow) []document.MatchOutcome {
	index := make(map[string]RefRow, len(ref))
	for _, r := range ref {
		index[normKey(r.Key)] = r
	}

	outcomes := make([]document.MatchOutcome, 0, len(items))
	for _, item := range items {
		key := m.itemKey(item)
		out := document.MatchOutcome{Row: item.Row, Key: key}
		r, ok := index[normKey(key)]
		switch {
		case !ok:
			out.Status = document.Unmatched
		case item.UnitPrice.Sub(r.Price).Abs().GreaterThan(m.cfg.PriceTolerance):
			out.Status = document.PriceMismatch
			out.RefPrice = r.Price
			out.RefAttrs = r.Attrs
		default:
			out.Status = document.Matched
			out.RefPrice = r.Price
			out.RefAttrs = r.Attrs
		}
		outcomes = append(outcomes, out)
	}

	m.logger.Debug("reference match complete",
		slog.String("document_id", docID),
		slog.Int("items", len(items)),
		slog.Int("reference_rows", len(ref)))
	return outcomes
}

func (m *Matcher) itemKey(item document.LineItem) string {
	switch m.cfg.KeyField {
	case "", "code":
		return item.Code
	case "description":
		return item.Description
	default:
		return item.Extra[m.cfg.KeyField]
	}
}

func normKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
