package match

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwtools/docpipe/internal/document"
)

func newMatcher(cfg Config) *Matcher {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func lineItem(row int, code, unitPrice string) document.LineItem {
	return document.LineItem{
		Row:       row,
		Code:      code,
		UnitPrice: decimal.RequireFromString(unitPrice),
	}
}

func refRow(key, price string) RefRow {
	return RefRow{Key: key, Price: decimal.RequireFromString(price)}
}

func TestMatch(t *testing.T) {
	m := newMatcher(Config{KeyField: "code"})
	ref := []RefRow{refRow("A", "10.00"), refRow("B", "20.00")}
	items := []document.LineItem{
		lineItem(1, "A", "10.00"),
		lineItem(2, "B", "25.00"),
		lineItem(3, "C", "5.00"),
	}

	got := m.Match("d1", items, ref)
	require.Len(t, got, 3)
	assert.Equal(t, document.Matched, got[0].Status)
	assert.Equal(t, document.PriceMismatch, got[1].Status)
	assert.Equal(t, "20", got[1].RefPrice.String())
	assert.Equal(t, document.Unmatched, got[2].Status)

	// outcomes preserve source row order
	for i, out := range got {
		assert.Equal(t, items[i].Row, out.Row)
	}
}

func TestMatchKeyNormalization(t *testing.T) {
	m := newMatcher(Config{KeyField: "code"})
	ref := []RefRow{refRow("ab-123", "10.00")}

	got := m.Match("d2", []document.LineItem{lineItem(1, "  AB-123 ", "10.00")}, ref)
	require.Len(t, got, 1)
	assert.Equal(t, document.Matched, got[0].Status)
}

func TestMatchNoFuzzyJoin(t *testing.T) {
	m := newMatcher(Config{KeyField: "code"})
	ref := []RefRow{refRow("AB-1234", "10.00")}

	// a near-identical key must stay unmatched
	got := m.Match("d3", []document.LineItem{lineItem(1, "AB-1235", "10.00")}, ref)
	require.Len(t, got, 1)
	assert.Equal(t, document.Unmatched, got[0].Status)
}

func TestMatchPriceTolerance(t *testing.T) {
	m := newMatcher(Config{KeyField: "code", PriceTolerance: decimal.RequireFromString("0.01")})
	ref := []RefRow{refRow("A", "10.00")}

	got := m.Match("d4", []document.LineItem{lineItem(1, "A", "10.01")}, ref)
	assert.Equal(t, document.Matched, got[0].Status)

	got = m.Match("d4", []document.LineItem{lineItem(1, "A", "10.02")}, ref)
	assert.Equal(t, document.PriceMismatch, got[0].Status)
}

func TestMatchExtraColumnKey(t *testing.T) {
	m := newMatcher(Config{KeyField: "po_number"})
	ref := []RefRow{{Key: "PO-77", Price: decimal.RequireFromString("9.50"), Attrs: map[string]string{"dc": "JAFZA"}}}
	item := document.LineItem{
		Row:       1,
		UnitPrice: decimal.RequireFromString("9.50"),
		Extra:     map[string]string{"po_number": "PO-77"},
	}

	got := m.Match("d5", []document.LineItem{item}, ref)
	require.Len(t, got, 1)
	assert.Equal(t, document.Matched, got[0].Status)
	assert.Equal(t, "JAFZA", got[0].RefAttrs["dc"])
}
