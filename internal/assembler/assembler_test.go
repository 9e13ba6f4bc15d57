package assembler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwtools/docpipe/internal/document"
)

func testConfig() Config {
	return Config{
		Columns: []ColumnSpec{
			{Field: FieldCode, Synonyms: []string{"Part Number", "Item Code"}, Required: true},
			{Field: FieldDescription, Synonyms: []string{"Description"}, Required: true},
			{Field: FieldQuantity, Synonyms: []string{"Qty", "Quantity"}, Numeric: true},
			{Field: FieldAmount, Synonyms: []string{"Amount", "Total Price"}, Numeric: true, Required: true},
		},
		SkipWhenEmpty: FieldCode,
		SkipMarkers:   []string{"subtotal", "total", "vat"},
	}
}

func newAssembler(t *testing.T, cfg Config) *Assembler {
	t.Helper()
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func header() []string {
	return []string{"Part Number", "Description", "Qty", "Amount"}
}

func dataRow(i int) []string {
	return []string{fmt.Sprintf("P-%03d", i), fmt.Sprintf("Widget %d", i), "1", "10.00"}
}

func TestAssembleMultiPage(t *testing.T) {
	// Header appears only on page 1; pages 2 and 3 continue without it.
	pageRows := func(n int, withHeader bool) [][]string {
		var rows [][]string
		if withHeader {
			rows = append(rows, header())
		}
		for i := 0; i < n; i++ {
			rows = append(rows, dataRow(len(rows)+i))
		}
		return rows
	}
	doc := &document.SourceDocument{Tables: []document.TableRegion{
		{Page: 1, Cells: pageRows(10, true)},
		{Page: 2, Cells: pageRows(8, false)},
		{Page: 3, Cells: pageRows(6, false)},
	}}

	res, err := newAssembler(t, testConfig()).Assemble(doc)
	require.NoError(t, err)
	require.Len(t, res.Items, 24)
	for i := 1; i < len(res.Items); i++ {
		assert.Greater(t, res.Items[i].Row, res.Items[i-1].Row, "row order must be preserved")
	}
}

func TestAssembleHeaderRepeatsOnContinuation(t *testing.T) {
	doc := &document.SourceDocument{Tables: []document.TableRegion{
		{Page: 1, Cells: [][]string{header(), dataRow(1)}},
		{Page: 2, Cells: [][]string{header(), dataRow(2)}},
	}}

	res, err := newAssembler(t, testConfig()).Assemble(doc)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestAssembleTableNotFound(t *testing.T) {
	doc := &document.SourceDocument{Tables: []document.TableRegion{
		{Page: 1, Cells: [][]string{{"Ship To", "Bill To"}, {"ACME", "ACME"}}},
	}}

	_, err := newAssembler(t, testConfig()).Assemble(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, document.ErrTableNotFound))
}

func TestAssembleHeaderBelowTitleRows(t *testing.T) {
	doc := &document.SourceDocument{Tables: []document.TableRegion{
		{Page: 1, Cells: [][]string{
			{"Pre-Alert Shipment Detail"},
			{""},
			header(),
			dataRow(1),
		}},
	}}

	res, err := newAssembler(t, testConfig()).Assemble(doc)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestAssembleRowScopedErrors(t *testing.T) {
	doc := &document.SourceDocument{Tables: []document.TableRegion{
		{Page: 1, Cells: [][]string{
			header(),
			{"P-001", "Good", "1", "10.00"},
			{"P-002", "Bad amount", "1", "ten dollars"},
			{"P-003", "Also good", "2", "20.00"},
		}},
	}}

	res, err := newAssembler(t, testConfig()).Assemble(doc)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Equal(t, FieldAmount, res.Errors[0].Column)
}

func TestAssembleSkipsSummaryAndBlankRows(t *testing.T) {
	doc := &document.SourceDocument{Tables: []document.TableRegion{
		{Page: 1, Cells: [][]string{
			header(),
			{"P-001", "Widget", "1", "10.00"},
			{"", "", "", ""},
			{"", "Subtotal", "", "10.00"},
			{"", "VAT 5%", "", "0.50"},
			{"P-002", "Gadget", "1", "5.00"},
		}},
	}}

	res, err := newAssembler(t, testConfig()).Assemble(doc)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, "blank row", res.Skipped[0].Reason)
}

func TestAssembleHeaderPunctuationTolerance(t *testing.T) {
	doc := &document.SourceDocument{Tables: []document.TableRegion{
		{Page: 1, Cells: [][]string{
			{"PART NUMBER:", "Description", "QTY.", "Total Price ($)"},
			{"P-1", "Widget", "3", "1,234.56"},
		}},
	}}

	res, err := newAssembler(t, testConfig()).Assemble(doc)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "1234.56", res.Items[0].Amount.String())
	assert.Equal(t, "3", res.Items[0].Quantity.String())
}

func TestAssembleEuropeanAmounts(t *testing.T) {
	cfg := testConfig()
	cfg.European = true
	doc := &document.SourceDocument{Tables: []document.TableRegion{
		{Page: 1, Cells: [][]string{
			header(),
			{"P-1", "Widget", "1", "1.234,56"},
		}},
	}}

	res, err := newAssembler(t, cfg).Assemble(doc)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "1234.56", res.Items[0].Amount.String())
}

func TestAssembleExtraColumnsIgnored(t *testing.T) {
	doc := &document.SourceDocument{Tables: []document.TableRegion{
		{Page: 1, Cells: [][]string{
			{"Part Number", "Origin", "Description", "Qty", "Amount", "Notes"},
			{"P-1", "CN", "Widget", "1", "10.00", "fragile"},
		}},
	}}

	res, err := newAssembler(t, testConfig()).Assemble(doc)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "P-1", res.Items[0].Code)
	assert.Equal(t, "Widget", res.Items[0].Description)
}
