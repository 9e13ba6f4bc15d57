package locator

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwtools/docpipe/internal/document"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocate(t *testing.T) {
	fields := []FieldSpec{
		{Name: "invoice_number", Synonyms: []string{"Invoice Number", "Invoice No."}},
		{Name: "date", Synonyms: []string{"Invoice Date", "Date"}, MaxLineOffset: 1},
		{Name: "total", Synonyms: []string{"Total Amount"}, LastMatchWins: true},
	}
	loc := New(testLogger(), fields)

	t.Run("embedded value after label", func(t *testing.T) {
		doc := &document.SourceDocument{Fragments: []document.Fragment{
			{Page: 1, Line: 1, Col: 0, Text: "Invoice Number: INV-2024-001"},
		}}
		got := loc.Locate(doc)
		assert.Equal(t, "INV-2024-001", got.Get("invoice_number"))
	})

	t.Run("value in next fragment on same line", func(t *testing.T) {
		doc := &document.SourceDocument{Fragments: []document.Fragment{
			{Page: 1, Line: 1, Col: 0, Text: "Invoice No."},
			{Page: 1, Line: 1, Col: 1, Text: "INV-77"},
		}}
		got := loc.Locate(doc)
		assert.Equal(t, "INV-77", got.Get("invoice_number"))
	})

	t.Run("value on following line within offset", func(t *testing.T) {
		doc := &document.SourceDocument{Fragments: []document.Fragment{
			{Page: 1, Line: 3, Col: 0, Text: "Invoice Date"},
			{Page: 1, Line: 4, Col: 0, Text: "15-Mar-2024"},
		}}
		got := loc.Locate(doc)
		assert.Equal(t, "15-Mar-2024", got.Get("date"))
	})

	t.Run("value beyond offset is not taken", func(t *testing.T) {
		doc := &document.SourceDocument{Fragments: []document.Fragment{
			{Page: 1, Line: 3, Col: 0, Text: "Invoice Date"},
			{Page: 1, Line: 6, Col: 0, Text: "15-Mar-2024"},
		}}
		got := loc.Locate(doc)
		assert.False(t, got.Found("date"))
	})

	t.Run("first match wins by default", func(t *testing.T) {
		doc := &document.SourceDocument{Fragments: []document.Fragment{
			{Page: 1, Line: 1, Col: 0, Text: "Invoice Number: FIRST"},
			{Page: 2, Line: 1, Col: 0, Text: "Invoice Number: SECOND"},
		}}
		got := loc.Locate(doc)
		assert.Equal(t, "FIRST", got.Get("invoice_number"))
	})

	t.Run("last match wins when configured", func(t *testing.T) {
		doc := &document.SourceDocument{Fragments: []document.Fragment{
			{Page: 1, Line: 40, Col: 0, Text: "Total Amount: 500.00"},
			{Page: 3, Line: 40, Col: 0, Text: "Total Amount: 1500.00"},
		}}
		got := loc.Locate(doc)
		assert.Equal(t, "1500.00", got.Get("total"))
	})

	t.Run("case and whitespace normalized", func(t *testing.T) {
		doc := &document.SourceDocument{Fragments: []document.Fragment{
			{Page: 1, Line: 1, Col: 0, Text: "  INVOICE   NUMBER :  A-9 "},
		}}
		got := loc.Locate(doc)
		assert.Equal(t, "A-9", got.Get("invoice_number"))
	})

	t.Run("label prefix of longer word does not match", func(t *testing.T) {
		doc := &document.SourceDocument{Fragments: []document.Fragment{
			{Page: 1, Line: 1, Col: 0, Text: "Dated shipment notice"},
		}}
		got := loc.Locate(doc)
		assert.False(t, got.Found("date"))
	})
}

func TestLocateSuggestions(t *testing.T) {
	loc := New(testLogger(), []FieldSpec{
		{Name: "invoice_number", Synonyms: []string{"Invoice Number"}},
	})
	doc := &document.SourceDocument{Fragments: []document.Fragment{
		{Page: 1, Line: 1, Col: 0, Text: "Invoce Nmber"},
		{Page: 1, Line: 2, Col: 0, Text: "Completely unrelated text block"},
	}}

	got := loc.Locate(doc)
	f, ok := got["invoice_number"]
	require.True(t, ok)
	assert.False(t, f.Found)
	assert.Contains(t, f.Suggestions, "Invoce Nmber")
	assert.NotContains(t, f.Suggestions, "Completely unrelated text block")
}

func TestLocateFragmentOrderIndependent(t *testing.T) {
	loc := New(testLogger(), []FieldSpec{
		{Name: "po", Synonyms: []string{"PO Number"}},
	})
	doc := &document.SourceDocument{Fragments: []document.Fragment{
		{Page: 2, Line: 1, Col: 0, Text: "PO Number: LATER"},
		{Page: 1, Line: 5, Col: 0, Text: "PO Number: EARLIER"},
	}}

	got := loc.Locate(doc)
	assert.Equal(t, "EARLIER", got.Get("po"))
}
