package profile

import (
	"strings"

	"github.com/mwtools/docpipe/internal/assembler"
	"github.com/mwtools/docpipe/internal/classifier"
	"github.com/mwtools/docpipe/internal/compose"
	"github.com/mwtools/docpipe/internal/derive"
	"github.com/mwtools/docpipe/internal/document"
	"github.com/mwtools/docpipe/internal/locator"
	"github.com/mwtools/docpipe/internal/match"
	"github.com/mwtools/docpipe/internal/reconcile"
	"github.com/mwtools/docpipe/internal/refdata"
)

// DellPreAlert is the single Dell layout: a shipment pre-alert invoice whose
// lines are checked against the pre-alert master workbook.
const DellPreAlert document.Variant = "pre_alert"

// Dell returns the profile for Dell pre-alert invoices. Every line item is
// joined against the master workbook by item code; unmatched rows and price
// mismatches are flagged for the operations team rather than dropped.
func Dell() Profile {
	return Profile{
		Name: "dell",
		Fields: []locator.FieldSpec{
			{Name: "invoice_number", Synonyms: []string{"Invoice No", "Invoice Number"}},
			{Name: "date", Synonyms: []string{"Invoice Date", "Date"}},
			{Name: "po_number", Synonyms: []string{"Your Ref / PO No", "PO Number", "Customer PO"}},
			{Name: "ship_to", Synonyms: []string{"Ship To", "Deliver To"}, MaxLineOffset: 2},
			{Name: "total", Synonyms: []string{"Invoice Total", "Total Amount"}, LastMatchWins: true},
		},
		Table: assembler.Config{
			Columns: []assembler.ColumnSpec{
				{Field: assembler.FieldCode, Synonyms: []string{"Item No", "Item Number"}, Required: true},
				{Field: assembler.FieldDescription, Synonyms: []string{"Description"}, Required: true},
				{Field: assembler.FieldQuantity, Synonyms: []string{"Quantity", "Qty"}, Numeric: true, Required: true},
				{Field: assembler.FieldUnitPrice, Synonyms: []string{"Unit Price", "Price"}, Numeric: true, Required: true},
				{Field: assembler.FieldAmount, Synonyms: []string{"Amount", "Extended Amount"}, Numeric: true},
			},
			SkipWhenEmpty: assembler.FieldCode,
			SkipMarkers:   []string{"subtotal", "total", "vat", "freight"},
		},
		Variants: []document.Variant{DellPreAlert},
		Rules: []classifier.Rule{
			{Variant: DellPreAlert, When: classifier.AnyOf(
				classifier.TextContains("pre-alert"),
				classifier.TextContains("dell"),
			)},
		},
		Derivations: map[document.Variant]derive.Rules{
			DellPreAlert: {},
		},
		Reconciliation: reconcile.Config{
			StatedTotalField: "total",
		},
		Match: &match.Config{KeyField: assembler.FieldCode},
		Reference: &refdata.Config{
			KeyColumn:   "Supplier Item Code",
			PriceColumn: "Unit Price",
			AttrColumns: []string{"Orion Item Code", "Pi Item Desc", "Po Num"},
			// The master workbook carries banner rows; the real header is
			// row 9.
			HeaderRow: 8,
		},
		Schemas: []compose.Schema{
			{
				Name: "pre_alert",
				Columns: []compose.ColumnMap{
					{Column: "PO Number", Source: "fn:po_number"},
					{Column: "Invoice No", Source: "header.invoice_number"},
					{Column: "Item Code", Source: "match.key"},
					{Column: "Orion Item Code", Source: "fn:orion_code"},
					{Column: "Item code as per Dell pdf", Source: "item.code"},
					{Column: "Description", Source: "item.description"},
					{Column: "Quantity", Source: "item.quantity"},
					{Column: "Unit Price", Source: "item.unit_price"},
					{Column: "Amount", Source: "item.amount"},
					{Column: "Match Status", Source: "match.status"},
					{Column: "Master Unit Price", Source: "match.ref_price"},
				},
			},
		},
		Fns: map[string]compose.Fn{
			// Master PO numbers drop the "PO" prefix; the invoice keeps it.
			"po_number": func(h document.HeaderFields, _ document.DerivedRecord, _ *document.MatchOutcome) string {
				po := strings.TrimSpace(h.Get("po_number"))
				return strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(po, "PO"), "po"))
			},
			"orion_code": func(_ document.HeaderFields, _ document.DerivedRecord, out *document.MatchOutcome) string {
				if out == nil {
					return ""
				}
				return out.RefAttrs["Orion Item Code"]
			},
		},
	}
}
