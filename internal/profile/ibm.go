package profile

import (
	"github.com/shopspring/decimal"

	"github.com/mwtools/docpipe/internal/assembler"
	"github.com/mwtools/docpipe/internal/classifier"
	"github.com/mwtools/docpipe/internal/compose"
	"github.com/mwtools/docpipe/internal/derive"
	"github.com/mwtools/docpipe/internal/document"
	"github.com/mwtools/docpipe/internal/locator"
	"github.com/mwtools/docpipe/internal/reconcile"
)

// IBM quotation layouts.
const (
	IBMPartsQuotation        document.Variant = "parts_quotation"
	IBMSubscriptionQuotation document.Variant = "subscription_quotation"
)

// IBM returns the profile for IBM quotations. The two layouts share header
// fields but differ structurally: parts quotations carry coverage dates and
// SVP discount columns, subscription quotations describe SaaS terms. Neither
// marker alone is decisive, so detection scores several of them.
func IBM() Profile {
	currency := &derive.CurrencySpec{
		Field:   "country",
		Default: "USD",
		Currencies: map[string]string{
			"UNITED ARAB EMIRATES": "AED",
			"SAUDI ARABIA":         "SAR",
			"OMAN":                 "OMR",
			"KUWAIT":               "KWD",
		},
	}

	shared := derive.Rules{
		Currency:  currency,
		Narration: &derive.NarrationSpec{Template: "IBM QUOTE#{quote_number} - {description}"},
	}

	return Profile{
		Name: "ibm",
		Fields: []locator.FieldSpec{
			{Name: "quote_number", Synonyms: []string{"Quote Number", "Quotation Number", "Quote #"}},
			{Name: "date", Synonyms: []string{"Quote Date", "Date"}},
			{Name: "country", Synonyms: []string{"Country", "Customer Country"}},
			{Name: "customer", Synonyms: []string{"Customer Name", "Customer"}, MaxLineOffset: 1},
			{Name: "total", Synonyms: []string{"Total Commit Value", "Grand Total", "Total"}, LastMatchWins: true},
		},
		Table: assembler.Config{
			Columns: []assembler.ColumnSpec{
				{Field: assembler.FieldCode, Synonyms: []string{"Part Number", "Part#", "Subscription Part#"}, Required: true},
				{Field: assembler.FieldDescription, Synonyms: []string{"Part Description", "Description"}, Required: true},
				{Field: assembler.FieldQuantity, Synonyms: []string{"Qty", "Quantity"}, Numeric: true},
				{Field: assembler.FieldUnitPrice, Synonyms: []string{"Bid Unit SVP", "Unit Price"}, Numeric: true},
				{Field: assembler.FieldAmount, Synonyms: []string{"Bid Ext SVP", "Extended Price", "Total Price"}, Numeric: true, Required: true},
				{Field: "coverage_start", Synonyms: []string{"Coverage Start", "Coverage Start Date"}},
				{Field: "coverage_end", Synonyms: []string{"Coverage End", "Coverage End Date"}},
			},
			SkipWhenEmpty: assembler.FieldCode,
			SkipMarkers:   []string{"subtotal", "total", "grand total"},
		},
		Variants: []document.Variant{IBMPartsQuotation, IBMSubscriptionQuotation},
		Rules: []classifier.Rule{
			{Variant: IBMSubscriptionQuotation, When: classifier.MarkerScore(3,
				"software as a service",
				"subscription part#", "subscription part:",
				"service level agreement",
				"subscription length",
				"billing: upfront", "billing: annual",
				"total commit value",
				"renewal type:",
			)},
			{Variant: IBMPartsQuotation, When: classifier.MarkerScore(2,
				"parts information",
				"coverage start", "coverage end",
				"entitled unit svp", "entitled ext svp",
				"disc %",
			)},
			// Weak single-marker fallbacks, in the same preference order.
			{Variant: IBMSubscriptionQuotation, When: classifier.AnyOf(
				classifier.TextContains("software as a service"),
				classifier.TextContains("subscription part"),
			)},
			{Variant: IBMPartsQuotation, When: classifier.AnyOf(
				classifier.TextContains("parts information"),
				classifier.TextContains("coverage start"),
			)},
		},
		Derivations: map[document.Variant]derive.Rules{
			IBMPartsQuotation:        shared,
			IBMSubscriptionQuotation: shared,
		},
		Reconciliation: reconcile.Config{
			StatedTotalField: "total",
			Tolerance:        decimal.RequireFromString("0.01"),
		},
		Schemas: []compose.Schema{
			{
				Name: "quote_lines",
				Columns: []compose.ColumnMap{
					{Column: "Quote Number", Source: "header.quote_number"},
					{Column: "Customer", Source: "header.customer"},
					{Column: "Part Number", Source: "item.code"},
					{Column: "Description", Source: "item.description"},
					{Column: "Quantity", Source: "item.quantity"},
					{Column: "Unit Price", Source: "item.unit_price"},
					{Column: "Extended Price", Source: "item.amount"},
					{Column: "Currency", Source: "derived.currency"},
					{Column: "Coverage Start", Source: "item.coverage_start"},
					{Column: "Coverage End", Source: "item.coverage_end"},
					{Column: "Narration", Source: "derived.narration"},
				},
			},
		},
	}
}
