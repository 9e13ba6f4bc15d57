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

// Cloud distributor invoice layouts.
const (
	CloudInvoice    document.Variant = "cloud_invoice"
	CloudCreditNote document.Variant = "cloud_credit_note"
)

// Cloud returns the profile for cloud distributor invoices. Tax treatment,
// currency and exchange rate all key off the document location code, item
// codes come from description keywords, and invoice numbers are versioned per
// LPO/end-user split.
func Cloud() Profile {
	currency := &derive.CurrencySpec{
		Field:   "document_location",
		Default: "AED",
		Currencies: map[string]string{
			"TC000": "AED",
			"OM000": "OMR",
			"UJ000": "USD",
			"KA000": "SAR",
			// WT000 documents carry no tax treatment or currency of their own.
			"WT000": "",
		},
	}
	tax := &derive.TaxSpec{
		Field: "document_location",
		Rates: map[string]decimal.Decimal{
			"TC000": decimal.NewFromInt(5),
			"OM000": decimal.NewFromInt(5),
			"UJ000": decimal.Zero,
			"KA000": decimal.NewFromInt(15),
			"WT000": decimal.Zero,
		},
		Codes: map[string]string{
			"TC000": "SLVAT5",
			"OM000": "SLVAT5",
			"UJ000": "SEVAT0",
			"KA000": "SLVAT15",
			"WT000": "",
		},
	}

	// Exchange rates to USD and the tax basis ride along as location codes.
	locations := &derive.EntitySpec{
		Field: "document_location",
		Codes: map[string]map[string]string{
			"UJ000": {"exchange_rate": "1", "tax_basis": "R"},
			"TC000": {"exchange_rate": "0.272294078", "tax_basis": "R"},
			"QA000": {"exchange_rate": "0.274725274725", "tax_basis": ""},
			"OM000": {"exchange_rate": "2.60078023407", "tax_basis": "R"},
			"KA000": {"exchange_rate": "0.2666666666", "tax_basis": "R"},
			"WT000": {"exchange_rate": "", "tax_basis": ""},
		},
		Policy: derive.FlagOnMiss,
	}

	itemCodes := []derive.KeywordRule{
		{Keywords: []string{"windows server", "window server", "windows 11 pro"}, Code: "MSPER-CNS"},
		{Keywords: []string{"ms-azr", "azure subscription"}, Code: "MSAZ-CNS"},
		{Keywords: []string{"google workspace"}, Code: "GL-WSP-CNS"},
		{Keywords: []string{
			"m365", "microsoft 365", "office 365", "exchange online",
			"microsoft defender for endpoint p1", "power bi", "planner",
			"project plan", "power automate premium", "visio", "dynamics 365",
		}, Code: "MS-CNS"},
		{Keywords: []string{"acronis"}, Code: "AS-CNS"},
	}

	rules := derive.Rules{
		Currency:  currency,
		Tax:       tax,
		Entity:    locations,
		ItemCodes: itemCodes,
		Narration: &derive.NarrationSpec{Template: "{invoice_number} - {end_user} - {description}"},
	}

	versioner := NewVersioner()

	return Profile{
		Name: "cloud",
		Fields: []locator.FieldSpec{
			{Name: "invoice_number", Synonyms: []string{"Invoice No.", "Invoice Number"}},
			{Name: "date", Synonyms: []string{"Invoice Date", "Date"}},
			{Name: "lpo_number", Synonyms: []string{"LPO Number", "LPO No.", "Customer LPO"}},
			{Name: "end_user", Synonyms: []string{"End User", "End Customer"}, MaxLineOffset: 1},
			{Name: "document_location", Synonyms: []string{"Document Location", "Doc Location"}},
			{Name: "total", Synonyms: []string{"Gross Total", "Total"}, LastMatchWins: true},
		},
		Table: assembler.Config{
			Columns: []assembler.ColumnSpec{
				{Field: assembler.FieldCode, Synonyms: []string{"Item No.", "Item"}},
				{Field: assembler.FieldDescription, Synonyms: []string{"Item Name", "Description"}, Required: true},
				{Field: assembler.FieldQuantity, Synonyms: []string{"Qty", "Quantity"}, Numeric: true},
				{Field: assembler.FieldUnitPrice, Synonyms: []string{"Rate Per Qty", "Unit Price"}, Numeric: true},
				{Field: assembler.FieldAmount, Synonyms: []string{"Gross Value", "Amount"}, Numeric: true, Required: true},
			},
			SkipWhenEmpty: assembler.FieldDescription,
			SkipMarkers:   []string{"subtotal", "total", "vat"},
		},
		Variants: []document.Variant{CloudInvoice, CloudCreditNote},
		Rules: []classifier.Rule{
			{Variant: CloudCreditNote, When: classifier.TextContains("credit note")},
			{Variant: CloudInvoice, When: classifier.HeaderFound("invoice_number")},
		},
		Derivations: map[document.Variant]derive.Rules{
			CloudInvoice:    rules,
			CloudCreditNote: rules,
		},
		Reconciliation: reconcile.Config{
			StatedTotalField: "total",
		},
		Schemas: []compose.Schema{
			{
				Name: "cloud_upload",
				Columns: []compose.ColumnMap{
					{Column: "Invoice No.", Source: "fn:versioned_invoice"},
					{Column: "Date", Source: "header.date"},
					{Column: "LPO Number", Source: "header.lpo_number"},
					{Column: "End User", Source: "header.end_user"},
					{Column: "Document Location", Source: "header.document_location"},
					{Column: "Item Code", Source: "derived.item_code"},
					{Column: "Item Name", Source: "item.description"},
					{Column: "Quantity", Source: "item.quantity"},
					{Column: "Rate Per Qty", Source: "item.unit_price"},
					{Column: "Gross Value", Source: "derived.amount"},
					{Column: "Currency Code", Source: "derived.currency"},
					{Column: "Exchange Rate", Source: "derived.codes.exchange_rate"},
					{Column: "ITEM Tax Code", Source: "derived.tax_code"},
					{Column: "ITEM Tax Value", Source: "derived.tax"},
					{Column: "ITEM Tax Basis", Source: "derived.codes.tax_basis"},
				},
			},
			{
				Name: "version_summary",
				Columns: []compose.ColumnMap{
					{Column: "Invoice No.", Source: "header.invoice_number"},
					{Column: "LPO Number", Source: "header.lpo_number"},
					{Column: "End User", Source: "header.end_user"},
					{Column: "Versioned Invoice No.", Source: "fn:versioned_invoice"},
				},
			},
		},
		Fns: map[string]compose.Fn{
			"versioned_invoice": func(h document.HeaderFields, _ document.DerivedRecord, _ *document.MatchOutcome) string {
				return versioner.Version(h.Get("invoice_number"), h.Get("lpo_number"), h.Get("end_user"))
			},
		},
	}
}
