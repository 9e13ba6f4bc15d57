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

// AWS invoice layouts.
const (
	AWSTaxInvoice         document.Variant = "tax_invoice"
	AWSTaxCreditNote      document.Variant = "tax_credit_note"
	AWSCommercialInvoice  document.Variant = "commercial_invoice"
	AWSMarketplaceInvoice document.Variant = "marketplace_invoice"
)

// AWS returns the profile for AWS billing documents: EMEA tax invoices and
// credit notes, US commercial invoices, and marketplace invoices. Amounts
// arrive in USD and are booked in AED at the fixed contract rate.
func AWS() Profile {
	usdToAED := decimal.RequireFromString("3.6725")
	vat := decimal.NewFromInt(5)

	currency := &derive.CurrencySpec{
		Field:      "currency",
		Default:    "AED",
		Currencies: map[string]string{"USD": "AED"},
		Rates:      map[string]decimal.Decimal{"USD": usdToAED},
	}
	tax := &derive.TaxSpec{DefaultRate: vat, DefaultCode: "SLVAT5"}

	derivations := map[document.Variant]derive.Rules{
		AWSTaxInvoice: {
			Currency:  currency,
			Tax:       tax,
			Entity:    awsEntities("DNTS", "GEN"),
			Narration: &derive.NarrationSpec{Template: "TAX INVOICE#{invoice_number} - AMAZON WEB SERVICES EMEA SARL (AWS) - {period} - AC NO: {account_number}"},
		},
		AWSTaxCreditNote: {
			Currency:  currency,
			Tax:       tax,
			Entity:    awsEntities("CNTS", "ZZ-COMM"),
			Narration: &derive.NarrationSpec{Template: "TAX CREDIT NOTE#{invoice_number} - AMAZON WEB SERVICES EMEA SARL (AWS) - {period} - AC NO: {account_number}"},
		},
		AWSCommercialInvoice: {
			Currency:  currency,
			Tax:       tax,
			Entity:    awsEntities("DNTS", "GEN"),
			Narration: &derive.NarrationSpec{Template: "INVOICE#{invoice_number} - AMAZON WEB SERVICES, INC.INVOICE - {period} - AC NO: {account_number}"},
		},
		AWSMarketplaceInvoice: {
			Currency:  currency,
			Tax:       tax,
			Entity:    awsEntities("DNTS", "GEN"),
			Narration: &derive.NarrationSpec{Template: "INVOICE#{invoice_number} - AWS MARKETPLACE INVOICE - {period} - AC NO: {account_number}"},
		},
	}

	return Profile{
		Name: "aws",
		Fields: []locator.FieldSpec{
			{Name: "invoice_number", Synonyms: []string{"Tax Invoice Number", "Original Tax Invoice Number", "Invoice Number", "Document Number"}},
			{Name: "date", Synonyms: []string{"Tax Invoice Date", "Original Tax Invoice Date", "Invoice Date", "Document Date"}},
			{Name: "account_number", Synonyms: []string{"Account Number", "AWS Account Number"}},
			{Name: "period", Synonyms: []string{"Billing Period"}, MaxLineOffset: 1},
			{Name: "bill_to", Synonyms: []string{"Bill to Address", "Bill To"}, MaxLineOffset: 2},
			{Name: "currency", Synonyms: []string{"Currency"}},
			{Name: "net_charges", Synonyms: []string{"Net Charges (After Credits/Discounts, excl. Tax)", "Net Charges"}},
			{Name: "total", Synonyms: []string{"Total Amount Due", "TOTAL AMOUNT DUE ON"}, LastMatchWins: true},
			{Name: "due_date", Synonyms: []string{"Due On", "Due Date"}},
		},
		Table: assembler.Config{
			Columns: []assembler.ColumnSpec{
				{Field: assembler.FieldDescription, Synonyms: []string{"Description", "Charge Description"}, Required: true},
				{Field: assembler.FieldAmount, Synonyms: []string{"Amount", "Amount in USD", "Total in USD"}, Numeric: true, Required: true},
			},
			SkipMarkers: []string{"subtotal", "total", "vat", "net charges"},
		},
		Variants: []document.Variant{AWSTaxInvoice, AWSTaxCreditNote, AWSCommercialInvoice, AWSMarketplaceInvoice},
		Rules: []classifier.Rule{
			{Variant: AWSTaxCreditNote, When: classifier.TextContains("Tax Credit Note")},
			{Variant: AWSTaxInvoice, When: classifier.TextContains("Tax Invoice")},
			{Variant: AWSCommercialInvoice, When: classifier.AllOf(
				classifier.TextContains("Amazon Web Services, Inc. Invoice"),
				classifier.TextContains("Invoice Number:"),
			)},
			{Variant: AWSMarketplaceInvoice, When: classifier.AnyOf(
				classifier.TextContains("AWS Marketplace Invoice"),
				classifier.TextContains("Marketplace Operator Invoicing"),
			)},
		},
		Derivations: derivations,
		Reconciliation: reconcile.Config{
			StatedTotalField: "total",
			IncludeTax:       true,
		},
		Schemas: []compose.Schema{
			{
				Name: "erp_upload",
				Columns: []compose.ColumnMap{
					{Column: "DATE", Source: "header.date"},
					{Column: "INV NUMBER", Source: "header.invoice_number"},
					{Column: "WITHOUT VAT", Source: "derived.amount"},
					{Column: "VAT", Source: "derived.tax"},
					{Column: "WITH VAT", Source: "fn:gross"},
					{Column: "NARRATION", Source: "derived.narration"},
					{Column: "SUPPLIER CODE", Source: "derived.codes.supplier"},
					{Column: "LOCATION", Source: "derived.codes.location"},
					{Column: "DIVISION", Source: "derived.codes.division"},
					{Column: "DOC TYPE", Source: "derived.codes.doc_type"},
					{Column: "ANALYSIS CODE", Source: "derived.codes.analysis"},
				},
			},
			{
				Name: "summary",
				Columns: []compose.ColumnMap{
					{Column: "Invoice", Source: "header.invoice_number"},
					{Column: "Bill To", Source: "header.bill_to"},
					{Column: "Description", Source: "item.description"},
					{Column: "USD Amount", Source: "item.amount"},
					{Column: "AED Amount", Source: "derived.amount"},
					{Column: "Due Date", Source: "header.due_date"},
				},
			},
		},
		Fns: map[string]compose.Fn{
			"gross": func(_ document.HeaderFields, rec document.DerivedRecord, _ *document.MatchOutcome) string {
				return rec.Amount.Add(rec.Tax).String()
			},
		},
	}
}

// awsEntities builds the bill-to code table. The docType and analysis codes
// differ between debit and credit bookings, so each variant carries its own
// copy of the table.
func awsEntities(docType, analysis string) *derive.EntitySpec {
	row := func(supplier, location, division, group string) map[string]string {
		return map[string]string{
			"supplier": supplier,
			"location": location,
			"division": division,
			"group":    group,
			"doc_type": docType,
			"analysis": analysis,
		}
	}
	return &derive.EntitySpec{
		Field: "bill_to",
		Codes: map[string]map[string]string{
			"MINDWARE FZ LLC": row("SDIA035", "UJ000", "UJ200", "PUHU"),
		},
		// Every other Mindware entity books through the trading company.
		Fallback: row("STIA007", "TC000", "TC200", "PTCK"),
	}
}
