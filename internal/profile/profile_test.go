package profile_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwtools/docpipe/internal/document"
	"github.com/mwtools/docpipe/internal/pipeline"
	"github.com/mwtools/docpipe/internal/profile"
)

func TestEveryProfileBuildsAPipeline(t *testing.T) {
	for _, name := range profile.Names() {
		t.Run(name, func(t *testing.T) {
			prof, err := profile.ByName(name)
			require.NoError(t, err)
			_, err = pipeline.New(slog.New(slog.NewTextHandler(io.Discard, nil)), prof, nil)
			require.NoError(t, err, "profile %q must pass startup validation", name)
		})
	}
}

func TestByNameUnknown(t *testing.T) {
	_, err := profile.ByName("sap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sap")
}

func awsDoc(marker string) *document.SourceDocument {
	return &document.SourceDocument{
		ID: "aws-1",
		Fragments: []document.Fragment{
			{Page: 1, Line: 1, Col: 0, Text: marker},
			{Page: 1, Line: 2, Col: 0, Text: "Invoice Number: 1234567"},
			{Page: 1, Line: 3, Col: 0, Text: "Account Number: 998877"},
			{Page: 1, Line: 4, Col: 0, Text: "Billing Period"},
			{Page: 1, Line: 5, Col: 0, Text: "March 1 - March 31, 2024"},
			{Page: 1, Line: 6, Col: 0, Text: "Bill to Address"},
			{Page: 1, Line: 7, Col: 0, Text: "Mindware FZ LLC"},
			{Page: 1, Line: 8, Col: 0, Text: "Currency: USD"},
			{Page: 1, Line: 30, Col: 0, Text: "Total Amount Due: 385.61"},
		},
		Tables: []document.TableRegion{{Page: 1, Cells: [][]string{
			{"Description", "Amount"},
			{"AWS Service Charges", "100.00"},
		}}},
	}
}

func TestAWSEndToEnd(t *testing.T) {
	prof, err := profile.ByName("aws")
	require.NoError(t, err)
	p, err := pipeline.New(slog.New(slog.NewTextHandler(io.Discard, nil)), prof, nil)
	require.NoError(t, err)

	res := p.Run(context.Background(), awsDoc("Tax Invoice"), nil)
	require.NoError(t, res.Err)
	assert.Equal(t, profile.AWSTaxInvoice, res.Variant)

	erp := res.Bundle.Table("erp_upload")
	require.NotNil(t, erp)
	require.Len(t, erp.Rows, 1)
	row := erp.Rows[0]
	cols := map[string]string{}
	for i, c := range erp.Columns {
		cols[c] = row[i]
	}
	// 100 USD at 3.6725 = 367.25 AED, VAT 18.36, gross 385.61
	assert.Equal(t, "367.25", cols["WITHOUT VAT"])
	assert.Equal(t, "18.36", cols["VAT"])
	assert.Equal(t, "385.61", cols["WITH VAT"])
	assert.Equal(t, "SDIA035", cols["SUPPLIER CODE"])
	assert.Equal(t, "DNTS", cols["DOC TYPE"])
	assert.Equal(t, "TAX INVOICE#1234567 - AMAZON WEB SERVICES EMEA SARL (AWS) - March 1 - March 31, 2024 - AC NO: 998877", cols["NARRATION"])
}

func TestAWSCreditNoteUsesCreditCodes(t *testing.T) {
	prof, err := profile.ByName("aws")
	require.NoError(t, err)
	p, err := pipeline.New(slog.New(slog.NewTextHandler(io.Discard, nil)), prof, nil)
	require.NoError(t, err)

	res := p.Run(context.Background(), awsDoc("Tax Credit Note"), nil)
	require.NoError(t, res.Err)
	assert.Equal(t, profile.AWSTaxCreditNote, res.Variant)

	erp := res.Bundle.Table("erp_upload")
	row := erp.Rows[0]
	cols := map[string]string{}
	for i, c := range erp.Columns {
		cols[c] = row[i]
	}
	assert.Equal(t, "CNTS", cols["DOC TYPE"])
	assert.Equal(t, "ZZ-COMM", cols["ANALYSIS CODE"])
}

func TestCloudEndToEnd(t *testing.T) {
	prof, err := profile.ByName("cloud")
	require.NoError(t, err)
	p, err := pipeline.New(slog.New(slog.NewTextHandler(io.Discard, nil)), prof, nil)
	require.NoError(t, err)

	doc := func(id, lpo string) *document.SourceDocument {
		return &document.SourceDocument{
			ID: id,
			Fragments: []document.Fragment{
				{Page: 1, Line: 1, Col: 0, Text: "Invoice No.: CI-500"},
				{Page: 1, Line: 2, Col: 0, Text: "LPO Number: " + lpo},
				{Page: 1, Line: 3, Col: 0, Text: "End User: Acme LLC"},
				{Page: 1, Line: 4, Col: 0, Text: "Document Location: KA000"},
			},
			Tables: []document.TableRegion{{Page: 1, Cells: [][]string{
				{"Item Name", "Qty", "Rate Per Qty", "Gross Value"},
				{"Microsoft 365 Business Premium", "10", "20.00", "200.00"},
				{"Acronis Cyber Protect", "1", "50.00", "50.00"},
				{"Bespoke consulting", "1", "75.00", "75.00"},
			}}},
		}
	}

	first := p.Run(context.Background(), doc("c1", "LPO-1"), nil)
	require.NoError(t, first.Err)
	upload := first.Bundle.Table("cloud_upload")
	require.NotNil(t, upload)
	require.Len(t, upload.Rows, 3)

	cols := func(row []string) map[string]string {
		m := map[string]string{}
		for i, c := range upload.Columns {
			m[c] = row[i]
		}
		return m
	}

	r0 := cols(upload.Rows[0])
	assert.Equal(t, "MS-CNS", r0["Item Code"])
	assert.Equal(t, "SAR", r0["Currency Code"])
	assert.Equal(t, "SLVAT15", r0["ITEM Tax Code"])
	assert.Equal(t, "30", r0["ITEM Tax Value"]) // 200 at 15%
	assert.Equal(t, "CI-500-11", r0["Invoice No."])

	assert.Equal(t, "AS-CNS", cols(upload.Rows[1])["Item Code"])
	assert.Equal(t, "UNCLASSIFIED", cols(upload.Rows[2])["Item Code"])

	// A second split of the same invoice gets the next version suffix.
	second := p.Run(context.Background(), doc("c2", "LPO-2"), nil)
	require.NoError(t, second.Err)
	r := second.Bundle.Table("cloud_upload").Rows[0]
	m := map[string]string{}
	for i, c := range second.Bundle.Table("cloud_upload").Columns {
		m[c] = r[i]
	}
	assert.Equal(t, "CI-500-12", m["Invoice No."])
}

func TestCloudLocationWithoutTaxTreatment(t *testing.T) {
	prof, err := profile.ByName("cloud")
	require.NoError(t, err)
	p, err := pipeline.New(slog.New(slog.NewTextHandler(io.Discard, nil)), prof, nil)
	require.NoError(t, err)

	doc := &document.SourceDocument{
		ID: "c-wt",
		Fragments: []document.Fragment{
			{Page: 1, Line: 1, Col: 0, Text: "Invoice No.: CI-900"},
			{Page: 1, Line: 2, Col: 0, Text: "LPO Number: LPO-9"},
			{Page: 1, Line: 3, Col: 0, Text: "End User: Acme LLC"},
			{Page: 1, Line: 4, Col: 0, Text: "Document Location: WT000"},
		},
		Tables: []document.TableRegion{{Page: 1, Cells: [][]string{
			{"Item Name", "Qty", "Rate Per Qty", "Gross Value"},
			{"Acronis Cyber Protect", "1", "40.00", "40.00"},
		}}},
	}

	res := p.Run(context.Background(), doc, nil)
	require.NoError(t, res.Err)
	assert.Empty(t, res.Warnings, "a known location must not flag as unmapped")

	upload := res.Bundle.Table("cloud_upload")
	require.NotNil(t, upload)
	require.Len(t, upload.Rows, 1)
	cols := map[string]string{}
	for i, c := range upload.Columns {
		cols[c] = upload.Rows[0][i]
	}
	assert.Equal(t, "", cols["Currency Code"])
	assert.Equal(t, "", cols["ITEM Tax Code"])
	assert.Equal(t, "0", cols["ITEM Tax Value"])
	assert.Equal(t, "", cols["Exchange Rate"])
	assert.Equal(t, "", cols["ITEM Tax Basis"])
}

func TestIBMClassification(t *testing.T) {
	prof, err := profile.ByName("ibm")
	require.NoError(t, err)
	p, err := pipeline.New(slog.New(slog.NewTextHandler(io.Discard, nil)), prof, nil)
	require.NoError(t, err)

	doc := &document.SourceDocument{
		ID: "ibm-1",
		Fragments: []document.Fragment{
			{Page: 1, Line: 1, Col: 0, Text: "Software as a Service"},
			{Page: 1, Line: 2, Col: 0, Text: "Subscription Length: 12 months"},
			{Page: 1, Line: 3, Col: 0, Text: "Renewal Type: Automatic"},
			{Page: 1, Line: 4, Col: 0, Text: "Quote Number: Q-100"},
			{Page: 1, Line: 5, Col: 0, Text: "Country: Saudi Arabia"},
		},
		Tables: []document.TableRegion{{Page: 1, Cells: [][]string{
			{"Subscription Part#", "Description", "Qty", "Total Price"},
			{"D0ABCLL", "IBM SaaS plan", "1", "1200.00"},
		}}},
	}

	res := p.Run(context.Background(), doc, nil)
	require.NoError(t, res.Err)
	assert.Equal(t, profile.IBMSubscriptionQuotation, res.Variant)

	lines := res.Bundle.Table("quote_lines")
	require.Len(t, lines.Rows, 1)
	// per-country currency selection
	assert.Contains(t, lines.Rows[0], "SAR")
}

func TestDellMatchFlow(t *testing.T) {
	prof, err := profile.ByName("dell")
	require.NoError(t, err)
	require.NotNil(t, prof.Match)
	require.NotNil(t, prof.Reference)
	assert.Equal(t, 8, prof.Reference.HeaderRow)

	fn := prof.Fns["po_number"]
	require.NotNil(t, fn)
	h := document.HeaderFields{"po_number": {Value: "PO 12345", Found: true}}
	assert.Equal(t, "12345", fn(h, document.DerivedRecord{}, nil))
}
