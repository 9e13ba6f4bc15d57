package document

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// Generator builds synthetic extraction output for tests and load runs.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator returns a generator seeded for reproducibility. Seed 0 gives
// a random stream.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// InvoiceLayout names the labels a generated invoice carries. Zero fields
// fall back to the common layout used across the stage tests.
type InvoiceLayout struct {
	NumberLabel       string
	TotalLabel        string
	DescriptionColumn string
	AmountColumn      string
}

func (l *InvoiceLayout) defaults() {
	if l.NumberLabel == "" {
		l.NumberLabel = "Invoice Number"
	}
	if l.TotalLabel == "" {
		l.TotalLabel = "Grand Total"
	}
	if l.DescriptionColumn == "" {
		l.DescriptionColumn = "Description"
	}
	if l.AmountColumn == "" {
		l.AmountColumn = "Amount"
	}
}

var lineDescriptions = []string{
	"Annual support renewal",
	"Cloud compute usage",
	"Data transfer charges",
	"License subscription",
	"Managed backup service",
	"Professional services",
	"Storage capacity",
	"Technical account management",
}

// InvoiceNumber returns a plausible vendor invoice number.
func (g *Generator) InvoiceNumber() string {
	return "INV-" + g.faker.DigitN(9)
}

// AccountNumber returns a plausible customer account number.
func (g *Generator) AccountNumber() string {
	return g.faker.DigitN(12)
}

// Vendor returns a random vendor name.
func (g *Generator) Vendor() string {
	return g.faker.Company()
}

// LineDescription returns a random service line description.
func (g *Generator) LineDescription() string {
	return lineDescriptions[g.faker.Number(0, len(lineDescriptions)-1)]
}

// Amount returns a random two-decimal amount within [min, max].
func (g *Generator) Amount(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(g.faker.Price(min, max)).Round(2)
}

// Invoice generates a document whose stated total reconciles exactly with
// the sum of its line amounts.
func (g *Generator) Invoice(id string, lines int, layout InvoiceLayout) *SourceDocument {
	layout.defaults()

	cells := [][]string{{layout.DescriptionColumn, layout.AmountColumn}}
	total := decimal.Zero
	for i := 0; i < lines; i++ {
		amount := g.Amount(10, 5000)
		total = total.Add(amount)
		cells = append(cells, []string{g.LineDescription(), amount.StringFixed(2)})
	}

	return &SourceDocument{
		ID: id,
		Fragments: []Fragment{
			{Page: 1, Line: 1, Col: 0, Text: g.Vendor()},
			{Page: 1, Line: 3, Col: 0, Text: fmt.Sprintf("%s: %s", layout.NumberLabel, g.InvoiceNumber())},
			{Page: 1, Line: 40, Col: 0, Text: fmt.Sprintf("%s: %s", layout.TotalLabel, total.StringFixed(2))},
		},
		Tables: []TableRegion{{Page: 1, Cells: cells}},
	}
}
