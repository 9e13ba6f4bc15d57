// Package document defines the shared data model for a single pipeline run:
// the raw extraction input, the intermediate artifacts each stage produces,
// and the per-document result handed back to the caller. Every type here is
// produced exactly once per run and treated as immutable by later stages.
package document

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fragment is one positioned text token from the external PDF extractor.
// Positions are logical (page/line/column order), not geometric coordinates.
type Fragment struct {
	Page int    `json:"page"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
	Text string `json:"text"`
}

// TableRegion is one candidate table grid found by the external extractor.
type TableRegion struct {
	Page  int        `json:"page"`
	Cells [][]string `json:"cells"`
}

// SourceDocument is the opaque handle to one input file, owned exclusively by
// one pipeline run. VariantHint, when set by the caller, overrides automatic
// variant detection.
type SourceDocument struct {
	ID          string        `json:"id"`
	VariantHint Variant       `json:"variant_hint,omitempty"`
	Fragments   []Fragment    `json:"fragments"`
	Tables      []TableRegion `json:"tables"`
}

// Text returns all fragment text joined in document order. Classifier rules
// that match marker phrases operate on this view.
func (d *SourceDocument) Text() string {
	var sb strings.Builder
	lastPage, lastLine := -1, -1
	for _, f := range d.Fragments {
		if sb.Len() > 0 {
			if f.Page != lastPage || f.Line != lastLine {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(f.Text)
		lastPage, lastLine = f.Page, f.Line
	}
	return sb.String()
}

// Field is one located header field value.
type Field struct {
	Value string
	Found bool
	Page  int
	Line  int
	// Suggestions lists near-miss labels seen in the document when the field
	// was not found, to help an operator spot a drifted layout.
	Suggestions []string
}

// HeaderFields maps configured field names to located values.
type HeaderFields map[string]Field

// Get returns the value for name, or "" when absent or not found.
func (h HeaderFields) Get(name string) string {
	if f, ok := h[name]; ok && f.Found {
		return f.Value
	}
	return ""
}

// Found reports whether name was located.
func (h HeaderFields) Found(name string) bool {
	f, ok := h[name]
	return ok && f.Found
}

// Variant is the enumerated document-layout tag chosen once by the classifier.
// The set of valid tags is closed per tool family and registered in the
// family's profile.
type Variant string

// LineItem is one extracted table row with typed columns. Row preserves the
// source row number for error reporting and audit order.
type LineItem struct {
	Row         int
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	// Extra holds columns outside the typed set, keyed by normalized header.
	Extra map[string]string
}

// DerivedRecord is a LineItem enriched with computed fields. Every derived
// field is a deterministic function of (item, headers, variant, reference
// data); re-running a derivation on identical inputs yields identical output.
type DerivedRecord struct {
	Item LineItem
	// Amount is the effective line amount in the record's currency, after
	// any configured exchange-rate conversion.
	Amount    decimal.Decimal
	Tax       decimal.Decimal
	TaxCode   string
	Currency  string
	ItemCode  string
	Narration string
	// Codes carries entity/location codes resolved from the profile's code
	// table (e.g. supplier code, document location, division).
	Codes map[string]string
	// Flags records non-fatal derivation conditions (flag-and-continue
	// entity misses, unclassified descriptions).
	Flags []string
}

// ReconciliationResult compares the computed document total against the
// stated total located in the header, within a tolerance.
type ReconciliationResult struct {
	Computed    decimal.Decimal
	Stated      decimal.Decimal
	Delta       decimal.Decimal
	Tolerance   decimal.Decimal
	StatedFound bool
	Pass        bool
}

// MatchStatus classifies one line item against the reference table.
type MatchStatus string

const (
	Matched       MatchStatus = "matched"
	PriceMismatch MatchStatus = "price_mismatch"
	Unmatched     MatchStatus = "unmatched"
)

// MatchOutcome is the classification attached to one LineItem. The original
// row is never replaced; outcomes are reported alongside in source order.
type MatchOutcome struct {
	Row      int
	Status   MatchStatus
	Key      string
	RefPrice decimal.Decimal
	RefAttrs map[string]string
}

// Table is one named output table with a fixed column order.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// OutputBundle is the complete set of output tables for one successful run.
// It is created once by the composer and never mutated afterwards.
type OutputBundle struct {
	Tables []Table
}

// Table returns the named table, or nil when absent.
func (b *OutputBundle) Table(name string) *Table {
	for i := range b.Tables {
		if b.Tables[i].Name == name {
			return &b.Tables[i]
		}
	}
	return nil
}

// Warning is a non-fatal condition surfaced with a successful result.
type Warning struct {
	Kind    string
	Message string
}

// SkippedRow records a table row intentionally skipped during assembly.
type SkippedRow struct {
	Row    int
	Reason string
}

// Result is the per-document outcome of one pipeline run. Err is set only for
// document-fatal failures; row-scoped problems are collected in RowErrors and
// Skipped, and the document still succeeds.
type Result struct {
	DocumentID     string
	RunID          uuid.UUID
	Variant        Variant
	Bundle         *OutputBundle
	Reconciliation *ReconciliationResult
	Matches        []MatchOutcome
	Warnings       []Warning
	Skipped        []SkippedRow
	RowErrors      []RowError
	Err            error
}

// Success reports whether the document produced an OutputBundle.
func (r *Result) Success() bool {
	return r.Err == nil && r.Bundle != nil
}
