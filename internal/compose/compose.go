// Package compose maps derived records into one or more named output tables
// with exact column order. Column population is table-driven: every target
// column names exactly one source field or derivation function, and an
// unmapped column is a configuration error at startup, never a silent blank
// at runtime.
package compose

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mwtools/docpipe/internal/document"
)

// Source reference prefixes. A source is one of:
//
//	header.<field>         located header field value
//	item.<field>           extracted line-item column
//	derived.<field>        derivation output, including derived.codes.<name>
//	match.<field>          match outcome (status, key, ref_price)
//	const:<literal>        fixed value for every row
//	fn:<name>              registered derivation function
const (
	srcHeader  = "header."
	srcItem    = "item."
	srcDerived = "derived."
	srcMatch   = "match."
	srcConst   = "const:"
	srcFn      = "fn:"
)

// ColumnMap binds one target column to its source.
type ColumnMap struct {
	Column string
	Source string
}

// Schema is one named output table.
type Schema struct {
	Name    string
	Columns []ColumnMap
}

// Fn is a registered derivation function for columns that need computation
// beyond a field reference.
type Fn func(headers document.HeaderFields, rec document.DerivedRecord, outcome *document.MatchOutcome) string

// Composer builds OutputBundles from derived records.
type Composer struct {
	logger  *slog.Logger
	schemas []Schema
	fns     map[string]Fn
}

var derivedFields = map[string]struct{}{
	"amount": {}, "tax": {}, "tax_code": {}, "currency": {},
	"item_code": {}, "narration": {},
}

var matchFields = map[string]struct{}{
	"status": {}, "key": {}, "ref_price": {},
}

// New validates every schema's column mappings and returns the composer.
// Validation runs before any document is processed.
func New(logger *slog.Logger, schemas []Schema, fns map[string]Fn) (*Composer, error) {
	fail := func(schema, format string, args ...any) error {
		return &document.ConfigurationError{
			Component: "compose",
			Detail:    fmt.Sprintf("schema %q: %s", schema, fmt.Sprintf(format, args...)),
		}
	}
	if len(schemas) == 0 {
		return nil, &document.ConfigurationError{Component: "compose", Detail: "no output schemas configured"}
	}
	seen := make(map[string]struct{}, len(schemas))
	for _, s := range schemas {
		if s.Name == "" {
			return nil, fail(s.Name, "schema has no name")
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fail(s.Name, "duplicate schema name")
		}
		seen[s.Name] = struct{}{}
		if len(s.Columns) == 0 {
			return nil, fail(s.Name, "schema has no columns")
		}
		for _, cm := range s.Columns {
			if cm.Column == "" {
				return nil, fail(s.Name, "column with empty name")
			}
			if cm.Source == "" {
				return nil, fail(s.Name, "column %q is unmapped", cm.Column)
			}
			if err := checkSource(cm.Source, fns); err != nil {
				return nil, fail(s.Name, "column %q: %v", cm.Column, err)
			}
		}
	}
	return &Composer{logger: logger, schemas: schemas, fns: fns}, nil
}

func checkSource(source string, fns map[string]Fn) error {
	switch {
	case strings.HasPrefix(source, srcConst):
		return nil
	case strings.HasPrefix(source, srcHeader):
		if source == srcHeader {
			return fmt.Errorf("header source without field name")
		}
		return nil
	case strings.HasPrefix(source, srcItem):
		if source == srcItem {
			return fmt.Errorf("item source without field name")
		}
		return nil
	case strings.HasPrefix(source, srcDerived):
		name := source[len(srcDerived):]
		if strings.HasPrefix(name, "codes.") {
			if name == "codes." {
				return fmt.Errorf("derived code source without code name")
			}
			return nil
		}
		if _, ok := derivedFields[name]; !ok {
			return fmt.Errorf("unknown derived field %q", name)
		}
		return nil
	case strings.HasPrefix(source, srcMatch):
		name := source[len(srcMatch):]
		if _, ok := matchFields[name]; !ok {
			return fmt.Errorf("unknown match field %q", name)
		}
		return nil
	case strings.HasPrefix(source, srcFn):
		name := source[len(srcFn):]
		if _, ok := fns[name]; !ok {
			return fmt.Errorf("unregistered function %q", name)
		}
		return nil
	default:
		return fmt.Errorf("unrecognized source %q", source)
	}
}

// Compose builds every configured table from one run's records. Records are
// emitted in order, one output row each; match outcomes are joined by source
// row number. The bundle is complete when returned and never mutated after.
func (c *Composer) Compose(headers document.HeaderFields, records []document.DerivedRecord, matches []document.MatchOutcome) *document.OutputBundle {
	byRow := make(map[int]*document.MatchOutcome, len(matches))
	for i := range matches {
		byRow[matches[i].Row] = &matches[i]
	}

	bundle := &document.OutputBundle{Tables: make([]document.Table, 0, len(c.schemas))}
	for _, schema := range c.schemas {
		table := document.Table{Name: schema.Name, Columns: make([]string, len(schema.Columns))}
		for i, cm := range schema.Columns {
			table.Columns[i] = cm.Column
		}
		for _, rec := range records {
			row := make([]string, len(schema.Columns))
			for i, cm := range schema.Columns {
				row[i] = c.resolve(cm.Source, headers, rec, byRow[rec.Item.Row])
			}
			table.Rows = append(table.Rows, row)
		}
		bundle.Tables = append(bundle.Tables, table)
	}
	return bundle
}

func (c *Composer) resolve(source string, headers document.HeaderFields, rec document.DerivedRecord, outcome *document.MatchOutcome) string {
	switch {
	case strings.HasPrefix(source, srcConst):
		return source[len(srcConst):]
	case strings.HasPrefix(source, srcHeader):
		return headers.Get(source[len(srcHeader):])
	case strings.HasPrefix(source, srcItem):
		return itemField(rec.Item, source[len(srcItem):])
	case strings.HasPrefix(source, srcDerived):
		return derivedField(rec, source[len(srcDerived):])
	case strings.HasPrefix(source, srcMatch):
		return matchField(outcome, source[len(srcMatch):])
	case strings.HasPrefix(source, srcFn):
		return c.fns[source[len(srcFn):]](headers, rec, outcome)
	}
	return ""
}

func itemField(item document.LineItem, name string) string {
	switch name {
	case "row":
		return fmt.Sprintf("%d", item.Row)
	case "code":
		return item.Code
	case "description":
		return item.Description
	case "quantity":
		return item.Quantity.String()
	case "unit_price":
		return item.UnitPrice.String()
	case "amount":
		return item.Amount.String()
	default:
		return item.Extra[name]
	}
}

func derivedField(rec document.DerivedRecord, name string) string {
	if code, ok := strings.CutPrefix(name, "codes."); ok {
		return rec.Codes[code]
	}
	switch name {
	case "amount":
		return rec.Amount.String()
	case "tax":
		return rec.Tax.String()
	case "tax_code":
		return rec.TaxCode
	case "currency":
		return rec.Currency
	case "item_code":
		return rec.ItemCode
	case "narration":
		return rec.Narration
	}
	return ""
}

func matchField(outcome *document.MatchOutcome, name string) string {
	if outcome == nil {
		return ""
	}
	switch name {
	case "status":
		return string(outcome.Status)
	case "key":
		return outcome.Key
	case "ref_price":
		return outcome.RefPrice.String()
	}
	return ""
}
