// Package derive computes the fields a document does not carry verbatim: tax
// amounts, entity and location codes, item codes from free-text descriptions,
// currency selection, and narration strings. Every rule is a pure function of
// (line item, header fields, variant, reference configuration), so replaying
// a derivation on identical inputs yields identical output.
package derive

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/shopspring/decimal"

	"github.com/mwtools/docpipe/internal/document"
	"github.com/mwtools/docpipe/pkg/money"
)

// Unclassified marks a description no keyword rule matched. It is emitted
// verbatim so reviewers can filter for it; an empty code is never produced.
const Unclassified = "UNCLASSIFIED"

// MissPolicy controls what an entity-table miss does to the record.
type MissPolicy int

const (
	// FailOnMiss excludes the record and reports a row-scoped error.
	FailOnMiss MissPolicy = iota
	// FlagOnMiss keeps the record, leaves its codes empty and appends an
	// audit flag.
	FlagOnMiss
)

// TaxSpec selects a tax rate and tax code from a header field. When Field is
// empty the default rate and code apply to every record.
type TaxSpec struct {
	Field       string
	Rates       map[string]decimal.Decimal
	DefaultRate decimal.Decimal
	Codes       map[string]string
	DefaultCode string
}

// EntitySpec resolves entity/location codes by exact match against a
// configured table. Fallback, when set, is the explicit catch-all row; absent
// a fallback, misses follow Policy. There is no silent default.
type EntitySpec struct {
	Field    string
	Codes    map[string]map[string]string
	Fallback map[string]string
	Policy   MissPolicy
}

// KeywordRule maps description keywords to an item code. Rules are ordered;
// when keywords from several rules occur in one description, the
// earliest-registered rule wins.
type KeywordRule struct {
	Keywords []string
	Code     string
}

// CurrencySpec selects the record currency, and optionally an exchange rate
// applied to the line amount, from a header field.
type CurrencySpec struct {
	Field      string
	Currencies map[string]string
	Rates      map[string]decimal.Decimal
	Default    string
}

// NarrationSpec assembles the narration string from a template. Placeholders
// are written {name} and resolve against header fields, line-item fields and
// derived fields.
type NarrationSpec struct {
	Template string
}

// Rules is the full derivation rule set for one variant. Nil members are
// skipped.
type Rules struct {
	Currency  *CurrencySpec
	Tax       *TaxSpec
	Entity    *EntitySpec
	ItemCodes []KeywordRule
	Narration *NarrationSpec
}

type compiled struct {
	rules   Rules
	matcher *codeMatcher
}

// Engine applies the registered rule set for a document's variant.
type Engine struct {
	logger    *slog.Logger
	byVariant map[document.Variant]*compiled
}

// New compiles the per-variant rule sets. Invalid rule sets (empty keyword
// lists, blank codes, entity tables without a key field) are configuration
// errors raised here, before any document is processed.
func New(logger *slog.Logger, byVariant map[document.Variant]Rules) (*Engine, error) {
	e := &Engine{logger: logger, byVariant: make(map[document.Variant]*compiled, len(byVariant))}
	for variant, rules := range byVariant {
		if err := validate(variant, rules); err != nil {
			return nil, err
		}
		c := &compiled{rules: rules}
		if len(rules.ItemCodes) > 0 {
			c.matcher = newCodeMatcher(rules.ItemCodes)
		}
		e.byVariant[variant] = c
	}
	return e, nil
}

func validate(variant document.Variant, rules Rules) error {
	fail := func(format string, args ...any) error {
		return &document.ConfigurationError{
			Component: "derive",
			Detail:    fmt.Sprintf("variant %q: %s", variant, fmt.Sprintf(format, args...)),
		}
	}
	for i, kr := range rules.ItemCodes {
		if len(kr.Keywords) == 0 {
			return fail("item-code rule %d has no keywords", i)
		}
		if kr.Code == "" {
			return fail("item-code rule %d has no code", i)
		}
	}
	if rules.Entity != nil {
		if rules.Entity.Field == "" {
			return fail("entity table has no key field")
		}
		if len(rules.Entity.Codes) == 0 && rules.Entity.Fallback == nil {
			return fail("entity table is empty")
		}
	}
	if rules.Tax != nil && rules.Tax.Field == "" && len(rules.Tax.Rates) > 0 {
		return fail("tax rates are keyed but no selector field is set")
	}
	if rules.Narration != nil {
		if err := checkTemplate(rules.Narration.Template); err != nil {
			return fail("narration template: %v", err)
		}
	}
	return nil
}

// Derive enriches each line item under the variant's rules. Entity misses
// under FailOnMiss exclude the record and surface as row-scoped errors; the
// remaining records still derive. An unregistered variant is a configuration
// error.
func (e *Engine) Derive(variant document.Variant, headers document.HeaderFields, items []document.LineItem) ([]document.DerivedRecord, []document.RowError, error) {
	c, ok := e.byVariant[variant]
	if !ok {
		return nil, nil, &document.ConfigurationError{
			Component: "derive",
			Detail:    fmt.Sprintf("no rules registered for variant %q", variant),
		}
	}

	records := make([]document.DerivedRecord, 0, len(items))
	var rowErrs []document.RowError
	for _, item := range items {
		rec, rowErr := c.derive(headers, item)
		if rowErr != nil {
			rowErrs = append(rowErrs, *rowErr)
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

func (c *compiled) derive(headers document.HeaderFields, item document.LineItem) (document.DerivedRecord, *document.RowError) {
	rec := document.DerivedRecord{Item: item, Amount: item.Amount}

	if cs := c.rules.Currency; cs != nil {
		key := normKey(headers.Get(cs.Field))
		rec.Currency = cs.Default
		if cur, ok := cs.Currencies[key]; ok {
			rec.Currency = cur
		}
		if rate, ok := cs.Rates[key]; ok {
			rec.Amount = money.Convert(rec.Amount, rate, rec.Currency)
		}
	}

	if ts := c.rules.Tax; ts != nil {
		rate, code := ts.DefaultRate, ts.DefaultCode
		if ts.Field != "" {
			key := normKey(headers.Get(ts.Field))
			if r, ok := ts.Rates[key]; ok {
				rate = r
			}
			if tc, ok := ts.Codes[key]; ok {
				code = tc
			}
		}
		rec.Tax = money.Tax(rec.Amount, rate, rec.Currency)
		rec.TaxCode = code
	}

	if es := c.rules.Entity; es != nil {
		key := normKey(headers.Get(es.Field))
		codes, ok := es.Codes[key]
		if !ok {
			codes = es.Fallback
		}
		switch {
		case codes != nil:
			rec.Codes = codes
		case es.Policy == FlagOnMiss:
			rec.Flags = append(rec.Flags, fmt.Sprintf("unmapped entity %q", headers.Get(es.Field)))
		default:
			return rec, &document.RowError{
				Row:     item.Row,
				Column:  es.Field,
				Raw:     headers.Get(es.Field),
				Message: document.ErrUnmappedEntity.Error(),
			}
		}
	}

	if c.matcher != nil {
		rec.ItemCode = c.matcher.match(item.Description)
	}

	if ns := c.rules.Narration; ns != nil {
		rec.Narration = renderTemplate(ns.Template, headers, &rec)
	}
	return rec, nil
}

// codeMatcher matches description keywords with one Aho-Corasick pass over
// the uppercased text. Each pattern remembers its rule index so ties resolve
// to the earliest-registered rule regardless of match position.
type codeMatcher struct {
	machine *ahocorasick.Matcher
	rule    []int
	codes   []string
}

func newCodeMatcher(rules []KeywordRule) *codeMatcher {
	var patterns []string
	var ruleIdx []int
	codes := make([]string, len(rules))
	for i, r := range rules {
		codes[i] = r.Code
		for _, kw := range r.Keywords {
			patterns = append(patterns, strings.ToUpper(kw))
			ruleIdx = append(ruleIdx, i)
		}
	}
	return &codeMatcher{
		machine: ahocorasick.NewStringMatcher(patterns),
		rule:    ruleIdx,
		codes:   codes,
	}
}

func (m *codeMatcher) match(description string) string {
	hits := m.machine.Match([]byte(strings.ToUpper(description)))
	best := -1
	for _, h := range hits {
		if r := m.rule[h]; best == -1 || r < best {
			best = r
		}
	}
	if best == -1 {
		return Unclassified
	}
	return m.codes[best]
}

// normKey normalizes a lookup key for exact-match tables.
func normKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
