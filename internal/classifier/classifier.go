// Package classifier selects a document's layout variant from a closed,
// registered set using an ordered list of predicate rules. An explicit caller
// hint overrides detection; no rule firing is an error, never a default.
package classifier

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mwtools/docpipe/internal/document"
)

// Inputs is everything a detection rule may inspect. Rules are pure functions
// of these inputs, so classification is stable under reordering of header
// fields they do not consult.
type Inputs struct {
	Headers   document.HeaderFields
	Signature []string
	Text      string
}

// Predicate reports whether a rule fires for the given inputs.
type Predicate func(Inputs) bool

// Rule binds one predicate to the variant it detects. Rules are evaluated in
// registration order; the first that fires wins.
type Rule struct {
	Variant document.Variant
	When    Predicate
}

// Classifier tags documents with one variant from its registered set.
type Classifier struct {
	logger *slog.Logger
	rules  []Rule
	known  map[document.Variant]struct{}
}

// New validates that every rule targets a registered variant and returns the
// classifier. A rule naming an unregistered variant is a configuration error.
func New(logger *slog.Logger, variants []document.Variant, rules []Rule) (*Classifier, error) {
	known := make(map[document.Variant]struct{}, len(variants))
	for _, v := range variants {
		known[v] = struct{}{}
	}
	for i, r := range rules {
		if r.When == nil {
			return nil, &document.ConfigurationError{
				Component: "classifier",
				Detail:    fmt.Sprintf("rule %d has no predicate", i),
			}
		}
		if _, ok := known[r.Variant]; !ok {
			return nil, &document.ConfigurationError{
				Component: "classifier",
				Detail:    fmt.Sprintf("rule %d targets unregistered variant %q", i, r.Variant),
			}
		}
	}
	return &Classifier{logger: logger, rules: rules, known: known}, nil
}

// Classify returns the variant for the document. hint, when non-empty,
// overrides automatic detection but must still name a registered variant.
// Returns document.ErrUnknownVariant when no rule fires and no hint is given.
func (c *Classifier) Classify(docID string, hint document.Variant, in Inputs) (document.Variant, error) {
	if hint != "" {
		if _, ok := c.known[hint]; !ok {
			return "", fmt.Errorf("hint %q: %w", hint, document.ErrUnknownVariant)
		}
		c.logger.Debug("variant taken from hint",
			slog.String("document_id", docID),
			slog.String("variant", string(hint)))
		return hint, nil
	}
	for _, r := range c.rules {
		if r.When(in) {
			c.logger.Debug("variant detected",
				slog.String("document_id", docID),
				slog.String("variant", string(r.Variant)))
			return r.Variant, nil
		}
	}
	return "", fmt.Errorf("document %s: %w", docID, document.ErrUnknownVariant)
}

// HeaderFound fires when the named header field was located.
func HeaderFound(field string) Predicate {
	return func(in Inputs) bool {
		return in.Headers.Found(field)
	}
}

// HeaderContains fires when the named header field's value contains substr,
// case-insensitively.
func HeaderContains(field, substr string) Predicate {
	return func(in Inputs) bool {
		return strings.Contains(
			strings.ToLower(in.Headers.Get(field)),
			strings.ToLower(substr))
	}
}

// SignatureHas fires when the table header signature contains the column.
func SignatureHas(column string) Predicate {
	return func(in Inputs) bool {
		want := strings.ToLower(column)
		for _, col := range in.Signature {
			if strings.Contains(strings.ToLower(col), want) {
				return true
			}
		}
		return false
	}
}

// TextContains fires when the document text contains the marker phrase,
// case-insensitively.
func TextContains(marker string) Predicate {
	return func(in Inputs) bool {
		return strings.Contains(strings.ToLower(in.Text), strings.ToLower(marker))
	}
}

// MarkerScore fires when at least min of the marker phrases occur in the
// document text. Used where single markers are too ambiguous to decide a
// layout on their own.
func MarkerScore(min int, markers ...string) Predicate {
	return func(in Inputs) bool {
		text := strings.ToLower(in.Text)
		score := 0
		for _, m := range markers {
			if strings.Contains(text, strings.ToLower(m)) {
				score++
			}
		}
		return score >= min
	}
}

// AllOf fires when every predicate fires.
func AllOf(preds ...Predicate) Predicate {
	return func(in Inputs) bool {
		for _, p := range preds {
			if !p(in) {
				return false
			}
		}
		return true
	}
}

// AnyOf fires when at least one predicate fires.
func AnyOf(preds ...Predicate) Predicate {
	return func(in Inputs) bool {
		for _, p := range preds {
			if p(in) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(in Inputs) bool {
		return !p(in)
	}
}
