// Package locator finds labeled header fields in positioned document text.
// Labels are matched declaratively against configured synonyms so the same
// locator serves every document family; values are taken from the nearest
// fragment within a bounded spatial offset, never guessed.
package locator

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mwtools/docpipe/internal/document"
)

// suggestionDistance is the maximum Levenshtein distance for a document label
// to be reported as a near miss of a configured synonym.
const suggestionDistance = 3

// FieldSpec configures one header field to locate.
type FieldSpec struct {
	// Name is the target field name, e.g. "invoice_number".
	Name string
	// Synonyms are the label strings that anchor this field, compared after
	// case and whitespace normalization.
	Synonyms []string
	// LastMatchWins keeps scanning after the first hit and reports the final
	// occurrence. Used for running totals that repeat per page.
	LastMatchWins bool
	// MaxLineOffset is how many lines below the label the value may sit when
	// the label's own line carries no value. Zero restricts to the same line.
	MaxLineOffset int
}

// Locator locates configured header fields in a document.
type Locator struct {
	logger *slog.Logger
	fields []FieldSpec
}

func New(logger *slog.Logger, fields []FieldSpec) *Locator {
	return &Locator{logger: logger, fields: fields}
}

// Locate scans the document's fragments in page/line/column order and returns
// one Field per configured spec. Fields without a label match within
// tolerance are marked not found and carry near-miss label suggestions.
func (l *Locator) Locate(doc *document.SourceDocument) document.HeaderFields {
	frags := make([]document.Fragment, len(doc.Fragments))
	copy(frags, doc.Fragments)
	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Page != frags[j].Page {
			return frags[i].Page < frags[j].Page
		}
		if frags[i].Line != frags[j].Line {
			return frags[i].Line < frags[j].Line
		}
		return frags[i].Col < frags[j].Col
	})

	out := make(document.HeaderFields, len(l.fields))
	for _, spec := range l.fields {
		field := l.locateField(spec, frags)
		if !field.Found {
			field.Suggestions = suggest(spec, frags)
			l.logger.Debug("header field not found",
				slog.String("document_id", doc.ID),
				slog.String("field", spec.Name),
				slog.Any("suggestions", field.Suggestions))
		}
		out[spec.Name] = field
	}
	return out
}

func (l *Locator) locateField(spec FieldSpec, frags []document.Fragment) document.Field {
	var best document.Field
	for i, f := range frags {
		embedded, ok := matchLabel(f.Text, spec.Synonyms)
		if !ok {
			continue
		}
		value, page, line := embedded, f.Page, f.Line
		if value == "" {
			value, page, line = nearestValue(frags, i, spec.MaxLineOffset)
		}
		if value == "" {
			continue
		}
		best = document.Field{Value: value, Found: true, Page: page, Line: line}
		if !spec.LastMatchWins {
			return best
		}
	}
	return best
}

// matchLabel reports whether text anchors one of the synonyms. When the label
// carries its value in the same fragment ("Invoice No: 12345"), the embedded
// value is returned.
func matchLabel(text string, synonyms []string) (embedded string, ok bool) {
	collapsed := strings.Join(strings.Fields(text), " ")
	lower := strings.ToLower(collapsed)
	for _, syn := range synonyms {
		s := normalizeLabel(syn)
		if strings.TrimRight(lower, ": ") == s {
			return "", true
		}
		if strings.HasPrefix(lower, s) {
			tail := collapsed[len(s):]
			if tail != "" && (tail[0] == ':' || tail[0] == ' ') {
				if rest := strings.TrimLeft(tail, ": "); rest != "" {
					return rest, true
				}
			}
		}
	}
	return "", false
}

// nearestValue returns the first non-label fragment after the label: the next
// fragment on the same line, or the first fragment on a line within
// maxLineOffset lines below on the same page.
func nearestValue(frags []document.Fragment, labelIdx, maxLineOffset int) (string, int, int) {
	label := frags[labelIdx]
	for _, f := range frags[labelIdx+1:] {
		if f.Page != label.Page {
			break
		}
		if f.Line == label.Line {
			if v := strings.TrimSpace(f.Text); v != "" {
				return v, f.Page, f.Line
			}
			continue
		}
		if f.Line-label.Line > maxLineOffset {
			break
		}
		if v := strings.TrimSpace(f.Text); v != "" {
			return v, f.Page, f.Line
		}
	}
	return "", 0, 0
}

// suggest ranks document labels that nearly match a configured synonym so an
// operator can spot a drifted layout.
func suggest(spec FieldSpec, frags []document.Fragment) []string {
	seen := make(map[string]struct{})
	var suggestions []string
	for _, f := range frags {
		candidate := normalizeLabel(f.Text)
		if candidate == "" {
			continue
		}
		for _, syn := range spec.Synonyms {
			d := fuzzy.LevenshteinDistance(candidate, normalizeLabel(syn))
			if d == 0 || d > suggestionDistance {
				continue
			}
			raw := strings.TrimSpace(f.Text)
			if _, dup := seen[raw]; dup {
				continue
			}
			seen[raw] = struct{}{}
			suggestions = append(suggestions, raw)
		}
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ": ")
	return strings.Join(strings.Fields(s), " ")
}
