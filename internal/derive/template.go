package derive

import (
	"fmt"
	"strings"

	"github.com/mwtools/docpipe/internal/document"
)

// checkTemplate validates placeholder syntax at registration time.
func checkTemplate(tpl string) error {
	if strings.TrimSpace(tpl) == "" {
		return fmt.Errorf("empty template")
	}
	depth := 0
	start := -1
	for i, r := range tpl {
		switch r {
		case '{':
			if depth != 0 {
				return fmt.Errorf("nested placeholder at offset %d", i)
			}
			depth++
			start = i
		case '}':
			if depth == 0 {
				return fmt.Errorf("unbalanced '}' at offset %d", i)
			}
			depth--
			if strings.TrimSpace(tpl[start+1:i]) == "" {
				return fmt.Errorf("empty placeholder at offset %d", start)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced '{' at offset %d", start)
	}
	return nil
}

// renderTemplate substitutes {name} placeholders. Derived fields take
// precedence over header fields, which take precedence over extra columns.
// Names with no source render empty; missing data is a document condition,
// not a configuration one.
func renderTemplate(tpl string, headers document.HeaderFields, rec *document.DerivedRecord) string {
	var b strings.Builder
	rest := tpl
	for {
		open := strings.IndexByte(rest, '{')
		if open == -1 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.IndexByte(rest[open:], '}')
		if end == -1 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:open])
		name := strings.TrimSpace(rest[open+1 : open+end])
		b.WriteString(resolve(name, headers, rec))
		rest = rest[open+end+1:]
	}
}

func resolve(name string, headers document.HeaderFields, rec *document.DerivedRecord) string {
	switch name {
	case "code":
		return rec.Item.Code
	case "description":
		return rec.Item.Description
	case "quantity":
		return rec.Item.Quantity.String()
	case "unit_price":
		return rec.Item.UnitPrice.String()
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
	case "row":
		return fmt.Sprintf("%d", rec.Item.Row)
	}
	if headers.Found(name) {
		return headers.Get(name)
	}
	if v, ok := rec.Codes[name]; ok {
		return v
	}
	if v, ok := rec.Item.Extra[name]; ok {
		return v
	}
	return ""
}
