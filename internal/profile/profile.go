// Package profile holds the per-tool-family configuration: which header
// fields to locate, what the line-item table looks like, how variants are
// detected, every derivation rule, and the output schemas. A profile is pure
// configuration; the pipeline wires it into stage instances.
package profile

import (
	"fmt"
	"sort"

	"github.com/mwtools/docpipe/internal/assembler"
	"github.com/mwtools/docpipe/internal/classifier"
	"github.com/mwtools/docpipe/internal/compose"
	"github.com/mwtools/docpipe/internal/derive"
	"github.com/mwtools/docpipe/internal/document"
	"github.com/mwtools/docpipe/internal/locator"
	"github.com/mwtools/docpipe/internal/match"
	"github.com/mwtools/docpipe/internal/reconcile"
	"github.com/mwtools/docpipe/internal/refdata"
)

// Profile is the complete configuration of one document family.
type Profile struct {
	Name           string
	Fields         []locator.FieldSpec
	Table          assembler.Config
	Variants       []document.Variant
	Rules          []classifier.Rule
	Derivations    map[document.Variant]derive.Rules
	Reconciliation reconcile.Config
	// Match and Reference are set only for families that join line items
	// against caller-supplied master data.
	Match     *match.Config
	Reference *refdata.Config
	Schemas   []compose.Schema
	Fns       map[string]compose.Fn
}

// Builder constructs a fresh Profile. Profiles carrying per-run state (such
// as invoice versioning counters) must be rebuilt per batch, so the registry
// stores builders rather than instances.
type Builder func() Profile

var registry = map[string]Builder{
	"aws":   AWS,
	"cloud": Cloud,
	"ibm":   IBM,
	"dell":  Dell,
}

// ByName returns a fresh profile for the named family.
func ByName(name string) (Profile, error) {
	b, ok := registry[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (have %v)", name, Names())
	}
	return b(), nil
}

// Names lists the registered family names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
