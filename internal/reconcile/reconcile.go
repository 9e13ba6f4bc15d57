// Package reconcile compares the computed document total against the stated
// total found in the header. A mismatch is a warning carried on the result,
// never a fatal abort; management may proceed with a flagged output.
package reconcile

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mwtools/docpipe/internal/document"
	"github.com/mwtools/docpipe/pkg/money"
)

// Config controls which totals are compared.
type Config struct {
	// StatedTotalField names the header field carrying the stated total.
	StatedTotalField string
	// IncludeTax adds each record's derived tax to the computed total.
	IncludeTax bool
	// European selects the amount-parsing convention for the stated total.
	European bool
	// Tolerance is the maximum absolute difference that still passes. Zero
	// means one minor unit of the document currency, absorbing rounding.
	Tolerance decimal.Decimal
}

// Validator sums derived amounts and checks them against the stated total.
type Validator struct {
	logger *slog.Logger
	cfg    Config
}

func New(logger *slog.Logger, cfg Config) *Validator {
	return &Validator{logger: logger, cfg: cfg}
}

// Validate computes the total over records and compares it to the stated
// total. When the stated total is absent or unparsable the check passes
// vacuously with StatedFound false.
func (v *Validator) Validate(docID string, headers document.HeaderFields, records []document.DerivedRecord) document.ReconciliationResult {
	computed := decimal.Zero
	currency := ""
	for _, rec := range records {
		computed = computed.Add(rec.Amount)
		if v.cfg.IncludeTax {
			computed = computed.Add(rec.Tax)
		}
		if currency == "" {
			currency = rec.Currency
		}
	}

	tolerance := v.cfg.Tolerance
	if tolerance.IsZero() {
		tolerance = money.MinorUnitStep(currency)
	}

	res := document.ReconciliationResult{
		Computed:  computed,
		Tolerance: tolerance,
		Pass:      true,
	}

	raw := headers.Get(v.cfg.StatedTotalField)
	if raw == "" {
		return res
	}
	stated, err := money.ParseAmount(raw, v.cfg.European)
	if err != nil {
		v.logger.Warn("stated total unparsable",
			slog.String("document_id", docID),
			slog.String("raw", raw))
		return res
	}

	res.Stated = stated
	res.StatedFound = true
	res.Delta = computed.Sub(stated).Abs()
	res.Pass = res.Delta.LessThanOrEqual(tolerance)
	if !res.Pass {
		v.logger.Warn("reconciliation mismatch",
			slog.String("document_id", docID),
			slog.String("computed", computed.String()),
			slog.String("stated", stated.String()),
			slog.String("delta", res.Delta.String()))
	}
	return res
}
