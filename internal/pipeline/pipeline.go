// Package pipeline wires a profile's stages into one runnable pipeline:
// locate header fields and assemble the table, classify the variant, derive,
// reconcile, optionally match against reference data, and compose the output
// bundle. Batches run documents on independent workers; one document's
// failure never aborts its siblings.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwtools/docpipe/internal/assembler"
	"github.com/mwtools/docpipe/internal/classifier"
	"github.com/mwtools/docpipe/internal/compose"
	"github.com/mwtools/docpipe/internal/derive"
	"github.com/mwtools/docpipe/internal/document"
	"github.com/mwtools/docpipe/internal/locator"
	"github.com/mwtools/docpipe/internal/match"
	"github.com/mwtools/docpipe/internal/profile"
	"github.com/mwtools/docpipe/internal/reconcile"
)

// DefaultWorkers bounds batch parallelism when the caller does not.
const DefaultWorkers = 4

// Pipeline runs one document family end to end.
type Pipeline struct {
	logger  *slog.Logger
	prof    profile.Profile
	metrics *Metrics

	loc *locator.Locator
	asm *assembler.Assembler
	cls *classifier.Classifier
	eng *derive.Engine
	val *reconcile.Validator
	mat *match.Matcher
	cmp *compose.Composer
}

// New builds every stage from the profile. All configuration validation
// happens here; a misconfigured profile never reaches a document.
func New(logger *slog.Logger, prof profile.Profile, metrics *Metrics) (*Pipeline, error) {
	cls, err := classifier.New(logger, prof.Variants, prof.Rules)
	if err != nil {
		return nil, err
	}
	eng, err := derive.New(logger, prof.Derivations)
	if err != nil {
		return nil, err
	}
	cmp, err := compose.New(logger, prof.Schemas, prof.Fns)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		logger:  logger,
		prof:    prof,
		metrics: metrics,
		loc:     locator.New(logger, prof.Fields),
		asm:     assembler.New(logger, prof.Table),
		cls:     cls,
		eng:     eng,
		val:     reconcile.New(logger, prof.Reconciliation),
		cmp:     cmp,
	}
	if prof.Match != nil {
		p.mat = match.New(logger, *prof.Match)
	}
	return p, nil
}

// Run processes one document. Row-scoped problems are collected on the
// result; only document-fatal failures set Result.Err.
func (p *Pipeline) Run(ctx context.Context, doc *document.SourceDocument, ref []match.RefRow) document.Result {
	start := time.Now()
	res := document.Result{DocumentID: doc.ID, RunID: uuid.New()}
	defer func() {
		p.metrics.observeDuration(p.prof.Name, time.Since(start).Seconds())
		if res.Err != nil {
			p.metrics.document(p.prof.Name, "failed")
		} else {
			p.metrics.document(p.prof.Name, "ok")
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	headers := p.loc.Locate(doc)

	table, err := p.asm.Assemble(doc)
	if err != nil {
		res.Err = err
		return res
	}
	res.Skipped = table.Skipped
	res.RowErrors = append(res.RowErrors, table.Errors...)
	p.metrics.countRows(p.prof.Name, "extracted", len(table.Items))
	p.metrics.countRows(p.prof.Name, "skipped", len(table.Skipped))
	p.metrics.countRows(p.prof.Name, "errored", len(table.Errors))

	variant, err := p.cls.Classify(doc.ID, doc.VariantHint, classifier.Inputs{
		Headers:   headers,
		Signature: table.Signature,
		Text:      doc.Text(),
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Variant = variant

	records, rowErrs, err := p.eng.Derive(variant, headers, table.Items)
	if err != nil {
		res.Err = err
		return res
	}
	res.RowErrors = append(res.RowErrors, rowErrs...)
	p.metrics.countRows(p.prof.Name, "errored", len(rowErrs))
	for _, rec := range records {
		for _, flag := range rec.Flags {
			res.Warnings = append(res.Warnings, document.Warning{
				Kind:    "derivation",
				Message: flag,
			})
		}
	}

	recon := p.val.Validate(doc.ID, headers, records)
	res.Reconciliation = &recon
	if recon.StatedFound && !recon.Pass {
		res.Warnings = append(res.Warnings, document.Warning{
			Kind:    "reconciliation_mismatch",
			Message: "computed " + recon.Computed.String() + " vs stated " + recon.Stated.String() + " (delta " + recon.Delta.String() + ")",
		})
		p.metrics.mismatch(p.prof.Name)
	}

	if p.mat != nil {
		res.Matches = p.mat.Match(doc.ID, table.Items, ref)
	}

	res.Bundle = p.cmp.Compose(headers, records, res.Matches)
	p.logger.Info("document processed",
		slog.String("document_id", doc.ID),
		slog.String("profile", p.prof.Name),
		slog.String("variant", string(variant)),
		slog.Int("records", len(records)),
		slog.Int("row_errors", len(res.RowErrors)),
		slog.Int("warnings", len(res.Warnings)))
	return res
}

// RunBatch processes documents on workers goroutines and returns one result
// per document, in input order. Sibling documents share only read-only
// configuration and reference data.
func (p *Pipeline) RunBatch(ctx context.Context, docs []*document.SourceDocument, ref []match.RefRow, workers int) []document.Result {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	type job struct {
		idx int
		doc *document.SourceDocument
	}
	jobs := make(chan job)
	results := make([]document.Result, len(docs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = p.Run(ctx, j.doc, ref)
			}
		}()
	}

	for i, doc := range docs {
		jobs <- job{idx: i, doc: doc}
	}
	close(jobs)
	wg.Wait()
	return results
}
