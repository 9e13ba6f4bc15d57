// Command docpipe converts extracted vendor documents into ERP-ready
// spreadsheets. It consumes the JSON emitted by the PDF extraction service
// (positioned text fragments plus candidate table regions), runs the pipeline
// for the selected document family, and archives one workbook per document.
//
// One-shot usage:
//
//	docpipe -profile aws [-ref master.xlsx] doc1.json doc2.json ...
//
// With DOCPIPE_SCHEDULE set, docpipe instead sweeps DOCPIPE_INPUT_DIR for
// new documents on the given cron spec until interrupted.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwtools/docpipe/internal/document"
	"github.com/mwtools/docpipe/internal/match"
	"github.com/mwtools/docpipe/internal/pipeline"
	"github.com/mwtools/docpipe/internal/profile"
	"github.com/mwtools/docpipe/internal/refdata"
	"github.com/mwtools/docpipe/internal/writer"
	"github.com/mwtools/docpipe/pkg/config"
	"github.com/mwtools/docpipe/pkg/cron"
	"github.com/mwtools/docpipe/pkg/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "docpipe:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	profileName := flag.String("profile", cfg.Run.Profile, "document family ("+strings.Join(profile.Names(), ", ")+")")
	refPath := flag.String("ref", cfg.Run.ReferencePath, "reference/master table (csv or xlsx)")
	outDir := flag.String("out", cfg.Output.Dir, "output directory")
	workers := flag.Int("workers", cfg.Run.Workers, "parallel document workers")
	flag.Parse()

	logger := newLogger(cfg.Observability)

	if *profileName == "" {
		return fmt.Errorf("no profile selected (use -profile or DOCPIPE_PROFILE)")
	}
	prof, err := profile.ByName(*profileName)
	if err != nil {
		return err
	}

	var metrics *pipeline.Metrics
	if cfg.Observability.MetricsEnabled {
		reg := prometheus.NewRegistry()
		metrics = pipeline.NewMetrics(reg)
		go serveMetrics(logger, reg, cfg.Observability.MetricsPort)
	}

	p, err := pipeline.New(logger, prof, metrics)
	if err != nil {
		return err
	}

	var ref []match.RefRow
	if prof.Reference != nil && *refPath != "" {
		refCfg := *prof.Reference
		refCfg.European = cfg.Run.EuropeanAmounts
		ref, err = loadReference(logger, refCfg, *refPath)
		if err != nil {
			return err
		}
		logger.Info("reference table loaded",
			slog.String("path", *refPath),
			slog.Int("rows", len(ref)))
	}

	store, err := storage.NewLocal(*outDir)
	if err != nil {
		return err
	}

	app := &runner{
		logger:  logger,
		pipe:    p,
		ref:     ref,
		store:   store,
		format:  cfg.Output.Format,
		workers: *workers,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Run.Schedule != "" {
		return app.runScheduled(ctx, cfg.Run.Schedule, cfg.Run.InputDir)
	}
	if flag.NArg() == 0 {
		return fmt.Errorf("no input documents")
	}
	return app.runOnce(ctx, flag.Args())
}

type runner struct {
	logger  *slog.Logger
	pipe    *pipeline.Pipeline
	ref     []match.RefRow
	store   storage.Store
	format  string
	workers int
}

func (r *runner) runOnce(ctx context.Context, paths []string) error {
	docs, err := loadDocuments(paths)
	if err != nil {
		return err
	}

	results := r.pipe.RunBatch(ctx, docs, r.ref, r.workers)
	succeeded, err := r.archive(ctx, results)
	if err != nil {
		return err
	}
	if succeeded == 0 {
		return fmt.Errorf("no document succeeded")
	}
	return nil
}

func (r *runner) runScheduled(ctx context.Context, spec, inputDir string) error {
	sched := cron.NewScheduler(r.logger, spec, inputDir, func(ctx context.Context, paths []string) error {
		docs, err := loadDocuments(paths)
		if err != nil {
			return err
		}
		results := r.pipe.RunBatch(ctx, docs, r.ref, r.workers)
		_, err = r.archive(ctx, results)
		return err
	})
	if err := sched.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	<-sched.Stop().Done()
	return nil
}

// archive writes every successful bundle to the store, keyed by the run that
// produced it, and logs per-document outcomes.
func (r *runner) archive(ctx context.Context, results []document.Result) (int, error) {
	succeeded := 0
	for _, res := range results {
		if !res.Success() {
			r.logger.Error("document failed",
				slog.String("document_id", res.DocumentID),
				slog.Any("error", res.Err))
			continue
		}
		succeeded++
		for _, w := range res.Warnings {
			r.logger.Warn("document warning",
				slog.String("document_id", res.DocumentID),
				slog.String("kind", w.Kind),
				slog.String("message", w.Message))
		}
		if err := r.writeBundle(ctx, res); err != nil {
			return succeeded, err
		}
	}

	r.logger.Info("batch complete",
		slog.Int("documents", len(results)),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", len(results)-succeeded))
	return succeeded, nil
}

func (r *runner) writeBundle(ctx context.Context, res document.Result) error {
	if r.format == "csv" {
		for _, table := range res.Bundle.Tables {
			var buf bytes.Buffer
			if err := writer.WriteCSV(&table, &buf); err != nil {
				return err
			}
			name := fmt.Sprintf("%s_%s.csv", res.DocumentID, table.Name)
			info, err := r.store.Save(ctx, res.RunID, name, "text/csv", &buf)
			if err != nil {
				return err
			}
			r.logger.Info("output written", slog.String("path", info.Path), slog.String("run_id", res.RunID.String()))
		}
		return nil
	}

	var buf bytes.Buffer
	if err := writer.NewExcel(r.logger).Write(res.Bundle, &buf); err != nil {
		return err
	}
	info, err := r.store.Save(ctx, res.RunID, res.DocumentID+".xlsx", xlsxContentType, &buf)
	if err != nil {
		return err
	}
	r.logger.Info("output written", slog.String("path", info.Path), slog.String("run_id", res.RunID.String()))
	return nil
}

func newLogger(obs config.ObservabilityConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(obs.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if obs.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func serveMetrics(logger *slog.Logger, reg *prometheus.Registry, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", slog.Any("error", err))
	}
}

func loadDocuments(paths []string) ([]*document.SourceDocument, error) {
	docs := make([]*document.SourceDocument, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var doc document.SourceDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if doc.ID == "" {
			doc.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

func loadReference(logger *slog.Logger, cfg refdata.Config, path string) ([]match.RefRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference table: %w", err)
	}
	defer f.Close()

	loader := refdata.New(logger, cfg)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return loader.LoadCSV(f)
	}
	return loader.LoadExcel(f)
}
