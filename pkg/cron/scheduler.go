// Package cron sweeps an input directory for new documents on a schedule
// using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepFunc processes one batch of input document paths. Files whose
// processing succeeds are moved out of the input directory afterwards; a
// returned error leaves everything in place for the next sweep.
type SweepFunc func(ctx context.Context, paths []string) error

// Scheduler runs a directory sweep on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	logger   *slog.Logger
	spec     string
	inputDir string
	sweep    SweepFunc
}

// NewScheduler creates a scheduler that runs sweep over inputDir per the
// standard 5-field cron spec.
func NewScheduler(logger *slog.Logger, spec, inputDir string, sweep SweepFunc) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		logger:   logger,
		spec:     spec,
		inputDir: inputDir,
		sweep:    sweep,
	}
}

// Start begins the scheduled sweeps.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweepInputDir); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("sweep scheduler started",
		slog.String("spec", s.spec),
		slog.String("input_dir", s.inputDir),
	)
	return nil
}

// Stop gracefully stops the scheduler and returns a context that is done
// once any running sweep finishes.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("sweep scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers a sweep outside the schedule.
func (s *Scheduler) RunNow() {
	go s.sweepInputDir()
}

// sweepInputDir processes every pending document in the input directory and
// moves processed files into a processed/ subdirectory.
func (s *Scheduler) sweepInputDir() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	paths, err := filepath.Glob(filepath.Join(s.inputDir, "*.json"))
	if err != nil {
		s.logger.Error("failed to scan input directory", slog.Any("error", err))
		return
	}
	if len(paths) == 0 {
		s.logger.Debug("sweep found no pending documents")
		return
	}

	s.logger.Info("sweep starting", slog.Int("documents", len(paths)))

	if err := s.sweep(ctx, paths); err != nil {
		s.logger.Error("sweep failed, leaving input files in place", slog.Any("error", err))
		return
	}

	processedDir := filepath.Join(s.inputDir, "processed")
	if err := os.MkdirAll(processedDir, 0755); err != nil {
		s.logger.Error("failed to create processed directory", slog.Any("error", err))
		return
	}

	moved := 0
	for _, path := range paths {
		dest := filepath.Join(processedDir, filepath.Base(path))
		if err := os.Rename(path, dest); err != nil {
			s.logger.Warn("failed to move processed file",
				slog.String("path", path),
				slog.Any("error", err),
			)
			continue
		}
		moved++
	}

	s.logger.Info("sweep completed",
		slog.Int("documents", len(paths)),
		slog.Int("moved", moved),
	)
}
