// Package storage archives generated output files per pipeline run.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored output file.
type FileInfo struct {
	RunID       uuid.UUID `json:"run_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the interface for archiving pipeline outputs. Files are grouped
// by the run that produced them, so a run's outputs can be listed and
// re-fetched together for audit.
type Store interface {
	// Save stores a file under the given run and returns its metadata.
	Save(ctx context.Context, runID uuid.UUID, name string, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for a previously saved file.
	Open(ctx context.Context, runID uuid.UUID, name string) (io.ReadCloser, error)

	// List returns all files saved under a run.
	List(ctx context.Context, runID uuid.UUID) ([]*FileInfo, error)

	// Delete removes a saved file and its metadata.
	Delete(ctx context.Context, runID uuid.UUID, name string) error
}
