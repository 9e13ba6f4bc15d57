package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Local implements Store on the local filesystem. Each run gets its own
// directory, with a .meta subdirectory of JSON sidecars.
type Local struct {
	basePath string
}

// NewLocal creates a local filesystem store rooted at basePath.
func NewLocal(basePath string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Local{basePath: basePath}, nil
}

// Save stores a file under the given run and returns its metadata.
func (s *Local) Save(ctx context.Context, runID uuid.UUID, name string, contentType string, r io.Reader) (*FileInfo, error) {
	runDir := filepath.Join(s.basePath, runID.String())
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	safeName := sanitizeFilename(name)
	filePath := filepath.Join(runDir, safeName)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("write file: %w", err)
	}

	info := &FileInfo{
		RunID:       runID,
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Path:        safeName,
		CreatedAt:   time.Now(),
	}
	if err := s.saveMetadata(runID, safeName, info); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return info, nil
}

// Open returns a reader for a previously saved file.
func (s *Local) Open(ctx context.Context, runID uuid.UUID, name string) (io.ReadCloser, error) {
	filePath := filepath.Join(s.basePath, runID.String(), sanitizeFilename(name))
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// List returns all files saved under a run.
func (s *Local) List(ctx context.Context, runID uuid.UUID) ([]*FileInfo, error) {
	metaDir := filepath.Join(s.basePath, runID.String(), ".meta")
	entries, err := os.ReadDir(metaDir)
	if os.IsNotExist(err) {
		return []*FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(metaDir, entry.Name()))
		if err != nil {
			continue
		}
		var info FileInfo
		if err := json.Unmarshal(data, &info); err != nil {
			continue
		}
		files = append(files, &info)
	}
	return files, nil
}

// Delete removes a saved file and its metadata.
func (s *Local) Delete(ctx context.Context, runID uuid.UUID, name string) error {
	safeName := sanitizeFilename(name)
	filePath := filepath.Join(s.basePath, runID.String(), safeName)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	os.Remove(filepath.Join(s.basePath, runID.String(), ".meta", safeName+".json"))
	return nil
}

func (s *Local) saveMetadata(runID uuid.UUID, safeName string, info *FileInfo) error {
	metaDir := filepath.Join(s.basePath, runID.String(), ".meta")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(metaDir, safeName+".json"), data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// sanitizeFilename removes unsafe characters from filenames.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
