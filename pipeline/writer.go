// Package pipeline persists crawl results as stable on-disk datasets.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DatasetWriter serializes each crawler's output to a canonical JSON
// document under one directory. Files are written whole via a temp-file
// rename, so a dataset is never observed half-written.
type DatasetWriter struct {
	dir string
}

// NewDatasetWriter creates the output directory if needed.
func NewDatasetWriter(dir string) (*DatasetWriter, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	return &DatasetWriter{dir: dir}, nil
}

// Path returns the on-disk location of a named dataset.
func (w *DatasetWriter) Path(name string) string {
	return filepath.Join(w.dir, name+".json")
}

// Write marshals records as a pretty-printed JSON array to <dir>/<name>.json.
// Records marshal with every key present (nulls for absent optionals), so
// downstream consumers can rely on a fixed schema.
func (w *DatasetWriter) Write(name string, records any) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s dataset: %w", name, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(w.dir, name+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s dataset: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s dataset: %w", name, err)
	}
	if err := os.Rename(tmpName, w.Path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish %s dataset: %w", name, err)
	}
	return nil
}

// Validate ensures a named dataset exists on disk and has content.
func (w *DatasetWriter) Validate(name string) error {
	info, err := os.Stat(w.Path(name))
	if err != nil {
		return fmt.Errorf("stat %s dataset: %w", name, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s dataset is empty", name)
	}
	return nil
}
