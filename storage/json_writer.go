package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kwokkawai/HKHousingDataCrawl/models"
)

// JSONWriter writes the full record set to a single JSON file.
type JSONWriter struct {
	path string
}

// NewJSONWriter prepares a writer for the given path. Intermediate
// directories are created automatically.
func NewJSONWriter(path string) (*JSONWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("json: create output dir: %w", err)
	}
	return &JSONWriter{path: path}, nil
}

// Write replaces the file with the given records as an indented JSON array.
func (j *JSONWriter) Write(records []*models.PropertyRecord) error {
	if records == nil {
		records = []*models.PropertyRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("json: marshal records: %w", err)
	}
	if err := os.WriteFile(j.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", j.path, err)
	}
	return nil
}

// Close is a no-op; the file is written atomically per Write call.
func (j *JSONWriter) Close() error { return nil }
