package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kwokkawai/HKHousingDataCrawl/models"
)

// FailedURLWriter persists failed URLs one per line as "url<TAB>reason".
// The file is the run's resume list: feeding it back in retries exactly the
// URLs that were lost.
type FailedURLWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewFailedURLWriter creates (or truncates) the file at the given path.
func NewFailedURLWriter(path string) (*FailedURLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed-urls: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed-urls: create file %q: %w", path, err)
	}
	return &FailedURLWriter{file: f, buf: bufio.NewWriter(f)}, nil
}

// WriteFailures appends one line per failure.
func (w *FailedURLWriter) WriteFailures(failures []models.FailedURL) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range failures {
		if _, err := fmt.Fprintf(w.buf, "%s\t%s\n", f.URL, f.Reason); err != nil {
			return fmt.Errorf("failed-urls: write line: %w", err)
		}
	}
	return w.buf.Flush()
}

// Close flushes and closes the underlying file.
func (w *FailedURLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed-urls: flush: %w", err)
	}
	return w.file.Close()
}

// ReadFailedURLs loads a previously written failure file and returns its
// URLs, so a run can resume from them.
func ReadFailedURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed-urls: open %q: %w", path, err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		for i := 0; i < len(line); i++ {
			if line[i] == '\t' {
				line = line[:i]
				break
			}
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed-urls: read %q: %w", path, err)
	}
	return urls, nil
}
