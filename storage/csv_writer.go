package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/kwokkawai/HKHousingDataCrawl/models"
)

var csvHeader = []string{
	"property_id", "source", "url", "title",
	"price", "price_display", "area", "area_display",
	"breadcrumb", "category", "region", "district_level2", "sub_district", "estate_name",
	"address", "property_type", "bedrooms", "bathrooms", "floor", "description",
	"crawl_date",
}

// CSVWriter writes records to a CSV file with a fixed header.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per record. Absent optional values stay empty cells.
func (c *CSVWriter) Write(records []*models.PropertyRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		row := []string{
			r.PropertyID,
			string(r.Source),
			r.URL,
			r.Title,
			floatCell(r.Price),
			r.PriceDisplay,
			floatCell(r.Area),
			r.AreaDisplay,
			r.Breadcrumb,
			r.Category,
			r.Region,
			r.DistrictLevel2,
			r.SubDistrict,
			r.EstateName,
			r.Address,
			r.PropertyType,
			intCell(r.Bedrooms),
			intCell(r.Bathrooms),
			r.Floor,
			r.Description,
			r.CrawlDate.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return fmt.Errorf("csv: flush: %w", err)
	}
	return c.file.Close()
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intCell(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
