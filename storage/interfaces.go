package storage

import "github.com/kwokkawai/HKHousingDataCrawl/models"

// RecordWriter is the interface any record sink must satisfy.
type RecordWriter interface {
	Write(records []*models.PropertyRecord) error
	Close() error
}

// FailureWriter persists URLs that exhausted their retries, so a later run
// can pick them up again.
type FailureWriter interface {
	WriteFailures(failures []models.FailedURL) error
	Close() error
}
