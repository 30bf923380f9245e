package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kwokkawai/HKHousingDataCrawl/models"
	"github.com/kwokkawai/HKHousingDataCrawl/utils"
)

// PostgresWriter persists normalized records to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	ping := utils.RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
	}
	if err := ping.Do(context.Background(), "postgres ping", db.Ping); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			id              SERIAL PRIMARY KEY,
			property_id     VARCHAR(128) NOT NULL,
			source          VARCHAR(32)  NOT NULL,
			url             TEXT         NOT NULL,
			title           TEXT         NOT NULL DEFAULT '',
			price           NUMERIC(14,2),
			price_display   TEXT         NOT NULL DEFAULT '',
			area            NUMERIC(10,2),
			area_display    TEXT         NOT NULL DEFAULT '',
			breadcrumb      TEXT         NOT NULL DEFAULT '',
			category        TEXT         NOT NULL DEFAULT '',
			region          TEXT         NOT NULL DEFAULT '',
			district_level2 TEXT         NOT NULL DEFAULT '',
			sub_district    TEXT         NOT NULL DEFAULT '',
			estate_name     TEXT         NOT NULL DEFAULT '',
			address         TEXT         NOT NULL DEFAULT '',
			property_type   TEXT         NOT NULL DEFAULT '',
			bedrooms        INT          NOT NULL DEFAULT 0,
			bathrooms       INT          NOT NULL DEFAULT 0,
			floor           TEXT         NOT NULL DEFAULT '',
			description     TEXT         NOT NULL DEFAULT '',
			crawl_date      TIMESTAMPTZ  NOT NULL,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			UNIQUE (source, property_id)
		);

		CREATE INDEX IF NOT EXISTS idx_properties_region ON properties(region);
		CREATE INDEX IF NOT EXISTS idx_properties_estate ON properties(estate_name);
		CREATE INDEX IF NOT EXISTS idx_properties_price  ON properties(price);
	`)
	return err
}

// Write batch-inserts records, skipping rows already present for the same
// (source, property_id).
func (pw *PostgresWriter) Write(records []*models.PropertyRecord) error {
	if len(records) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := pw.insertBatch(records[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []*models.PropertyRecord) error {
	const cols = 21
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, r := range batch {
		base := idx * cols
		ph := make([]string, cols)
		for c := 0; c < cols; c++ {
			ph[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			r.PropertyID, string(r.Source), r.URL, r.Title,
			r.Price, r.PriceDisplay, r.Area, r.AreaDisplay,
			r.Breadcrumb, r.Category, r.Region, r.DistrictLevel2, r.SubDistrict, r.EstateName,
			r.Address, r.PropertyType, r.Bedrooms, r.Bathrooms, r.Floor, r.Description,
			r.CrawlDate)
	}

	query := fmt.Sprintf(`
		INSERT INTO properties (
			property_id, source, url, title,
			price, price_display, area, area_display,
			breadcrumb, category, region, district_level2, sub_district, estate_name,
			address, property_type, bedrooms, bathrooms, floor, description,
			crawl_date
		)
		VALUES %s
		ON CONFLICT (source, property_id) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

// Close releases the database connection pool.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
