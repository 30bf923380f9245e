package models

import "time"

// Source identifies which site a record was extracted from.
type Source string

const (
	SourceCentanet Source = "centanet"
	SourceHse28    Source = "28hse"
	SourceRicacorp Source = "ricacorp"
)

// PropertyRecord is the finalized, validated record for one listing.
// A record is immutable once built: missing values stay absent, they are
// never filled with guesses or defaults.
type PropertyRecord struct {
	PropertyID string `json:"property_id"`
	Source     Source `json:"source"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`

	Price        *float64 `json:"price,omitempty"`
	PriceDisplay string   `json:"price_display,omitempty"`
	Area         *float64 `json:"area,omitempty"`
	AreaDisplay  string   `json:"area_display,omitempty"`

	// Breadcrumb keeps the cleaned, sentinel-prefixed path verbatim for audit.
	// The five fields below are derived from it, each optional.
	Breadcrumb     string `json:"breadcrumb,omitempty"`
	Category       string `json:"category,omitempty"`
	Region         string `json:"region,omitempty"`
	DistrictLevel2 string `json:"district_level2,omitempty"`
	SubDistrict    string `json:"sub_district,omitempty"`
	EstateName     string `json:"estate_name,omitempty"`

	Address      string `json:"address,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
	Bedrooms     int    `json:"bedrooms,omitempty"`
	Bathrooms    int    `json:"bathrooms,omitempty"`
	Floor        string `json:"floor,omitempty"`
	Description  string `json:"description,omitempty"`

	CrawlDate time.Time `json:"crawl_date"`
}

// DedupKey is the record identity: first record seen per key wins.
func (r *PropertyRecord) DedupKey() string {
	return string(r.Source) + "|" + r.PropertyID
}

// FailedURL records a detail or listing URL that exhausted its retries.
// It is created once per URL and never retried within the same run.
type FailedURL struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// ExtractionAttempt is the audit record of a single fetch try.
type ExtractionAttempt struct {
	URL       string        `json:"url"`
	Kind      string        `json:"kind"`
	Attempt   int           `json:"attempt"`
	Status    int           `json:"status,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}
