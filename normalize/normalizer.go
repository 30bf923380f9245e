// Package normalize validates finished records, strips placeholder values
// and removes duplicates. It is the last gate before records are written.
package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/kwokkawai/HKHousingDataCrawl/breadcrumb"
	"github.com/kwokkawai/HKHousingDataCrawl/models"
	"github.com/kwokkawai/HKHousingDataCrawl/utils"
)

var (
	numberRe  = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	tenKiloRe = regexp.MustCompile(`[萬万]`)
	idSafeRe  = regexp.MustCompile(`^[\w\-%.~]+$`)
)

// Normalizer cleans and deduplicates extracted records.
type Normalizer struct {
	logger *utils.Logger
}

// New creates a Normalizer.
func New(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize validates every record, strips placeholder tokens and keeps the
// first record seen per (source, property_id). Input order is preserved.
func (n *Normalizer) Normalize(records []*models.PropertyRecord) []*models.PropertyRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]*models.PropertyRecord, 0, len(records))

	for _, rec := range records {
		if rec == nil {
			continue
		}
		if !ValidURL(rec.URL) {
			n.logger.Warn("[normalize] dropping record with malformed url: %q", rec.URL)
			continue
		}
		if rec.PropertyID == "" {
			rec.PropertyID = DeriveID(rec.URL)
		}
		if rec.PropertyID == "" {
			n.logger.Warn("[normalize] dropping record without id: %s", rec.URL)
			continue
		}

		scrubFields(rec)

		key := rec.DedupKey()
		if _, dup := seen[key]; dup {
			n.logger.Debug("[normalize] duplicate %s skipped: %s", key, rec.URL)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}

	n.logger.Info("[normalize] kept %d of %d records (dropped %d)",
		len(out), len(records), len(records)-len(out))
	return out
}

// scrubFields enforces the absent-beats-guessed rule: placeholder locale
// tokens become empty, non-positive numerics become nil.
func scrubFields(rec *models.PropertyRecord) {
	for _, f := range []*string{
		&rec.Category, &rec.Region, &rec.DistrictLevel2, &rec.SubDistrict, &rec.EstateName,
	} {
		*f = strings.TrimSpace(*f)
		if breadcrumb.IsPlaceholder(*f) {
			*f = ""
		}
	}

	if rec.Price != nil && *rec.Price <= 0 {
		rec.Price = nil
	}
	if rec.Area != nil && *rec.Area <= 0 {
		rec.Area = nil
	}
	if rec.Bedrooms < 0 {
		rec.Bedrooms = 0
	}
	if rec.Bathrooms < 0 {
		rec.Bathrooms = 0
	}
}

// ValidURL reports whether s is an absolute http(s) URL.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DeriveID extracts a stable property id from a detail URL. The last path
// segment is used when it looks like an identifier; otherwise the id falls
// back to a hash of the full URL, as the sites' own exporters do.
func DeriveID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) > 0 {
		last := segs[len(segs)-1]
		if last != "" && idSafeRe.MatchString(last) {
			return last
		}
	}
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16]
}

// ParsePrice converts a displayed price such as "HK$ 850萬" or
// "$8,500,000" to its numeric value. It returns nil when no positive
// number can be read.
func ParsePrice(display string) *float64 {
	m := numberRe.FindString(strings.ReplaceAll(display, ",", ""))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v <= 0 {
		return nil
	}
	if tenKiloRe.MatchString(display) {
		v *= 10000
	}
	return &v
}

// ParseArea converts a displayed area such as "實用面積 520呎" to square
// feet. It returns nil when no positive number can be read.
func ParseArea(display string) *float64 {
	m := numberRe.FindString(strings.ReplaceAll(display, ",", ""))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}
