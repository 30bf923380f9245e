package sites

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kwokkawai/HKHousingDataCrawl/breadcrumb"
	"github.com/kwokkawai/HKHousingDataCrawl/extract"
	"github.com/kwokkawai/HKHousingDataCrawl/models"
	"github.com/kwokkawai/HKHousingDataCrawl/normalize"
)

var (
	bedroomsRe  = regexp.MustCompile(`(\d+)\s*房`)
	bathroomsRe = regexp.MustCompile(`(\d+)\s*(?:浴|廁|衛)`)
)

// Adapter binds a site Definition to its extraction strategies. BuildRecord
// satisfies the collector's page-extractor contract.
type Adapter struct {
	Def *Definition

	fields extract.Table
	labels extract.LabelsChain

	// cleanLabels applies site-specific fixes to raw breadcrumb labels
	// before the shared parsing rules run. Nil means no pre-clean.
	cleanLabels func([]string) []string

	// deriveID extracts the site's own listing id from a detail URL.
	// Nil falls back to the generic derivation.
	deriveID func(url string) string
}

// All returns the built-in adapters keyed by site name.
func All() map[string]*Adapter {
	return map[string]*Adapter{
		"centanet": Centanet(),
		"28hse":    Hse28(),
		"ricacorp": Ricacorp(),
	}
}

// BuildRecord parses one detail page into a record. It returns nil without
// an error when the page carries no recognizable listing content.
func (a *Adapter) BuildRecord(html, pageURL string) (*models.PropertyRecord, error) {
	page, err := extract.NewPage(html, pageURL)
	if err != nil {
		return nil, fmt.Errorf("sites: parse %s: %w", pageURL, err)
	}

	fields := a.fields.Extract(page)
	labels, _ := a.labels.Extract(page)
	if a.cleanLabels != nil {
		labels = a.cleanLabels(labels)
	}
	bc, audit := breadcrumb.Parse(labels, a.Def.BreadcrumbArity)

	if len(fields) == 0 && audit == "" {
		return nil, nil
	}

	rec := &models.PropertyRecord{
		Source:       a.Def.Source,
		URL:          pageURL,
		Title:        fields[extract.FieldTitle],
		PriceDisplay: fields[extract.FieldPrice],
		AreaDisplay:  fields[extract.FieldArea],
		Address:      fields[extract.FieldAddress],
		PropertyType: fields[extract.FieldPropertyType],
		Floor:        fields[extract.FieldFloor],
		Description:  fields[extract.FieldDescription],

		Breadcrumb:     audit,
		Category:       bc.Category,
		Region:         bc.Region,
		DistrictLevel2: bc.DistrictLevel2,
		SubDistrict:    bc.SubDistrict,
		EstateName:     bc.EstateName,

		CrawlDate: time.Now(),
	}

	if a.deriveID != nil {
		rec.PropertyID = a.deriveID(pageURL)
	}
	if rec.PropertyID == "" {
		rec.PropertyID = normalize.DeriveID(pageURL)
	}

	rec.Price = normalize.ParsePrice(rec.PriceDisplay)
	rec.Area = normalize.ParseArea(rec.AreaDisplay)
	rec.Bedrooms = firstInt(bedroomsRe, rec.PropertyType, rec.Title)
	rec.Bathrooms = firstInt(bathroomsRe, rec.PropertyType, rec.Title)

	return rec, nil
}

// firstInt returns the first captured integer of re across the candidates.
func firstInt(re *regexp.Regexp, candidates ...string) int {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if m := re.FindStringSubmatch(c); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}

// dropTrailingIDLabel removes a last breadcrumb part that is the listing's
// own id rather than a place name, e.g. "property 3688274".
func dropTrailingIDLabel(labels []string) []string {
	if len(labels) == 0 {
		return labels
	}
	last := strings.ToLower(strings.TrimSpace(labels[len(labels)-1]))
	bare := strings.NewReplacer("-", "", "_", "", " ", "").Replace(last)
	if strings.HasPrefix(last, "property") || isDigits(bare) {
		return labels[:len(labels)-1]
	}
	return labels
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
