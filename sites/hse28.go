package sites

import (
	"regexp"

	"github.com/kwokkawai/HKHousingDataCrawl/breadcrumb"
	"github.com/kwokkawai/HKHousingDataCrawl/extract"
	"github.com/kwokkawai/HKHousingDataCrawl/models"
)

var (
	hse28PriceRe = regexp.MustCompile(`售\s*((?:HK)?\$?\s*[\d,]+(?:\.\d+)?\s*萬)`)
	hse28AreaRe  = regexp.MustCompile(`建築(?:面積)?[:：\s]*([\d,]+\s*呎)|實用(?:面積)?[:：\s]*([\d,]+\s*呎)`)
	hse28IDRe    = regexp.MustCompile(`property-(\d+)`)
)

// Hse28 uses plain page query parameters for pagination. Its breadcrumb has
// an extra portal-level sentinel and ends with the listing's own id, which
// must be stripped before the shared parsing rules run.
func Hse28() *Adapter {
	def := &Definition{
		Name:    "28hse",
		Source:  models.SourceHse28,
		BaseURL: "https://www.28hse.com",
		Categories: map[string]string{
			"buy":  "https://www.28hse.com/buy/apartment",
			"rent": "https://www.28hse.com/rent/apartment",
			"買樓":   "https://www.28hse.com/buy/apartment",
			"租樓":   "https://www.28hse.com/rent/apartment",
		},
		DefaultCategory: "buy",
		Pagination:      PaginationURLParam,
		PageParam:       "page",
		LinkInclude: []string{
			"/buy/apartment/property-",
			"/rent/apartment/property-",
			"/apartment/property-",
		},
		ListWaitFor:     `a[href*="property-"]`,
		BreadcrumbArity: breadcrumb.ArityFourLevel,
		Concurrency:     3,
		RateLimitMs:     1000,
		JitterMs:        400,
		MaxRetries:      3,
		CooldownSec:     60,
	}

	fields := extract.Table{
		extract.FieldTitle: {
			extract.Selector("h1", ".property-title", ".detail_title"),
			extract.MetaContent("og:title"),
		},
		extract.FieldPrice: {
			extract.Selector(".price", "[class*='price']"),
			extract.Pattern(hse28PriceRe, 1),
		},
		extract.FieldArea: {
			extract.Selector("[class*='area']"),
			extract.Pattern(hse28AreaRe, 0),
		},
		extract.FieldAddress: {
			extract.Selector(".address", "[class*='address']"),
		},
		extract.FieldPropertyType: {
			extract.Selector("[class*='room']"),
			extract.Pattern(bedroomsRe, 0),
		},
		extract.FieldFloor: {
			extract.Pattern(floorRe, 1),
		},
		extract.FieldDescription: {
			extract.MetaContent("description"),
			extract.Selector(".description", "[class*='detail_desc']"),
		},
	}

	labels := extract.LabelsChain{
		extract.NavLabels(".ui.breadcrumb", ".breadcrumb", "[class*='bread']"),
	}

	return &Adapter{
		Def:         def,
		fields:      fields,
		labels:      labels,
		cleanLabels: dropTrailingIDLabel,
		deriveID: func(url string) string {
			if m := hse28IDRe.FindStringSubmatch(url); m != nil {
				return m[1]
			}
			return ""
		},
	}
}
