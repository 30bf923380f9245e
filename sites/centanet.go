package sites

import (
	"regexp"

	"github.com/kwokkawai/HKHousingDataCrawl/breadcrumb"
	"github.com/kwokkawai/HKHousingDataCrawl/extract"
	"github.com/kwokkawai/HKHousingDataCrawl/models"
)

var (
	centanetPriceRe = regexp.MustCompile(`((?:HK)?\$?\s*[\d,]+(?:\.\d+)?\s*萬)`)
	centanetAreaRe  = regexp.MustCompile(`實用(?:面積)?[:：\s]*([\d,]+\s*呎)`)
	centanetCrumbRe = regexp.MustCompile(`主頁\s*>\s*([^>\n]+)>\s*([^>\n]+)>\s*([^>\n]+)>\s*([^>\n]+)>\s*([^>\n]+)`)
	floorRe         = regexp.MustCompile(`([高中低]層)`)
)

// Centanet paginates through in-page controls; its listing URL never
// changes, so traversal needs a persistent session. The breadcrumb is
// five-level and lives in the page's embedded application state.
func Centanet() *Adapter {
	def := &Definition{
		Name:    "centanet",
		Source:  models.SourceCentanet,
		BaseURL: "https://hk.centanet.com",
		Categories: map[string]string{
			"buy":  "https://hk.centanet.com/findproperty/list/buy",
			"rent": "https://hk.centanet.com/findproperty/list/rent",
			"買樓":   "https://hk.centanet.com/findproperty/list/buy",
			"租樓":   "https://hk.centanet.com/findproperty/list/rent",
		},
		DefaultCategory: "buy",
		Pagination:      PaginationSession,
		LinkInclude:     []string{"/findproperty/detail/"},
		LinkExclude:     []string{"/findproperty/list/", "/findproperty/district/"},
		ListWaitFor:     `a[href*="/findproperty/detail/"]`,
		BreadcrumbArity: breadcrumb.ArityFiveLevel,
		Concurrency:     2,
		RateLimitMs:     1500,
		JitterMs:        500,
		MaxRetries:      3,
		CooldownSec:     60,
	}

	fields := extract.Table{
		extract.FieldTitle: {
			extract.Selector("h1", ".property-title", "[class*='detail-title']"),
			extract.MetaContent("og:title"),
		},
		extract.FieldPrice: {
			extract.JSONLDField("price"),
			extract.Selector(".price", "[class*='price-info']"),
			extract.Pattern(centanetPriceRe, 1),
		},
		extract.FieldArea: {
			extract.Selector("[class*='saleable-area']", "[class*='area']"),
			extract.Pattern(centanetAreaRe, 1),
		},
		extract.FieldAddress: {
			extract.JSONLDField("address"),
			extract.Selector(".address", "[class*='address']"),
		},
		extract.FieldPropertyType: {
			extract.Selector("[class*='room-info']"),
			extract.Pattern(bedroomsRe, 0),
		},
		extract.FieldFloor: {
			extract.Pattern(floorRe, 1),
		},
		extract.FieldDescription: {
			extract.MetaContent("description"),
			extract.Selector(".description", "[class*='remark']"),
		},
	}

	labels := extract.LabelsChain{
		extract.AppStatePaths(),
		extract.NavLabels(".breadcrumb", "nav[aria-label='breadcrumb']", "[class*='bread']"),
		extract.TextLabels(centanetCrumbRe),
	}

	return &Adapter{Def: def, fields: fields, labels: labels}
}
