package sites

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/kwokkawai/HKHousingDataCrawl/breadcrumb"
	"github.com/kwokkawai/HKHousingDataCrawl/extract"
	"github.com/kwokkawai/HKHousingDataCrawl/models"
)

var (
	ricacorpPriceRe = regexp.MustCompile(`((?:HK)?\$?\s*[\d,]+(?:\.\d+)?\s*萬)`)
	ricacorpAreaRe  = regexp.MustCompile(`實用(?:面積)?[:：\s]*([\d,]+\s*呎)`)
	ricacorpCodeRe  = regexp.MustCompile(`(ch\d{5,})`)
	slugIDTokenRe   = regexp.MustCompile(`^[a-z]{1,3}\d{5,}$`)
)

// ricacorpRegions and ricacorpDistricts are keyword tables for inferring
// location from visible text when the page shows no breadcrumb. Ordering
// matters: more specific regions come before their prefixes.
var ricacorpRegions = []string{"香港島", "港島", "九龍", "新界東", "新界西", "新界", "離島"}

var ricacorpDistricts = []string{
	"中半山", "西半山", "上環", "中環", "金鐘", "灣仔", "銅鑼灣", "北角", "筲箕灣", "西灣河", "柴灣", "小西灣",
	"九龍站", "尖沙咀", "佐敦", "油麻地", "旺角", "太子", "深水埗", "長沙灣", "荔枝角", "美孚", "何文田", "九龍城",
	"土瓜灣", "黃大仙", "鑽石山", "新蒲崗", "九龍灣", "牛頭角", "觀塘", "藍田", "油塘",
	"沙田", "大圍", "火炭", "馬鞍山", "大埔", "粉嶺", "上水", "荃灣", "葵涌", "青衣", "屯門", "元朗", "天水圍",
	"將軍澳", "西貢", "清水灣", "東涌", "愉景灣",
}

// Ricacorp serves five-level breadcrumbs but often only in the detail URL's
// slug, so the label chain ends with slug inference over the URL plus
// keyword matching over visible text.
func Ricacorp() *Adapter {
	def := &Definition{
		Name:    "ricacorp",
		Source:  models.SourceRicacorp,
		BaseURL: "https://www.ricacorp.com",
		Categories: map[string]string{
			"buy":  "https://www.ricacorp.com/zh-hk/property/list/buy",
			"rent": "https://www.ricacorp.com/zh-hk/property/list/rent",
			"買樓":   "https://www.ricacorp.com/zh-hk/property/list/buy",
			"租樓":   "https://www.ricacorp.com/zh-hk/property/list/rent",
		},
		DefaultCategory: "buy",
		Pagination:      PaginationURLParam,
		PageParam:       "page",
		LinkInclude: []string{
			"/zh-hk/property/detail/",
			"/property/detail/",
		},
		LinkExclude:     []string{"/property/list/"},
		ListWaitFor:     `a[href*="/property/detail/"]`,
		BreadcrumbArity: breadcrumb.ArityFiveLevel,
		Concurrency:     2,
		RateLimitMs:     1200,
		JitterMs:        400,
		MaxRetries:      3,
		CooldownSec:     60,
	}

	fields := extract.Table{
		extract.FieldTitle: {
			extract.Selector("h1", ".property-title", "[class*='title']"),
			extract.MetaContent("og:title"),
		},
		extract.FieldPrice: {
			extract.JSONLDField("price"),
			extract.Selector(".price", "[class*='price']"),
			extract.Pattern(ricacorpPriceRe, 1),
		},
		extract.FieldArea: {
			extract.Selector("[class*='area']"),
			extract.Pattern(ricacorpAreaRe, 1),
		},
		extract.FieldAddress: {
			extract.JSONLDField("address"),
			extract.Selector(".address", "[class*='address']"),
		},
		extract.FieldPropertyType: {
			extract.Pattern(bedroomsRe, 0),
		},
		extract.FieldFloor: {
			extract.Pattern(floorRe, 1),
		},
		extract.FieldDescription: {
			extract.MetaContent("description"),
			extract.Selector(".description", "[class*='description']"),
		},
	}

	labels := extract.LabelsChain{
		extract.NavLabels(".breadcrumb", "nav[aria-label='breadcrumb']", "[class*='bread']"),
		ricacorpSlugLabels(),
	}

	return &Adapter{
		Def:    def,
		fields: fields,
		labels: labels,
		deriveID: func(rawURL string) string {
			if m := ricacorpCodeRe.FindStringSubmatch(strings.ToLower(rawURL)); m != nil {
				return m[1]
			}
			return ""
		},
	}
}

// ricacorpSlugLabels rebuilds a five-level label path from the detail URL's
// slug and keyword hits in the visible text. Conservative on purpose: a
// token it cannot place is dropped, never guessed.
func ricacorpSlugLabels() extract.LabelsStrategy {
	return func(p *extract.Page) ([]string, bool) {
		tokens := slugTokens(p.URL)
		if len(tokens) == 0 {
			return nil, false
		}

		region, district := scanLocation(p.Text())

		// Tokens after the "hma" marker name the estate itself; before it
		// sits the sub-district.
		subDistrict := tokens[0]
		estate := ""
		for i, t := range tokens {
			if strings.EqualFold(t, "hma") {
				if i+1 < len(tokens) {
					estate = tokens[i+1]
				}
				break
			}
		}
		if estate == "" && len(tokens) > 1 {
			estate = tokens[1]
		}
		if estate == "" {
			return nil, false
		}

		labels := []string{"二手盤"}
		if region != "" {
			labels = append(labels, region)
		}
		if district != "" {
			labels = append(labels, district)
		}
		labels = append(labels, subDistrict, estate)
		// Positional mapping needs all five levels; fewer means the text
		// scan failed and the derived fields would land on wrong slots.
		if len(labels) < 5 {
			return nil, false
		}
		return labels, true
	}
}

func slugTokens(u *url.URL) []string {
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 {
		return nil
	}
	slug, err := url.PathUnescape(segs[len(segs)-1])
	if err != nil {
		slug = segs[len(segs)-1]
	}

	var tokens []string
	for _, t := range strings.Split(slug, "-") {
		tl := strings.ToLower(t)
		if t == "" || tl == "hk" || slugIDTokenRe.MatchString(tl) || isDigits(t) {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

func scanLocation(text string) (region, district string) {
	for _, rg := range ricacorpRegions {
		if strings.Contains(text, rg) {
			if rg == "港島" {
				rg = "香港島"
			}
			region = rg
			break
		}
	}
	for _, d := range ricacorpDistricts {
		if strings.Contains(text, d) {
			district = d
			break
		}
	}
	return region, district
}
