package sites

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kwokkawai/HKHousingDataCrawl/models"
)

const centanetDetailHTML = `<html><head>
<meta property="og:title" content="瓏門 2房 高層">
<script>window.__STATE__ = {breadcrumb: {paths: [{path:"買樓_buy"},{path:"新界西_4-NW"},{path:"屯門_TM"},{path:"屯門市中心_TMC"},{path:"瓏門_EST"}]}};</script>
</head><body>
<h1>瓏門 2房 高層</h1>
<div class="price">HK$ 850萬</div>
<div class="saleable-area">實用面積 520呎</div>
<div class="address">屯門屯隆街3號</div>
</body></html>`

func TestCentanetBuildRecord(t *testing.T) {
	a := Centanet()
	rec, err := a.BuildRecord(centanetDetailHTML, "https://hk.centanet.com/findproperty/detail/ABC123")
	if err != nil {
		t.Fatalf("BuildRecord: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.Source != models.SourceCentanet {
		t.Errorf("source: got %s", rec.Source)
	}
	if rec.Category != "買樓" || rec.Region != "新界西" || rec.DistrictLevel2 != "屯門" ||
		rec.SubDistrict != "屯門市中心" || rec.EstateName != "瓏門" {
		t.Errorf("breadcrumb fields: %+v", rec)
	}
	if rec.Breadcrumb != "主頁 > 買樓 > 新界西 > 屯門 > 屯門市中心 > 瓏門" {
		t.Errorf("audit breadcrumb: %q", rec.Breadcrumb)
	}
	if rec.Price == nil || *rec.Price != 8_500_000 {
		t.Errorf("price: %v", rec.Price)
	}
	if rec.Area == nil || *rec.Area != 520 {
		t.Errorf("area: %v", rec.Area)
	}
	if rec.Bedrooms != 2 {
		t.Errorf("bedrooms: got %d, want 2", rec.Bedrooms)
	}
	if rec.PropertyID != "ABC123" {
		t.Errorf("property id: got %q", rec.PropertyID)
	}
}

const hse28DetailHTML = `<html><head><title>x</title></head><body>
<div class="ui breadcrumb">
<a href="/">主頁</a><a href="/estate">地產主頁</a><a href="/buy">住宅售盤</a>
<a href="/nt">新界</a><a href="/tp">大埔,太和,白石角</a><a href="/e">逸瓏灣8</a>
<span>property 3688274</span>
</div>
<h1>逸瓏灣8 3房套</h1>
<div class="price">售 1,238萬</div>
<div class="area">建築面積 1,050呎</div>
</body></html>`

func TestHse28BuildRecord(t *testing.T) {
	a := Hse28()
	rec, err := a.BuildRecord(hse28DetailHTML, "https://www.28hse.com/buy/apartment/property-3688274")
	if err != nil {
		t.Fatalf("BuildRecord: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.PropertyID != "3688274" {
		t.Errorf("property id: got %q, want 3688274", rec.PropertyID)
	}
	if rec.Category != "住宅售盤" || rec.Region != "新界" || rec.DistrictLevel2 != "大埔,太和,白石角" {
		t.Errorf("breadcrumb fields: %+v", rec)
	}
	if rec.EstateName != "逸瓏灣8" {
		t.Errorf("estate: got %q, want 逸瓏灣8", rec.EstateName)
	}
	// Four-level site: no sub-district slot.
	if rec.SubDistrict != "" {
		t.Errorf("sub_district must stay absent on a four-level site, got %q", rec.SubDistrict)
	}
	if rec.Price == nil || *rec.Price != 12_380_000 {
		t.Errorf("price: %v", rec.Price)
	}
	if rec.Bedrooms != 3 {
		t.Errorf("bedrooms: got %d", rec.Bedrooms)
	}
}

const ricacorpDetailHTML = `<html><body>
<h1>兆麟苑 2房</h1>
<div>位於新界西屯門南，實用面積 420呎，售 628.8萬</div>
<div class="price">628.8萬</div>
</body></html>`

func TestRicacorpSlugInference(t *testing.T) {
	a := Ricacorp()
	u := "https://www.ricacorp.com/zh-hk/property/detail/屯門南-hma-兆麟苑-旭麟閣-ch63281948-3-hk"
	rec, err := a.BuildRecord(ricacorpDetailHTML, u)
	if err != nil {
		t.Fatalf("BuildRecord: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.PropertyID != "ch63281948" {
		t.Errorf("property id: got %q, want ch63281948", rec.PropertyID)
	}
	if rec.Region != "新界西" {
		t.Errorf("region: got %q, want 新界西", rec.Region)
	}
	if rec.DistrictLevel2 != "屯門" {
		t.Errorf("district_level2: got %q, want 屯門", rec.DistrictLevel2)
	}
	if rec.EstateName != "兆麟苑" {
		t.Errorf("estate: got %q, want 兆麟苑", rec.EstateName)
	}
	if rec.Price == nil || *rec.Price != 6_288_000 {
		t.Errorf("price: %v", rec.Price)
	}
}

func TestDropTrailingIDLabel(t *testing.T) {
	got := dropTrailingIDLabel([]string{"住宅售盤", "新界", "逸瓏灣8", "property 3688274"})
	if len(got) != 3 || got[2] != "逸瓏灣8" {
		t.Errorf("expected id label dropped, got %v", got)
	}
	got = dropTrailingIDLabel([]string{"住宅售盤", "新界", "逸瓏灣8"})
	if len(got) != 3 {
		t.Errorf("plain labels must survive, got %v", got)
	}
	got = dropTrailingIDLabel([]string{"住宅售盤", "3688274"})
	if len(got) != 1 {
		t.Errorf("bare digit label must be dropped, got %v", got)
	}
}

func TestDefinitionPageURL(t *testing.T) {
	d := Hse28().Def
	list, err := d.ListURL("buy")
	if err != nil {
		t.Fatalf("ListURL: %v", err)
	}
	if got := d.PageURL(list, 1); got != list {
		t.Errorf("page 1 must keep the URL, got %s", got)
	}
	if got := d.PageURL(list, 3); got != list+"?page=3" {
		t.Errorf("page 3: got %s", got)
	}
	if _, err := d.ListURL("nonsense"); err == nil {
		t.Error("unknown category must error")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	data := "28hse:\n  rate_limit_ms: 2500\n  concurrency: 5\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	def := Hse28().Def
	defs := map[string]*Definition{"28hse": def}
	if err := LoadOverrides(path, defs); err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	if def.RateLimitMs != 2500 || def.Concurrency != 5 {
		t.Errorf("overrides not applied: rate=%d conc=%d", def.RateLimitMs, def.Concurrency)
	}
	if def.PageParam != "page" {
		t.Errorf("untouched fields must keep built-in values, got %q", def.PageParam)
	}

	if err := LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml"), defs); err != nil {
		t.Errorf("missing config file must not error, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("nosuchsite:\n  concurrency: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadOverrides(bad, defs); err == nil {
		t.Error("unknown site in config must error")
	}
}

func TestAllAdaptersComplete(t *testing.T) {
	all := All()
	for _, name := range []string{"centanet", "28hse", "ricacorp"} {
		a, ok := all[name]
		if !ok {
			t.Fatalf("missing adapter %s", name)
		}
		if a.Def.BreadcrumbArity < 4 || len(a.fields) == 0 || len(a.labels) == 0 {
			t.Errorf("%s adapter is incomplete", name)
		}
		if _, err := a.Def.ListURL(""); err != nil {
			t.Errorf("%s default category: %v", name, err)
		}
	}
}
