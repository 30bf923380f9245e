package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kwokkawai/HKHousingDataCrawl/fetch"
	"github.com/kwokkawai/HKHousingDataCrawl/render"
	"github.com/kwokkawai/HKHousingDataCrawl/sites"
	"github.com/kwokkawai/HKHousingDataCrawl/utils"
)

// fakeRenderer serves canned pages keyed by URL.
type fakeRenderer struct {
	pages map[string]*render.Page
}

func (f *fakeRenderer) Load(url, wait string) (*render.Page, error) {
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return &render.Page{HTML: "", Status: 404}, nil
}

func (f *fakeRenderer) NewSession() (render.Session, error) {
	return nil, errors.New("sessions not supported in this fake")
}

func (f *fakeRenderer) Close() {}

func detailHTML(estate string, bedrooms int) string {
	return fmt.Sprintf(`<html><body>
<div class="ui breadcrumb">
<a href="/">主頁</a><a href="/e">地產主頁</a><a href="/buy">住宅售盤</a>
<a href="/nt">新界</a><a href="/tp">大埔</a><a href="/x">%s</a>
</div>
<h1>%s %d房</h1>
<div class="price">售 880萬</div>
<div class="area">實用面積 500呎</div>
</body></html>`, estate, estate, bedrooms)
}

func fastAdapter() *sites.Adapter {
	a := sites.Hse28()
	a.Def.RateLimitMs = 0
	a.Def.JitterMs = 0
	a.Def.MaxRetries = 1
	a.Def.CooldownSec = 1
	return a
}

func TestCrawlEndToEnd(t *testing.T) {
	const list = "https://www.28hse.com/buy/apartment"
	listing := `<html><body>
<a href="/buy/apartment/property-100">A</a>
<a href="/buy/apartment/property-101">B</a>
<a href="/buy/apartment/property-102">C</a>
</body></html>`

	renderer := &fakeRenderer{pages: map[string]*render.Page{
		list:                   {HTML: listing, Status: 200},
		list + "?page=2":       {HTML: listing, Status: 200},
		list + "/property-100": {HTML: detailHTML("逸瓏灣8", 3), Status: 200},
		list + "/property-101": {HTML: detailHTML("太湖花園", 2), Status: 200},
		// property-102 is absent on purpose; the fake serves it a 404
	}}

	r := New(renderer, utils.NewLogger())
	res, err := r.Crawl(context.Background(), fastAdapter(), Options{
		MaxPages:      3,
		MaxProperties: 50,
	})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if res.Records[0].PropertyID != "100" || res.Records[1].PropertyID != "101" {
		t.Errorf("record order/ids: %s, %s", res.Records[0].PropertyID, res.Records[1].PropertyID)
	}
	if res.Records[0].EstateName != "逸瓏灣8" {
		t.Errorf("estate: got %q", res.Records[0].EstateName)
	}
	if res.Records[0].Price == nil || *res.Records[0].Price != 8_800_000 {
		t.Errorf("price: %v", res.Records[0].Price)
	}

	if len(res.Failures) != 1 {
		t.Fatalf("expected 1 failure for property-102, got %d", len(res.Failures))
	}
	if res.Failures[0].Reason != string(fetch.ReasonHTTP4xx) {
		t.Errorf("failure reason: got %s, want http-4xx", res.Failures[0].Reason)
	}
	if len(res.Attempts) == 0 {
		t.Error("expected an audit trail of fetch attempts")
	}
}

func TestCrawlRegionFilter(t *testing.T) {
	const list = "https://www.28hse.com/buy/apartment"
	listing := `<html><body>
<a href="/buy/apartment/property-100">A</a>
</body></html>`
	renderer := &fakeRenderer{pages: map[string]*render.Page{
		list:                   {HTML: listing, Status: 200},
		list + "/property-100": {HTML: detailHTML("逸瓏灣8", 3), Status: 200},
	}}

	r := New(renderer, utils.NewLogger())
	res, err := r.Crawl(context.Background(), fastAdapter(), Options{
		MaxPages: 1, MaxProperties: 10, Region: "九龍",
	})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(res.Records) != 0 {
		t.Errorf("新界 record must not pass a 九龍 filter, got %d records", len(res.Records))
	}
}

func TestCrawlUnreachableSite(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]*render.Page{}}
	r := New(renderer, utils.NewLogger())

	_, err := r.Crawl(context.Background(), fastAdapter(), Options{MaxPages: 2, MaxProperties: 10})
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestCrawlUnknownCategory(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]*render.Page{}}
	r := New(renderer, utils.NewLogger())

	_, err := r.Crawl(context.Background(), fastAdapter(), Options{Category: "warehouse"})
	if err == nil || errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected a category config error, got %v", err)
	}
}

func TestCrawlURLsResume(t *testing.T) {
	const u = "https://www.28hse.com/buy/apartment/property-200"
	renderer := &fakeRenderer{pages: map[string]*render.Page{
		u: {HTML: detailHTML("嘉湖山莊", 2), Status: 200},
	}}
	r := New(renderer, utils.NewLogger())

	res, err := r.CrawlURLs(context.Background(), fastAdapter(), []string{u}, 10)
	if err != nil {
		t.Fatalf("CrawlURLs: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].PropertyID != "200" {
		t.Fatalf("unexpected resume result: %+v", res.Records)
	}
}
