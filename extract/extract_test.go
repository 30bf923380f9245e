package extract

import (
	"net/url"
	"reflect"
	"regexp"
	"testing"
)

const detailHTML = `<html>
<head>
<title>瓏門 2房 | 中原地產</title>
<script type="application/ld+json">{"@type":"Product","name":"瓏門 一座 中層","offers":{"price":"8500000"}}</script>
</head>
<body>
<nav class="breadcrumb">
<a href="/">主頁</a> <a href="/findproperty/list/buy">買樓</a> <a href="/findproperty/district/nw">新界西</a>
<a href="/findproperty/district/tm">屯門</a> <a href="/findproperty/district/tmc">屯門市中心</a> <a href="/findproperty/estate/lm">瓏門</a>
</nav>
<h1 class="property-title">瓏門 一座 中層</h1>
<div class="price">HK$ 850萬</div>
<div class="area">實用面積 520呎</div>
<script>window.__STATE__={paths:[{path:"買樓_1-B"},{path:"新界西_4-NW"},{path:"屯門_23-TM"},{path:"屯門市中心_9-TMC"},{path:"瓏門_77-LM"}]};</script>
</body></html>`

func mustPage(t *testing.T, raw, pageURL string) *Page {
	t.Helper()
	p, err := NewPage(raw, pageURL)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	return p
}

func TestAppStatePathsLabels(t *testing.T) {
	p := mustPage(t, detailHTML, "https://hk.centanet.com/findproperty/detail/瓏門_CWJ731")

	labels, ok := AppStatePaths()(p)
	if !ok {
		t.Fatal("expected paths labels")
	}
	want := []string{"買樓", "新界西", "屯門", "屯門市中心", "瓏門"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("labels: got %v, want %v", labels, want)
	}
}

func TestNavLabelsFallback(t *testing.T) {
	p := mustPage(t, detailHTML, "https://hk.centanet.com/x")

	labels, ok := NavLabels(".breadcrumb", "[class*='breadcrumb']")(p)
	if !ok {
		t.Fatal("expected nav labels")
	}
	if labels[0] != "主頁" || labels[len(labels)-1] != "瓏門" {
		t.Errorf("unexpected labels: %v", labels)
	}
}

func TestChainFirstSuccessWins(t *testing.T) {
	p := mustPage(t, detailHTML, "https://hk.centanet.com/x")

	chain := Chain{
		Selector(".does-not-exist"),
		Selector(".property-title"),
		Selector("h1"),
	}
	v, ok := chain.Extract(p)
	if !ok || v != "瓏門 一座 中層" {
		t.Errorf("got %q, ok=%v", v, ok)
	}
}

func TestChainAllFailLeavesFieldAbsent(t *testing.T) {
	p := mustPage(t, "<html><body></body></html>", "https://example.com/x")

	chain := Chain{Selector(".nope"), Pattern(regexp.MustCompile(`never`), 0)}
	if v, ok := chain.Extract(p); ok {
		t.Errorf("expected absent, got %q", v)
	}
}

func TestExtractionIsDeterministic(t *testing.T) {
	table := Table{
		FieldTitle: {JSONLDField("name"), Selector("h1")},
		FieldPrice: {Pattern(regexp.MustCompile(`(HK\$\s*[\d,.]+萬?)`), 1)},
		FieldArea:  {Pattern(regexp.MustCompile(`實用面積\s*([\d,]+)呎`), 1)},
	}

	p1 := mustPage(t, detailHTML, "https://hk.centanet.com/x")
	p2 := mustPage(t, detailHTML, "https://hk.centanet.com/x")

	if !reflect.DeepEqual(table.Extract(p1), table.Extract(p2)) {
		t.Error("identical content must extract identically")
	}
}

func TestJSONLDField(t *testing.T) {
	p := mustPage(t, detailHTML, "https://hk.centanet.com/x")

	if v, ok := JSONLDField("name")(p); !ok || v != "瓏門 一座 中層" {
		t.Errorf("name: got %q, ok=%v", v, ok)
	}
	if v, ok := JSONLDField("price")(p); !ok || v != "8500000" {
		t.Errorf("nested price: got %q, ok=%v", v, ok)
	}
}

func TestURLSegment(t *testing.T) {
	p := mustPage(t, "<html></html>", "https://www.28hse.com/buy/residential/property-3688274")

	if v, ok := URLSegment(0)(p); !ok || v != "property-3688274" {
		t.Errorf("got %q, ok=%v", v, ok)
	}
}

func TestDetailLinks(t *testing.T) {
	listHTML := `<html><body>
	<a href="/findproperty/detail/A1">a</a>
	<a href="https://hk.centanet.com/findproperty/detail/B2">b</a>
	<a href="/findproperty/detail/A1">dup</a>
	<a href="/findproperty/list/buy">list</a>
	<a href="/findproperty/estate/X">estate</a>
	</body></html>`
	p := mustPage(t, listHTML, "https://hk.centanet.com/findproperty/list/buy")
	base, _ := url.Parse("https://hk.centanet.com")

	links := DetailLinks(p, base, []string{"/findproperty/detail/"}, []string{"/list/", "/estate/"})

	want := []string{
		"https://hk.centanet.com/findproperty/detail/A1",
		"https://hk.centanet.com/findproperty/detail/B2",
	}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("links: got %v, want %v", links, want)
	}
}
