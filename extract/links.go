package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DetailLinks discovers detail-page URLs on a listing page. Relative hrefs
// are resolved against base; include/exclude are substring patterns matched
// case-insensitively. Order of first appearance is preserved and duplicates
// are dropped.
func DetailLinks(p *Page, base *url.URL, include, exclude []string) []string {
	var links []string
	seen := make(map[string]struct{})

	p.Doc().Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		lower := strings.ToLower(href)
		matched := false
		for _, pat := range include {
			if strings.Contains(lower, strings.ToLower(pat)) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}
		for _, pat := range exclude {
			if strings.Contains(lower, strings.ToLower(pat)) {
				return
			}
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	return links
}
