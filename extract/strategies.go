package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy ordering across the sites, most to least trustworthy: embedded
// application state, then DOM selectors, then visible-text patterns, then
// URL-path inference. The constructors below are the building blocks the
// site adapters assemble their tables from.

var (
	pathsArrayRe = regexp.MustCompile(`paths:\s*\[([^\]]+)\]`)
	pathEntryRe  = regexp.MustCompile(`path:"([^"]+)"`)
)

// AppStatePaths reads the breadcrumb out of the page's embedded application
// state: a script-borne paths array whose entries look like "新界西_4-NW".
// The display text is the part before the underscore. This survives markup
// churn better than any selector.
func AppStatePaths() LabelsStrategy {
	return func(p *Page) ([]string, bool) {
		m := pathsArrayRe.FindStringSubmatch(p.Raw)
		if m == nil {
			return nil, false
		}
		entries := pathEntryRe.FindAllStringSubmatch(m[1], -1)
		if len(entries) == 0 {
			return nil, false
		}
		labels := make([]string, 0, len(entries))
		for _, e := range entries {
			label := e[1]
			if i := strings.Index(label, "_"); i > 0 {
				label = label[:i]
			}
			if label = strings.TrimSpace(label); label != "" {
				labels = append(labels, label)
			}
		}
		return labels, len(labels) > 0
	}
}

// NavLabels collects breadcrumb labels from the first matching navigation
// element, preferring its anchor texts and falling back to ">"-separated
// text content.
func NavLabels(selectors ...string) LabelsStrategy {
	return func(p *Page) ([]string, bool) {
		for _, sel := range selectors {
			nav := p.Doc().Find(sel).First()
			if nav.Length() == 0 {
				continue
			}

			var labels []string
			nav.Find("a").Each(func(_ int, a *goquery.Selection) {
				if t := strings.TrimSpace(a.Text()); t != "" {
					labels = append(labels, t)
				}
			})
			if len(labels) == 0 {
				txt := strings.TrimSpace(nav.Text())
				if strings.Contains(txt, ">") {
					for _, part := range strings.Split(txt, ">") {
						if part = strings.TrimSpace(part); part != "" {
							labels = append(labels, part)
						}
					}
				}
			}
			if len(labels) > 0 {
				return labels, true
			}
		}
		return nil, false
	}
}

// TextLabels matches a breadcrumb pattern over the page's visible text. The
// regexp's capture groups become the labels.
func TextLabels(re *regexp.Regexp) LabelsStrategy {
	return func(p *Page) ([]string, bool) {
		m := re.FindStringSubmatch(p.Text())
		if m == nil {
			return nil, false
		}
		var labels []string
		for _, g := range m[1:] {
			if g = strings.TrimSpace(g); g != "" {
				labels = append(labels, g)
			}
		}
		return labels, len(labels) > 0
	}
}

// Selector extracts the trimmed text of the first element any of the given
// CSS selectors matches.
func Selector(selectors ...string) Strategy {
	return func(p *Page) (string, bool) {
		for _, sel := range selectors {
			el := p.Doc().Find(sel).First()
			if el.Length() == 0 {
				continue
			}
			if t := strings.TrimSpace(el.Text()); t != "" {
				return t, true
			}
		}
		return "", false
	}
}

// SelectorAttr extracts an attribute of the first matching element.
func SelectorAttr(sel, attr string) Strategy {
	return func(p *Page) (string, bool) {
		v, ok := p.Doc().Find(sel).First().Attr(attr)
		return strings.TrimSpace(v), ok
	}
}

// MetaContent reads a <meta> tag's content by name or property.
func MetaContent(name string) Strategy {
	return func(p *Page) (string, bool) {
		var content string
		p.Doc().Find("meta").
			EachWithBreak(func(_ int, m *goquery.Selection) bool {
				if n, _ := m.Attr("name"); n == name {
					content, _ = m.Attr("content")
					return false
				}
				if pr, _ := m.Attr("property"); pr == name {
					content, _ = m.Attr("content")
					return false
				}
				return true
			})
		content = strings.TrimSpace(content)
		return content, content != ""
	}
}

// Pattern matches a regexp over the page's visible text and returns the
// given capture group.
func Pattern(re *regexp.Regexp, group int) Strategy {
	return func(p *Page) (string, bool) {
		m := re.FindStringSubmatch(p.Text())
		if m == nil || group >= len(m) {
			return "", false
		}
		v := strings.TrimSpace(m[group])
		return v, v != ""
	}
}

// URLSegment returns a path segment of the page URL counted from the end:
// 0 is the last segment. The coarsest signal of all, last resort only.
func URLSegment(fromEnd int) Strategy {
	return func(p *Page) (string, bool) {
		segs := splitPath(p.URL.Path)
		i := len(segs) - 1 - fromEnd
		if i < 0 {
			return "", false
		}
		return segs[i], segs[i] != ""
	}
}

// JSONLDField walks the page's JSON-LD blocks and returns the first value
// found under the given key (top level or one level of nesting).
func JSONLDField(key string) Strategy {
	return func(p *Page) (string, bool) {
		var found string
		p.Doc().Find(`script[type="application/ld+json"]`).
			EachWithBreak(func(_ int, s *goquery.Selection) bool {
				var node map[string]interface{}
				if err := json.Unmarshal([]byte(s.Text()), &node); err != nil {
					return true
				}
				if v := jsonldLookup(node, key); v != "" {
					found = v
					return false
				}
				return true
			})
		return found, found != ""
	}
}

func jsonldLookup(node map[string]interface{}, key string) string {
	if v, ok := node[key].(string); ok {
		return strings.TrimSpace(v)
	}
	for _, child := range node {
		if m, ok := child.(map[string]interface{}); ok {
			if v, ok := m[key].(string); ok {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func splitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
