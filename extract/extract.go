// Package extract implements the multi-strategy field extraction layer. Each
// target field has an ordered chain of pure strategies; the first one that
// produces a non-empty value wins, and a field with no winner stays absent.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field names a value the pipeline extracts from a detail page.
type Field string

const (
	FieldTitle        Field = "title"
	FieldPrice        Field = "price"
	FieldArea         Field = "area"
	FieldAddress      Field = "address"
	FieldPropertyType Field = "property_type"
	FieldFloor        Field = "floor"
	FieldDescription  Field = "description"
)

// Page is one fetched page prepared for extraction. It is read-only; the
// strategies share no mutable state through it.
type Page struct {
	URL *url.URL
	Raw string

	doc  *goquery.Document
	text string
}

// NewPage parses raw HTML fetched from pageURL.
func NewPage(raw, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract: parse url %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	return &Page{URL: u, Raw: raw, doc: doc, text: doc.Text()}, nil
}

// Doc exposes the parsed DOM for selector strategies.
func (p *Page) Doc() *goquery.Document { return p.doc }

// Text is the page's visible text with markup stripped.
func (p *Page) Text() string { return p.text }

// Strategy tries to produce one field value from a page.
type Strategy func(*Page) (string, bool)

// Chain is an ordered fallback list of strategies, most trustworthy first.
type Chain []Strategy

// Extract runs the chain and returns the first non-empty value.
func (c Chain) Extract(p *Page) (string, bool) {
	for _, s := range c {
		if v, ok := s(p); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// Table maps each target field to its fallback chain.
type Table map[Field]Chain

// Extract applies every chain and collects the fields that resolved.
func (t Table) Extract(p *Page) map[Field]string {
	out := make(map[Field]string, len(t))
	for field, chain := range t {
		if v, ok := chain.Extract(p); ok {
			out[field] = v
		}
	}
	return out
}

// LabelsStrategy tries to produce the ordered breadcrumb labels of a page.
type LabelsStrategy func(*Page) ([]string, bool)

// LabelsChain is the fallback list for breadcrumb label discovery.
type LabelsChain []LabelsStrategy

// Extract returns the first label sequence with at least two entries.
func (c LabelsChain) Extract(p *Page) ([]string, bool) {
	for _, s := range c {
		if labels, ok := s(p); ok && len(labels) >= 2 {
			return labels, true
		}
	}
	return nil, false
}
