// Package sites holds the per-site knowledge: where listing pages live, how
// detail links look, which extraction strategies apply and in what order.
// Everything above this package is site-agnostic.
package sites

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/kwokkawai/HKHousingDataCrawl/models"
)

// Pagination selects the traversal mode for a site's listing pages.
type Pagination string

const (
	// PaginationURLParam advances by rewriting a page query parameter.
	PaginationURLParam Pagination = "url-param"
	// PaginationSession advances by clicking in-page controls inside a
	// persistent browser session.
	PaginationSession Pagination = "session"
)

// Definition is the static configuration of one site. Values can be
// overridden per site from a YAML file.
type Definition struct {
	Name    string        `yaml:"name"`
	Source  models.Source `yaml:"-"`
	BaseURL string        `yaml:"base_url"`

	// Categories maps a user-facing category term to the listing URL for it.
	Categories      map[string]string `yaml:"categories"`
	DefaultCategory string            `yaml:"default_category"`

	Pagination Pagination `yaml:"-"`
	PageParam  string     `yaml:"page_param"`

	LinkInclude []string `yaml:"link_include"`
	LinkExclude []string `yaml:"link_exclude"`

	ListWaitFor   string `yaml:"list_wait_for"`
	DetailWaitFor string `yaml:"detail_wait_for"`

	BreadcrumbArity int `yaml:"-"`

	Concurrency int `yaml:"concurrency"`
	RateLimitMs int `yaml:"rate_limit_ms"`
	JitterMs    int `yaml:"jitter_ms"`
	MaxRetries  int `yaml:"max_retries"`
	CooldownSec int `yaml:"cooldown_sec"`
}

// ListURL returns the first listing-page URL for a category. An empty
// category selects the site's default; an unknown one is an error so typos
// fail loudly instead of crawling the wrong listing.
func (d *Definition) ListURL(category string) (string, error) {
	if category == "" {
		category = d.DefaultCategory
	}
	u, ok := d.Categories[category]
	if !ok {
		return "", fmt.Errorf("sites: %s has no category %q", d.Name, category)
	}
	return u, nil
}

// PageURL rewrites listURL to point at a 1-based page number. Page 1 keeps
// the URL untouched, matching what the sites themselves serve.
func (d *Definition) PageURL(listURL string, page int) string {
	if page <= 1 || d.PageParam == "" {
		return listURL
	}
	u, err := url.Parse(listURL)
	if err != nil {
		return listURL
	}
	q := u.Query()
	q.Set(d.PageParam, fmt.Sprintf("%d", page))
	u.RawQuery = q.Encode()
	return u.String()
}

// overrides is the YAML shape of a site config file: a map of site name to
// partial Definition.
type overrides map[string]Definition

// LoadOverrides reads a YAML site config and applies it on top of the
// built-in definitions. A missing file is not an error; the built-ins are
// complete on their own.
func LoadOverrides(path string, defs map[string]*Definition) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("sites: read config %q: %w", path, err)
	}

	var ov overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("sites: parse config %q: %w", path, err)
	}

	for name, o := range ov {
		def, ok := defs[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("sites: config names unknown site %q", name)
		}
		merge(def, &o)
	}
	return nil
}

// merge copies non-zero override fields onto def. Identity fields (name,
// source, strategies) are not overridable.
func merge(def, o *Definition) {
	if o.BaseURL != "" {
		def.BaseURL = o.BaseURL
	}
	if len(o.Categories) > 0 {
		for k, v := range o.Categories {
			def.Categories[k] = v
		}
	}
	if o.DefaultCategory != "" {
		def.DefaultCategory = o.DefaultCategory
	}
	if o.PageParam != "" {
		def.PageParam = o.PageParam
	}
	if len(o.LinkInclude) > 0 {
		def.LinkInclude = o.LinkInclude
	}
	if len(o.LinkExclude) > 0 {
		def.LinkExclude = o.LinkExclude
	}
	if o.ListWaitFor != "" {
		def.ListWaitFor = o.ListWaitFor
	}
	if o.DetailWaitFor != "" {
		def.DetailWaitFor = o.DetailWaitFor
	}
	if o.Concurrency > 0 {
		def.Concurrency = o.Concurrency
	}
	if o.RateLimitMs > 0 {
		def.RateLimitMs = o.RateLimitMs
	}
	if o.JitterMs > 0 {
		def.JitterMs = o.JitterMs
	}
	if o.MaxRetries > 0 {
		def.MaxRetries = o.MaxRetries
	}
	if o.CooldownSec > 0 {
		def.CooldownSec = o.CooldownSec
	}
}
