// Package paginate walks a site's listing pages and yields the detail URLs
// discovered on each. Two traversal modes exist: sites whose page number is
// a URL parameter get a fresh fetch per page, sites that paginate through
// in-page AJAX keep a persistent browser session.
package paginate

import (
	"context"
	"errors"
	"net/url"

	"github.com/kwokkawai/HKHousingDataCrawl/extract"
	"github.com/kwokkawai/HKHousingDataCrawl/fetch"
	"github.com/kwokkawai/HKHousingDataCrawl/render"
	"github.com/kwokkawai/HKHousingDataCrawl/utils"
)

// ErrExhausted signals normal end of traversal.
var ErrExhausted = errors.New("paginate: no more pages")

// ErrSiteBlocked is returned when consecutive listing pages fail with a
// blocking signal. Continuing would only harden the block.
var ErrSiteBlocked = errors.New("paginate: consecutive blocking failures")

// Paginator yields the detail links of one listing page per call. A nil
// error with an empty slice means the page was skipped; ErrExhausted means
// traversal ended normally.
type Paginator interface {
	Next(ctx context.Context) ([]string, error)
	Close() error
}

// URLOptions configures a URL-parameterized traversal.
type URLOptions struct {
	// PageURL renders the listing URL for a 1-based page number.
	PageURL func(page int) string
	// Include and Exclude are case-insensitive substring patterns applied
	// to candidate detail hrefs.
	Include  []string
	Exclude  []string
	MaxPages int
}

// URLPaginator fetches each listing page at its own URL.
type URLPaginator struct {
	fetcher *fetch.Fetcher
	opts    URLOptions
	base    *url.URL
	logger  *utils.Logger

	seen        *utils.URLSet
	page        int
	blockStreak int
	done        bool
}

// NewURL creates a URLPaginator. The base URL for resolving relative hrefs
// is taken from the first page's URL.
func NewURL(fetcher *fetch.Fetcher, opts URLOptions, logger *utils.Logger) (*URLPaginator, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	base, err := url.Parse(opts.PageURL(1))
	if err != nil {
		return nil, err
	}
	return &URLPaginator{
		fetcher: fetcher,
		opts:    opts,
		base:    base,
		logger:  logger,
		seen:    utils.NewURLSet(),
	}, nil
}

// Next fetches the next listing page and returns the detail links it adds.
// A page whose fetch fails is skipped unless the failure was a blocking
// signal twice in a row; a page that adds no new links ends the traversal.
func (p *URLPaginator) Next(ctx context.Context) ([]string, error) {
	if p.done {
		return nil, ErrExhausted
	}
	p.page++
	if p.page > p.opts.MaxPages {
		p.done = true
		return nil, ErrExhausted
	}

	pageURL := p.opts.PageURL(p.page)
	html, err := p.fetcher.Fetch(ctx, pageURL, fetch.KindList)
	if err != nil {
		var ferr *fetch.Error
		if errors.As(err, &ferr) && ferr.CoolsDown() {
			p.blockStreak++
			if p.blockStreak >= 2 {
				p.done = true
				return nil, ErrSiteBlocked
			}
		}
		p.logger.Warn("[paginate] listing page %d failed, skipping: %v", p.page, err)
		return []string{}, nil
	}
	p.blockStreak = 0

	links, err := p.extractNew(html, pageURL)
	if err != nil {
		p.logger.Warn("[paginate] listing page %d unparsable, skipping: %v", p.page, err)
		return []string{}, nil
	}
	if len(links) == 0 {
		p.logger.Info("[paginate] page %d added no new listings, traversal complete", p.page)
		p.done = true
		return nil, ErrExhausted
	}
	return links, nil
}

func (p *URLPaginator) extractNew(html, pageURL string) ([]string, error) {
	doc, err := extract.NewPage(html, pageURL)
	if err != nil {
		return nil, err
	}
	var fresh []string
	for _, link := range extract.DetailLinks(doc, p.base, p.opts.Include, p.opts.Exclude) {
		if p.seen.Add(link) {
			fresh = append(fresh, link)
		}
	}
	return fresh, nil
}

// Close is a no-op; the fetcher's renderer is owned by the caller.
func (p *URLPaginator) Close() error { return nil }

// SessionOptions configures an AJAX traversal over a persistent tab.
type SessionOptions struct {
	ListURL  string
	WaitFor  string
	Include  []string
	Exclude  []string
	MaxPages int
}

// SessionPaginator drives in-page pagination controls inside one browser
// session, so server-side listing state survives between pages.
type SessionPaginator struct {
	session render.Session
	opts    SessionOptions
	base    *url.URL
	logger  *utils.Logger

	seen      *utils.URLSet
	page      int
	lastLinks []string
	done      bool
}

// NewSession creates a SessionPaginator over an open browser session. The
// paginator owns the session and closes it with Close.
func NewSession(session render.Session, opts SessionOptions, logger *utils.Logger) (*SessionPaginator, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	base, err := url.Parse(opts.ListURL)
	if err != nil {
		return nil, err
	}
	return &SessionPaginator{
		session: session,
		opts:    opts,
		base:    base,
		logger:  logger,
		seen:    utils.NewURLSet(),
	}, nil
}

// Next advances the session to the next listing page. Traversal ends when
// the page control is missing, when two consecutive pages serve identical
// link sets (the site silently stopped advancing), or at MaxPages.
func (p *SessionPaginator) Next(ctx context.Context) ([]string, error) {
	if p.done {
		return nil, ErrExhausted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.page++
	if p.page > p.opts.MaxPages {
		p.done = true
		return nil, ErrExhausted
	}

	var (
		page *render.Page
		err  error
	)
	if p.page == 1 {
		page, err = p.session.Navigate(p.opts.ListURL, p.opts.WaitFor)
	} else {
		page, err = p.session.GoToPage(p.page)
		if errors.Is(err, render.ErrNoPageControl) {
			p.logger.Info("[paginate] no control for page %d, traversal complete", p.page)
			p.done = true
			return nil, ErrExhausted
		}
	}
	if err != nil {
		p.logger.Warn("[paginate] page %d failed, skipping: %v", p.page, err)
		return []string{}, nil
	}

	doc, err := extract.NewPage(page.HTML, p.opts.ListURL)
	if err != nil {
		p.logger.Warn("[paginate] page %d unparsable, skipping: %v", p.page, err)
		return []string{}, nil
	}
	links := extract.DetailLinks(doc, p.base, p.opts.Include, p.opts.Exclude)

	if p.page > 1 && equalLinks(links, p.lastLinks) {
		p.logger.Info("[paginate] page %d repeats page %d, pagination stalled", p.page, p.page-1)
		p.done = true
		return nil, ErrExhausted
	}
	p.lastLinks = links

	var fresh []string
	for _, link := range links {
		if p.seen.Add(link) {
			fresh = append(fresh, link)
		}
	}
	return fresh, nil
}

// Close releases the browser session.
func (p *SessionPaginator) Close() error {
	p.done = true
	return p.session.Close()
}

func equalLinks(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
