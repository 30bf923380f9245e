// Package crawler wires one site's pipeline together: pagination, the
// bounded detail collector, and normalization. It owns no site knowledge
// and no output; those live in sites and storage.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kwokkawai/HKHousingDataCrawl/collect"
	"github.com/kwokkawai/HKHousingDataCrawl/fetch"
	"github.com/kwokkawai/HKHousingDataCrawl/models"
	"github.com/kwokkawai/HKHousingDataCrawl/normalize"
	"github.com/kwokkawai/HKHousingDataCrawl/paginate"
	"github.com/kwokkawai/HKHousingDataCrawl/render"
	"github.com/kwokkawai/HKHousingDataCrawl/sites"
	"github.com/kwokkawai/HKHousingDataCrawl/utils"
)

// ErrUnreachable means not a single listing page of the site could be read.
var ErrUnreachable = errors.New("crawler: site unreachable")

// Options bounds one site's run.
type Options struct {
	MaxPages      int
	MaxProperties int
	Category      string
	Region        string
}

// Result is the outcome of crawling one site.
type Result struct {
	Site     string
	Records  []*models.PropertyRecord
	Failures []models.FailedURL
	Attempts []models.ExtractionAttempt
}

// Runner crawls sites over a shared renderer. Sites run one at a time; the
// parallelism lives inside each site's detail collector.
type Runner struct {
	renderer   render.Renderer
	logger     *utils.Logger
	normalizer *normalize.Normalizer
}

// New creates a Runner over an open renderer.
func New(renderer render.Renderer, logger *utils.Logger) *Runner {
	return &Runner{
		renderer:   renderer,
		logger:     logger,
		normalizer: normalize.New(logger),
	}
}

// Crawl runs the full pipeline for one site: traverse listing pages, fetch
// detail pages concurrently, extract and normalize. Partial failures end up
// in Result.Failures; an error return means the run produced nothing usable.
func (r *Runner) Crawl(ctx context.Context, adapter *sites.Adapter, opts Options) (*Result, error) {
	def := adapter.Def
	listURL, err := def.ListURL(opts.Category)
	if err != nil {
		return nil, err
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 2
	}

	fetcher := fetch.New(r.renderer, fetch.Options{
		MaxRetries:    def.MaxRetries,
		Cooldown:      time.Duration(def.CooldownSec) * time.Second,
		ListWaitFor:   def.ListWaitFor,
		DetailWaitFor: def.DetailWaitFor,
	}, r.logger)

	paginator, err := r.buildPaginator(def, fetcher, listURL, opts.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, def.Name, err)
	}
	defer paginator.Close()

	links, err := r.gatherLinks(ctx, paginator, def.Name, opts.MaxProperties)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: %s: no listing page yielded links", ErrUnreachable, def.Name)
	}
	r.logger.Info("[crawler] %s: %d detail urls queued", def.Name, len(links))

	collector := collect.New(fetcher, adapter.BuildRecord, collect.Options{
		Concurrency: def.Concurrency,
		RateLimitMs: def.RateLimitMs,
		JitterMs:    def.JitterMs,
		MaxRecords:  opts.MaxProperties,
	}, r.logger)
	collected := collector.Collect(ctx, links)

	records := r.normalizer.Normalize(collected.Records)
	if opts.Region != "" {
		records = filterRegion(records, opts.Region)
	}

	return &Result{
		Site:     def.Name,
		Records:  records,
		Failures: collected.Failures,
		Attempts: fetcher.Attempts(),
	}, nil
}

// CrawlURLs skips pagination and runs the detail pipeline over a fixed URL
// list, e.g. a previous run's failed-url file.
func (r *Runner) CrawlURLs(ctx context.Context, adapter *sites.Adapter, urls []string, maxProperties int) (*Result, error) {
	def := adapter.Def
	fetcher := fetch.New(r.renderer, fetch.Options{
		MaxRetries:    def.MaxRetries,
		Cooldown:      time.Duration(def.CooldownSec) * time.Second,
		DetailWaitFor: def.DetailWaitFor,
	}, r.logger)

	collector := collect.New(fetcher, adapter.BuildRecord, collect.Options{
		Concurrency: def.Concurrency,
		RateLimitMs: def.RateLimitMs,
		JitterMs:    def.JitterMs,
		MaxRecords:  maxProperties,
	}, r.logger)
	collected := collector.Collect(ctx, urls)

	return &Result{
		Site:     def.Name,
		Records:  r.normalizer.Normalize(collected.Records),
		Failures: collected.Failures,
		Attempts: fetcher.Attempts(),
	}, nil
}

func (r *Runner) buildPaginator(def *sites.Definition, fetcher *fetch.Fetcher, listURL string, maxPages int) (paginate.Paginator, error) {
	switch def.Pagination {
	case sites.PaginationSession:
		sess, err := r.renderer.NewSession()
		if err != nil {
			return nil, err
		}
		return paginate.NewSession(sess, paginate.SessionOptions{
			ListURL:  listURL,
			WaitFor:  def.ListWaitFor,
			Include:  def.LinkInclude,
			Exclude:  def.LinkExclude,
			MaxPages: maxPages,
		}, r.logger)
	default:
		return paginate.NewURL(fetcher, paginate.URLOptions{
			PageURL:  func(page int) string { return def.PageURL(listURL, page) },
			Include:  def.LinkInclude,
			Exclude:  def.LinkExclude,
			MaxPages: maxPages,
		}, r.logger)
	}
}

// gatherLinks drains the paginator. Listing traversal is sequential; a
// blocked site ends traversal early but keeps everything found so far.
func (r *Runner) gatherLinks(ctx context.Context, p paginate.Paginator, site string, maxProperties int) ([]string, error) {
	var links []string
	for {
		batch, err := p.Next(ctx)
		if errors.Is(err, paginate.ErrExhausted) {
			return links, nil
		}
		if errors.Is(err, paginate.ErrSiteBlocked) {
			r.logger.Error("[crawler] %s: pagination halted by blocking signals, keeping %d urls", site, len(links))
			return links, nil
		}
		if err != nil {
			return links, err
		}
		links = append(links, batch...)

		// Enough headroom over the cap to absorb failed detail fetches.
		if maxProperties > 0 && len(links) >= maxProperties*2 {
			return links, nil
		}
	}
}

func filterRegion(records []*models.PropertyRecord, region string) []*models.PropertyRecord {
	out := records[:0]
	for _, rec := range records {
		if strings.Contains(rec.Region, region) || strings.Contains(rec.DistrictLevel2, region) {
			out = append(out, rec)
		}
	}
	return out
}
