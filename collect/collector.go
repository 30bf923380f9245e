// Package collect fans detail-page fetches out over a bounded worker pool
// and gathers the results. Workers only send outcomes over a channel; the
// collecting goroutine is the sole owner of the result slices.
package collect

import (
	"context"
	"sort"

	"github.com/kwokkawai/HKHousingDataCrawl/fetch"
	"github.com/kwokkawai/HKHousingDataCrawl/models"
	"github.com/kwokkawai/HKHousingDataCrawl/utils"
)

// PageExtractor turns a fetched detail page into a record. A nil record
// with a nil error means the page yielded nothing usable.
type PageExtractor func(html, pageURL string) (*models.PropertyRecord, error)

// Options bounds a collection run.
type Options struct {
	Concurrency int
	RateLimitMs int
	JitterMs    int
	// MaxRecords caps successful records. Once reached, no new fetches are
	// scheduled; in-flight fetches drain and the result is truncated.
	MaxRecords int
}

// Result is the outcome of one collection run.
type Result struct {
	Records  []*models.PropertyRecord
	Failures []models.FailedURL
}

// Collector drives concurrent detail-page extraction for one site.
type Collector struct {
	fetcher   *fetch.Fetcher
	extractor PageExtractor
	opts      Options
	pool      *utils.WorkerPool
	logger    *utils.Logger
}

// New creates a Collector.
func New(fetcher *fetch.Fetcher, extractor PageExtractor, opts Options, logger *utils.Logger) *Collector {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	pool := utils.NewWorkerPool(opts.Concurrency, opts.RateLimitMs)
	if opts.JitterMs > 0 {
		pool.SetJitter(opts.JitterMs)
	}
	return &Collector{
		fetcher:   fetcher,
		extractor: extractor,
		opts:      opts,
		pool:      pool,
		logger:    logger,
	}
}

type outcome struct {
	index  int
	record *models.PropertyRecord
	fail   *models.FailedURL
}

// Collect fetches and extracts every URL, at most Concurrency at a time.
// Records come back in submission order regardless of completion order.
// A URL that exhausts its retries becomes a FailedURL, never a retry loop.
func (c *Collector) Collect(ctx context.Context, urls []string) Result {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome)

	go func() {
		for i, u := range urls {
			i, u := i, u
			accepted := c.pool.SubmitCtx(runCtx, func() {
				rec, fail := c.process(runCtx, u)
				if rec == nil && fail == nil {
					return
				}
				results <- outcome{index: i, record: rec, fail: fail}
			})
			if !accepted {
				break
			}
		}
		c.pool.Wait()
		close(results)
	}()

	var (
		indexed  []outcome
		failures []models.FailedURL
	)
	for o := range results {
		if o.fail != nil {
			failures = append(failures, *o.fail)
			continue
		}
		indexed = append(indexed, o)
		if c.opts.MaxRecords > 0 && len(indexed) >= c.opts.MaxRecords {
			// Stops the scheduler; workers already running finish and drain.
			cancel()
		}
	}

	sort.Slice(indexed, func(a, b int) bool { return indexed[a].index < indexed[b].index })
	records := make([]*models.PropertyRecord, 0, len(indexed))
	for _, o := range indexed {
		records = append(records, o.record)
	}
	if c.opts.MaxRecords > 0 && len(records) > c.opts.MaxRecords {
		records = records[:c.opts.MaxRecords]
	}

	c.logger.Info("[collect] %d urls: %d records, %d failures", len(urls), len(records), len(failures))
	return Result{Records: records, Failures: failures}
}

func (c *Collector) process(ctx context.Context, url string) (*models.PropertyRecord, *models.FailedURL) {
	if ctx.Err() != nil {
		return nil, nil
	}
	html, err := c.fetcher.Fetch(ctx, url, fetch.KindDetail)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted by the record cap, not a site failure.
			return nil, nil
		}
		return nil, &models.FailedURL{URL: url, Reason: string(fetch.ReasonOf(err))}
	}

	rec, err := c.extractor(html, url)
	if err != nil {
		c.logger.Warn("[collect] extraction failed for %s: %v", url, err)
		return nil, &models.FailedURL{URL: url, Reason: string(fetch.ReasonEmpty)}
	}
	if rec == nil {
		return nil, &models.FailedURL{URL: url, Reason: string(fetch.ReasonEmpty)}
	}
	return rec, nil
}
