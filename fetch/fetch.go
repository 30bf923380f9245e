// Package fetch wraps the rendering layer with timeout, retry/backoff and
// failure classification. It is the only place that interprets page-load
// outcomes; callers just see content or a classified error.
package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/kwokkawai/HKHousingDataCrawl/models"
	"github.com/kwokkawai/HKHousingDataCrawl/render"
	"github.com/kwokkawai/HKHousingDataCrawl/utils"
)

// Kind tells the fetcher which wait condition applies.
type Kind string

const (
	KindList   Kind = "list"
	KindDetail Kind = "detail"
)

// Loader is the slice of the rendering layer the fetcher needs.
type Loader interface {
	Load(url, waitSelector string) (*render.Page, error)
}

// Options configures a site's fetcher.
type Options struct {
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
	Cooldown      time.Duration
	ListWaitFor   string
	DetailWaitFor string
}

func (o *Options) fill() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 2 * time.Second
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 30 * time.Second
	}
	if o.Cooldown <= 0 {
		o.Cooldown = 60 * time.Second
	}
}

// Fetcher retrieves pages for one site. It is safe for concurrent use; all
// tasks of a site share its cool-down throttle.
type Fetcher struct {
	loader   Loader
	opts     Options
	throttle *Throttle
	logger   *utils.Logger

	mu       sync.Mutex
	attempts []models.ExtractionAttempt
}

// New creates a Fetcher around the given page loader.
func New(loader Loader, opts Options, logger *utils.Logger) *Fetcher {
	opts.fill()
	return &Fetcher{
		loader:   loader,
		opts:     opts,
		throttle: NewThrottle(opts.Cooldown),
		logger:   logger,
	}
}

// Fetch loads url, retrying retryable failures with capped exponential
// backoff. On success it returns the rendered HTML; on failure a classified
// *Error. Every attempt is recorded for audit.
func (f *Fetcher) Fetch(ctx context.Context, url string, kind Kind) (string, error) {
	wait := f.opts.DetailWaitFor
	if kind == KindList {
		wait = f.opts.ListWaitFor
	}

	delay := f.opts.BackoffBase
	var lastErr *Error

	for attempt := 1; attempt <= f.opts.MaxRetries; attempt++ {
		if err := f.throttle.Wait(ctx); err != nil {
			return "", &Error{Reason: ReasonNetwork, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return "", &Error{Reason: ReasonNetwork, Err: err}
		}

		start := time.Now()
		page, loadErr := f.loader.Load(url, wait)

		var status int
		var html string
		if page != nil {
			status = page.Status
			html = page.HTML
		}
		ferr := classify(status, html, loadErr)
		f.record(url, kind, attempt, status, ferr, start)

		if ferr == nil {
			return html, nil
		}
		lastErr = ferr

		if ferr.CoolsDown() {
			f.logger.Warn("[fetch] blocking signal on %s (status %d), site cool-down engaged", url, status)
			f.throttle.Trigger()
		}
		if !ferr.Retryable() || attempt == f.opts.MaxRetries {
			break
		}

		f.logger.Debug("[fetch] %s attempt %d/%d failed (%s), retrying in %v",
			url, attempt, f.opts.MaxRetries, ferr.Reason, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", &Error{Reason: ReasonNetwork, Err: ctx.Err()}
		}
		delay *= 2
		if delay > f.opts.BackoffCap {
			delay = f.opts.BackoffCap
		}
	}

	return "", lastErr
}

// Attempts returns a copy of the audit trail accumulated so far.
func (f *Fetcher) Attempts() []models.ExtractionAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ExtractionAttempt, len(f.attempts))
	copy(out, f.attempts)
	return out
}

func (f *Fetcher) record(url string, kind Kind, attempt, status int, ferr *Error, start time.Time) {
	a := models.ExtractionAttempt{
		URL:       url,
		Kind:      string(kind),
		Attempt:   attempt,
		Status:    status,
		StartedAt: start,
		Duration:  time.Since(start),
	}
	if ferr != nil {
		a.Reason = string(ferr.Reason)
		if ferr.Err != nil {
			a.Error = ferr.Err.Error()
		}
	}
	f.mu.Lock()
	f.attempts = append(f.attempts, a)
	f.mu.Unlock()
}
