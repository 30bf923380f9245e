package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Chrome renders pages through a shared headless-Chrome allocator. Each Load
// runs in its own tab; sessions keep their tab open between calls.
type Chrome struct {
	opts        Options
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	semaphore   chan struct{}
}

// NewChrome starts a browser allocator ready to open tabs.
func NewChrome(opts Options) *Chrome {
	opts.fill()

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}
	bin := opts.ExecPath
	if bin == "" {
		bin = FindChromeBinary()
	}
	if bin != "" {
		execOpts = append(execOpts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), execOpts...)

	// Suppress chromedp log noise; this context is also the browser anchor
	// every tab hangs off.
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Chrome{
		opts:        opts,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		semaphore:   make(chan struct{}, opts.MaxSessions),
	}
}

// Load fetches one page in a throwaway tab.
func (c *Chrome) Load(pageURL, waitSelector string) (*Page, error) {
	c.semaphore <- struct{}{}
	defer func() { <-c.semaphore }()

	ctx, cancel := chromedp.NewContext(c.tabCtx)
	defer cancel()

	return c.capture(ctx, pageURL, waitSelector)
}

// NewSession opens a persistent tab for sequential AJAX pagination.
func (c *Chrome) NewSession() (Session, error) {
	ctx, cancel := chromedp.NewContext(c.tabCtx)
	return &chromeSession{chrome: c, ctx: ctx, cancel: cancel}, nil
}

// Close tears down all tabs and the browser.
func (c *Chrome) Close() {
	c.cancelTab()
	c.cancelAlloc()
}

func (c *Chrome) capture(tabCtx context.Context, pageURL, waitSelector string) (*Page, error) {
	ctx, cancel := context.WithTimeout(tabCtx, c.opts.Timeout)
	defer cancel()

	var status int64
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				atomic.CompareAndSwapInt64(&status, 0, resp.Response.Status)
			}
		}
	})

	actions := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(c.opts.SettleDelay),
	}
	if waitSelector != "" {
		actions = append(actions, chromedp.WaitReady(waitSelector, chromedp.ByQuery))
	}
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	return &Page{HTML: html, Status: int(atomic.LoadInt64(&status))}, nil
}

type chromeSession struct {
	chrome *Chrome
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *chromeSession) Navigate(pageURL, waitSelector string) (*Page, error) {
	return s.chrome.capture(s.ctx, pageURL, waitSelector)
}

// clickPageJS finds the numbered pagination control and clicks it. Controls
// that are already active are skipped so the current page is never reloaded.
const clickPageJS = `
(function(target) {
	var els = document.querySelectorAll('a, button, li, span');
	for (var i = 0; i < els.length; i++) {
		var el = els[i];
		if ((el.textContent || '').trim() !== target) continue;
		if (el.classList.contains('active') ||
			el.classList.contains('current') ||
			el.getAttribute('aria-current') === 'page') continue;
		var clickable = el;
		if (el.tagName === 'LI') {
			clickable = el.querySelector('a') || el;
		}
		clickable.scrollIntoView({block: 'center'});
		clickable.click();
		return true;
	}
	return false;
})(%s)
`

// fingerprintJS summarizes the page content cheaply enough to poll. The
// pagination wait treats any change of this value as "content loaded".
const fingerprintJS = `
(function() {
	var body = document.body ? document.body.innerText : '';
	return body.length + ':' + document.querySelectorAll('a[href]').length;
})()
`

func (s *chromeSession) GoToPage(page int) (*Page, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.chrome.opts.Timeout)
	defer cancel()

	var before string
	if err := chromedp.Run(ctx, chromedp.Evaluate(fingerprintJS, &before)); err != nil {
		return nil, fmt.Errorf("render: read fingerprint: %w", err)
	}

	var clicked bool
	script := fmt.Sprintf(clickPageJS, strconv.Quote(strconv.Itoa(page)))
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return nil, fmt.Errorf("render: click page %d: %w", page, err)
	}
	if !clicked {
		return nil, ErrNoPageControl
	}

	// Cap the wait at half the tab timeout so the capture below still has
	// time to run when the content never changes.
	waitCtx, cancelWait := context.WithTimeout(ctx, s.chrome.opts.Timeout/2)
	err := s.waitForChange(waitCtx, before)
	cancelWait()
	if err != nil {
		return nil, err
	}

	var html string
	if err := chromedp.Run(ctx,
		chromedp.Sleep(s.chrome.opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("render: capture page %d: %w", page, err)
	}
	return &Page{HTML: html, Status: 200}, nil
}

// waitForChange polls the content fingerprint until it differs from the
// pre-click value. Expiry is not an error: stall detection upstream decides
// whether an unchanged page terminates pagination.
func (s *chromeSession) waitForChange(ctx context.Context, before string) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			var now string
			if err := chromedp.Run(ctx, chromedp.Evaluate(fingerprintJS, &now)); err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("render: poll fingerprint: %w", err)
			}
			if now != before {
				return nil
			}
		}
	}
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}

// FindChromeBinary locates a Chrome/Chromium binary.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
