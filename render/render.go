// Package render owns the headless-browser layer. Everything above it treats
// a page load as an opaque fetch(url, wait) returning final HTML plus the
// document status code.
package render

import (
	"errors"
	"time"
)

// Page is the outcome of one rendered page load.
type Page struct {
	HTML   string
	Status int
}

// ErrNoPageControl is returned by Session.GoToPage when the numbered
// pagination control for the requested page does not exist.
var ErrNoPageControl = errors.New("render: pagination control not found")

// Renderer loads JavaScript-rendered pages.
type Renderer interface {
	// Load opens a fresh tab, navigates to url and waits for waitSelector
	// (or a settle delay when empty) before capturing the DOM.
	Load(url, waitSelector string) (*Page, error)

	// NewSession opens a persistent tab for AJAX pagination. The session
	// must be used sequentially.
	NewSession() (Session, error)

	Close()
}

// Session is a persistent browser tab whose in-page state survives across
// pagination transitions.
type Session interface {
	Navigate(url, waitSelector string) (*Page, error)

	// GoToPage clicks the numbered pagination control and waits for the
	// page content to change before returning the updated DOM.
	GoToPage(page int) (*Page, error)

	Close() error
}

// Options configures the Chrome renderer.
type Options struct {
	Headless    bool
	UserAgent   string
	ExecPath    string
	Timeout     time.Duration
	SettleDelay time.Duration
	MaxSessions int
}

func (o *Options) fill() {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 3 * time.Second
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = 3
	}
}
