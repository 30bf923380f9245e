package paginate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kwokkawai/HKHousingDataCrawl/fetch"
	"github.com/kwokkawai/HKHousingDataCrawl/render"
	"github.com/kwokkawai/HKHousingDataCrawl/utils"
)

func listingHTML(ids ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, id := range ids {
		fmt.Fprintf(&b, `<li><a href="/property/detail-%s">listing %s</a></li>`, id, id)
	}
	b.WriteString(`<a href="/about">about us</a></ul></body></html>`)
	return b.String()
}

// mapLoader serves a fixed page per URL.
type mapLoader struct {
	pages map[string]*render.Page
	errs  map[string]error
}

func (m *mapLoader) Load(url, wait string) (*render.Page, error) {
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	if p, ok := m.pages[url]; ok {
		return p, nil
	}
	return &render.Page{HTML: listingHTML(), Status: 200}, nil
}

func newURLPaginator(t *testing.T, loader fetch.Loader, maxPages int) *URLPaginator {
	t.Helper()
	f := fetch.New(loader, fetch.Options{
		MaxRetries:  1,
		BackoffBase: time.Millisecond,
		BackoffCap:  time.Millisecond,
		Cooldown:    time.Millisecond,
	}, utils.NewLogger())
	p, err := NewURL(f, URLOptions{
		PageURL:  func(page int) string { return fmt.Sprintf("https://site.test/list/page-%d", page) },
		Include:  []string{"/property/"},
		MaxPages: maxPages,
	}, utils.NewLogger())
	if err != nil {
		t.Fatalf("NewURL: %v", err)
	}
	return p
}

func drain(t *testing.T, p Paginator) ([]string, error) {
	t.Helper()
	var all []string
	for {
		links, err := p.Next(context.Background())
		if err != nil {
			return all, err
		}
		all = append(all, links...)
	}
}

func TestURLPaginatorStopsWhenPageAddsNothing(t *testing.T) {
	loader := &mapLoader{pages: map[string]*render.Page{
		"https://site.test/list/page-1": {HTML: listingHTML("a", "b"), Status: 200},
		"https://site.test/list/page-2": {HTML: listingHTML("b", "c"), Status: 200},
		// page 3 repeats page 2 and contributes no new links
		"https://site.test/list/page-3": {HTML: listingHTML("b", "c"), Status: 200},
	}}
	p := newURLPaginator(t, loader, 10)

	links, err := drain(t, p)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	want := []string{
		"https://site.test/property/detail-a",
		"https://site.test/property/detail-b",
		"https://site.test/property/detail-c",
	}
	if len(links) != len(want) {
		t.Fatalf("links: got %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d]: got %s, want %s", i, links[i], want[i])
		}
	}
}

func TestURLPaginatorHonorsMaxPages(t *testing.T) {
	loader := &mapLoader{pages: map[string]*render.Page{
		"https://site.test/list/page-1": {HTML: listingHTML("a"), Status: 200},
		"https://site.test/list/page-2": {HTML: listingHTML("b"), Status: 200},
		"https://site.test/list/page-3": {HTML: listingHTML("c"), Status: 200},
	}}
	p := newURLPaginator(t, loader, 2)

	links, err := drain(t, p)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if len(links) != 2 {
		t.Errorf("expected 2 links from 2 pages, got %v", links)
	}
}

func TestURLPaginatorSkipsFailedPage(t *testing.T) {
	loader := &mapLoader{
		pages: map[string]*render.Page{
			"https://site.test/list/page-1": {HTML: listingHTML("a"), Status: 200},
			"https://site.test/list/page-3": {HTML: listingHTML("b"), Status: 200},
		},
		errs: map[string]error{
			"https://site.test/list/page-2": errors.New("tab crashed"),
		},
	}
	p := newURLPaginator(t, loader, 3)

	links, err := drain(t, p)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if len(links) != 2 {
		t.Errorf("expected links from pages 1 and 3, got %v", links)
	}
}

func TestURLPaginatorAbortsOnConsecutiveBlocks(t *testing.T) {
	blocked := &render.Page{HTML: "<html><body>denied</body></html>", Status: 403}
	loader := &mapLoader{pages: map[string]*render.Page{
		"https://site.test/list/page-1": {HTML: listingHTML("a"), Status: 200},
		"https://site.test/list/page-2": blocked,
		"https://site.test/list/page-3": blocked,
	}}
	p := newURLPaginator(t, loader, 10)

	_, err := drain(t, p)
	if !errors.Is(err, ErrSiteBlocked) {
		t.Fatalf("expected ErrSiteBlocked, got %v", err)
	}
}

// fakeSession replays scripted pages for AJAX pagination.
type fakeSession struct {
	pages    map[int]*render.Page
	lastPage int
	closed   bool
}

func (s *fakeSession) Navigate(url, wait string) (*render.Page, error) {
	return s.pages[1], nil
}

func (s *fakeSession) GoToPage(page int) (*render.Page, error) {
	p, ok := s.pages[page]
	if !ok {
		return nil, render.ErrNoPageControl
	}
	s.lastPage = page
	return p, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func newSessionPaginator(t *testing.T, s render.Session, maxPages int) *SessionPaginator {
	t.Helper()
	p, err := NewSession(s, SessionOptions{
		ListURL:  "https://site.test/list",
		Include:  []string{"/property/"},
		MaxPages: maxPages,
	}, utils.NewLogger())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return p
}

func TestSessionPaginatorStopsAtMissingControl(t *testing.T) {
	sess := &fakeSession{pages: map[int]*render.Page{
		1: {HTML: listingHTML("a", "b"), Status: 200},
		2: {HTML: listingHTML("c"), Status: 200},
	}}
	p := newSessionPaginator(t, sess, 10)

	links, err := drain(t, p)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if len(links) != 3 {
		t.Errorf("expected 3 links, got %v", links)
	}
	if sess.lastPage != 2 {
		t.Errorf("expected traversal to reach page 2, got %d", sess.lastPage)
	}
}

func TestSessionPaginatorDetectsStall(t *testing.T) {
	same := listingHTML("a", "b")
	sess := &fakeSession{pages: map[int]*render.Page{
		1: {HTML: same, Status: 200},
		// the click "succeeds" but the page never advances
		2: {HTML: same, Status: 200},
		3: {HTML: listingHTML("z"), Status: 200},
	}}
	p := newSessionPaginator(t, sess, 10)

	links, err := drain(t, p)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if len(links) != 2 {
		t.Errorf("expected only page 1 links before the stall, got %v", links)
	}
	if sess.lastPage != 2 {
		t.Errorf("traversal should stop at the stalled page, got %d", sess.lastPage)
	}
}

func TestSessionPaginatorCloseReleasesSession(t *testing.T) {
	sess := &fakeSession{pages: map[int]*render.Page{}}
	p := newSessionPaginator(t, sess, 1)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sess.closed {
		t.Error("session was not closed")
	}
	if _, err := p.Next(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Errorf("Next after Close: got %v, want ErrExhausted", err)
	}
}
