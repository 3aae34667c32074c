package static

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/scraper-service/internal/adapter/dom"
	"github.com/user/scraper-service/internal/repository"
)

// ErrPageNotFound is returned when navigating to a URL with no markup registered.
var ErrPageNotFound = errors.New("no page registered for url")

// Browser serves fixed HTML per URL. It counts sessions and records every
// navigation so callers can assert on what a run did.
type Browser struct {
	pages map[string]string

	mu     sync.Mutex
	opened int
	closed int
	visits []string
}

var _ repository.Browser = (*Browser)(nil)

// NewBrowser creates a Browser serving the given url -> html map.
func NewBrowser(pages map[string]string) *Browser {
	return &Browser{pages: pages}
}

func (b *Browser) NewPage(ctx context.Context) (repository.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.opened++
	b.mu.Unlock()
	return &Page{browser: b}, nil
}

// Opened returns how many sessions were started.
func (b *Browser) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

// Closed returns how many sessions were released.
func (b *Browser) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Visits returns every URL navigated to, in order.
func (b *Browser) Visits() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.visits...)
}

// Page is a static tab.
type Page struct {
	browser *Browser
	doc     *dom.Document
	url     string
	closed  bool
}

var _ repository.Page = (*Page)(nil)

func (p *Page) Navigate(ctx context.Context, url string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.browser.mu.Lock()
	p.browser.visits = append(p.browser.visits, url)
	html, ok := p.browser.pages[url]
	p.browser.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPageNotFound, url)
	}

	doc, err := dom.ParseString(html)
	if err != nil {
		return err
	}
	p.doc = doc
	p.url = url
	return nil
}

// WaitFor never blocks: static markup cannot change after navigation.
func (p *Page) WaitFor(_ context.Context, selector string, _ time.Duration) error {
	if p.doc == nil {
		return repository.ErrNoDocument
	}
	if p.doc.Count(selector) == 0 {
		return fmt.Errorf("%w: %s", repository.ErrWaitTimeout, selector)
	}
	return nil
}

func (p *Page) URL() string { return p.url }

func (p *Page) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.browser.mu.Lock()
	p.browser.closed++
	p.browser.mu.Unlock()
	return nil
}

func (p *Page) LocateAll(selector string) []repository.Node {
	if p.doc == nil {
		return nil
	}
	return p.doc.LocateAll(selector)
}

func (p *Page) LocateFirst(selector string) (repository.Node, bool) {
	if p.doc == nil {
		return nil, false
	}
	return p.doc.LocateFirst(selector)
}

func (p *Page) Count(selector string) int {
	if p.doc == nil {
		return 0
	}
	return p.doc.Count(selector)
}

func (p *Page) Text() string {
	if p.doc == nil {
		return ""
	}
	return p.doc.Text()
}

func (p *Page) Attr(name string) (string, bool) {
	if p.doc == nil {
		return "", false
	}
	return p.doc.Attr(name)
}
