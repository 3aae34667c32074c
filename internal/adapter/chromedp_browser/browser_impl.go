package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/user/scraper-service/internal/adapter/dom"
	"github.com/user/scraper-service/internal/repository"
	"go.uber.org/zap"
)

// Options configures the headless Chrome sessions.
type Options struct {
	Headless          bool
	NavigationTimeout time.Duration
	Proxies           []string
	UserAgents        []string
}

type ChromedpBrowser struct {
	opts     Options
	identity *Identity
	logger   *zap.Logger
}

// NewChromedpBrowser creates a browser implementation using chromedp.
func NewChromedpBrowser(opts Options, logger *zap.Logger) *ChromedpBrowser {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 60 * time.Second
	}
	return &ChromedpBrowser{
		opts:     opts,
		identity: NewIdentity(opts.Proxies, opts.UserAgents),
		logger:   logger,
	}
}

// NewPage launches a browser process and opens one tab in it.
// The process lives until the returned page is closed.
func (b *ChromedpBrowser) NewPage(ctx context.Context) (repository.Page, error) {
	userAgent := b.identity.UserAgent()
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if proxy := b.identity.Proxy(); proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	sugar := b.logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// The first Run starts the browser, so launch failures surface here.
	if err := chromedp.Run(tabCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	b.logger.Debug("browser session opened", zap.String("user_agent", userAgent))
	return &chromedpPage{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		navTimeout:  b.opts.NavigationTimeout,
		logger:      b.logger,
	}, nil
}

type chromedpPage struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	navTimeout  time.Duration
	logger      *zap.Logger

	doc    *dom.Document
	url    string
	closed bool
}

// Navigate loads url, then waits for the network-idle lifecycle event for at
// most settle before snapshotting the rendered DOM.
func (p *chromedpPage) Navigate(ctx context.Context, url string, settle time.Duration) error {
	idle := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(p.tabCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	navCtx, cancel := context.WithTimeout(p.tabCtx, p.navTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}

	if settle > 0 {
		timer := time.NewTimer(settle)
		defer timer.Stop()
		select {
		case <-idle:
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := p.snapshot(navCtx); err != nil {
		return err
	}
	p.url = url
	p.logger.Debug("page ready", zap.String("url", url), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (p *chromedpPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %s", repository.ErrWaitTimeout, selector)
		}
		return err
	}

	snapCtx, cancelSnap := context.WithTimeout(p.tabCtx, p.navTimeout)
	defer cancelSnap()
	return p.snapshot(snapCtx)
}

func (p *chromedpPage) snapshot(ctx context.Context) error {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := dom.ParseString(html)
	if err != nil {
		return err
	}
	p.doc = doc
	return nil
}

func (p *chromedpPage) URL() string { return p.url }

// Close shuts the tab and the browser process down. It is safe to call twice.
func (p *chromedpPage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	err := chromedp.Cancel(p.tabCtx)
	p.tabCancel()
	p.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	p.logger.Debug("browser session closed")
	return nil
}

func (p *chromedpPage) LocateAll(selector string) []repository.Node {
	if p.doc == nil {
		return nil
	}
	return p.doc.LocateAll(selector)
}

func (p *chromedpPage) LocateFirst(selector string) (repository.Node, bool) {
	if p.doc == nil {
		return nil, false
	}
	return p.doc.LocateFirst(selector)
}

func (p *chromedpPage) Count(selector string) int {
	if p.doc == nil {
		return 0
	}
	return p.doc.Count(selector)
}

func (p *chromedpPage) Text() string {
	if p.doc == nil {
		return ""
	}
	return p.doc.Text()
}

func (p *chromedpPage) Attr(name string) (string, bool) {
	if p.doc == nil {
		return "", false
	}
	return p.doc.Attr(name)
}
