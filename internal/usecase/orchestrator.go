package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/metrics"
	"github.com/user/scraper-service/pkg/utils"
)

const (
	DefaultInitialSettle = 2 * time.Second
	DefaultPageSettle    = 1500 * time.Millisecond
)

var (
	ErrBrowserUnavailable = errors.New("browser session could not be opened")
	ErrNavigationFailed   = errors.New("navigation failed")
	ErrInvalidPageURL     = errors.New("page url could not be built")
)

// Settings holds the waits applied while driving a browser session.
type Settings struct {
	InitialSettle     time.Duration // after loading the listing URL
	PageSettle        time.Duration // after loading each listing page
	PaginationTimeout time.Duration
}

// DefaultSettings returns the waits used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		InitialSettle:     DefaultInitialSettle,
		PageSettle:        DefaultPageSettle,
		PaginationTimeout: DefaultPaginationTimeout,
	}
}

// Orchestrator runs a single scrape over one browser session.
type Orchestrator struct {
	browser  repository.Browser
	settings Settings
	obs      Observer
}

// NewOrchestrator creates an Orchestrator. A nil observer discards diagnostics.
func NewOrchestrator(browser repository.Browser, settings Settings, obs Observer) *Orchestrator {
	return &Orchestrator{
		browser:  browser,
		settings: settings,
		obs:      observerOrNop(obs),
	}
}

// PageURL returns the address of listing page n. Page 0 and descriptors
// without a template map to the listing URL itself; a relative template is
// resolved against the listing URL.
func PageURL(d entity.ExtractionDescriptor, n int) (string, error) {
	if n == 0 || !d.Paginated() {
		return d.ListingURL, nil
	}
	base, err := url.Parse(d.ListingURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPageURL, err)
	}
	rel := strings.ReplaceAll(d.PageURLTemplate, entity.PagePlaceholder, strconv.Itoa(n))
	abs, err := utils.ToAbsoluteURL(base, rel)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPageURL, err)
	}
	return abs, nil
}

// Run scrapes every listing page described by d and returns the records in
// page order. The session is released on every path. A run whose page range
// is empty yields no records and no error.
func (o *Orchestrator) Run(ctx context.Context, site, category string, d entity.ExtractionDescriptor, debug bool) (*entity.RunResult, error) {
	started := time.Now()

	page, err := o.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			o.emit(entity.SeverityWarn, "failed to close browser session", map[string]any{"error": cerr.Error()})
		}
	}()

	if debug {
		o.emit(entity.SeverityDebug, "opening listing", map[string]any{"url": d.ListingURL})
	}
	if err := page.Navigate(ctx, d.ListingURL, o.settings.InitialSettle); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNavigationFailed, d.ListingURL, err)
	}

	result := &entity.RunResult{
		Site:      site,
		Category:  category,
		Records:   []entity.ProductRecord{},
		LastPage:  fallbackLastPage,
		StartedAt: started,
	}

	if !d.Paginated() {
		records, err := o.extract(page, d, 0, site, debug)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, records...)
		result.PagesVisited = 1
		result.Duration = time.Since(started)
		o.finished(result)
		return result, nil
	}

	if d.LastPageSelector != "" {
		result.LastPage = ResolveLastPage(ctx, page, d.LastPageSelector, o.settings.PaginationTimeout, o.obs)
	}
	if debug {
		o.emit(entity.SeverityDebug, "page range", map[string]any{"start_page": d.StartPage, "last_page": result.LastPage})
	}

	for n := d.StartPage; n <= result.LastPage; n++ {
		target, err := PageURL(d, n)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		if debug {
			o.emit(entity.SeverityDebug, "visiting page", map[string]any{"page": n, "url": target})
		}
		if err := page.Navigate(ctx, target, o.settings.PageSettle); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNavigationFailed, target, err)
		}
		records, err := o.extract(page, d, n, site, debug)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, records...)
		result.PagesVisited++
	}

	result.Duration = time.Since(started)
	o.finished(result)
	return result, nil
}

func (o *Orchestrator) extract(page repository.Page, d entity.ExtractionDescriptor, n int, site string, debug bool) ([]entity.ProductRecord, error) {
	if debug {
		o.emit(entity.SeverityDebug, "found containers", map[string]any{
			"page":     n,
			"selector": d.ContainerSelector,
			"count":    page.Count(d.ContainerSelector),
		})
	}
	records, err := ExtractPage(page, d)
	if err != nil {
		o.emit(entity.SeverityError, "extraction failed", map[string]any{"page": n, "url": page.URL(), "error": err.Error()})
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	metrics.PagesVisitedTotal.WithLabelValues(site).Inc()
	metrics.ProductsTotal.WithLabelValues(site).Add(float64(len(records)))
	return records, nil
}

func (o *Orchestrator) finished(r *entity.RunResult) {
	o.emit(entity.SeverityInfo, "scrape finished", map[string]any{
		"site":          r.Site,
		"category":      r.Category,
		"pages_visited": r.PagesVisited,
		"last_page":     r.LastPage,
		"products":      len(r.Records),
		"duration_ms":   r.Duration.Milliseconds(),
	})
}

func (o *Orchestrator) emit(sev entity.Severity, msg string, fields map[string]any) {
	o.obs.Observe(entity.Diagnostic{
		Severity:  sev,
		Component: "orchestrator",
		Message:   msg,
		Fields:    fields,
	})
}
