package usecase

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/metrics"
)

const (
	DefaultPaginationTimeout = 5 * time.Second

	// A page without a detectable pager is treated as having one extra page.
	fallbackLastPage = 1
)

var pageParam = regexp.MustCompile(`page=(\d+)`)

// ResolveLastPage reads the highest page index from the href of the anchor
// inside the first element matching selector. It never fails: any problem
// is reported to obs and the fallback of 1 is returned.
func ResolveLastPage(ctx context.Context, page repository.Page, selector string, timeout time.Duration, obs Observer) int {
	obs = observerOrNop(obs)
	if timeout <= 0 {
		timeout = DefaultPaginationTimeout
	}

	fallback := func(reason, msg string, err error) int {
		fields := map[string]any{"selector": selector, "reason": reason, "fallback": fallbackLastPage}
		if err != nil {
			fields["error"] = err.Error()
		}
		obs.Observe(entity.Diagnostic{
			Severity:  entity.SeverityWarn,
			Component: "pagination",
			Message:   msg,
			Fields:    fields,
		})
		metrics.PaginationFallbacks.WithLabelValues(reason).Inc()
		return fallbackLastPage
	}

	if err := page.WaitFor(ctx, selector, timeout); err != nil {
		return fallback("timeout", "pagination element did not appear", err)
	}
	pager, ok := page.LocateFirst(selector)
	if !ok {
		return fallback("no_element", "pagination element not found", nil)
	}
	anchor, ok := pager.LocateFirst("a")
	if !ok {
		return fallback("no_anchor", "pagination element has no link", nil)
	}
	href, ok := anchor.Attr("href")
	if !ok {
		return fallback("no_href", "pagination link has no href", nil)
	}
	m := pageParam.FindStringSubmatch(href)
	if m == nil {
		return fallback("no_match", "pagination link has no page parameter", nil)
	}
	last, err := strconv.Atoi(m[1])
	if err != nil {
		return fallback("invalid_number", "pagination page number is not an integer", err)
	}
	return last
}
