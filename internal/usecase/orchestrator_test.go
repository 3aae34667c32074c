package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scraper-service/internal/adapter/static"
	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

const listingURL = "https://shop.example/dogs"

func product(title string, buy bool) string {
	b := ""
	if buy {
		b = `<button class="buy">Buy</button>`
	}
	return fmt.Sprintf(`<div class="product"><h2 class="title">%s</h2>%s</div>`, title, b)
}

func listingPage(pager string, products ...string) string {
	return "<html><body>" + strings.Join(products, "") + pager + "</body></html>"
}

func pagedDescriptor(start int) entity.ExtractionDescriptor {
	d := testDescriptor
	d.LastPageSelector = "li.last"
	d.PageURLTemplate = "?page={page}"
	d.StartPage = start
	return d
}

func TestPageURL(t *testing.T) {
	d := pagedDescriptor(0)

	u, err := PageURL(d, 0)
	require.NoError(t, err)
	assert.Equal(t, listingURL, u)

	u, err = PageURL(d, 3)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/dogs?page=3", u)

	d.PageURLTemplate = "/katalog/psi/strana-{page}"
	u, err = PageURL(d, 2)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/katalog/psi/strana-2", u)

	d.PageURLTemplate = "https://cdn.example/list?p={page}&page={page}"
	u, err = PageURL(d, 4)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/list?p=4&page=4", u)

	d.PageURLTemplate = ""
	u, err = PageURL(d, 5)
	require.NoError(t, err)
	assert.Equal(t, listingURL, u)
}

func TestOrchestratorEndToEnd(t *testing.T) {
	// The pager is absent, so the last page falls back to 1.
	page0 := listingPage("", product("A", true), product("B", false))
	page1 := listingPage("", product("C", true), product("D", true), product("E", true))
	browser := static.NewBrowser(map[string]string{
		listingURL:                     page0,
		listingURL + "?page=1":         page1,
		"https://shop.example/?page=1": "<p>wrong</p>",
	})
	obs := &recordingObserver{}
	o := NewOrchestrator(browser, DefaultSettings(), obs)

	result, err := o.Run(context.Background(), "site", "category", pagedDescriptor(0), false)
	require.NoError(t, err)

	assert.Equal(t, []entity.ProductRecord{
		{Title: "A", HasBuyButton: true},
		{Title: "B", HasBuyButton: false},
		{Title: "C", HasBuyButton: true},
		{Title: "D", HasBuyButton: true},
		{Title: "E", HasBuyButton: true},
	}, result.Records)
	assert.Equal(t, 1, result.LastPage)
	assert.Equal(t, 2, result.PagesVisited)
	assert.Equal(t, "results_site_category.csv", entity.ResultFilename(result.Site, result.Category))
	assert.Equal(t, []string{listingURL, listingURL, listingURL + "?page=1"}, browser.Visits())
	assert.Equal(t, 1, browser.Opened())
	assert.Equal(t, 1, browser.Closed())

	fallbacks := obs.bySeverity(entity.SeverityWarn)
	require.Len(t, fallbacks, 1)
	assert.Equal(t, "timeout", fallbacks[0].Fields["reason"])
}

func TestOrchestratorVisitsAscendingRange(t *testing.T) {
	pager := `<ul><li class="last"><a href="/dogs?page=4">4</a></li></ul>`
	pages := map[string]string{listingURL: listingPage(pager, product("listing", true))}
	for n := 1; n <= 4; n++ {
		pages[fmt.Sprintf("%s?page=%d", listingURL, n)] = listingPage(pager, product(fmt.Sprintf("p%d", n), n%2 == 0))
	}

	for _, start := range []int{0, 1, 2, 4} {
		t.Run(fmt.Sprintf("start %d", start), func(t *testing.T) {
			browser := static.NewBrowser(pages)
			o := NewOrchestrator(browser, DefaultSettings(), nil)

			result, err := o.Run(context.Background(), "site", "", pagedDescriptor(start), false)
			require.NoError(t, err)
			assert.Equal(t, 4, result.LastPage)
			assert.Equal(t, 4-start+1, result.PagesVisited)
			require.Len(t, result.Records, 4-start+1)

			visits := browser.Visits()[1:]
			for i, v := range visits {
				n := start + i
				if n == 0 {
					assert.Equal(t, listingURL, v)
					assert.Equal(t, "listing", result.Records[i].Title)
					continue
				}
				assert.Equal(t, fmt.Sprintf("%s?page=%d", listingURL, n), v)
				assert.Equal(t, fmt.Sprintf("p%d", n), result.Records[i].Title)
			}
		})
	}
}

func TestOrchestratorEmptyRange(t *testing.T) {
	browser := static.NewBrowser(map[string]string{listingURL: listingPage("", product("A", true))})
	o := NewOrchestrator(browser, DefaultSettings(), nil)

	// No pager means a last page of 1, below the start page.
	result, err := o.Run(context.Background(), "site", "", pagedDescriptor(3), false)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Zero(t, result.PagesVisited)
	assert.Equal(t, []string{listingURL}, browser.Visits())
	assert.Equal(t, 1, browser.Closed())
}

func TestOrchestratorWithoutTemplate(t *testing.T) {
	pager := `<li class="last"><a href="?page=9">9</a></li>`
	browser := static.NewBrowser(map[string]string{listingURL: listingPage(pager, product("A", true), product("B", true))})
	o := NewOrchestrator(browser, DefaultSettings(), nil)

	d := testDescriptor
	d.LastPageSelector = "li.last"
	d.StartPage = 2

	result, err := o.Run(context.Background(), "site", "", d, false)
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, 1, result.PagesVisited)
	assert.Equal(t, []string{listingURL}, browser.Visits())
}

func TestOrchestratorWithoutLastPageSelector(t *testing.T) {
	browser := static.NewBrowser(map[string]string{
		listingURL:             listingPage("", product("A", true)),
		listingURL + "?page=1": listingPage("", product("B", false)),
	})
	o := NewOrchestrator(browser, DefaultSettings(), nil)

	d := pagedDescriptor(1)
	d.LastPageSelector = ""

	result, err := o.Run(context.Background(), "site", "", d, false)
	require.NoError(t, err)
	assert.Equal(t, []entity.ProductRecord{{Title: "B"}}, result.Records)
}

func TestOrchestratorExtractionFault(t *testing.T) {
	broken := `<div class="product"><h3>no title</h3></div>`
	browser := static.NewBrowser(map[string]string{
		listingURL:             listingPage("", product("A", true)),
		listingURL + "?page=1": listingPage("", broken),
	})
	obs := &recordingObserver{}
	o := NewOrchestrator(browser, DefaultSettings(), obs)

	result, err := o.Run(context.Background(), "site", "", pagedDescriptor(0), false)
	assert.ErrorIs(t, err, ErrTitleNotFound)
	assert.Nil(t, result)
	assert.Equal(t, 1, browser.Closed())
	assert.Len(t, obs.bySeverity(entity.SeverityError), 1)
}

func TestOrchestratorNavigationFault(t *testing.T) {
	browser := static.NewBrowser(map[string]string{})
	o := NewOrchestrator(browser, DefaultSettings(), nil)

	_, err := o.Run(context.Background(), "site", "", testDescriptor, false)
	assert.ErrorIs(t, err, ErrNavigationFailed)
	assert.ErrorIs(t, err, static.ErrPageNotFound)
	assert.Equal(t, 1, browser.Opened())
	assert.Equal(t, 1, browser.Closed())
}

type failingBrowser struct{}

func (failingBrowser) NewPage(context.Context) (repository.Page, error) {
	return nil, errors.New("chrome not installed")
}

func TestOrchestratorBrowserUnavailable(t *testing.T) {
	o := NewOrchestrator(failingBrowser{}, DefaultSettings(), nil)

	_, err := o.Run(context.Background(), "site", "", testDescriptor, false)
	assert.ErrorIs(t, err, ErrBrowserUnavailable)
}

func TestOrchestratorDebugTrace(t *testing.T) {
	pager := `<li class="last"><a href="?page=2">2</a></li>`
	browser := static.NewBrowser(map[string]string{
		listingURL:             listingPage(pager, product("A", true)),
		listingURL + "?page=1": listingPage(pager, product("B", true), product("C", false)),
		listingURL + "?page=2": listingPage(pager),
	})

	quiet := &recordingObserver{}
	_, err := NewOrchestrator(browser, DefaultSettings(), quiet).Run(context.Background(), "site", "", pagedDescriptor(1), false)
	require.NoError(t, err)
	assert.Empty(t, quiet.bySeverity(entity.SeverityDebug))

	traced := &recordingObserver{}
	result, err := NewOrchestrator(browser, DefaultSettings(), traced).Run(context.Background(), "site", "", pagedDescriptor(1), true)
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)

	visited := traced.filter(entity.SeverityDebug, "visiting page")
	require.Len(t, visited, 2)
	assert.Equal(t, 1, visited[0].Fields["page"])
	assert.Equal(t, listingURL+"?page=2", visited[1].Fields["url"])

	counts := traced.filter(entity.SeverityDebug, "found containers")
	require.Len(t, counts, 2)
	assert.Equal(t, 2, counts[0].Fields["count"])
	assert.Equal(t, 0, counts[1].Fields["count"])
}

func TestOrchestratorCanceledContext(t *testing.T) {
	browser := static.NewBrowser(map[string]string{listingURL: listingPage("", product("A", true))})
	o := NewOrchestrator(browser, DefaultSettings(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Run(ctx, "site", "", testDescriptor, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, browser.Opened())
}
