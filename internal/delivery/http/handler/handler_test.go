package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/adapter/csvsink"
	"github.com/user/scraper-service/internal/adapter/static"
	"github.com/user/scraper-service/internal/delivery/http/handler"
	"github.com/user/scraper-service/internal/delivery/http/response"
	"github.com/user/scraper-service/internal/delivery/http/router"
	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/registry"
	"github.com/user/scraper-service/internal/usecase"
)

const sitesYAML = `
sites:
  shop:
    categories:
      dogs:
        url: "https://shop.example/dogs"
        product_container_selector: "div.product"
        title_selector: "h2"
        buy_button_selector: "button.buy"
        pagination_url_template: "?page={page}"
        pagination_last_selector: "li.last"
        pagination_start_page: 1
  empty:
    url: "https://empty.example/"
    product_container_selector: "div.product"
    title_selector: "h2"
    buy_button_selector: "button.buy"
`

var pages = map[string]string{
	"https://shop.example/dogs": `<li class="last"><a href="?page=2">2</a></li>`,
	"https://shop.example/dogs?page=1": `<div class="product"><h2>Adult, Chicken</h2><button class="buy">Buy</button></div>
<div class="product"><h2>Puppy</h2></div>`,
	"https://shop.example/dogs?page=2": `<div class="product"><h2>Senior</h2><button class="buy">Buy</button></div>`,
	"https://empty.example/":           `<p>Nothing here</p>`,
}

type stubHistory struct {
	runs []*entity.RunSummary
	err  error
}

func (s *stubHistory) Save(context.Context, *entity.RunResult) error { return nil }

func (s *stubHistory) FindRecent(_ context.Context, limit int) ([]*entity.RunSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func newServer(t *testing.T, checks map[string]handler.HealthCheck, opts ...usecase.ServiceOption) (http.Handler, *static.Browser) {
	t.Helper()
	reg, err := registry.Parse(strings.NewReader(sitesYAML), "yaml")
	require.NoError(t, err)
	sink, err := csvsink.NewSink(t.TempDir())
	require.NoError(t, err)

	browser := static.NewBrowser(pages)
	svc := usecase.NewScrapeService(reg, usecase.NewOrchestrator(browser, usecase.DefaultSettings(), nil), sink, zap.NewNop(), opts...)
	h := handler.NewHandler(svc, checks, zap.NewNop())
	return router.New(h, zap.NewNop()), browser
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	srv, _ = newServer(t, map[string]handler.HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	rec = do(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","postgres":"healthy","redis":"unhealthy"}`, rec.Body.String())
}

func TestListSites(t *testing.T) {
	srv, _ := newServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/api/sites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sites":[{"id":"empty","categories":[]},{"id":"shop","categories":["dogs"]}]}`, rec.Body.String())
}

func TestScrapeAndDownload(t *testing.T) {
	srv, browser := newServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/api/scrape", `{"site":"shop","category":"dogs","debug":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp response.ScrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "results_shop_dogs.csv", resp.Filename)
	assert.Equal(t, "/api/results/results_shop_dogs.csv", resp.DownloadURL)
	assert.False(t, resp.Cached)
	assert.Equal(t, 2, resp.PagesVisited)
	assert.Equal(t, []response.ProductResponse{
		{Title: "Adult, Chicken", BuyButton: true},
		{Title: "Puppy", BuyButton: false},
		{Title: "Senior", BuyButton: true},
	}, resp.Records)
	assert.Equal(t, 1, browser.Closed())

	rec = do(t, srv, http.MethodGet, resp.DownloadURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="results_shop_dogs.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "title,buy_button\n\"Adult, Chicken\",true\nPuppy,false\nSenior,true\n", rec.Body.String())
}

func TestScrapeFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"malformed body", `{"site":`, http.StatusBadRequest, "Invalid request body"},
		{"missing site", `{"category":"dogs"}`, http.StatusBadRequest, "site is required"},
		{"unknown site", `{"site":"nowhere"}`, http.StatusNotFound, handler.NoResultsMessage},
		{"unknown category", `{"site":"shop","category":"fish"}`, http.StatusNotFound, handler.NoResultsMessage},
		{"category required", `{"site":"shop"}`, http.StatusBadRequest, handler.NoResultsMessage},
		{"no products", `{"site":"empty"}`, http.StatusNotFound, handler.NoResultsMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, nil)
			rec := do(t, srv, http.MethodPost, "/api/scrape", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, errorMessage(t, rec))
		})
	}
}

func TestDownloadErrors(t *testing.T) {
	srv, _ := newServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/results/notes.txt", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/results/results_missing.csv", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns(t *testing.T) {
	srv, _ := newServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	history := &stubHistory{runs: []*entity.RunSummary{
		{ID: 2, Site: "shop", Category: "dogs", Filename: "results_shop_dogs.csv", ProductCount: 3},
		{ID: 1, Site: "empty", Filename: "results_empty.csv"},
	}}
	srv, _ = newServer(t, nil, usecase.WithRunHistory(history))

	rec = do(t, srv, http.MethodGet, "/api/runs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp response.RunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, int64(2), resp.Runs[0].ID)
	assert.Equal(t, 3, resp.Runs[0].ProductCount)

	rec = do(t, srv, http.MethodGet, "/api/runs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	history.err = errors.New("connection reset")
	rec = do(t, srv, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newServer(t, nil)
	do(t, srv, http.MethodGet, "/api/health", "")

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/health",status="200"}`)
}
