package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RunsTotal           *prometheus.CounterVec // status: success, failure, cached
	RunDuration         *prometheus.HistogramVec
	PagesVisitedTotal   *prometheus.CounterVec
	ProductsTotal       *prometheus.CounterVec
	PaginationFallbacks *prometheus.CounterVec

	initOnce sync.Once
)

// The collectors are registered on import so that no caller can observe nil vectors.
func init() {
	Init()
}

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "Total number of scrape runs.",
		},
		[]string{"site", "status", "error_type"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_run_duration_seconds",
			Help:    "Duration of scrape runs.",
			Buckets: []float64{5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"site"},
	)

	PagesVisitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_visited_total",
			Help: "Total number of listing pages extracted.",
		},
		[]string{"site"},
	)

	ProductsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_products_extracted_total",
			Help: "Total number of product records extracted.",
		},
		[]string{"site"},
	)

	PaginationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pagination_fallbacks_total",
			Help: "Times the last page could not be detected and the fallback was used.",
		},
		[]string{"reason"},
	)
}
