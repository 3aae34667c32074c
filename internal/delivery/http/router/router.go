package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/delivery/http/handler"
	"github.com/user/scraper-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))
			r.Get("/health", h.HandleHealthCheck)
			r.Get("/sites", h.HandleListSites)
			r.Get("/runs", h.HandleListRuns)
			r.Get("/results/{filename}", h.HandleDownload)
		})
		// A scrape drives a real browser over many pages; it is bounded by
		// the request context only.
		r.Post("/scrape", h.HandleScrape)
	})

	return r
}
