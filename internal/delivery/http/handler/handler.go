package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/adapter/csvsink"
	"github.com/user/scraper-service/internal/delivery/http/request"
	"github.com/user/scraper-service/internal/delivery/http/response"
	"github.com/user/scraper-service/internal/registry"
	"github.com/user/scraper-service/internal/usecase"
)

// NoResultsMessage is shown for every unsuccessful or empty run.
const NoResultsMessage = "No results found or an error occurred."

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	scraper usecase.Scraper
	checks  map[string]HealthCheck
	logger  *zap.Logger
}

func NewHandler(scraper usecase.Scraper, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	return &Handler{
		scraper: scraper,
		checks:  checks,
		logger:  logger,
	}
}

func (h *Handler) HandleListSites(w http.ResponseWriter, r *http.Request) {
	choices := h.scraper.Sites()
	resp := response.SitesResponse{Sites: make([]response.SiteResponse, 0, len(choices))}
	for _, c := range choices {
		cats := c.Categories
		if cats == nil {
			cats = []string{}
		}
		resp.Sites = append(resp.Sites, response.SiteResponse{ID: c.ID, Categories: cats})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var req request.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Site == "" {
		h.writeJSONError(w, "site is required", http.StatusBadRequest)
		return
	}

	result, err := h.scraper.RunScrape(r.Context(), usecase.RunRequest{
		Site:     req.Site,
		Category: req.Category,
		Debug:    req.Debug,
		Force:    req.Force,
	})
	if err != nil {
		h.logger.Error("Scrape request failed",
			zap.String("site", req.Site),
			zap.String("category", req.Category),
			zap.Error(err),
		)
		h.writeJSONError(w, NoResultsMessage, scrapeStatus(err))
		return
	}
	if len(result.Records) == 0 {
		h.writeJSONError(w, NoResultsMessage, http.StatusNotFound)
		return
	}

	resp := response.ScrapeResponse{
		Count:        len(result.Records),
		Filename:     result.Filename,
		DownloadURL:  "/api/results/" + result.Filename,
		Cached:       result.Cached,
		PagesVisited: result.PagesVisited,
		DurationMS:   result.Duration.Milliseconds(),
		Records:      make([]response.ProductResponse, 0, len(result.Records)),
	}
	for _, p := range result.Records {
		resp.Records = append(resp.Records, response.ProductResponse{Title: p.Title, BuyButton: p.HasBuyButton})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, err := h.scraper.ResultPath(filename)
	if err != nil {
		h.writeJSONError(w, "Invalid result file name", http.StatusBadRequest)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.writeJSONError(w, "Result file not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to open result file", zap.String("path", path), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.scraper.RecentRuns(r.Context(), limit)
	if err != nil {
		if errors.Is(err, usecase.ErrHistoryDisabled) {
			h.writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("Failed to list runs", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.RunsResponse{Runs: make([]response.RunResponse, 0, len(runs))}
	for _, s := range runs {
		resp.Runs = append(resp.Runs, response.RunResponse{
			ID:           s.ID,
			Site:         s.Site,
			Category:     s.Category,
			Filename:     s.Filename,
			ProductCount: s.ProductCount,
			PagesVisited: s.PagesVisited,
			LastPage:     s.LastPage,
			StartedAt:    s.StartedAt,
			DurationMS:   s.DurationMS,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Error("Health check failed", zap.String("dependency", name), zap.Error(err))
			status[name] = "unhealthy"
			healthy = false
			continue
		}
		status[name] = "healthy"
	}

	if !healthy {
		status["status"] = "degraded"
		h.writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func scrapeStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrSiteNotFound), errors.Is(err, registry.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrCategoryRequired):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrBrowserUnavailable), errors.Is(err, csvsink.ErrInvalidFilename):
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
