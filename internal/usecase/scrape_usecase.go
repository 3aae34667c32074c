package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/registry"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/metrics"
)

var ErrHistoryDisabled = errors.New("run history is not configured")

const DefaultRecentRunTTL = time.Hour

// SiteRegistry resolves site and category identifiers to descriptors.
type SiteRegistry interface {
	Descriptor(siteID, categoryID string) (entity.ExtractionDescriptor, error)
	Sites() []string
	Categories(siteID string) ([]string, error)
}

// RunRequest selects what to scrape.
type RunRequest struct {
	Site     string
	Category string
	Debug    bool
	Force    bool // ignore a recent run of the same pair
}

// SiteChoice is one selectable site and its categories.
type SiteChoice struct {
	ID         string
	Categories []string
}

// Scraper defines the interface exposed to the CLI and HTTP shells.
type Scraper interface {
	RunScrape(ctx context.Context, req RunRequest) (*entity.RunResult, error)
	Sites() []SiteChoice
	RecentRuns(ctx context.Context, limit int) ([]*entity.RunSummary, error)
	ResultPath(filename string) (string, error)
}

// ServiceOption configures optional collaborators of the scrape service.
type ServiceOption func(*scrapeService)

// WithRunHistory records every finished run.
func WithRunHistory(h repository.RunHistoryRepository) ServiceOption {
	return func(s *scrapeService) { s.history = h }
}

// WithRecentRuns answers repeated requests from the last output file until ttl elapses.
func WithRecentRuns(r repository.RecentRunRepository, ttl time.Duration) ServiceOption {
	return func(s *scrapeService) {
		s.recent = r
		if ttl > 0 {
			s.recentTTL = ttl
		}
	}
}

type scrapeService struct {
	registry     SiteRegistry
	orchestrator *Orchestrator
	sink         repository.ResultSink
	history      repository.RunHistoryRepository
	recent       repository.RecentRunRepository
	recentTTL    time.Duration
	logger       *zap.Logger

	// one browser session at a time
	mu sync.Mutex
}

// NewScrapeService creates the scrape use case.
func NewScrapeService(
	reg SiteRegistry,
	orchestrator *Orchestrator,
	sink repository.ResultSink,
	logger *zap.Logger,
	opts ...ServiceOption,
) Scraper {
	metrics.Init()
	s := &scrapeService{
		registry:     reg,
		orchestrator: orchestrator,
		sink:         sink,
		recentTTL:    DefaultRecentRunTTL,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *scrapeService) RunScrape(ctx context.Context, req RunRequest) (*entity.RunResult, error) {
	site := strings.ToLower(strings.TrimSpace(req.Site))
	category := strings.ToLower(strings.TrimSpace(req.Category))

	d, err := s.registry.Descriptor(site, category)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("unknown", "failure", errorType(err)).Inc()
		return nil, err
	}
	filename := entity.ResultFilename(site, category)

	// The recent-run check, the browser run and the write of its output
	// happen under one lock so identical requests never scrape twice.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recent != nil {
		if req.Force {
			if err := s.recent.Forget(ctx, site, category); err != nil {
				s.logger.Warn("Failed to forget recent run for forced scrape", zap.String("site", site), zap.String("category", category), zap.Error(err))
			}
		} else if cached := s.fromRecent(ctx, site, category); cached != nil {
			metrics.RunsTotal.WithLabelValues(site, "cached", "").Inc()
			return cached, nil
		}
	}

	s.logger.Info("Starting scrape", zap.String("site", site), zap.String("category", category), zap.String("url", d.ListingURL))

	result, err := s.orchestrator.Run(ctx, site, category, d, req.Debug)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(site, "failure", errorType(err)).Inc()
		s.logger.Error("Scrape failed", zap.String("site", site), zap.String("category", category), zap.Error(err))
		return nil, err
	}
	metrics.RunDuration.WithLabelValues(site).Observe(result.Duration.Seconds())

	path, err := s.sink.Write(ctx, filename, result.Records)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(site, "failure", "sink").Inc()
		return nil, fmt.Errorf("failed to write results to %s: %w", filename, err)
	}
	result.Filename = filename
	metrics.RunsTotal.WithLabelValues(site, "success", "").Inc()
	s.logger.Info("Scrape finished",
		zap.String("site", site),
		zap.String("category", category),
		zap.String("path", path),
		zap.Int("products", len(result.Records)),
		zap.Int("pages_visited", result.PagesVisited),
		zap.Int64("duration_ms", result.Duration.Milliseconds()),
	)

	if s.history != nil {
		if err := s.history.Save(ctx, result); err != nil {
			// The CSV is already written; history is best effort.
			s.logger.Error("Failed to save run history", zap.String("site", site), zap.Error(err))
		}
	}
	if s.recent != nil && len(result.Records) > 0 {
		if err := s.recent.MarkRecent(ctx, site, category, filename, s.recentTTL); err != nil {
			s.logger.Warn("Failed to mark run as recent", zap.String("site", site), zap.Error(err))
		}
	}
	return result, nil
}

// fromRecent rebuilds a result from the output of a recent run. Any problem
// yields nil so that a fresh run happens instead.
func (s *scrapeService) fromRecent(ctx context.Context, site, category string) *entity.RunResult {
	filename, ok, err := s.recent.Recent(ctx, site, category)
	if err != nil {
		s.logger.Warn("Failed to check recent runs", zap.String("site", site), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	records, err := s.sink.Read(ctx, filename)
	if err != nil || len(records) == 0 {
		s.logger.Warn("Recent run output unusable, scraping again", zap.String("filename", filename), zap.Error(err))
		return nil
	}
	s.logger.Info("Serving recent run", zap.String("site", site), zap.String("category", category), zap.String("filename", filename))
	return &entity.RunResult{
		Site:      site,
		Category:  category,
		Records:   records,
		Filename:  filename,
		StartedAt: time.Now(),
		Cached:    true,
	}
}

func (s *scrapeService) Sites() []SiteChoice {
	ids := s.registry.Sites()
	out := make([]SiteChoice, 0, len(ids))
	for _, id := range ids {
		cats, err := s.registry.Categories(id)
		if err != nil {
			continue
		}
		out = append(out, SiteChoice{ID: id, Categories: cats})
	}
	return out
}

func (s *scrapeService) RecentRuns(ctx context.Context, limit int) ([]*entity.RunSummary, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.FindRecent(ctx, limit)
}

func (s *scrapeService) ResultPath(filename string) (string, error) {
	return s.sink.Path(filename)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, registry.ErrSiteNotFound),
		errors.Is(err, registry.ErrCategoryNotFound),
		errors.Is(err, registry.ErrCategoryRequired):
		return "config"
	case errors.Is(err, ErrBrowserUnavailable):
		return "browser"
	case errors.Is(err, ErrNavigationFailed), errors.Is(err, ErrInvalidPageURL):
		return "navigation"
	case errors.Is(err, ErrTitleNotFound):
		return "extraction"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}
	return "unknown"
}
