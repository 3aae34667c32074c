package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/adapter/chromedp_browser"
	"github.com/user/scraper-service/internal/adapter/csvsink"
	"github.com/user/scraper-service/internal/adapter/postgres"
	redis_adapter "github.com/user/scraper-service/internal/adapter/redis"
	"github.com/user/scraper-service/internal/delivery/http/handler"
	"github.com/user/scraper-service/internal/registry"
	"github.com/user/scraper-service/internal/usecase"
	"github.com/user/scraper-service/pkg/config"
	"github.com/user/scraper-service/pkg/logger"
	"github.com/user/scraper-service/pkg/metrics"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *registry.Registry
	scraper  usecase.Scraper
	checks   map[string]handler.HealthCheck
	closers  []func()
}

// newApp loads configuration and wires the scrape service. With debug set
// the log level is raised so that per-page traces are visible.
func newApp(ctx context.Context, debug bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log, err := logger.New(level, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("could not build logger: %w", err)
	}
	a := &app{cfg: cfg, logger: log, checks: map[string]handler.HealthCheck{}}

	metrics.Init()

	a.registry, err = registry.Load(cfg.SitesFile)
	if err != nil {
		a.close()
		return nil, err
	}

	sink, err := csvsink.NewSink(cfg.OutputDir)
	if err != nil {
		a.close()
		return nil, err
	}

	var opts []usecase.ServiceOption
	if cfg.PostgresURL != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		history := postgres.NewRunHistoryRepo(pool)
		if err := history.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("could not prepare run history schema: %w", err)
		}
		a.checks["postgres"] = pool.Ping
		opts = append(opts, usecase.WithRunHistory(history))
		log.Info("PostgreSQL run history enabled")
	}
	if cfg.RedisAddr != "" {
		rdb, err := redis_adapter.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		a.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		opts = append(opts, usecase.WithRecentRuns(redis_adapter.NewRecentRunRepo(rdb), cfg.RecentRunTTL()))
		log.Info("Redis recent-run cache enabled", zap.Duration("ttl", cfg.RecentRunTTL()))
	}

	browser := chromedp_browser.NewChromedpBrowser(chromedp_browser.Options{
		Headless:          cfg.BrowserHeadless,
		NavigationTimeout: cfg.NavigationTimeoutDuration(),
		Proxies:           cfg.Proxies(),
	}, log)
	orchestrator := usecase.NewOrchestrator(browser, usecase.Settings{
		InitialSettle:     cfg.InitialSettle(),
		PageSettle:        cfg.PageSettle(),
		PaginationTimeout: cfg.PaginationTimeout(),
	}, logger.NewObserver(log))

	a.scraper = usecase.NewScrapeService(a.registry, orchestrator, sink, log, opts...)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	return cfg, nil
}
