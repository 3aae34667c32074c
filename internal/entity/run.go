package entity

import (
	"fmt"
	"time"
)

// RunResult mirrors the outcome of one scrape of a (site, category) pair.
type RunResult struct {
	Site         string
	Category     string
	Records      []ProductRecord
	Filename     string
	LastPage     int
	PagesVisited int
	StartedAt    time.Time
	Duration     time.Duration
	Cached       bool // served from a recent run instead of a browser session
}

// ResultFilename returns results_{site}[_{category}].csv.
func ResultFilename(site, category string) string {
	if category == "" {
		return fmt.Sprintf("results_%s.csv", site)
	}
	return fmt.Sprintf("results_%s_%s.csv", site, category)
}

// RunSummary mirrors the `scrape_runs` PostgreSQL table schema.
type RunSummary struct {
	ID           int64
	Site         string
	Category     string
	Filename     string
	ProductCount int
	PagesVisited int
	LastPage     int
	StartedAt    time.Time
	DurationMS   int64
}
