package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// RunHistoryRepository defines the interface for recording finished runs.
type RunHistoryRepository interface {
	// Save stores the run summary and its records.
	Save(ctx context.Context, run *entity.RunResult) error
	// FindRecent returns the latest runs, newest first.
	FindRecent(ctx context.Context, limit int) ([]*entity.RunSummary, error)
}
