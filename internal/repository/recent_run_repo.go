package repository

import (
	"context"
	"time"
)

// RecentRunRepository remembers which (site, category) pairs were scraped recently.
type RecentRunRepository interface {
	// MarkRecent records the output file of a run with a specific expiry time.
	MarkRecent(ctx context.Context, site, category, filename string, expiry time.Duration) error
	// Recent returns the output file of a recent run, if any.
	Recent(ctx context.Context, site, category string) (string, bool, error)
	// Forget removes the marker, used for forced runs.
	Forget(ctx context.Context, site, category string) error
}
