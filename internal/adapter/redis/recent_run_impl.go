package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/scraper-service/pkg/utils"
)

const recentRunPrefix = "recent_run:"

// RecentRunRepoImpl provides a concrete implementation for the RecentRunRepository interface using Redis.
type RecentRunRepoImpl struct {
	client *redis.Client
}

// NewRecentRunRepo creates a new instance of RecentRunRepoImpl.
func NewRecentRunRepo(client *redis.Client) *RecentRunRepoImpl {
	return &RecentRunRepoImpl{client: client}
}

// Connect creates a client and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *RecentRunRepoImpl) generateKey(site, category string) string {
	return recentRunPrefix + utils.HashKey(site, category)
}

// MarkRecent stores the output file name of a run with an expiry.
func (r *RecentRunRepoImpl) MarkRecent(ctx context.Context, site, category, filename string, expiry time.Duration) error {
	return r.client.Set(ctx, r.generateKey(site, category), filename, expiry).Err()
}

// Recent returns the output file of an unexpired run.
func (r *RecentRunRepoImpl) Recent(ctx context.Context, site, category string) (string, bool, error) {
	filename, err := r.client.Get(ctx, r.generateKey(site, category)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return filename, true, nil
}

// Forget removes the marker, used for forced runs.
func (r *RecentRunRepoImpl) Forget(ctx context.Context, site, category string) error {
	return r.client.Del(ctx, r.generateKey(site, category)).Err()
}
