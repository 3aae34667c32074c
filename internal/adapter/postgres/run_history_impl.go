package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/scraper-service/internal/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id            BIGSERIAL PRIMARY KEY,
	site          TEXT        NOT NULL,
	category      TEXT        NOT NULL DEFAULT '',
	filename      TEXT        NOT NULL,
	product_count INTEGER     NOT NULL,
	pages_visited INTEGER     NOT NULL,
	last_page     INTEGER     NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT      NOT NULL
);
CREATE INDEX IF NOT EXISTS scrape_runs_started_at_idx ON scrape_runs (started_at DESC);
CREATE TABLE IF NOT EXISTS scrape_run_products (
	run_id     BIGINT  NOT NULL REFERENCES scrape_runs (id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	title      TEXT    NOT NULL,
	buy_button BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// RunHistoryRepoImpl stores finished runs and their products in PostgreSQL.
type RunHistoryRepoImpl struct {
	db *pgxpool.Pool
}

// NewRunHistoryRepo creates a new instance of RunHistoryRepoImpl.
func NewRunHistoryRepo(db *pgxpool.Pool) *RunHistoryRepoImpl {
	return &RunHistoryRepoImpl{db: db}
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the run tables if they do not exist.
func (r *RunHistoryRepoImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// Save inserts the run and all of its products within a single transaction.
func (r *RunHistoryRepoImpl) Save(ctx context.Context, run *entity.RunResult) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO scrape_runs (site, category, filename, product_count, pages_visited, last_page, started_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		run.Site,
		run.Category,
		run.Filename,
		len(run.Records),
		run.PagesVisited,
		run.LastPage,
		run.StartedAt,
		run.Duration.Milliseconds(),
	).Scan(&runID)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(run.Records) > 0 {
		batch := &pgx.Batch{}
		for i, p := range run.Records {
			batch.Queue(`INSERT INTO scrape_run_products (run_id, position, title, buy_button) VALUES ($1, $2, $3, $4)`,
				runID, i, p.Title, p.HasBuyButton)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert products of run %d: %w", runID, err)
		}
	}

	return tx.Commit(ctx)
}

// FindRecent retrieves the latest runs, newest first.
func (r *RunHistoryRepoImpl) FindRecent(ctx context.Context, limit int) ([]*entity.RunSummary, error) {
	query := `
		SELECT id, site, category, filename, product_count, pages_visited, last_page, started_at, duration_ms
		FROM scrape_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*entity.RunSummary
	for rows.Next() {
		var s entity.RunSummary
		if err := rows.Scan(
			&s.ID,
			&s.Site,
			&s.Category,
			&s.Filename,
			&s.ProductCount,
			&s.PagesVisited,
			&s.LastPage,
			&s.StartedAt,
			&s.DurationMS,
		); err != nil {
			return nil, err
		}
		runs = append(runs, &s)
	}
	return runs, rows.Err()
}
