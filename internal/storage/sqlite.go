package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/IshaanNene/listgoat/internal/types"
)

const createJobsTable = `CREATE TABLE IF NOT EXISTS crawl_jobs (
	id         TEXT PRIMARY KEY,
	recipe_id  TEXT NOT NULL,
	status     TEXT NOT NULL,
	log        TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteJobStore keeps crawl job history in a SQLite database.
// Timestamps are stored as RFC3339Nano text.
type SQLiteJobStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteJobStore opens dsn and creates the jobs table if needed.
func NewSQLiteJobStore(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteJobStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Operation: "open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Operation: "ping", Err: err}
	}
	if _, err := db.ExecContext(ctx, createJobsTable); err != nil {
		_ = db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Operation: "create table", Err: err}
	}
	return &SQLiteJobStore{db: db, logger: logger.With("component", "sqlite_jobs")}, nil
}

func (s *SQLiteJobStore) Create(ctx context.Context, recipeID string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crawl_jobs (id, recipe_id, status, log, created_at, updated_at) VALUES (?, ?, ?, '', ?, ?)`,
		id, recipeID, string(types.JobPending), now, now)
	if err != nil {
		return "", &types.StorageError{Backend: "sqlite", Operation: "create job", Err: err}
	}
	s.logger.Debug("job created", "id", id, "recipe", recipeID)
	return id, nil
}

func (s *SQLiteJobStore) Update(ctx context.Context, id string, status types.JobStatus, log string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE crawl_jobs SET status = ?, log = ?, updated_at = ? WHERE id = ?`,
		string(status), log, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Operation: "update job", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", types.ErrJobNotFound, id)
	}
	return nil
}

func (s *SQLiteJobStore) Get(ctx context.Context, id string) (*types.CrawlJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, recipe_id, status, log, created_at, updated_at FROM crawl_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Operation: "get job", Err: err}
	}
	return job, nil
}

// List returns the newest jobs first. A non-positive limit returns all.
func (s *SQLiteJobStore) List(ctx context.Context, limit int) ([]*types.CrawlJob, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipe_id, status, log, created_at, updated_at FROM crawl_jobs
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Operation: "list jobs", Err: err}
	}
	defer rows.Close()

	var out []*types.CrawlJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Operation: "list jobs", Err: err}
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *SQLiteJobStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*types.CrawlJob, error) {
	var (
		job              types.CrawlJob
		status           string
		created, updated string
	)
	if err := sc.Scan(&job.ID, &job.RecipeID, &status, &job.Log, &created, &updated); err != nil {
		return nil, err
	}
	job.Status = types.JobStatus(status)
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &job, nil
}
