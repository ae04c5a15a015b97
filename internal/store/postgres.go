package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Abaaza/MJDv8/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock implements it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_job":        `INSERT INTO jobs (id, inquiry_file, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_job_status": `UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`,
	"get_job":           `SELECT id, inquiry_file, status, item_count, matched_count, error, created_at, updated_at FROM jobs WHERE id = $1`,
	"list_catalog":      `SELECT id, description, normalized_description, rate, unit FROM catalog_entries ORDER BY id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (used by tests).
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS catalog_entries (
	id                     TEXT PRIMARY KEY,
	description            TEXT NOT NULL,
	normalized_description TEXT NOT NULL,
	rate                   DOUBLE PRECISION NOT NULL,
	unit                   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	inquiry_file  TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	item_count    INTEGER NOT NULL DEFAULT 0,
	matched_count INTEGER NOT NULL DEFAULT 0,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS match_results (
	id               TEXT PRIMARY KEY,
	job_id           TEXT NOT NULL REFERENCES jobs(id),
	position         INTEGER NOT NULL,
	item             JSONB NOT NULL,
	matched          BOOLEAN NOT NULL,
	entry            JSONB,
	similarity_score DOUBLE PRECISION NOT NULL,
	quality          TEXT NOT NULL,
	total_amount     DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_match_results_job_id ON match_results(job_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ReplaceCatalog(ctx context.Context, entries []model.CatalogEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace catalog")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM catalog_entries`); err != nil {
		return eris.Wrap(err, "postgres: clear catalog")
	}

	for _, e := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO catalog_entries (id, description, normalized_description, rate, unit) VALUES ($1, $2, $3, $4, $5)`,
			e.ID, e.Description, e.NormalizedDescription, e.Rate, e.Unit,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert catalog entry %s", e.ID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace catalog")
}

func (s *PostgresStore) ListCatalog(ctx context.Context) ([]model.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, description, normalized_description, rate, unit FROM catalog_entries ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list catalog")
	}
	defer rows.Close()

	var entries []model.CatalogEntry
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Description, &e.NormalizedDescription, &e.Rate, &e.Unit); err != nil {
			return nil, eris.Wrap(err, "postgres: scan catalog entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list catalog iterate")
}

func (s *PostgresStore) CreateJob(ctx context.Context, inquiryFile string) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, inquiry_file, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, inquiryFile, string(model.JobStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.Job{
		ID:          id,
		InquiryFile: inquiryFile,
		Status:      model.JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, itemCount, matchedCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, item_count = $2, matched_count = $3, updated_at = $4 WHERE id = $5`,
		string(model.JobStatusComplete), itemCount, matchedCount, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.JobStatusFailed), message, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var j model.Job
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, inquiry_file, status, item_count, matched_count, error, created_at, updated_at
		 FROM jobs WHERE id = $1`,
		jobID,
	).Scan(&j.ID, &j.InquiryFile, &j.Status, &j.ItemCount, &j.MatchedCount, &errMsg, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.New("job not found")
		}
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	if errMsg != nil {
		j.Error = *errMsg
	}
	return &j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, inquiry_file, status, item_count, matched_count, error, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		var errMsg *string
		if err := rows.Scan(&j.ID, &j.InquiryFile, &j.Status, &j.ItemCount, &j.MatchedCount, &errMsg, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		if errMsg != nil {
			j.Error = *errMsg
		}
		jobs = append(jobs, j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) SaveResults(ctx context.Context, jobID string, results []model.MatchResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save results")
	}
	defer tx.Rollback(ctx)

	for i, r := range results {
		itemJSON, err := json.Marshal(r.Item)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal result item")
		}
		var entryJSON []byte
		if r.Entry != nil {
			if entryJSON, err = json.Marshal(r.Entry); err != nil {
				return eris.Wrap(err, "postgres: marshal result entry")
			}
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO match_results (id, job_id, position, item, matched, entry, similarity_score, quality, total_amount)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			r.ID, jobID, i, itemJSON, r.Matched, entryJSON, r.SimilarityScore, string(r.Quality), r.TotalAmount,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert result %s", r.ID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save results")
}

func (s *PostgresStore) ListResults(ctx context.Context, jobID string) ([]model.MatchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, item, matched, entry, similarity_score, quality, total_amount
		 FROM match_results WHERE job_id = $1 ORDER BY position`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var results []model.MatchResult
	for rows.Next() {
		var r model.MatchResult
		var itemJSON []byte
		var entryJSON []byte

		if err := rows.Scan(&r.ID, &itemJSON, &r.Matched, &entryJSON, &r.SimilarityScore, &r.Quality, &r.TotalAmount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		if err := json.Unmarshal(itemJSON, &r.Item); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result item")
		}
		if entryJSON != nil {
			r.Entry = &model.CatalogEntry{}
			if err := json.Unmarshal(entryJSON, r.Entry); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result entry")
			}
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list results iterate")
}
