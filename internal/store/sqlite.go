package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Abaaza/MJDv8/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS catalog_entries (
	id                     TEXT PRIMARY KEY,
	description            TEXT NOT NULL,
	normalized_description TEXT NOT NULL,
	rate                   REAL NOT NULL,
	unit                   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	inquiry_file  TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	item_count    INTEGER NOT NULL DEFAULT 0,
	matched_count INTEGER NOT NULL DEFAULT 0,
	error         TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS match_results (
	id               TEXT PRIMARY KEY,
	job_id           TEXT NOT NULL REFERENCES jobs(id),
	position         INTEGER NOT NULL,
	item             TEXT NOT NULL,
	matched          INTEGER NOT NULL,
	entry            TEXT,
	similarity_score REAL NOT NULL,
	quality          TEXT NOT NULL,
	total_amount     REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_match_results_job_id ON match_results(job_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceCatalog(ctx context.Context, entries []model.CatalogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace catalog")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries`); err != nil {
		return eris.Wrap(err, "sqlite: clear catalog")
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_entries (id, description, normalized_description, rate, unit) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.Description, e.NormalizedDescription, e.Rate, e.Unit,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert catalog entry %s", e.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace catalog")
}

func (s *SQLiteStore) ListCatalog(ctx context.Context) ([]model.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, normalized_description, rate, unit FROM catalog_entries ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list catalog")
	}
	defer rows.Close()

	var entries []model.CatalogEntry
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Description, &e.NormalizedDescription, &e.Rate, &e.Unit); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan catalog entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list catalog iterate")
}

func (s *SQLiteStore) CreateJob(ctx context.Context, inquiryFile string) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, inquiry_file, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, inquiryFile, string(model.JobStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}

	return &model.Job{
		ID:          id,
		InquiryFile: inquiryFile,
		Status:      model.JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, itemCount, matchedCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, item_count = ?, matched_count = ?, updated_at = ? WHERE id = ?`,
		string(model.JobStatusComplete), itemCount, matchedCount, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) FailJob(ctx context.Context, jobID string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.JobStatusFailed), message, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, inquiry_file, status, item_count, matched_count, error, created_at, updated_at
		 FROM jobs WHERE id = ?`,
		jobID,
	)
	return scanJob(row)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, inquiry_file, status, item_count, matched_count, error, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) SaveResults(ctx context.Context, jobID string, results []model.MatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save results")
	}
	defer tx.Rollback()

	for i, r := range results {
		itemJSON, entryJSON, err := marshalResult(r)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO match_results (id, job_id, position, item, matched, entry, similarity_score, quality, total_amount)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, jobID, i, itemJSON, r.Matched, entryJSON, r.SimilarityScore, string(r.Quality), r.TotalAmount,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result %s", r.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save results")
}

func (s *SQLiteStore) ListResults(ctx context.Context, jobID string) ([]model.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item, matched, entry, similarity_score, quality, total_amount
		 FROM match_results WHERE job_id = ? ORDER BY position`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var results []model.MatchResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var errMsg sql.NullString

	err := row.Scan(&j.ID, &j.InquiryFile, &j.Status, &j.ItemCount, &j.MatchedCount, &errMsg, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("job not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan job")
	}
	j.Error = errMsg.String
	return &j, nil
}

func marshalResult(r model.MatchResult) (string, sql.NullString, error) {
	itemJSON, err := json.Marshal(r.Item)
	if err != nil {
		return "", sql.NullString{}, eris.Wrap(err, "marshal result item")
	}

	var entryJSON sql.NullString
	if r.Entry != nil {
		b, err := json.Marshal(r.Entry)
		if err != nil {
			return "", sql.NullString{}, eris.Wrap(err, "marshal result entry")
		}
		entryJSON = sql.NullString{String: string(b), Valid: true}
	}
	return string(itemJSON), entryJSON, nil
}

func scanResult(row scannable) (*model.MatchResult, error) {
	var r model.MatchResult
	var itemJSON string
	var entryJSON sql.NullString

	err := row.Scan(&r.ID, &itemJSON, &r.Matched, &entryJSON, &r.SimilarityScore, &r.Quality, &r.TotalAmount)
	if err == sql.ErrNoRows {
		return nil, eris.New("result not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan result")
	}

	if err := json.Unmarshal([]byte(itemJSON), &r.Item); err != nil {
		return nil, eris.Wrap(err, "unmarshal result item")
	}
	if entryJSON.Valid {
		r.Entry = &model.CatalogEntry{}
		if err := json.Unmarshal([]byte(entryJSON.String), r.Entry); err != nil {
			return nil, eris.Wrap(err, "unmarshal result entry")
		}
	}
	return &r, nil
}
