// Package store persists the price catalog, matching jobs and their results.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Abaaza/MJDv8/internal/config"
	"github.com/Abaaza/MJDv8/internal/model"
)

// Store defines the persistence interface for the matching engine.
type Store interface {
	// Catalog
	ReplaceCatalog(ctx context.Context, entries []model.CatalogEntry) error
	ListCatalog(ctx context.Context) ([]model.CatalogEntry, error)

	// Jobs
	CreateJob(ctx context.Context, inquiryFile string) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	CompleteJob(ctx context.Context, jobID string, itemCount, matchedCount int) error
	FailJob(ctx context.Context, jobID string, message string) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, limit int) ([]model.Job, error)

	// Results
	SaveResults(ctx context.Context, jobID string, results []model.MatchResult) error
	ListResults(ctx context.Context, jobID string) ([]model.MatchResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(context.Background(), cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
