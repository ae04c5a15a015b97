package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Abaaza/MJDv8/internal/matcher"
	"github.com/Abaaza/MJDv8/internal/model"
	"github.com/Abaaza/MJDv8/internal/sheet"
	"github.com/Abaaza/MJDv8/internal/store"
	"github.com/Abaaza/MJDv8/pkg/cohere"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initEmbedder() (cohere.Client, error) {
	if cfg.Cohere.Key == "" {
		return nil, matcher.ErrMissingAPIKey
	}
	return cohere.NewClient(cfg.Cohere.Key,
		cohere.WithBaseURL(cfg.Cohere.BaseURL),
		cohere.WithModel(cfg.Cohere.Model),
		cohere.WithBatchSize(cfg.Cohere.BatchSize),
		cohere.WithMaxAttempts(cfg.Cohere.MaxAttempts),
		cohere.WithRetryDelay(time.Duration(cfg.Cohere.RetryDelaySecs*float64(time.Second))),
		cohere.WithBatchDelay(time.Duration(cfg.Cohere.BatchDelaySecs*float64(time.Second))),
		cohere.WithMinDimension(cfg.Cohere.MinDimension),
	), nil
}

// loadPricelist reads catalog entries from a pricelist workbook path.
func loadPricelist(path string) ([]model.CatalogEntry, error) {
	sheets, err := sheet.OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	return sheet.ParseCatalog(sheets)
}
