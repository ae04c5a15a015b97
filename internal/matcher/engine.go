package matcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Abaaza/MJDv8/internal/config"
	"github.com/Abaaza/MJDv8/internal/model"
	"github.com/Abaaza/MJDv8/internal/sheet"
	"github.com/Abaaza/MJDv8/internal/store"
	"github.com/Abaaza/MJDv8/pkg/cohere"
)

// ProgressFunc receives structured progress events during a run. The step is
// a stable identifier (extract, embed, match, complete); the message is
// human-readable.
type ProgressFunc func(step, message string)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithProgress installs a progress observer. Absent one, events are dropped.
func WithProgress(fn ProgressFunc) EngineOption {
	return func(e *Engine) {
		e.progress = fn
	}
}

// Engine runs the full matching pipeline: extract inquiry items, embed both
// sides, rank, and persist results as a job.
type Engine struct {
	cfg       *config.Config
	store     store.Store
	embedder  cohere.Client
	scorer    *Scorer
	detector  *sheet.Detector
	extractor *sheet.Extractor
	progress  ProgressFunc
}

// NewEngine creates an Engine with all dependencies.
func NewEngine(cfg *config.Config, st store.Store, embedder cohere.Client, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:       cfg,
		store:     st,
		embedder:  embedder,
		scorer:    NewScorer(cfg.Match),
		detector:  sheet.NewDetector(cfg.Detect),
		extractor: sheet.NewExtractor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunResult is the outcome of one matching run.
type RunResult struct {
	Job          *model.Job
	Results      []model.MatchResult
	MatchedCount int
}

func (e *Engine) emit(step, format string, args ...any) {
	if e.progress != nil {
		e.progress(step, fmt.Sprintf(format, args...))
	}
}

// Run matches one inquiry workbook against the catalog. A nil catalog loads
// the stored one. Extraction degradations are logged and skipped; provider
// failures abort the whole run, and the job records the failure.
func (e *Engine) Run(ctx context.Context, inquiryPath string, catalog []model.CatalogEntry) (*RunResult, error) {
	sheets, err := sheet.OpenWorkbook(inquiryPath)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: open inquiry workbook")
	}
	return e.RunSheets(ctx, inquiryPath, sheets, catalog)
}

// RunSheets matches already-opened inquiry sheets against the catalog.
func (e *Engine) RunSheets(ctx context.Context, inquiryName string, sheets []sheet.Sheet, catalog []model.CatalogEntry) (*RunResult, error) {
	log := zap.L().With(zap.String("inquiry", inquiryName))

	if catalog == nil {
		stored, err := e.store.ListCatalog(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "matcher: load catalog")
		}
		catalog = stored
	}
	catalog = validEntries(catalog)
	if len(catalog) == 0 {
		return nil, ErrNoCatalog
	}

	job, err := e.store.CreateJob(ctx, inquiryName)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: create job")
	}

	setStatus := func(status model.JobStatus) {
		if statusErr := e.store.UpdateJobStatus(ctx, job.ID, status); statusErr != nil {
			log.Warn("matcher: failed to update job status", zap.Error(statusErr))
		}
	}
	fail := func(runErr error) (*RunResult, error) {
		if failErr := e.store.FailJob(ctx, job.ID, runErr.Error()); failErr != nil {
			log.Warn("matcher: failed to mark job failed", zap.Error(failErr))
		}
		return nil, runErr
	}

	// Extraction.
	setStatus(model.JobStatusExtracting)
	items, err := e.ExtractSheets(ctx, sheets)
	if err != nil {
		return fail(err)
	}
	if len(items) == 0 {
		return fail(ErrNoItems)
	}
	e.emit("extract", "extracted %d items", len(items))
	log.Info("matcher: extraction complete", zap.Int("items", len(items)))

	// Embedding: one document call for the catalog, one query call for the
	// items. No partial results survive a provider failure.
	setStatus(model.JobStatusEmbedding)
	catalogVecs, err := e.embedder.Embed(ctx, embedTexts(catalog), cohere.InputTypeDocument)
	if err != nil {
		return fail(eris.Wrap(err, "matcher: embed catalog"))
	}
	itemVecs, err := e.embedder.Embed(ctx, itemTexts(items), cohere.InputTypeQuery)
	if err != nil {
		return fail(eris.Wrap(err, "matcher: embed items"))
	}
	e.emit("embed", "embedded %d catalog entries and %d items", len(catalogVecs), len(itemVecs))

	// Ranking.
	setStatus(model.JobStatusMatching)
	results := make([]model.MatchResult, 0, len(items))
	matched := 0
	for i, item := range items {
		r := e.scorer.Rank(item, catalog, itemVecs[i], catalogVecs)
		if r.Matched {
			matched++
		}
		results = append(results, r)
	}
	e.emit("match", "matched %d of %d items", matched, len(items))

	if err := e.store.SaveResults(ctx, job.ID, results); err != nil {
		return fail(eris.Wrap(err, "matcher: save results"))
	}
	if err := e.store.CompleteJob(ctx, job.ID, len(items), matched); err != nil {
		return fail(eris.Wrap(err, "matcher: complete job"))
	}
	e.emit("complete", "job %s complete", job.ID)

	log.Info("matcher: run complete",
		zap.String("job_id", job.ID),
		zap.Int("items", len(items)),
		zap.Int("matched", matched),
	)

	job.Status = model.JobStatusComplete
	job.ItemCount = len(items)
	job.MatchedCount = matched
	return &RunResult{Job: job, Results: results, MatchedCount: matched}, nil
}

// ExtractSheets runs detection and extraction over already-opened sheets.
// Sheets run concurrently; item order follows workbook sheet order
// regardless.
func (e *Engine) ExtractSheets(ctx context.Context, sheets []sheet.Sheet) ([]model.InquiryItem, error) {
	perSheet := make([][]model.InquiryItem, len(sheets))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	for i, s := range sheets {
		g.Go(func() error {
			det, ok := e.detector.Detect(s)
			if !ok {
				zap.L().Warn("matcher: sheet too small, skipping", zap.String("sheet", s.Name()))
				return nil
			}
			extracted := e.extractor.Extract(s, det)
			if len(extracted) == 0 {
				zap.L().Warn("matcher: sheet yielded no items", zap.String("sheet", s.Name()))
				return nil
			}
			mu.Lock()
			perSheet[i] = extracted
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []model.InquiryItem
	for _, batch := range perSheet {
		items = append(items, batch...)
	}
	return items, nil
}

func validEntries(catalog []model.CatalogEntry) []model.CatalogEntry {
	valid := make([]model.CatalogEntry, 0, len(catalog))
	for _, e := range catalog {
		if e.Valid() {
			valid = append(valid, e)
		}
	}
	return valid
}

func embedTexts(catalog []model.CatalogEntry) []string {
	texts := make([]string, len(catalog))
	for i, e := range catalog {
		texts[i] = e.NormalizedDescription
		if texts[i] == "" {
			texts[i] = e.Description
		}
	}
	return texts
}

func itemTexts(items []model.InquiryItem) []string {
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.NormalizedDescription
		if texts[i] == "" {
			texts[i] = it.EnhancedDescription
		}
	}
	return texts
}
