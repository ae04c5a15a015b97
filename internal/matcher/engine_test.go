package matcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abaaza/MJDv8/internal/config"
	"github.com/Abaaza/MJDv8/internal/model"
	"github.com/Abaaza/MJDv8/internal/sheet"
	"github.com/Abaaza/MJDv8/pkg/cohere"
)

// fakeStore records every persistence call the engine makes.
type fakeStore struct {
	catalog  []model.CatalogEntry
	jobs     map[string]*model.Job
	statuses []model.JobStatus
	results  map[string][]model.MatchResult
	failMsg  string

	listCatalogErr error
	saveResultsErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:    make(map[string]*model.Job),
		results: make(map[string][]model.MatchResult),
	}
}

func (f *fakeStore) ReplaceCatalog(_ context.Context, entries []model.CatalogEntry) error {
	f.catalog = entries
	return nil
}

func (f *fakeStore) ListCatalog(_ context.Context) ([]model.CatalogEntry, error) {
	if f.listCatalogErr != nil {
		return nil, f.listCatalogErr
	}
	return f.catalog, nil
}

func (f *fakeStore) CreateJob(_ context.Context, inquiryFile string) (*model.Job, error) {
	job := &model.Job{
		ID:          fmt.Sprintf("job-%d", len(f.jobs)+1),
		InquiryFile: inquiryFile,
		Status:      model.JobStatusQueued,
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeStore) UpdateJobStatus(_ context.Context, jobID string, status model.JobStatus) error {
	job, ok := f.jobs[jobID]
	if !ok {
		return eris.New("job not found")
	}
	job.Status = status
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) CompleteJob(_ context.Context, jobID string, itemCount, matchedCount int) error {
	job, ok := f.jobs[jobID]
	if !ok {
		return eris.New("job not found")
	}
	job.Status = model.JobStatusComplete
	job.ItemCount = itemCount
	job.MatchedCount = matchedCount
	return nil
}

func (f *fakeStore) FailJob(_ context.Context, jobID, message string) error {
	job, ok := f.jobs[jobID]
	if !ok {
		return eris.New("job not found")
	}
	job.Status = model.JobStatusFailed
	job.Error = message
	f.failMsg = message
	return nil
}

func (f *fakeStore) GetJob(_ context.Context, jobID string) (*model.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, eris.New("job not found")
	}
	return job, nil
}

func (f *fakeStore) ListJobs(_ context.Context, _ int) ([]model.Job, error) { return nil, nil }

func (f *fakeStore) SaveResults(_ context.Context, jobID string, results []model.MatchResult) error {
	if f.saveResultsErr != nil {
		return f.saveResultsErr
	}
	f.results[jobID] = results
	return nil
}

func (f *fakeStore) ListResults(_ context.Context, jobID string) ([]model.MatchResult, error) {
	return f.results[jobID], nil
}

func (f *fakeStore) Migrate(_ context.Context) error { return nil }
func (f *fakeStore) Close() error                    { return nil }

// fakeEmbedder returns a constant vector per text and records call shapes.
type fakeEmbedder struct {
	err        error
	calls      [][]string
	inputTypes []cohere.InputType
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string, inputType cohere.InputType) ([][]float64, error) {
	f.calls = append(f.calls, texts)
	f.inputTypes = append(f.inputTypes, inputType)
	if f.err != nil {
		return nil, f.err
	}
	vecs := make([][]float64, len(texts))
	for i := range texts {
		vecs[i] = []float64{1, 0}
	}
	return vecs, nil
}

func testEngineConfig() *config.Config {
	return &config.Config{
		Match: testMatchConfig(),
		Detect: config.DetectConfig{
			MaxHeaderRows:      15,
			SampleRows:         20,
			MaxSearchColumns:   20,
			MinDescQuality:     3,
			FallbackMinQuality: 2,
			MinQtyQuality:      2,
		},
	}
}

func inquirySheet() []sheet.Sheet {
	return []sheet.Sheet{&sheet.MemSheet{SheetName: "BOQ", Rows: [][]string{
		{"Description", "Qty"},
		{"Excavation for footings", "5.2"},
		{"", ""},
	}}}
}

func testCatalogEntries() []model.CatalogEntry {
	return []model.CatalogEntry{
		{ID: "C1", Description: "Excavate foundation trench", NormalizedDescription: "excavate founda trench", Rate: 50, Unit: "m3"},
	}
}

func TestEngine_RunSheets_EndToEnd(t *testing.T) {
	st := newFakeStore()
	emb := &fakeEmbedder{}
	e := NewEngine(testEngineConfig(), st, emb)

	res, err := e.RunSheets(context.Background(), "inquiry.xlsx", inquirySheet(), testCatalogEntries())
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	r := res.Results[0]
	require.True(t, r.Matched)
	require.NotNil(t, r.Entry)
	assert.Equal(t, "C1", r.Entry.ID)
	assert.Equal(t, 5.2, r.Item.Quantity)
	assert.Equal(t, 260.0, r.TotalAmount)
	assert.Equal(t, 1, res.MatchedCount)

	job := res.Job
	assert.Equal(t, model.JobStatusComplete, job.Status)
	assert.Equal(t, 1, job.ItemCount)
	assert.Equal(t, 1, job.MatchedCount)
	assert.Equal(t,
		[]model.JobStatus{model.JobStatusExtracting, model.JobStatusEmbedding, model.JobStatusMatching},
		st.statuses)

	// Catalog embeds as documents, inquiry items as queries.
	require.Len(t, emb.calls, 2)
	assert.Equal(t, []string{"excavate founda trench"}, emb.calls[0])
	assert.Equal(t,
		[]cohere.InputType{cohere.InputTypeDocument, cohere.InputTypeQuery},
		emb.inputTypes)

	saved := st.results[job.ID]
	require.Len(t, saved, 1)
	assert.Equal(t, r.ID, saved[0].ID)
}

func TestEngine_RunSheets_NilCatalogLoadsStore(t *testing.T) {
	st := newFakeStore()
	st.catalog = testCatalogEntries()
	e := NewEngine(testEngineConfig(), st, &fakeEmbedder{})

	res, err := e.RunSheets(context.Background(), "inquiry.xlsx", inquirySheet(), nil)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "C1", res.Results[0].Entry.ID)
}

func TestEngine_RunSheets_NoCatalog(t *testing.T) {
	st := newFakeStore()
	e := NewEngine(testEngineConfig(), st, &fakeEmbedder{})

	// Invalid entries are filtered before the job is created.
	invalid := []model.CatalogEntry{{ID: "X", Description: "Zero rated", Rate: 0}}
	_, err := e.RunSheets(context.Background(), "inquiry.xlsx", inquirySheet(), invalid)
	assert.ErrorIs(t, err, ErrNoCatalog)
	assert.Empty(t, st.jobs)
}

func TestEngine_RunSheets_NoItemsFailsJob(t *testing.T) {
	st := newFakeStore()
	e := NewEngine(testEngineConfig(), st, &fakeEmbedder{})

	empty := []sheet.Sheet{&sheet.MemSheet{SheetName: "Notes", Rows: [][]string{
		{"Description", "Qty"},
		{"", ""},
		{"", ""},
	}}}
	_, err := e.RunSheets(context.Background(), "inquiry.xlsx", empty, testCatalogEntries())
	assert.ErrorIs(t, err, ErrNoItems)

	require.Len(t, st.jobs, 1)
	job, err := st.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
}

func TestEngine_RunSheets_EmbedFailureFailsJob(t *testing.T) {
	st := newFakeStore()
	emb := &fakeEmbedder{err: eris.New("cohere: embed request failed")}
	e := NewEngine(testEngineConfig(), st, emb)

	_, err := e.RunSheets(context.Background(), "inquiry.xlsx", inquirySheet(), testCatalogEntries())
	require.Error(t, err)
	assert.ErrorContains(t, err, "embed catalog")

	// The whole run aborts: nothing is saved and the job records the failure.
	job, getErr := st.GetJob(context.Background(), "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "embed catalog")
	assert.Empty(t, st.results)
}

func TestEngine_RunSheets_SaveFailureFailsJob(t *testing.T) {
	st := newFakeStore()
	st.saveResultsErr = eris.New("disk full")
	e := NewEngine(testEngineConfig(), st, &fakeEmbedder{})

	_, err := e.RunSheets(context.Background(), "inquiry.xlsx", inquirySheet(), testCatalogEntries())
	require.Error(t, err)
	assert.ErrorContains(t, err, "save results")

	job, getErr := st.GetJob(context.Background(), "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, model.JobStatusFailed, job.Status)
}

func TestEngine_RunSheets_ProgressEvents(t *testing.T) {
	st := newFakeStore()
	var steps []string
	e := NewEngine(testEngineConfig(), st, &fakeEmbedder{},
		WithProgress(func(step, _ string) { steps = append(steps, step) }))

	_, err := e.RunSheets(context.Background(), "inquiry.xlsx", inquirySheet(), testCatalogEntries())
	require.NoError(t, err)
	assert.Equal(t, []string{"extract", "embed", "match", "complete"}, steps)
}

func TestEngine_ExtractSheets_OrderAndSkips(t *testing.T) {
	e := NewEngine(testEngineConfig(), newFakeStore(), &fakeEmbedder{})

	sheets := []sheet.Sheet{
		&sheet.MemSheet{SheetName: "First", Rows: [][]string{
			{"Description", "Qty"},
			{"Excavate trench for foundations", "5.2"},
			{"", ""},
		}},
		// Too small to carry a table: skipped, not fatal.
		&sheet.MemSheet{SheetName: "Tiny", Rows: [][]string{{"x"}}},
		&sheet.MemSheet{SheetName: "Second", Rows: [][]string{
			{"Description", "Qty"},
			{"Lay concrete blinding to foundations", "12"},
			{"", ""},
		}},
	}

	items, err := e.ExtractSheets(context.Background(), sheets)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Workbook sheet order survives concurrent extraction.
	assert.Equal(t, "First", items[0].Source.SheetName)
	assert.Equal(t, "Second", items[1].Source.SheetName)
}
