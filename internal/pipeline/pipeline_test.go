package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/load"
	"github.com/dvloznov/customer-etl/internal/pipeline"
	"github.com/dvloznov/customer-etl/internal/quality"
	"github.com/dvloznov/customer-etl/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockExtractor is a mock implementation of extract.Extractor
type MockExtractor struct {
	ExtractFunc func(ctx context.Context) (domain.Table, error)
}

func (m *MockExtractor) Extract(ctx context.Context) (domain.Table, error) {
	return m.ExtractFunc(ctx)
}

// MockLoader is a mock implementation of load.Loader
type MockLoader struct {
	mu      sync.Mutex
	batches []load.Batch
	LoadErr error
	Dest    string
}

func (m *MockLoader) Load(ctx context.Context, batch load.Batch) (load.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batch)
	if m.LoadErr != nil {
		return load.LoadResult{}, m.LoadErr
	}
	return load.LoadResult{Destinations: []string{m.Dest}, Rows: len(batch.Summaries)}, nil
}

// MockRecorder is a mock implementation of pipeline.RunRecorder
type MockRecorder struct {
	RecordRunFunc func(ctx context.Context, stats domain.RunStats, reports []domain.DataQualityReport) error
}

func (m *MockRecorder) RecordRun(ctx context.Context, stats domain.RunStats, reports []domain.DataQualityReport) error {
	return m.RecordRunFunc(ctx, stats, reports)
}

var (
	startTime     = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	referenceTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
)

func customersTable(rows ...domain.Row) domain.Table {
	t := domain.NewTable("raw", domain.CustomerColumns...)
	t.Rows = rows
	return t
}

func transactionsTable() domain.Table {
	t := domain.NewTable("raw", domain.TransactionColumns...)
	t.Rows = []domain.Row{
		{"transaction_id": "t1", "customer_id": int64(1), "amount": 300.0, "product": "Widget", "transaction_date": "2024-01-01"},
		{"transaction_id": "t2", "customer_id": int64(1), "amount": 250.0, "product": "Gadget", "transaction_date": "2024-02-01"},
	}
	return t
}

func alice() domain.Row {
	return domain.Row{"customer_id": int64(1), "first_name": "alice", "last_name": "smith", "email": "A@B.com ", "age": int64(30), "city": "new york"}
}

func staticExtractor(t domain.Table) *MockExtractor {
	return &MockExtractor{ExtractFunc: func(ctx context.Context) (domain.Table, error) { return t, nil }}
}

type fixture struct {
	deps      pipeline.Deps
	warehouse *MockLoader
	backup    *MockLoader
	recorded  []domain.RunStats
	reports   [][]domain.DataQualityReport
}

func newFixture(customers domain.Table) *fixture {
	f := &fixture{
		warehouse: &MockLoader{Dest: "sqlite:customer_summary"},
		backup:    &MockLoader{Dest: "data/output/customer_summary.csv"},
	}
	f.deps = pipeline.Deps{
		Customers:    staticExtractor(customers),
		Transactions: staticExtractor(transactionsTable()),
		Transformer:  transform.NewTransformer(transform.WithReferenceTime(referenceTime)),
		Warehouse:    f.warehouse,
		Backup:       f.backup,
		Recorder: &MockRecorder{RecordRunFunc: func(ctx context.Context, stats domain.RunStats, reports []domain.DataQualityReport) error {
			f.recorded = append(f.recorded, stats)
			f.reports = append(f.reports, reports)
			return nil
		}},
		Quality:        quality.DefaultThresholds,
		EnforceQuality: true,
		Now:            func() time.Time { return startTime },
		NewRunID:       func() string { return "run-1" },
	}
	return f
}

func (f *fixture) run(t *testing.T) (domain.RunStats, error) {
	t.Helper()
	r, err := pipeline.NewRunner(f.deps)
	require.NoError(t, err)
	return r.Run(context.Background())
}

func TestRunner_Run_Success(t *testing.T) {
	f := newFixture(customersTable(alice()))

	stats, err := f.run(t)
	require.NoError(t, err)

	assert.Equal(t, "run-1", stats.RunID)
	assert.Equal(t, domain.RunStatusSuccess, stats.Status)
	assert.Equal(t, 3, stats.RecordsExtracted)
	assert.Equal(t, 1, stats.RecordsTransformed)
	assert.Equal(t, 1, stats.RecordsLoaded)
	assert.Empty(t, stats.Errors)

	require.Len(t, f.warehouse.batches, 1)
	batch := f.warehouse.batches[0]
	assert.Equal(t, "run-1", batch.RunID)
	assert.Equal(t, startTime, batch.CreatedAt)
	assert.Equal(t, []domain.CustomerSummary{{
		CustomerID: "1", FirstName: "Alice", LastName: "Smith", Email: "a@b.com", Age: 30, City: "New York",
		TotalSpent: 550, AvgTransaction: 275, TransactionCount: 2,
	}}, batch.Summaries)
	assert.Len(t, f.backup.batches, 1)

	require.Len(t, f.recorded, 1)
	assert.Equal(t, stats, f.recorded[0])
	var datasets []string
	for _, r := range f.reports[0] {
		datasets = append(datasets, r.Dataset)
	}
	assert.Equal(t, []string{"customers", "transactions", "customer_summary"}, datasets)
}

func TestRunner_Run_ExtractionFailure(t *testing.T) {
	f := newFixture(customersTable(alice()))
	f.deps.Customers = &MockExtractor{ExtractFunc: func(ctx context.Context) (domain.Table, error) {
		return domain.Table{}, errors.New("failed to extract from CSV data/input/customers.csv: no such file")
	}}

	stats, err := f.run(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step 1 (extract) failed")

	assert.Equal(t, domain.RunStatusFailed, stats.Status)
	require.Len(t, stats.Errors, 1)
	assert.True(t, strings.HasPrefix(stats.Errors[0], "Extraction error: failed to extract from CSV"))
	assert.Empty(t, f.warehouse.batches)
	require.Len(t, f.recorded, 1)
	assert.Equal(t, domain.RunStatusFailed, f.recorded[0].Status)
}

func TestRunner_Run_SchemaError(t *testing.T) {
	f := newFixture(customersTable(alice()))
	broken := domain.NewTable("raw", "transaction_id", "customer_id")
	f.deps.Transactions = staticExtractor(broken)

	stats, err := f.run(t)
	require.Error(t, err)

	var schemaErr *transform.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "transactions", schemaErr.Dataset)
	assert.True(t, strings.HasPrefix(stats.Errors[0], "Transformation error: "))
	assert.Empty(t, f.warehouse.batches)
}

func TestRunner_Run_QualityGate(t *testing.T) {
	sparse := alice()
	sparse["last_name"] = nil
	sparse["city"] = nil

	t.Run("enforced", func(t *testing.T) {
		f := newFixture(customersTable(sparse))

		stats, err := f.run(t)
		require.Error(t, err)

		var verr *quality.ViolationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "customer_summary", verr.Dataset)
		assert.Contains(t, err.Error(), "pipeline step 4 (quality gate) failed")
		assert.True(t, strings.HasPrefix(stats.Errors[0], "Quality error: "))
		assert.Empty(t, f.warehouse.batches)
	})

	t.Run("warn only", func(t *testing.T) {
		f := newFixture(customersTable(sparse))
		f.deps.EnforceQuality = false

		stats, err := f.run(t)
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusSuccess, stats.Status)
		assert.Len(t, f.warehouse.batches, 1)
	})
}

func TestRunner_Run_LoadFailure(t *testing.T) {
	f := newFixture(customersTable(alice()))
	f.warehouse.LoadErr = errors.New("connection refused")

	stats, err := f.run(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step 5 (load) failed: connection refused")
	assert.Equal(t, []string{"Loading error: connection refused"}, stats.Errors)
	assert.Equal(t, 1, stats.RecordsTransformed)
	assert.Zero(t, stats.RecordsLoaded)
	assert.Empty(t, f.backup.batches)
}

func TestRunner_Run_EmptyResultSucceeds(t *testing.T) {
	f := newFixture(customersTable())
	f.deps.Backup = nil

	stats, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, stats.Status)
	assert.Zero(t, stats.RecordsTransformed)
	require.Len(t, f.warehouse.batches, 1)
	assert.Empty(t, f.warehouse.batches[0].Summaries)
}

func TestRunner_Run_RecorderFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(customersTable(alice()))
	f.deps.Recorder = &MockRecorder{RecordRunFunc: func(ctx context.Context, stats domain.RunStats, reports []domain.DataQualityReport) error {
		return errors.New("run store unavailable")
	}}

	stats, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, stats.Status)
}

func TestRunner_Profile(t *testing.T) {
	f := newFixture(customersTable(alice(), alice()))
	r, err := pipeline.NewRunner(f.deps)
	require.NoError(t, err)

	reports, err := r.Profile(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "customers", reports[0].Dataset)
	assert.Equal(t, 2, reports[0].TotalRecords)
	assert.Equal(t, 1, reports[0].DuplicateRecords)
	assert.Equal(t, "transactions", reports[1].Dataset)
	assert.Empty(t, f.warehouse.batches)
	assert.Empty(t, f.recorded)
}

func TestNewRunner_RequiresDeps(t *testing.T) {
	_, err := pipeline.NewRunner(pipeline.Deps{})
	assert.Error(t, err)

	_, err = pipeline.NewRunner(pipeline.Deps{
		Customers:    staticExtractor(customersTable()),
		Transactions: staticExtractor(transactionsTable()),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse loader is required")
}

func TestPipeline_Execute_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pipeline.NewPipeline(&pipeline.ProfileStep{})
	err := p.Execute(ctx, &pipeline.PipelineState{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "pipeline step 1 (profile) failed")
}
