package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/extract"
	"github.com/dvloznov/customer-etl/internal/load"
	"github.com/dvloznov/customer-etl/internal/logger"
	"github.com/dvloznov/customer-etl/internal/quality"
	"github.com/dvloznov/customer-etl/internal/transform"
	"golang.org/x/sync/errgroup"
)

// Stage labels used in RunStats.Errors.
const (
	StageExtraction     = "Extraction"
	StageTransformation = "Transformation"
	StageQuality        = "Quality"
	StageLoading        = "Loading"
)

// PipelineStep represents a single step in the ETL pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all steps of one run.
type PipelineState struct {
	Stats domain.RunStats

	Customers    domain.Table
	Transactions domain.Table

	CustomerReport    *domain.DataQualityReport
	TransactionReport *domain.DataQualityReport
	SummaryReport     *domain.DataQualityReport

	Result *transform.Result
	Loads  []load.LoadResult
}

// Reports returns the quality reports produced so far.
func (s *PipelineState) Reports() []domain.DataQualityReport {
	var out []domain.DataQualityReport
	for _, r := range []*domain.DataQualityReport{s.CustomerReport, s.TransactionReport, s.SummaryReport} {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// Step 1: ExtractStep reads both source tables concurrently.
type ExtractStep struct {
	Customers    extract.Extractor
	Transactions extract.Extractor
}

func (s *ExtractStep) Name() string { return "extract" }

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	var customers, transactions domain.Table

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.Customers.Extract(gctx)
		if err != nil {
			return err
		}
		customers = t
		return nil
	})
	g.Go(func() error {
		t, err := s.Transactions.Extract(gctx)
		if err != nil {
			return err
		}
		transactions = t
		return nil
	})
	if err := g.Wait(); err != nil {
		state.Stats.AddError(StageExtraction, err)
		return err
	}

	customers.Name = transform.DatasetCustomers
	transactions.Name = transform.DatasetTransactions
	state.Customers = customers
	state.Transactions = transactions
	state.Stats.RecordsExtracted = customers.Len() + transactions.Len()

	log := logger.FromContext(ctx)
	log.Info().
		Int("customers", customers.Len()).
		Int("transactions", transactions.Len()).
		Msg("Extracted source tables")
	return nil
}

// Step 2: ProfileStep builds quality reports of the raw tables.
type ProfileStep struct{}

func (s *ProfileStep) Name() string { return "profile" }

func (s *ProfileStep) Execute(ctx context.Context, state *PipelineState) error {
	generated := state.Stats.StartTime
	customers := transform.GenerateQualityReport(state.Customers, transform.DatasetCustomers, generated)
	transactions := transform.GenerateQualityReport(state.Transactions, transform.DatasetTransactions, generated)
	state.CustomerReport = &customers
	state.TransactionReport = &transactions

	log := logger.FromContext(ctx)
	for _, r := range []domain.DataQualityReport{customers, transactions} {
		log.Info().
			Str("dataset", r.Dataset).
			Int("records", r.TotalRecords).
			Int("missing", r.TotalMissing()).
			Int("duplicates", r.DuplicateRecords).
			Msg("Profiled dataset")
	}
	return nil
}

// Step 3: TransformStep cleans, validates and aggregates.
type TransformStep struct {
	Transformer *transform.Transformer
}

func (s *TransformStep) Name() string { return "transform" }

func (s *TransformStep) Execute(ctx context.Context, state *PipelineState) error {
	t := s.Transformer
	if t == nil {
		t = transform.NewTransformer()
	}

	result, err := t.Run(state.Customers, state.Transactions)
	if err != nil {
		state.Stats.AddError(StageTransformation, err)
		return err
	}
	state.Result = result
	state.Stats.RecordsTransformed = len(result.Summaries)

	c := result.Counts
	log := logger.FromContext(ctx)
	log.Info().
		Int("customers_valid", c.CustomersValid).
		Int("transactions_valid", c.TransactionsValid).
		Int("summaries", c.Summaries).
		Msg("Transformed data")
	return nil
}

// Step 4: QualityGateStep profiles the summary table and checks it against
// the thresholds.
type QualityGateStep struct {
	Thresholds quality.Thresholds
	Enforce    bool
}

func (s *QualityGateStep) Name() string { return "quality gate" }

func (s *QualityGateStep) Execute(ctx context.Context, state *PipelineState) error {
	summary := transform.GenerateQualityReport(
		transform.SummaryTable(transform.DatasetSummary, state.Result.Summaries),
		transform.DatasetSummary,
		state.Stats.StartTime,
	)
	state.SummaryReport = &summary

	err := s.Thresholds.Evaluate(summary)
	if err == nil {
		return nil
	}

	if !s.Enforce {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Quality thresholds exceeded")
		return nil
	}
	state.Stats.AddError(StageQuality, err)
	return err
}

// Step 5: LoadStep writes the summaries to the warehouse.
type LoadStep struct {
	Loader load.Loader
}

func (s *LoadStep) Name() string { return "load" }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	res, err := s.Loader.Load(ctx, batchOf(state))
	if err != nil {
		state.Stats.AddError(StageLoading, err)
		return err
	}
	state.Loads = append(state.Loads, res)
	state.Stats.RecordsLoaded = res.Rows

	log := logger.FromContext(ctx)
	log.Info().
		Strs("destinations", res.Destinations).
		Int("rows", res.Rows).
		Msg("Loaded customer summary")
	return nil
}

// Step 6: BackupStep writes the timestamped backup copy.
type BackupStep struct {
	Loader load.Loader
}

func (s *BackupStep) Name() string { return "backup" }

func (s *BackupStep) Execute(ctx context.Context, state *PipelineState) error {
	res, err := s.Loader.Load(ctx, batchOf(state))
	if err != nil {
		state.Stats.AddError(StageLoading, err)
		return err
	}
	state.Loads = append(state.Loads, res)

	log := logger.FromContext(ctx)
	log.Info().Strs("destinations", res.Destinations).Msg("Backup created")
	return nil
}

func batchOf(state *PipelineState) load.Batch {
	var summaries []domain.CustomerSummary
	if state.Result != nil {
		summaries = state.Result.Summaries
	}
	return load.Batch{
		RunID:     state.Stats.RunID,
		CreatedAt: state.Stats.StartTime,
		Summaries: summaries,
	}
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		log := logger.FromContext(ctx)
		log.Debug().Int("step", i+1).Str("name", step.Name()).Msg("Executing step")
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}
