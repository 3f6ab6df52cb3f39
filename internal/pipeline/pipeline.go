// Package pipeline orchestrates one ETL run: extract both sources, profile
// them, transform, check quality, load the warehouse, write the backup and
// record the outcome.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/logger"
	"github.com/google/uuid"
)

// Runner executes complete pipeline runs. A Runner is safe for concurrent
// use; every run owns its PipelineState.
type Runner struct {
	deps Deps
}

// NewRunner creates a runner. Customers, Transactions and Warehouse are
// required.
func NewRunner(deps Deps) (*Runner, error) {
	if deps.Customers == nil || deps.Transactions == nil {
		return nil, fmt.Errorf("NewRunner: both extractors are required")
	}
	if deps.Warehouse == nil {
		return nil, fmt.Errorf("NewRunner: a warehouse loader is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	return &Runner{deps: deps}, nil
}

// NewETLPipeline creates the standard pipeline: extract, profile, transform,
// quality gate, load and, when configured, backup.
func NewETLPipeline(deps Deps) *Pipeline {
	steps := []PipelineStep{
		&ExtractStep{Customers: deps.Customers, Transactions: deps.Transactions},
		&ProfileStep{},
		&TransformStep{Transformer: deps.Transformer},
		&QualityGateStep{Thresholds: deps.Quality, Enforce: deps.EnforceQuality},
		&LoadStep{Loader: deps.Warehouse},
	}
	if deps.Backup != nil {
		steps = append(steps, &BackupStep{Loader: deps.Backup})
	}
	return NewPipeline(steps...)
}

// NewProfilePipeline creates a pipeline that only extracts and profiles the
// sources.
func NewProfilePipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&ExtractStep{Customers: deps.Customers, Transactions: deps.Transactions},
		&ProfileStep{},
	)
}

// Run executes one full run and returns its statistics. The statistics are
// returned, and recorded when a recorder is configured, whether or not the
// run succeeded.
func (r *Runner) Run(ctx context.Context) (domain.RunStats, error) {
	state := r.newState()
	log := logger.WithRun(logger.FromContext(ctx), state.Stats.RunID)
	ctx = logger.WithContext(ctx, log)

	log.Info().Msg("Starting ETL pipeline")

	runErr := NewETLPipeline(r.deps).Execute(ctx, state)
	r.finish(state, runErr)

	if r.deps.Recorder != nil {
		// Record even when the caller's context is already cancelled.
		recordCtx := context.WithoutCancel(ctx)
		if err := r.deps.Recorder.RecordRun(recordCtx, state.Stats, state.Reports()); err != nil {
			log.Error().Err(err).Msg("Failed to record pipeline run")
		}
	}

	event := log.Info()
	if runErr != nil {
		event = log.Error().Err(runErr)
	}
	event.
		Str("status", string(state.Stats.Status)).
		Int("records_extracted", state.Stats.RecordsExtracted).
		Int("records_transformed", state.Stats.RecordsTransformed).
		Int("records_loaded", state.Stats.RecordsLoaded).
		Dur("duration", state.Stats.Duration()).
		Msg("ETL pipeline finished")

	if runErr != nil {
		return state.Stats, fmt.Errorf("Run: %w", runErr)
	}
	return state.Stats, nil
}

// Profile extracts both sources and returns their quality reports without
// transforming or loading anything.
func (r *Runner) Profile(ctx context.Context) ([]domain.DataQualityReport, error) {
	state := r.newState()
	ctx = logger.WithContext(ctx, logger.WithRun(logger.FromContext(ctx), state.Stats.RunID))

	if err := NewProfilePipeline(r.deps).Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("Profile: %w", err)
	}
	return state.Reports(), nil
}

func (r *Runner) newState() *PipelineState {
	return &PipelineState{
		Stats: domain.RunStats{
			RunID:     r.deps.NewRunID(),
			StartTime: r.deps.Now().UTC(),
			Status:    domain.RunStatusRunning,
		},
	}
}

func (r *Runner) finish(state *PipelineState, runErr error) {
	state.Stats.EndTime = r.deps.Now().UTC()
	if runErr != nil {
		state.Stats.Status = domain.RunStatusFailed
		if len(state.Stats.Errors) == 0 {
			state.Stats.AddError("Pipeline", runErr)
		}
		return
	}
	state.Stats.Status = domain.RunStatusSuccess
}
