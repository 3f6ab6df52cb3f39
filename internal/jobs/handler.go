package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/logger"
)

// PipelineRunner runs the ETL pipeline once.
type PipelineRunner interface {
	Run(ctx context.Context) (domain.RunStats, error)
}

// NewRunPipelineHandler returns a JobHandler that runs the pipeline under the
// run lock. When the lock is held elsewhere the handler fails with
// ErrRunInProgress so the queue retries later.
func NewRunPipelineHandler(runner PipelineRunner, lock RunLock) JobHandler {
	return func(ctx context.Context, job Job) error {
		runJob, ok := job.(*RunPipelineJob)
		if !ok {
			return fmt.Errorf("unsupported job type: %s", job.GetType())
		}

		log := logger.FromContext(ctx).With().
			Str("job_id", runJob.JobID).
			Str("trigger", string(runJob.Trigger)).
			Int("attempt", runJob.RetryCount+1).
			Logger()

		if lock != nil {
			acquired, err := lock.TryAcquire(ctx, runJob.JobID)
			if err != nil {
				return fmt.Errorf("failed to acquire run lock: %w", err)
			}
			if !acquired {
				log.Warn().Msg("Skipping run, another run is active")
				return ErrRunInProgress
			}
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx), runJob.JobID); err != nil {
					log.Error().Err(err).Msg("Failed to release run lock")
				}
			}()
		}

		log.Info().Msg("Processing pipeline run job")

		stats, err := runner.Run(logger.WithContext(ctx, log))
		runJob.RunID = stats.RunID
		runJob.Stats = &stats
		if err != nil {
			log.Error().Err(err).Str("run_id", stats.RunID).Msg("Pipeline run failed")
			return err
		}

		log.Info().Str("run_id", stats.RunID).Msg("Pipeline run completed")
		return nil
	}
}
