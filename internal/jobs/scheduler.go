package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/customer-etl/internal/logger"
)

// Scheduler publishes a pipeline run job at a fixed interval.
type Scheduler struct {
	Publisher Publisher
	Interval  time.Duration
	// RunOnStart publishes one job as soon as Run is called.
	RunOnStart bool
}

// Run publishes jobs until ctx is cancelled. A zero interval disables the
// schedule; Run then only honours RunOnStart and waits for ctx.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.FromContext(ctx)

	if s.RunOnStart {
		s.publish(ctx)
	}
	if s.Interval <= 0 {
		log.Info().Msg("Pipeline schedule disabled")
		<-ctx.Done()
		return
	}

	log.Info().Dur("interval", s.Interval).Msg("Pipeline schedule started")
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publish(ctx)
		}
	}
}

func (s *Scheduler) publish(ctx context.Context) {
	log := logger.FromContext(ctx)
	job := &RunPipelineJob{Trigger: TriggerSchedule}
	if err := s.Publisher.PublishRunPipeline(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to publish scheduled run")
		return
	}
	log.Info().Str("job_id", job.JobID).Msg("Scheduled pipeline run")
}
