package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/customer-etl/internal/app"
	"github.com/dvloznov/customer-etl/internal/config"
	"github.com/dvloznov/customer-etl/internal/jobs"
	"github.com/dvloznov/customer-etl/internal/jobs/inmemory"
	"github.com/dvloznov/customer-etl/internal/logger"
	"github.com/spf13/pflag"
)

func main() {
	cfgFile := pflag.String("config", "", "config file (default: ./etl.yaml)")
	runOnStart := pflag.Bool("run-on-start", false, "Run the pipeline once at startup")
	pflag.Duration("jobs.schedule-interval", config.DefaultScheduleInterval, "Interval between scheduled runs (0 disables the schedule)")
	pflag.String("log.level", "info", "Log level")
	pflag.Parse()

	cfg, err := config.Load(*cfgFile, pflag.CommandLine)
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline")
	}
	defer a.Close()

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(app.QueueConfig(cfg.Jobs), jobStore)

	log.Info().Msg("Starting worker service")

	// Start consuming jobs
	if err := jobQueue.Start(ctx, jobs.NewRunPipelineHandler(a.Runner, a.Lock)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	scheduler := &jobs.Scheduler{
		Publisher:  jobQueue,
		Interval:   cfg.Jobs.ScheduleInterval,
		RunOnStart: *runOnStart,
	}
	go scheduler.Run(ctx)

	log.Info().
		Dur("schedule_interval", cfg.Jobs.ScheduleInterval).
		Int("max_retries", cfg.Jobs.MaxRetries).
		Dur("retry_delay", cfg.Jobs.RetryDelay).
		Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop the scheduler and workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	// Close the queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
