package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/customer-etl/internal/api"
	"github.com/dvloznov/customer-etl/internal/app"
	"github.com/dvloznov/customer-etl/internal/config"
	"github.com/dvloznov/customer-etl/internal/jobs"
	"github.com/dvloznov/customer-etl/internal/jobs/inmemory"
	"github.com/dvloznov/customer-etl/internal/logger"
	"github.com/spf13/pflag"
)

func main() {
	cfgFile := pflag.String("config", "", "config file (default: ./etl.yaml)")
	pflag.String("api.port", config.DefaultPort, "Port to listen on")
	pflag.String("log.level", "info", "Log level")
	pflag.Parse()

	cfg, err := config.Load(*cfgFile, pflag.CommandLine)
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancelWorker()

	a, err := app.New(workerCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline")
	}
	defer a.Close()

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(app.QueueConfig(cfg.Jobs), jobStore)

	// Runs triggered over HTTP are processed in this process
	if err := jobQueue.Start(workerCtx, jobs.NewRunPipelineHandler(a.Runner, a.Lock)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	routerCfg := api.RouterConfig{
		Publisher: jobQueue,
		JobStore:  jobStore,
		APIKey:    cfg.API.APIKey,
		Log:       log,
	}
	if a.Runs != nil {
		routerCfg.Runs = a.Runs
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.API.Port,
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.API.Port).Bool("auth", cfg.API.APIKey != "").Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
