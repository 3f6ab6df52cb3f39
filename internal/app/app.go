// Package app builds the pipeline and its collaborators from configuration.
// The cli, worker and api binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dvloznov/customer-etl/internal/config"
	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/extract"
	"github.com/dvloznov/customer-etl/internal/gcs"
	"github.com/dvloznov/customer-etl/internal/gcsuploader"
	infra "github.com/dvloznov/customer-etl/internal/infra/bigquery"
	"github.com/dvloznov/customer-etl/internal/jobs"
	"github.com/dvloznov/customer-etl/internal/jobs/inmemory"
	"github.com/dvloznov/customer-etl/internal/jobs/redislock"
	"github.com/dvloznov/customer-etl/internal/load"
	"github.com/dvloznov/customer-etl/internal/pipeline"
	"github.com/dvloznov/customer-etl/internal/quality"
	"github.com/dvloznov/customer-etl/internal/store/sqlstore"
	"github.com/dvloznov/customer-etl/internal/transform"
)

// RunHistory lists recorded runs, newest first.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]domain.RunStats, error)
}

// App holds everything a process needs to run the pipeline.
type App struct {
	Config *config.Config
	Runner *pipeline.Runner
	Lock   jobs.RunLock
	// Runs is nil when no run store is configured.
	Runs RunHistory

	storage  gcs.StorageService
	bqRepos  map[string]*infra.BigQueryRepository
	closers  []io.Closer
	recorder pipeline.RunRecorder
}

// New builds the extractors, loaders, run recorder, run lock and runner
// described by cfg. Clients are created once and shared; Close releases them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:  cfg,
		bqRepos: make(map[string]*infra.BigQueryRepository),
	}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	customers, err := a.extractor(ctx, "customers", cfg.Sources.Customers)
	if err != nil {
		return err
	}
	transactions, err := a.extractor(ctx, "transactions", cfg.Sources.Transactions)
	if err != nil {
		return err
	}

	loadDeps := load.Deps{}
	if cfg.Warehouse.Type == config.StoreBigQuery {
		repo, err := a.bigQuery(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.Dataset)
		if err != nil {
			return err
		}
		loadDeps.Summaries = repo
	}
	if cfg.Backup.Enabled && cfg.Backup.Bucket != "" {
		storage, err := a.storageService(ctx)
		if err != nil {
			return err
		}
		loadDeps.Storage = storage
	}
	warehouse, err := load.New(cfg.Warehouse, loadDeps)
	if err != nil {
		return err
	}

	transformer, err := NewTransformer(cfg.Transform)
	if err != nil {
		return err
	}

	if err := a.buildRunStore(ctx); err != nil {
		return err
	}

	deps := pipeline.Deps{
		Customers:      customers,
		Transactions:   transactions,
		Transformer:    transformer,
		Warehouse:      warehouse,
		Quality:        quality.FromConfig(cfg.Quality),
		EnforceQuality: cfg.Quality.Enforce,
	}
	if backup := load.NewBackup(cfg.Backup, loadDeps); backup != nil {
		deps.Backup = backup
	}
	if a.recorder != nil {
		deps.Recorder = a.recorder
	}

	a.Runner, err = pipeline.NewRunner(deps)
	if err != nil {
		return err
	}

	return a.buildLock(ctx)
}

// NewTransformer configures the transform core: age bounds, the optional
// fixed reference time and the spending threshold.
func NewTransformer(cfg config.TransformConfig) (*transform.Transformer, error) {
	opts := []transform.ValidatorOption{transform.WithAgeRange(cfg.MinAge, cfg.MaxAge)}
	ref, ok, err := cfg.ReferenceClock()
	if err != nil {
		return nil, fmt.Errorf("NewTransformer: %w", err)
	}
	if ok {
		opts = append(opts, transform.WithReferenceTime(ref))
	}
	t := transform.NewTransformer(opts...)
	t.MinTotalSpent = cfg.MinTotalSpent
	return t, nil
}

func (a *App) extractor(ctx context.Context, name string, src config.SourceConfig) (extract.Extractor, error) {
	deps := extract.Deps{}
	switch src.Type {
	case config.SourceGCS:
		storage, err := a.storageService(ctx)
		if err != nil {
			return nil, err
		}
		deps.Storage = storage
	case config.SourceBigQuery:
		repo, err := a.bigQuery(ctx, src.ProjectID, "")
		if err != nil {
			return nil, err
		}
		deps.BigQuery = repo
	}
	return extract.New(name, src, deps)
}

func (a *App) buildRunStore(ctx context.Context) error {
	cfg := a.Config.RunStore
	switch cfg.Type {
	case config.StoreBigQuery:
		repo, err := a.bigQuery(ctx, cfg.ProjectID, cfg.Dataset)
		if err != nil {
			return err
		}
		rec := infra.NewRunRecorder(repo)
		a.recorder, a.Runs = rec, rec
	case config.StoreSQLite, config.StorePostgres:
		store, err := sqlstore.OpenRunStore(ctx, cfg.Type, cfg.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store)
		a.recorder, a.Runs = store, store
	}
	return nil
}

func (a *App) buildLock(ctx context.Context) error {
	cfg := a.Config.Jobs
	if cfg.Lock == config.LockRedis {
		lock, err := redislock.Dial(ctx, cfg.RedisAddr, cfg.LockTTL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, lock)
		a.Lock = lock
		return nil
	}
	a.Lock = inmemory.NewLock(cfg.LockTTL)
	return nil
}

// bigQuery returns the shared repository for projectID/dataset.
func (a *App) bigQuery(ctx context.Context, projectID, dataset string) (*infra.BigQueryRepository, error) {
	key := projectID + "/" + dataset
	if repo, ok := a.bqRepos[key]; ok {
		return repo, nil
	}
	repo, err := infra.NewBigQueryRepository(ctx, projectID, dataset)
	if err != nil {
		return nil, err
	}
	a.bqRepos[key] = repo
	a.closers = append(a.closers, repo)
	return repo, nil
}

func (a *App) storageService(ctx context.Context) (gcs.StorageService, error) {
	if a.storage != nil {
		return a.storage, nil
	}
	svc, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		return nil, err
	}
	a.storage = svc
	a.closers = append(a.closers, svc)
	return svc, nil
}

// QueueConfig maps the jobs section onto the in-memory queue settings.
func QueueConfig(cfg config.JobsConfig) inmemory.QueueConfig {
	return inmemory.QueueConfig{
		BufferSize: cfg.QueueSize,
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
}

// Close releases every client opened by New, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
