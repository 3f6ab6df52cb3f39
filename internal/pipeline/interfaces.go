package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/extract"
	"github.com/dvloznov/customer-etl/internal/load"
	"github.com/dvloznov/customer-etl/internal/quality"
	"github.com/dvloznov/customer-etl/internal/transform"
)

// RunRecorder persists the outcome of a run together with the quality
// reports it produced.
type RunRecorder interface {
	RecordRun(ctx context.Context, stats domain.RunStats, reports []domain.DataQualityReport) error
}

// Deps holds everything a Runner needs. Backup and Recorder are optional.
type Deps struct {
	Customers    extract.Extractor
	Transactions extract.Extractor
	Transformer  *transform.Transformer
	Warehouse    load.Loader
	Backup       load.Loader
	Recorder     RunRecorder

	// Quality gates the summary table. EnforceQuality turns violations into
	// run failures; otherwise they are only logged.
	Quality        quality.Thresholds
	EnforceQuality bool

	// Now and NewRunID default to time.Now and uuid.NewString.
	Now      func() time.Time
	NewRunID func() string
}
