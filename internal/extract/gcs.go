package extract

import (
	"context"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/gcs"
)

// GCSExtractor reads a CSV object from Cloud Storage.
type GCSExtractor struct {
	Name    string
	URI     string
	Storage gcs.SourceFetcher
}

func (e *GCSExtractor) Extract(ctx context.Context) (domain.Table, error) {
	data, err := e.Storage.FetchFromGCS(ctx, e.URI)
	if err != nil {
		return domain.Table{}, extractError("GCS", e.URI, err)
	}

	t, err := ReadCSVBytes(ctx, e.Name, data)
	if err != nil {
		return domain.Table{}, extractError("GCS", e.URI, err)
	}
	return t, nil
}
