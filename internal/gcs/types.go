// Package gcs declares the Cloud Storage contract of the pipeline. Source
// CSV exports are read from gs:// URIs and summary backups are mirrored into
// a bucket. The client-backed implementation lives in gcsuploader.
package gcs

import (
	"context"
)

// SourceFetcher reads a whole source export addressed as gs://bucket/object.
type SourceFetcher interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// BackupUploader copies a local backup file to bucket/object.
type BackupUploader interface {
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error
}

// StorageService is the single client the application opens and hands to
// both the GCS extractors and the backup loader.
type StorageService interface {
	SourceFetcher
	BackupUploader
}
