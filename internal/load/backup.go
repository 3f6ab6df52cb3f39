package load

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/gcs"
	"github.com/dvloznov/customer-etl/internal/gcsuploader"
)

// BackupFileLayout is the timestamp layout of backup file names.
const BackupFileLayout = "20060102_150405"

// BackupLoader writes each batch to a timestamped CSV file and, when a bucket
// is configured, mirrors the file to Cloud Storage.
type BackupLoader struct {
	Dir     string
	Bucket  string
	Prefix  string
	Storage gcs.BackupUploader
}

// BackupFileName returns customer_summary_YYYYMMDD_HHMMSS.csv for the batch.
func BackupFileName(batch Batch) string {
	return "customer_summary_" + batch.CreatedAt.UTC().Format(BackupFileLayout) + ".csv"
}

func (l *BackupLoader) Load(ctx context.Context, batch Batch) (LoadResult, error) {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return LoadResult{}, fmt.Errorf("BackupLoader.Load: failed to create %s: %w", l.Dir, err)
	}

	name := BackupFileName(batch)
	path := filepath.Join(l.Dir, name)
	if err := writeSummaryCSV(path, batch.Summaries); err != nil {
		return LoadResult{}, fmt.Errorf("BackupLoader.Load: %w", err)
	}

	result := LoadResult{Destinations: []string{path}, Rows: len(batch.Summaries)}

	if l.Bucket != "" && l.Storage != nil {
		object := gcsuploader.ObjectName(l.Prefix, name)
		if err := l.Storage.UploadFile(ctx, l.Bucket, object, path); err != nil {
			return result, fmt.Errorf("BackupLoader.Load: failed to mirror backup: %w", err)
		}
		result.Destinations = append(result.Destinations, fmt.Sprintf("gs://%s/%s", l.Bucket, object))
	}

	return result, nil
}

func writeSummaryCSV(path string, summaries []domain.CustomerSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writeSummaryCSV: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(domain.SummaryColumns); err != nil {
		f.Close()
		return fmt.Errorf("writeSummaryCSV: header: %w", err)
	}
	for _, s := range summaries {
		if err := w.Write(summaryRecord(s)); err != nil {
			f.Close()
			return fmt.Errorf("writeSummaryCSV: customer %s: %w", s.CustomerID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writeSummaryCSV: flush: %w", err)
	}
	return f.Close()
}

func summaryRecord(s domain.CustomerSummary) []string {
	return []string{
		s.CustomerID,
		s.FirstName,
		s.LastName,
		s.Email,
		strconv.Itoa(s.Age),
		s.City,
		strconv.FormatFloat(s.TotalSpent, 'f', 2, 64),
		strconv.FormatFloat(s.AvgTransaction, 'f', 2, 64),
		strconv.Itoa(s.TransactionCount),
	}
}
