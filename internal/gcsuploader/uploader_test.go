package gcsuploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://exports/customers.csv", "exports", "customers.csv", false},
		{"gs://exports/2024/01/transactions.csv", "exports", "2024/01/transactions.csv", false},
		{"s3://exports/customers.csv", "", "", true},
		{"gs://exports", "", "", true},
		{"gs://exports/", "", "", true},
		{"gs:///customers.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.object, object)
		})
	}
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "backups/summary.csv", ObjectName("backups", "summary.csv"))
	assert.Equal(t, "backups/daily/summary.csv", ObjectName("/backups/daily/", "summary.csv"))
	assert.Equal(t, "summary.csv", ObjectName("", "summary.csv"))
}
