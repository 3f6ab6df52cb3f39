package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunStats_AddError(t *testing.T) {
	var s RunStats
	s.AddError("Extraction", errors.New("file not found"))
	s.AddError("Loading", nil)

	assert.Equal(t, []string{"Extraction error: file not found"}, s.Errors)
}

func TestRunStats_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := RunStats{StartTime: start}
	assert.Zero(t, s.Duration())

	s.EndTime = start.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, s.Duration())
}
