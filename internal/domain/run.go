package domain

import (
	"time"
)

// RunStatus is the lifecycle state of one pipeline run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunStats collects the counters and errors of one pipeline run. It is owned
// by a single run and threaded through its steps; nothing shares it.
type RunStats struct {
	RunID              string    `json:"run_id" yaml:"run_id"`
	StartTime          time.Time `json:"start_time" yaml:"start_time"`
	EndTime            time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	RecordsExtracted   int       `json:"records_extracted" yaml:"records_extracted"`
	RecordsTransformed int       `json:"records_transformed" yaml:"records_transformed"`
	RecordsLoaded      int       `json:"records_loaded" yaml:"records_loaded"`
	Errors             []string  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Status             RunStatus `json:"status" yaml:"status"`
}

// Duration is the wall time of a finished run, zero while it is running.
func (s RunStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// AddError records a stage failure, e.g. AddError("Extraction", err) records
// "Extraction error: <err>".
func (s *RunStats) AddError(stage string, err error) {
	if err == nil {
		return
	}
	s.Errors = append(s.Errors, stage+" error: "+err.Error())
}
