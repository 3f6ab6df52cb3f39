package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/customer-etl/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, store *Store, jobID string, status jobs.JobStatus) *jobs.RunPipelineJob {
	t.Helper()
	var got *jobs.RunPipelineJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = j
		return j.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(QueueConfig{Workers: 2}, store)
	defer q.Close()

	require.NoError(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		return nil
	}))

	job := &jobs.RunPipelineJob{Trigger: jobs.TriggerAPI}
	require.NoError(t, q.PublishRunPipeline(context.Background(), job))
	require.NotEmpty(t, job.JobID)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond}, store)
	defer q.Close()

	var attempts atomic.Int32
	require.NoError(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		attempts.Add(1)
		return errors.New("source unavailable")
	}))

	job := &jobs.RunPipelineJob{Trigger: jobs.TriggerSchedule}
	require.NoError(t, q.PublishRunPipeline(context.Background(), job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, 2, got.MaxRetries)
	assert.Equal(t, "source unavailable", got.Error)
}

func TestQueue_RetrySucceeds(t *testing.T) {
	store := NewStore()
	q := NewQueue(QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond}, store)
	defer q.Close()

	var attempts atomic.Int32
	require.NoError(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		if attempts.Add(1) == 1 {
			return jobs.ErrRunInProgress
		}
		return nil
	}))

	job := &jobs.RunPipelineJob{}
	require.NoError(t, q.PublishRunPipeline(context.Background(), job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, got.RetryCount)
	assert.Empty(t, got.Error)
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(QueueConfig{}, nil)
	require.NoError(t, q.Close())

	err := q.PublishRunPipeline(context.Background(), &jobs.RunPipelineJob{})
	assert.EqualError(t, err, "queue is closed")
	assert.Error(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error { return nil }))
	assert.NoError(t, q.Stop(context.Background()))
}

func TestQueue_StopCancelsPendingRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(QueueConfig{Workers: 1, MaxRetries: 1, RetryDelay: time.Hour}, store)

	require.NoError(t, q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		return errors.New("boom")
	}))

	job := &jobs.RunPipelineJob{}
	require.NoError(t, q.PublishRunPipeline(context.Background(), job))
	waitForStatus(t, store, job.JobID, jobs.JobStatusRetrying)

	require.NoError(t, q.Stop(context.Background()))
	q.mu.RLock()
	defer q.mu.RUnlock()
	assert.Empty(t, q.retries)
}
