package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/customer-etl/internal/domain"
	"github.com/dvloznov/customer-etl/internal/jobs"
	"github.com/dvloznov/customer-etl/internal/jobs/inmemory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRunLister is a mock implementation of handlers.RunLister
type MockRunLister struct {
	ListRunsFunc func(ctx context.Context, limit int) ([]domain.RunStats, error)
}

func (m *MockRunLister) ListRuns(ctx context.Context, limit int) ([]domain.RunStats, error) {
	return m.ListRunsFunc(ctx, limit)
}

var _ jobs.Publisher = (*MockPublisher)(nil)

// MockPublisher is a mock implementation of jobs.Publisher
type MockPublisher struct {
	PublishFunc func(ctx context.Context, job *jobs.RunPipelineJob) error
}

func (m *MockPublisher) PublishRunPipeline(ctx context.Context, job *jobs.RunPipelineJob) error {
	return m.PublishFunc(ctx, job)
}

func (m *MockPublisher) Close() error {
	return nil
}

type testServer struct {
	handler http.Handler
	queue   *inmemory.Queue
	store   *inmemory.Store
}

func newTestServer(t *testing.T, apiKey string, runs *MockRunLister) *testServer {
	t.Helper()
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(inmemory.QueueConfig{BufferSize: 10}, store)
	t.Cleanup(func() { queue.Close() })

	cfg := RouterConfig{
		Publisher: queue,
		JobStore:  store,
		APIKey:    apiKey,
		Log:       zerolog.Nop(),
	}
	if runs != nil {
		cfg.Runs = runs
	}
	return &testServer{handler: NewRouter(cfg), queue: queue, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "secret", nil)

	rec := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestTriggerRun(t *testing.T) {
	srv := newTestServer(t, "", nil)

	rec := srv.do(t, http.MethodPost, "/api/runs", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	require.NotEmpty(t, body["job_id"])
	assert.Equal(t, "pending", body["status"])

	job, err := srv.store.GetJob(context.Background(), body["job_id"])
	require.NoError(t, err)
	assert.Equal(t, jobs.TriggerAPI, job.Trigger)
}

func TestTriggerRun_PublishError(t *testing.T) {
	handler := NewRouter(RouterConfig{
		Publisher: &MockPublisher{PublishFunc: func(ctx context.Context, job *jobs.RunPipelineJob) error {
			return errors.New("queue is closed")
		}},
		JobStore: inmemory.NewStore(),
		Log:      zerolog.Nop(),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListRuns(t *testing.T) {
	var gotLimit int
	runs := &MockRunLister{ListRunsFunc: func(ctx context.Context, limit int) ([]domain.RunStats, error) {
		gotLimit = limit
		return []domain.RunStats{{RunID: "run-1", Status: domain.RunStatusSuccess}}, nil
	}}
	srv := newTestServer(t, "", runs)

	rec := srv.do(t, http.MethodGet, "/api/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)

	var body struct {
		Runs  []domain.RunStats `json:"runs"`
		Count int               `json:"count"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "run-1", body.Runs[0].RunID)
}

func TestListRuns_Errors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t, "", nil)
		rec := srv.do(t, http.MethodGet, "/api/runs", nil)
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("invalid limit", func(t *testing.T) {
		srv := newTestServer(t, "", &MockRunLister{})
		rec := srv.do(t, http.MethodGet, "/api/runs?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		srv := newTestServer(t, "", &MockRunLister{ListRunsFunc: func(ctx context.Context, limit int) ([]domain.RunStats, error) {
			return nil, errors.New("connection refused")
		}})
		rec := srv.do(t, http.MethodGet, "/api/runs", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestJobsEndpoints(t *testing.T) {
	srv := newTestServer(t, "", nil)
	ctx := context.Background()

	require.NoError(t, srv.store.SaveJob(ctx, &jobs.RunPipelineJob{
		JobID: "job-1", Trigger: jobs.TriggerSchedule, Status: jobs.JobStatusCompleted,
		CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, srv.store.SaveJob(ctx, &jobs.RunPipelineJob{
		JobID: "job-2", Trigger: jobs.TriggerAPI, Status: jobs.JobStatusFailed,
		CreatedAt: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
	}))

	rec := srv.do(t, http.MethodGet, "/api/jobs/job-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job jobs.RunPipelineJob
	decode(t, rec, &job)
	assert.Equal(t, jobs.TriggerSchedule, job.Trigger)

	rec = srv.do(t, http.MethodGet, "/api/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/jobs?trigger=api", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Jobs  []jobs.RunPipelineJob `json:"jobs"`
		Count int                   `json:"count"`
	}
	decode(t, rec, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "job-2", list.Jobs[0].JobID)

	rec = srv.do(t, http.MethodGet, "/api/jobs?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"jobs":[]`))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, "", nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodDelete, "/api/runs"},
		{http.MethodPost, "/api/jobs"},
		{http.MethodPut, "/api/jobs/job-1"},
	} {
		rec := srv.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, "secret", nil)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"api key header", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer token", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, "/api/jobs", tt.headers)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	handler := NewRouter(RouterConfig{
		Publisher: &MockPublisher{PublishFunc: func(ctx context.Context, job *jobs.RunPipelineJob) error {
			panic("boom")
		}},
		JobStore: inmemory.NewStore(),
		Log:      zerolog.Nop(),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
