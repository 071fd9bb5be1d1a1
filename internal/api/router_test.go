package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carwatch/internal/api/handlers"
	"github.com/wonny/carwatch/internal/pipeline"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/internal/scheduler"
	"github.com/wonny/carwatch/internal/snapshot"
	"github.com/wonny/carwatch/pkg/config"
	"github.com/wonny/carwatch/pkg/database"
	"github.com/wonny/carwatch/pkg/logger"
	"github.com/wonny/carwatch/pkg/redis"
)

type fakeScheduler struct {
	triggered []string
}

func (f *fakeScheduler) GetJobStats() map[string]scheduler.JobStats {
	return map[string]scheduler.JobStats{
		"snapshot_retention": {JobName: "snapshot_retention", Schedule: "0 30 3 * * *"},
		"daily_pipeline":     {JobName: "daily_pipeline", Schedule: "0 0 6 * * *", TotalRuns: 2, SuccessCount: 2, SuccessRate: 1},
	}
}

func (f *fakeScheduler) RunJob(name string) error {
	if name != "daily_pipeline" {
		return errors.New("job " + name + " not found")
	}
	f.triggered = append(f.triggered, name)
	return nil
}

type fakeDB struct {
	status database.HealthStatus
	calls  int
}

func (f *fakeDB) HealthCheck(ctx context.Context) database.HealthStatus {
	f.calls++
	return f.status
}

type fakeSource struct {
	res *pipeline.RunResult
}

func (f *fakeSource) LastResult() *pipeline.RunResult { return f.res }

type fixture struct {
	handler http.Handler
	db      *fakeDB
	sched   *fakeScheduler
	source  *fakeSource
	repo    *snapshot.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()

	repo := snapshot.NewRepository(pipelineconfig.Output{
		Directory: t.TempDir(),
		FileType:  pipelineconfig.FileTypeCSV,
	}, log)
	sched := &fakeScheduler{}
	source := &fakeSource{}
	cache := redis.NewCache(redis.NewFromRedis(nil), "carwatch")
	db := &fakeDB{status: database.HealthStatus{Healthy: true, TotalConns: 2, IdleConns: 1}}

	router := NewRouter(
		handlers.NewHealthHandler(db, log),
		handlers.NewRunHandler(repo, cache, source, log),
		handlers.NewJobHandler(sched, log),
		log,
	)
	srv := New(&config.Config{Port: "0", Env: "development"}, log, router)

	return &fixture{handler: srv.Handler(), db: db, sched: sched, source: source, repo: repo}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "carwatch", body["service"])
}

func TestHealthReportsDatabase(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.db.calls)

	var body struct {
		Status   string                `json:"status"`
		Database database.HealthStatus `json:"database"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Database.Healthy)
	assert.Equal(t, int32(2), body.Database.TotalConns)
}

func TestHealthDatabaseDown(t *testing.T) {
	f := newFixture(t)
	f.db.status = database.HealthStatus{Error: "connection refused"}

	rec := f.do(http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["database"].(map[string]interface{})["error"])
}

func TestHealthWithoutDatabase(t *testing.T) {
	log := logger.NewNop()
	h := handlers.NewHealthHandler(nil, log)

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "database")
}

func TestLatestRun(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.source.res = &pipeline.RunResult{
		RunID:           "abc",
		Today:           "20240102",
		Success:         true,
		DifferenceCount: 3,
		StartedAt:       time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC),
	}

	rec = f.do(http.MethodGet, "/api/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got pipeline.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.RunID)
	assert.Equal(t, 3, got.DifferenceCount)
}

func TestJobs(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/jobs")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []scheduler.JobStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "daily_pipeline", stats[0].JobName)
	assert.Equal(t, 2, stats[0].TotalRuns)

	rec = f.do(http.MethodPost, "/api/jobs/daily_pipeline/run")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"daily_pipeline"}, f.sched.triggered)

	rec = f.do(http.MethodPost, "/api/jobs/unknown/run")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/jobs/daily_pipeline/run")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSnapshotsAndReports(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/snapshots")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dates":[]}`, rec.Body.String())

	require.NoError(t, f.repo.WriteReport("20240102", pipeline.ReportDifferences, []byte("a,b\n1,2\n")))

	rec = f.do(http.MethodGet, "/api/snapshots")
	assert.JSONEq(t, `{"dates":["20240102"]}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/snapshots/20240102/reports/"+pipeline.ReportDifferences)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a,b\n1,2\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	rec = f.do(http.MethodGet, "/api/snapshots/20240102/reports/missing.csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/snapshots/../reports/x.csv")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}
