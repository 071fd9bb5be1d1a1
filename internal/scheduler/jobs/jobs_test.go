package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carwatch/internal/pipeline"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/internal/snapshot"
	"github.com/wonny/carwatch/pkg/logger"
)

type fakeRunner struct {
	got []pipeline.RunConfig
	err error
}

func (f *fakeRunner) Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error) {
	f.got = append(f.got, cfg)
	return &pipeline.RunResult{RunID: "run-1", Today: cfg.Today, Success: f.err == nil}, f.err
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDailyPipelineJob(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	runner := &fakeRunner{}
	job := NewDailyPipelineJob(runner, "0 0 6 * * *", loc, logger.NewNop())
	job.now = fixedNow(time.Date(2024, 6, 30, 23, 15, 0, 0, time.UTC))

	assert.Equal(t, "daily_pipeline", job.Name())
	assert.Equal(t, "0 0 6 * * *", job.Schedule())
	assert.Nil(t, job.LastResult())

	require.NoError(t, job.Run(context.Background()))

	require.Len(t, runner.got, 1)
	assert.Equal(t, "20240701", runner.got[0].Today)
	assert.Equal(t, "20240630", runner.got[0].Yesterday)
	assert.False(t, runner.got[0].DryRun)

	require.NotNil(t, job.LastResult())
	assert.Equal(t, "run-1", job.LastResult().RunID)
}

func TestDailyPipelineJobError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("diff failed")}
	job := NewDailyPipelineJob(runner, "@daily", nil, logger.NewNop())
	job.now = fixedNow(time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "pipeline 20240102")
	require.NotNil(t, job.LastResult())
	assert.False(t, job.LastResult().Success)
}

func seedDates(t *testing.T, root string, dates ...string) {
	t.Helper()
	for _, d := range dates {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
}

func TestRetentionJob(t *testing.T) {
	root := t.TempDir()
	seedDates(t, root, "20240101", "20240105", "20240108", "20240109", "20240110")
	repo := snapshot.NewRepository(pipelineconfig.Output{Directory: root, FileType: pipelineconfig.FileTypeCSV}, logger.NewNop())

	job := NewRetentionJob(repo, 3, time.UTC, logger.NewNop())
	job.now = fixedNow(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, "20240107", job.Cutoff())
	require.NoError(t, job.Run(context.Background()))

	dates, err := repo.Dates()
	require.NoError(t, err)
	assert.Equal(t, []string{"20240108", "20240109", "20240110"}, dates)
}

func TestRetentionJobKeepsYesterday(t *testing.T) {
	root := t.TempDir()
	seedDates(t, root, "20240108", "20240109", "20240110")
	repo := snapshot.NewRepository(pipelineconfig.Output{Directory: root, FileType: pipelineconfig.FileTypeCSV}, logger.NewNop())

	job := NewRetentionJob(repo, 1, time.UTC, logger.NewNop())
	job.now = fixedNow(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, "20240109", job.Cutoff())

	require.NoError(t, job.Run(context.Background()))
	dates, err := repo.Dates()
	require.NoError(t, err)
	assert.Equal(t, []string{"20240109", "20240110"}, dates)
}

type countingPruner struct{ calls int }

func (c *countingPruner) DeleteBefore(string) ([]string, error) {
	c.calls++
	return nil, nil
}

func TestRetentionJobDisabled(t *testing.T) {
	pruner := &countingPruner{}
	job := NewRetentionJob(pruner, 0, time.UTC, logger.NewNop())

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, pruner.calls)
	assert.Equal(t, "snapshot_retention", job.Name())
}
