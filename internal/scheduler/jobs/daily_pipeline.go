package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/carwatch/internal/pipeline"
	"github.com/wonny/carwatch/pkg/logger"
)

// PipelineRunner runs one pipeline pass
type PipelineRunner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error)
}

// DailyPipelineJob collects, diffs, notifies and reports once a day
// ⭐ SSOT: 일일 파이프라인 스케줄은 이 Job에서만
type DailyPipelineJob struct {
	runner   PipelineRunner
	schedule string
	loc      *time.Location
	now      func() time.Time
	logger   *logger.Logger

	mu   sync.RWMutex
	last *pipeline.RunResult
}

// NewDailyPipelineJob creates a new daily pipeline job
func NewDailyPipelineJob(runner PipelineRunner, schedule string, loc *time.Location, log *logger.Logger) *DailyPipelineJob {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyPipelineJob{
		runner:   runner,
		schedule: schedule,
		loc:      loc,
		now:      time.Now,
		logger:   log.WithComponent("daily_pipeline"),
	}
}

// Name returns the job name
func (j *DailyPipelineJob) Name() string {
	return "daily_pipeline"
}

// Schedule returns the configured cron schedule
func (j *DailyPipelineJob) Schedule() string {
	return j.schedule
}

// LastResult returns the most recent run, nil before the first one
func (j *DailyPipelineJob) LastResult() *pipeline.RunResult {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.last
}

// Run executes one pipeline pass for today
func (j *DailyPipelineJob) Run(ctx context.Context) error {
	today, yesterday := pipeline.DateKeys(j.now(), j.loc)

	j.logger.WithFields(map[string]interface{}{
		"today":     today,
		"yesterday": yesterday,
	}).Info("Starting scheduled pipeline run")

	res, err := j.runner.Run(ctx, pipeline.RunConfig{
		Today:     today,
		Yesterday: yesterday,
	})
	if res != nil {
		j.mu.Lock()
		j.last = res
		j.mu.Unlock()
	}
	if err != nil {
		return fmt.Errorf("pipeline %s: %w", today, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      res.RunID,
		"differences": res.DifferenceCount,
		"warnings":    len(res.Warnings),
	}).Info("Scheduled pipeline run completed")
	return nil
}
