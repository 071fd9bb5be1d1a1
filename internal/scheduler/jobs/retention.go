package jobs

import (
	"context"
	"time"

	"github.com/wonny/carwatch/internal/pipeline"
	"github.com/wonny/carwatch/pkg/logger"
)

// SnapshotPruner removes snapshot dates sorting before a cutoff
type SnapshotPruner interface {
	DeleteBefore(cutoff string) ([]string, error)
}

// RetentionJob prunes snapshot directories older than the retention window
type RetentionJob struct {
	pruner SnapshotPruner
	days   int
	loc    *time.Location
	now    func() time.Time
	logger *logger.Logger
}

// NewRetentionJob creates a new retention job. days <= 0 disables pruning.
func NewRetentionJob(pruner SnapshotPruner, days int, loc *time.Location, log *logger.Logger) *RetentionJob {
	if loc == nil {
		loc = time.UTC
	}
	return &RetentionJob{
		pruner: pruner,
		days:   days,
		loc:    loc,
		now:    time.Now,
		logger: log.WithComponent("retention"),
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "snapshot_retention"
}

// Schedule returns the cron schedule (every day at 03:30)
func (j *RetentionJob) Schedule() string {
	return "0 30 3 * * *"
}

// Cutoff returns the oldest date key kept, never later than yesterday
func (j *RetentionJob) Cutoff() string {
	_, yesterday := pipeline.DateKeys(j.now(), j.loc)
	cutoff := j.now().In(j.loc).AddDate(0, 0, -j.days).Format(pipeline.DateKeyLayout)
	if cutoff > yesterday {
		return yesterday
	}
	return cutoff
}

// Run executes the pruning
func (j *RetentionJob) Run(ctx context.Context) error {
	if j.days <= 0 {
		j.logger.Debug("Retention disabled")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cutoff := j.Cutoff()
	removed, err := j.pruner.DeleteBefore(cutoff)
	if err != nil {
		return err
	}

	if len(removed) > 0 {
		j.logger.WithFields(map[string]interface{}{
			"cutoff":  cutoff,
			"removed": len(removed),
		}).Info("Snapshot retention completed")
	}
	return nil
}
