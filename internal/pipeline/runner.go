package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/carwatch/internal/collector"
	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/diff"
	"github.com/wonny/carwatch/internal/notify"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/internal/quality"
	"github.com/wonny/carwatch/internal/snapshot"
	"github.com/wonny/carwatch/pkg/logger"
	"github.com/wonny/carwatch/pkg/redis"
)

// Runner coordinates one daily run: COLLECT → DIFF → NOTIFY → QUALITY → REPORT
// ⭐ SSOT: 일일 파이프라인 조율은 여기서만
type Runner struct {
	repo        *snapshot.Repository
	cfg         *pipelineconfig.Config
	engine      *diff.Engine
	dispatcher  *notify.Dispatcher
	collector   *collector.Collector
	qualityRepo *quality.Repository
	cache       *redis.Cache
	logger      *logger.Logger
}

// NewRunner creates a runner. dispatcher may be nil (no notification).
func NewRunner(repo *snapshot.Repository, cfg *pipelineconfig.Config, dispatcher *notify.Dispatcher, log *logger.Logger) *Runner {
	log = log.WithComponent("pipeline")
	return &Runner{
		repo:       repo,
		cfg:        cfg,
		engine:     diff.NewEngine(log),
		dispatcher: dispatcher,
		logger:     log,
	}
}

// WithCollector runs the collection stage before the diff
func (r *Runner) WithCollector(c *collector.Collector) *Runner {
	r.collector = c
	return r
}

// WithQualityRepository persists quality suites to PostgreSQL
func (r *Runner) WithQualityRepository(q *quality.Repository) *Runner {
	r.qualityRepo = q
	return r
}

// WithCache publishes the latest run result to Redis
func (r *Runner) WithCache(c *redis.Cache) *Runner {
	r.cache = c
	return r
}

// WithDiffEngine replaces the default diff engine
func (r *Runner) WithDiffEngine(e *diff.Engine) *Runner {
	r.engine = e
	return r
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	Today     string
	Yesterday string // empty: latest snapshot before Today
	RunID     string // empty: generated
	DryRun    bool   // If true, skip notification
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID     string                  `json:"run_id"`
	Today     string                  `json:"today"`
	Yesterday string                  `json:"yesterday"`
	DryRun    bool                    `json:"dry_run"`
	Success   bool                    `json:"success"`
	Stages    []contracts.StageResult `json:"stages"`
	Warnings  []string                `json:"warnings"`
	StartedAt time.Time               `json:"started_at"`
	Duration  time.Duration           `json:"duration"`

	DifferenceCount            int                                             `json:"difference_count"`
	PriceDifferenceCount       int                                             `json:"price_difference_count"`
	OptionPriceDifferenceCount int                                             `json:"option_price_difference_count"`
	QualityScores              map[contracts.SnapshotKind]float64              `json:"quality_scores"`
	Summary                    *notify.Summary                                 `json:"summary,omitempty"`
	Dispatch                   *notify.DispatchResult                          `json:"dispatch,omitempty"`
	Collection                 *collector.Result                               `json:"collection,omitempty"`
	Reports                    []string                                        `json:"reports"`
	Differences                []contracts.DifferenceItem                      `json:"-"`
	PriceDifferences           []contracts.PriceDifferenceItem                 `json:"-"`
	OptionPriceDifferences     []contracts.OptionPriceDifferenceItem           `json:"-"`
	Quality                    map[contracts.SnapshotKind]*quality.SuiteResult `json:"-"`
}

func (res *RunResult) warn(format string, args ...interface{}) {
	res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
}

func (res *RunResult) stage(s contracts.Stage, started time.Time, in, out int, err error) {
	sr := contracts.StageResult{
		Stage:       s,
		Success:     err == nil,
		InputCount:  in,
		OutputCount: out,
		DurationMS:  time.Since(started).Milliseconds(),
	}
	if err != nil {
		sr.Error = err.Error()
	}
	res.Stages = append(res.Stages, sr)
}

func (res *RunResult) skip(s contracts.Stage) {
	res.Stages = append(res.Stages, contracts.StageResult{Stage: s, Success: true, Skipped: true})
}

// Run executes the daily pipeline for cfg.Today.
// Notification and DB sink failures are reported as warnings; the snapshot,
// diff, quality and report-file stages are fatal.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	if err := snapshot.ValidateDateKey(cfg.Today); err != nil {
		return nil, err
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}

	result := &RunResult{
		RunID:         cfg.RunID,
		Today:         cfg.Today,
		DryRun:        cfg.DryRun,
		StartedAt:     time.Now(),
		Warnings:      []string{},
		Reports:       []string{},
		QualityScores: map[contracts.SnapshotKind]float64{},
		Quality:       map[contracts.SnapshotKind]*quality.SuiteResult{},
	}
	log := r.logger.WithField("run_id", cfg.RunID)

	yesterday, err := r.resolveYesterday(cfg)
	if err != nil {
		return result, err
	}
	result.Yesterday = yesterday

	log.WithFields(map[string]interface{}{
		"today":     cfg.Today,
		"yesterday": yesterday,
		"dry_run":   cfg.DryRun,
	}).Info("Starting pipeline run")

	// COLLECT
	if err := r.runCollect(ctx, result); err != nil {
		return r.finish(ctx, result, fmt.Errorf("collect: %w", err))
	}

	// DIFF
	if err := r.runDiff(result); err != nil {
		return r.finish(ctx, result, fmt.Errorf("diff: %w", err))
	}

	// NOTIFY
	r.runNotify(ctx, result, cfg.DryRun)

	// QUALITY
	if err := r.runQuality(ctx, result); err != nil {
		return r.finish(ctx, result, fmt.Errorf("quality: %w", err))
	}

	// REPORT
	if err := r.runReport(ctx, result); err != nil {
		return r.finish(ctx, result, fmt.Errorf("report: %w", err))
	}

	result.Success = true
	return r.finish(ctx, result, nil)
}

func (r *Runner) resolveYesterday(cfg RunConfig) (string, error) {
	if cfg.Yesterday != "" {
		if err := snapshot.ValidateDateKey(cfg.Yesterday); err != nil {
			return "", err
		}
		return cfg.Yesterday, nil
	}
	prev, ok, err := r.repo.PreviousDate(cfg.Today)
	if err != nil {
		return "", fmt.Errorf("find previous snapshot: %w", err)
	}
	if !ok {
		return "", nil
	}
	return prev, nil
}

func (r *Runner) runCollect(ctx context.Context, res *RunResult) error {
	if r.collector == nil {
		res.skip(contracts.StageCollect)
		return nil
	}
	started := time.Now()
	collected, err := r.collector.Collect(ctx, res.Today, res.Yesterday)
	if err != nil {
		res.stage(contracts.StageCollect, started, 0, 0, err)
		return err
	}
	res.Collection = collected
	for _, f := range collected.Fetches {
		if f.Error != nil {
			res.warn("%s/%s fell back to %s: %v", f.Vendor, f.Market, res.Yesterday, f.Error)
		}
	}
	res.stage(contracts.StageCollect, started, len(collected.Fetches), len(collected.LineItems), nil)
	return nil
}

func (r *Runner) runDiff(res *RunResult) error {
	started := time.Now()

	current, err := r.repo.LoadLineItems(res.Today)
	if err != nil {
		res.stage(contracts.StageDiff, started, 0, 0, err)
		return err
	}

	if res.Yesterday == "" || !r.repo.Exists(res.Yesterday, contracts.KindPrices) {
		res.warn("no previous prices snapshot before %s, diff skipped", res.Today)
		res.skip(contracts.StageDiff)
		return nil
	}

	previous, err := r.repo.LoadLineItems(res.Yesterday)
	if err != nil {
		res.stage(contracts.StageDiff, started, len(current), 0, err)
		return err
	}

	out, err := r.engine.Run(res.Today, current, previous)
	if err != nil {
		res.stage(contracts.StageDiff, started, len(current), 0, err)
		return err
	}

	res.Differences = out.Differences
	res.PriceDifferences = out.PriceDifferences
	res.OptionPriceDifferences = out.OptionPriceDifferences
	res.DifferenceCount = len(out.Differences)
	res.PriceDifferenceCount = len(out.PriceDifferences)
	res.OptionPriceDifferenceCount = len(out.OptionPriceDifferences)

	res.stage(contracts.StageDiff, started, len(current)+len(previous), len(out.Differences), nil)
	return nil
}

func (r *Runner) runNotify(ctx context.Context, res *RunResult, dryRun bool) {
	started := time.Now()
	res.Summary = notify.Summarize(res.Today, res.Differences)

	if dryRun || r.dispatcher == nil {
		res.skip(contracts.StageNotify)
		return
	}

	dispatched, err := r.dispatcher.Dispatch(ctx, res.Summary)
	res.Dispatch = dispatched
	if err != nil {
		res.warn("notification: %v", err)
	}
	res.stage(contracts.StageNotify, started, res.Summary.Total, len(dispatchedSent(dispatched)), err)
}

func dispatchedSent(d *notify.DispatchResult) []string {
	if d == nil {
		return nil
	}
	return d.Sent
}

// runQuality evaluates the prices and finance snapshots concurrently
func (r *Runner) runQuality(ctx context.Context, res *RunResult) error {
	started := time.Now()

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for _, kind := range []contracts.SnapshotKind{contracts.KindPrices, contracts.KindFinance} {
		kind := kind
		g.Go(func() error {
			suite := quality.NewSuite(kind, r.cfg.Quality(kind), r.logger)
			var suiteResult *quality.SuiteResult
			if kind == contracts.KindFinance {
				items, err := r.repo.LoadFinanceItems(res.Today)
				if err != nil {
					return fmt.Errorf("load %s: %w", kind, err)
				}
				suiteResult = suite.RunFinanceItems(items)
			} else {
				items, err := r.repo.LoadLineItems(res.Today)
				if err != nil {
					return fmt.Errorf("load %s: %w", kind, err)
				}
				suiteResult = suite.RunLineItems(items)
			}

			mu.Lock()
			defer mu.Unlock()
			res.Quality[kind] = suiteResult
			res.QualityScores[kind] = suiteResult.MinScore()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		res.stage(contracts.StageQuality, started, 0, 0, err)
		return err
	}

	rows, metrics := 0, 0
	for _, q := range res.Quality {
		rows += q.Rows
		metrics += len(q.Metrics)
	}
	res.stage(contracts.StageQuality, started, rows, metrics, nil)
	return nil
}

func (r *Runner) runReport(ctx context.Context, res *RunResult) error {
	started := time.Now()

	files, err := buildReports(res)
	if err != nil {
		res.stage(contracts.StageReport, started, 0, 0, err)
		return err
	}
	for _, f := range files {
		if err := r.repo.WriteReport(res.Today, f.name, f.data); err != nil {
			res.stage(contracts.StageReport, started, len(files), len(res.Reports), err)
			return err
		}
		res.Reports = append(res.Reports, f.name)
	}

	if r.qualityRepo != nil {
		for _, kind := range []contracts.SnapshotKind{contracts.KindPrices, contracts.KindFinance} {
			if err := r.qualityRepo.SaveSuite(ctx, res.RunID, res.Today, res.Quality[kind]); err != nil {
				res.warn("quality sink (%s): %v", kind, err)
			}
		}
	}

	res.stage(contracts.StageReport, started, len(files), len(res.Reports), nil)
	return nil
}

// finish stamps the duration, publishes the run and logs the outcome
func (r *Runner) finish(ctx context.Context, res *RunResult, runErr error) (*RunResult, error) {
	res.Duration = time.Since(res.StartedAt)

	if r.cache != nil {
		if err := r.cache.Set(ctx, redis.LatestRunKey(), res, redis.TTLDaily); err != nil {
			res.warn("publish latest run: %v", err)
		}
	}

	log := r.logger.WithFields(map[string]interface{}{
		"run_id":      res.RunID,
		"today":       res.Today,
		"differences": res.DifferenceCount,
		"warnings":    len(res.Warnings),
		"duration":    res.Duration.Seconds(),
	})
	if runErr != nil {
		log.WithError(runErr).Error("Pipeline run failed")
		return res, runErr
	}
	log.Info("Pipeline run completed successfully")
	return res, nil
}
