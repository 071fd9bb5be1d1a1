package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wonny/carwatch/internal/collector"
	"github.com/wonny/carwatch/internal/notify"
	"github.com/wonny/carwatch/internal/pipeline"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/internal/quality"
	"github.com/wonny/carwatch/internal/snapshot"
	"github.com/wonny/carwatch/pkg/config"
	"github.com/wonny/carwatch/pkg/database"
	"github.com/wonny/carwatch/pkg/httputil"
	"github.com/wonny/carwatch/pkg/logger"
	"github.com/wonny/carwatch/pkg/redis"
)

const redisPrefix = "carwatch"

// app holds the process-wide dependencies of one command
type app struct {
	cfg      *config.Config
	pipeline *pipelineconfig.Config
	hash     string
	log      *logger.Logger
	repo     *snapshot.Repository

	db    *database.DB
	redis *redis.Client
	nats  *nats.Conn
}

// loadApp reads both configuration layers and opens the snapshot repository
func loadApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if pipelineFile != "" {
		cfg.PipelineFile = pipelineFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger and trace propagation
	log := logger.New(cfg)
	notify.InstallTracePropagator()

	// 3. Load pipeline config
	pipe, _, err := pipelineconfig.Load(cfg.PipelineFile)
	if err != nil {
		return nil, fmt.Errorf("load pipeline config: %w", err)
	}
	hash, err := pipelineconfig.Hash(pipe)
	if err != nil {
		return nil, fmt.Errorf("hash pipeline config: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"pipeline": cfg.PipelineFile,
		"hash":     hash,
	}).Debug("Configuration loaded")

	return &app{
		cfg:      cfg,
		pipeline: pipe,
		hash:     hash,
		log:      log,
		repo:     snapshot.NewRepository(pipe.Output, log),
	}, nil
}

// connect opens the optional backends (PostgreSQL, Redis, NATS)
func (a *app) connect(ctx context.Context) error {
	if a.cfg.Database.Enabled {
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Exec(ctx, quality.Schema...); err != nil {
			db.Close()
			return fmt.Errorf("ensure quality schema: %w", err)
		}
		a.db = db
		a.log.Info("Connected to database")
	}

	rdb, err := redis.New(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rdb

	if a.cfg.NATS.Enabled {
		nc, err := nats.Connect(a.cfg.NATS.URL, nats.Name("carwatch"), nats.Timeout(5*time.Second))
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		a.nats = nc
	}

	return nil
}

// Close releases every backend that was opened
func (a *app) Close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.db.Close()
}

// dispatcher builds the enabled notification transports
func (a *app) dispatcher() *notify.Dispatcher {
	var notifiers []notify.Notifier

	if a.cfg.Webhook.Enabled {
		client := httputil.New(a.log).WithRateLimit(a.cfg.Webhook.RatePerMinute)
		notifiers = append(notifiers, notify.NewWebhookNotifier(a.cfg.Webhook.URL, client))
	}
	if a.nats != nil {
		notifiers = append(notifiers, notify.NewNATSNotifier(a.nats, a.cfg.NATS.Subject))
	}
	if a.cfg.Email.Enabled {
		notifiers = append(notifiers, notify.NewEmailNotifier(a.cfg.Email))
	}

	var markers notify.MarkerStore
	if a.redis != nil && a.redis.Enabled() {
		markers = redis.NewMarker(a.redis, redisPrefix)
	}
	return notify.NewDispatcher(markers, a.log, notifiers...)
}

// collector returns the file-based collector, nil when no inbox is configured
func (a *app) collector(inbox string) *collector.Collector {
	if inbox == "" {
		inbox = a.pipeline.Collector.Inbox
	}
	if inbox == "" {
		return nil
	}
	sources := collector.FileSources(inbox, a.pipeline.EnabledPairs())
	return collector.NewCollector(sources, a.repo, a.pipeline, a.log)
}

// runner wires the pipeline with every enabled backend
func (a *app) runner(inbox string) *pipeline.Runner {
	r := pipeline.NewRunner(a.repo, a.pipeline, a.dispatcher(), a.log)

	if c := a.collector(inbox); c != nil {
		r.WithCollector(c)
	}
	if a.db != nil {
		r.WithQualityRepository(quality.NewRepository(a.db.Pool))
	}
	if a.redis != nil && a.redis.Enabled() {
		r.WithCache(redis.NewCache(a.redis, redisPrefix))
	}
	return r
}

// todayKey returns date when set, otherwise today in TIMEZONE
func (a *app) todayKey(date string) string {
	if date != "" {
		return date
	}
	today, _ := pipeline.DateKeys(time.Now(), a.cfg.Location())
	return today
}
