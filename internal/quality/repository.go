package quality

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/carwatch/internal/contracts"
)

// Schema creates the report tables
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS quality`,
	`CREATE TABLE IF NOT EXISTS quality.column_reports (
		run_id TEXT NOT NULL,
		snapshot_date TEXT NOT NULL,
		kind TEXT NOT NULL,
		vendor TEXT NOT NULL,
		market TEXT NOT NULL,
		column_name TEXT NOT NULL,
		is_numeric BOOLEAN NOT NULL,
		total_count INTEGER NOT NULL,
		null_count INTEGER NOT NULL,
		zero_count INTEGER NOT NULL,
		distinct_count INTEGER NOT NULL,
		non_distinct_count INTEGER NOT NULL,
		null_percentage DOUBLE PRECISION NOT NULL,
		zero_percentage DOUBLE PRECISION NOT NULL,
		special_char_percentage DOUBLE PRECISION NOT NULL,
		mean DOUBLE PRECISION NOT NULL,
		min DOUBLE PRECISION NOT NULL,
		max DOUBLE PRECISION NOT NULL,
		percentile_25 DOUBLE PRECISION NOT NULL,
		percentile_50 DOUBLE PRECISION NOT NULL,
		percentile_75 DOUBLE PRECISION NOT NULL,
		std_dev DOUBLE PRECISION NOT NULL,
		general_types JSONB NOT NULL,
		inconsistent_type BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS quality.metrics (
		run_id TEXT NOT NULL,
		snapshot_date TEXT NOT NULL,
		kind TEXT NOT NULL,
		vendor TEXT NOT NULL,
		market TEXT NOT NULL,
		metric_name TEXT NOT NULL,
		insight TEXT NOT NULL,
		insight_type TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS quality.rule_failures (
		run_id TEXT NOT NULL,
		snapshot_date TEXT NOT NULL,
		kind TEXT NOT NULL,
		vendor TEXT NOT NULL,
		market TEXT NOT NULL,
		metric_name TEXT NOT NULL,
		column_name TEXT NOT NULL,
		insight TEXT NOT NULL,
		insight_type TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		severity TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS quality.business_rules (
		run_id TEXT NOT NULL,
		snapshot_date TEXT NOT NULL,
		kind TEXT NOT NULL,
		vendor TEXT NOT NULL,
		market TEXT NOT NULL,
		rule_name TEXT NOT NULL,
		column_name TEXT NOT NULL,
		success_percentage DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quality_metrics_date ON quality.metrics (snapshot_date, kind)`,
}

var reportTables = []string{
	"quality.column_reports",
	"quality.metrics",
	"quality.rule_failures",
	"quality.business_rules",
}

// Repository persists quality suites to PostgreSQL
// ⭐ SSOT: 품질 리포트 DB 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSuite replaces the (date, kind) reports with result in one transaction
func (r *Repository) SaveSuite(ctx context.Context, runID, date string, result *SuiteResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin quality tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, table := range reportTables {
		batch.Queue(`DELETE FROM `+table+` WHERE snapshot_date = $1 AND kind = $2`, date, result.Kind)
	}

	for _, rep := range result.Reports {
		types, err := json.Marshal(rep.GeneralTypes)
		if err != nil {
			return fmt.Errorf("marshal general types: %w", err)
		}
		batch.Queue(`
			INSERT INTO quality.column_reports (
				run_id, snapshot_date, kind, vendor, market, column_name, is_numeric,
				total_count, null_count, zero_count, distinct_count, non_distinct_count,
				null_percentage, zero_percentage, special_char_percentage,
				mean, min, max, percentile_25, percentile_50, percentile_75, std_dev,
				general_types, inconsistent_type
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
				$16, $17, $18, $19, $20, $21, $22, $23, $24)`,
			runID, date, result.Kind, rep.Vendor, rep.Market, rep.ColumnName, rep.IsNumeric,
			rep.TotalCount, rep.NullCount, rep.ZeroCount, rep.DistinctCount, rep.NonDistinctCount,
			rep.NullPercentage, rep.ZeroPercentage, rep.SpecialCharPercentage,
			rep.Mean, rep.Min, rep.Max, rep.Percentile25, rep.Percentile50, rep.Percentile75, rep.StdDev,
			string(types), rep.InconsistentType,
		)
	}

	for _, m := range result.Metrics {
		batch.Queue(`
			INSERT INTO quality.metrics (
				run_id, snapshot_date, kind, vendor, market, metric_name, insight, insight_type, score
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			runID, date, result.Kind, m.Vendor, m.Market, m.MetricName, m.Insight, m.InsightType, m.Score,
		)
	}

	for _, f := range result.Rules {
		batch.Queue(`
			INSERT INTO quality.rule_failures (
				run_id, snapshot_date, kind, vendor, market, metric_name, column_name,
				insight, insight_type, score, severity
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			runID, date, result.Kind, f.Vendor, f.Market, f.MetricName, f.ColumnName,
			f.Insight, f.InsightType, f.Score, f.Severity,
		)
	}

	for _, b := range result.BusinessRules {
		batch.Queue(`
			INSERT INTO quality.business_rules (
				run_id, snapshot_date, kind, vendor, market, rule_name, column_name, success_percentage
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			runID, date, result.Kind, b.Vendor, b.Market, b.RuleName, b.ColumnName, b.SuccessPercentage,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save quality suite: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit quality suite: %w", err)
	}
	return nil
}

// ListMetrics returns the metrics of a date and kind ordered by vendor, market and metric
func (r *Repository) ListMetrics(ctx context.Context, date string, kind contracts.SnapshotKind) ([]contracts.QualityMetric, error) {
	query := `
		SELECT vendor, market, metric_name, insight, insight_type, score
		FROM quality.metrics
		WHERE snapshot_date = $1 AND kind = $2
		ORDER BY vendor, market, metric_name
	`

	rows, err := r.pool.Query(ctx, query, date, kind)
	if err != nil {
		return nil, fmt.Errorf("list quality metrics: %w", err)
	}
	defer rows.Close()

	var out []contracts.QualityMetric
	for rows.Next() {
		var m contracts.QualityMetric
		if err := rows.Scan(&m.Vendor, &m.Market, &m.MetricName, &m.Insight, &m.InsightType, &m.Score); err != nil {
			return nil, fmt.Errorf("scan quality metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
