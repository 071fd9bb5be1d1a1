package quality

import (
	"sort"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/pkg/logger"
)

// SuiteResult holds every quality table of one snapshot kind
type SuiteResult struct {
	Kind          contracts.SnapshotKind         `json:"kind"`
	Rows          int                            `json:"rows"`
	Reports       []contracts.QualityReport      `json:"reports"`
	Metrics       []contracts.QualityMetric      `json:"metrics"`
	Rules         []contracts.QualityRule        `json:"rules"`
	BusinessRules []contracts.BusinessRuleReport `json:"business_rules"`
}

// Suite runs the profiler, the business rules and the evaluator per (vendor, market)
// ⭐ SSOT: 품질 리포트 생성은 Suite.Run을 통해서만
type Suite struct {
	kind      contracts.SnapshotKind
	cfg       pipelineconfig.DataQuality
	rules     *RuleEvaluator
	evaluator *Evaluator
	logger    *logger.Logger
}

// NewSuite creates the suite of one snapshot kind with the default overrides
func NewSuite(kind contracts.SnapshotKind, cfg pipelineconfig.DataQuality, log *logger.Logger) *Suite {
	return NewSuiteWithOverrides(kind, cfg, DefaultOverrides(), log)
}

// NewSuiteWithOverrides creates a suite with a custom exemption table
func NewSuiteWithOverrides(kind contracts.SnapshotKind, cfg pipelineconfig.DataQuality, overrides Overrides, log *logger.Logger) *Suite {
	log = log.WithComponent("quality").WithField("kind", kind)

	catalogue := PriceRules(cfg, overrides)
	if kind == contracts.KindFinance {
		catalogue = FinanceRules(cfg)
	}

	return &Suite{
		kind:      kind,
		cfg:       cfg,
		rules:     NewRuleEvaluator(catalogue, log),
		evaluator: NewEvaluator(cfg, kind, overrides),
		logger:    log,
	}
}

// Run evaluates the table. Numeric columns are coerced first (unparseable → NaN).
func (s *Suite) Run(t *Table) *SuiteResult {
	t.Coerce(s.cfg.NumericColumns)

	result := &SuiteResult{
		Kind:          s.kind,
		Rows:          t.Len(),
		Reports:       []contracts.QualityReport{},
		Metrics:       []contracts.QualityMetric{},
		Rules:         []contracts.QualityRule{},
		BusinessRules: []contracts.BusinessRuleReport{},
	}

	for _, g := range t.GroupByVendorMarket() {
		reports := Profile(g.Table, g.Vendor, g.Market, s.cfg.NumericColumns)
		metrics, failures := s.evaluator.Evaluate(g.Vendor, g.Market, reports)

		result.Reports = append(result.Reports, reports...)
		result.Metrics = append(result.Metrics, metrics...)
		result.Rules = append(result.Rules, failures...)
		result.BusinessRules = append(result.BusinessRules, s.rules.Evaluate(g.Table, g.Vendor, g.Market)...)
	}

	s.logger.WithFields(map[string]interface{}{
		"rows":           result.Rows,
		"metrics":        len(result.Metrics),
		"failures":       len(result.Rules),
		"business_rules": len(result.BusinessRules),
	}).Info("Quality suite completed")

	return result
}

// RunLineItems evaluates a prices snapshot
func (s *Suite) RunLineItems(items []contracts.LineItem) *SuiteResult {
	return s.Run(FromLineItems(items))
}

// RunFinanceItems evaluates a finance snapshot
func (s *Suite) RunFinanceItems(items []contracts.FinanceLineItem) *SuiteResult {
	return s.Run(FromFinanceItems(items))
}

// MinScore returns the lowest metric score, 100 when there are none
func (r *SuiteResult) MinScore() float64 {
	minScore := 100.0
	for _, m := range r.Metrics {
		if m.Score < minScore {
			minScore = m.Score
		}
	}
	return minScore
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
