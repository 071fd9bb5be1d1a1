package quality

import (
	"fmt"
	"math"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/pipelineconfig"
)

// Metric names
const (
	MetricNullCheck        = "Null Check"
	MetricZeroCheck        = "Zero Check"
	MetricSpecialCharCheck = "Special Character Check"
	MetricEqualityCheck    = "Equality Check"
	MetricDataTypeCheck    = "Data Type Consistency Check"
	MetricRangeCheck       = "Range Check"
	MetricNonNegativeCheck = "Non-Negative Check"
	MetricStdDevCheck      = "Standard Deviation Check"
)

// DefaultEqualityPairs are used when the config lists none
func DefaultEqualityPairs(kind contracts.SnapshotKind) [][2]string {
	if kind == contracts.KindFinance {
		return [][2]string{
			{"model_range_description", "model_range_code"},
			{"monthly_rental_nlp", "monthly_rental_glp"},
			{"fixed_roi", "apr"},
		}
	}
	return [][2]string{
		{"model_range_description", "model_range_code"},
		{"model_description", "model_code"},
	}
}

// Evaluator turns column profiles into scored metrics and rule failures
type Evaluator struct {
	cfg       pipelineconfig.DataQuality
	kind      contracts.SnapshotKind
	overrides Overrides
}

// NewEvaluator creates an evaluator for one snapshot kind
func NewEvaluator(cfg pipelineconfig.DataQuality, kind contracts.SnapshotKind, overrides Overrides) *Evaluator {
	return &Evaluator{cfg: cfg, kind: kind, overrides: overrides}
}

// scorecard accumulates one check
type scorecard struct {
	vendor    contracts.Vendor
	market    contracts.Market
	metric    string
	dimension contracts.Dimension
	weight    float64
	score     float64
	checked   int
	failures  []contracts.QualityRule
}

func newScorecard(v contracts.Vendor, m contracts.Market, metric string, dim contracts.Dimension, checked int) *scorecard {
	sc := &scorecard{vendor: v, market: m, metric: metric, dimension: dim, score: 100, checked: checked}
	if checked > 0 {
		sc.weight = 100 / float64(checked)
	}
	return sc
}

func (sc *scorecard) fail(column string, severity contracts.Severity, format string, args ...interface{}) {
	sc.score -= sc.weight
	sc.failures = append(sc.failures, contracts.QualityRule{
		Vendor:      sc.vendor,
		Market:      sc.market,
		MetricName:  sc.metric,
		ColumnName:  column,
		Insight:     fmt.Sprintf(format, args...),
		InsightType: sc.dimension,
		Score:       round1(clamp(sc.weight)),
		Severity:    severity,
	})
}

func (sc *scorecard) metricRecord() contracts.QualityMetric {
	insight := fmt.Sprintf("All %d checked columns passed", sc.checked)
	if n := len(sc.failures); n > 0 {
		insight = fmt.Sprintf("%d of %d checked columns failed", n, sc.checked)
	}
	return contracts.QualityMetric{
		Vendor:      sc.vendor,
		Market:      sc.market,
		MetricName:  sc.metric,
		Insight:     insight,
		InsightType: sc.dimension,
		Score:       round1(clamp(sc.score)),
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Evaluate runs every check over the profiles of one (vendor, market)
func (e *Evaluator) Evaluate(v contracts.Vendor, m contracts.Market, reports []contracts.QualityReport) ([]contracts.QualityMetric, []contracts.QualityRule) {
	byColumn := make(map[string]contracts.QualityReport, len(reports))
	for _, r := range reports {
		byColumn[r.ColumnName] = r
	}

	cards := []*scorecard{}
	fr := e.cfg.AcceptableColumnsCheck.FieldRequirements
	cards = append(cards,
		e.completeness(v, m, reports, MetricNullCheck, fr.NullAllowable, "null",
			func(r contracts.QualityReport) float64 { return r.NullPercentage }),
		e.completeness(v, m, reports, MetricZeroCheck, fr.ZeroAllowable, "zero",
			func(r contracts.QualityReport) float64 { return r.ZeroPercentage }),
		e.completeness(v, m, reports, MetricSpecialCharCheck, fr.SpecialCharAllowable, "special character",
			func(r contracts.QualityReport) float64 { return r.SpecialCharPercentage }),
		e.equality(v, m, byColumn),
		e.dataTypes(v, m, byColumn),
	)
	if sc := e.ranges(v, m, reports); sc != nil {
		cards = append(cards, sc)
	}
	if !e.overrides.For(v, m).SkipNegativePrice {
		cards = append(cards, e.nonNegative(v, m, reports))
	}
	if sc := e.stdDev(v, m, byColumn); sc != nil {
		cards = append(cards, sc)
	}

	metrics := make([]contracts.QualityMetric, 0, len(cards))
	var rules []contracts.QualityRule
	for _, sc := range cards {
		metrics = append(metrics, sc.metricRecord())
		rules = append(rules, sc.failures...)
	}
	return metrics, rules
}

// completeness: columns off the allow-list must have a 0 share
func (e *Evaluator) completeness(v contracts.Vendor, m contracts.Market, reports []contracts.QualityReport,
	metric string, allow []string, what string, share func(contracts.QualityReport) float64) *scorecard {
	allowed := toSet(allow)
	var checked []contracts.QualityReport
	for _, r := range reports {
		if !allowed[r.ColumnName] {
			checked = append(checked, r)
		}
	}

	sc := newScorecard(v, m, metric, contracts.DimensionCompleteness, len(checked))
	for _, r := range checked {
		if p := share(r); p > 0 {
			sc.fail(r.ColumnName, contracts.SeverityHigh, "%s has %.2f%% %s values", r.ColumnName, p, what)
		}
	}
	return sc
}

// equality: paired columns must have the same distinct count
func (e *Evaluator) equality(v contracts.Vendor, m contracts.Market, byColumn map[string]contracts.QualityReport) *scorecard {
	pairs := e.cfg.EqualityCheck.Pairs
	if len(pairs) == 0 {
		pairs = DefaultEqualityPairs(e.kind)
	}

	sc := newScorecard(v, m, MetricEqualityCheck, contracts.DimensionConsistency, len(pairs))
	for _, p := range pairs {
		name := p[0] + " / " + p[1]
		a, okA := byColumn[p[0]]
		b, okB := byColumn[p[1]]
		switch {
		case !okA || !okB:
			sc.fail(name, contracts.SeverityHigh, "column pair %s is missing", name)
		case a.DistinctCount != b.DistinctCount:
			sc.fail(name, contracts.SeverityMedium, "%s has %d distinct values, %s has %d",
				p[0], a.DistinctCount, p[1], b.DistinctCount)
		}
	}
	return sc
}

// dataTypes: required columns may only carry their allowed general types
func (e *Evaluator) dataTypes(v contracts.Vendor, m contracts.Market, byColumn map[string]contracts.QualityReport) *scorecard {
	dtc := e.cfg.CheckDataTypeConsistency
	excluded := toSet(dtc.DataTypeExclusion)

	var columns []string
	for _, c := range sortedKeys(dtc.DataTypeRequirements) {
		if !excluded[c] {
			columns = append(columns, c)
		}
	}

	sc := newScorecard(v, m, MetricDataTypeCheck, contracts.DimensionConsistency, len(columns))
	for _, c := range columns {
		r, ok := byColumn[c]
		if !ok {
			sc.fail(c, contracts.SeverityHigh, "%s is missing", c)
			continue
		}
		allowed := allowedTypes(dtc.DataTypeRequirements[c])
		for _, t := range r.TypesPresent() {
			if !allowed[t] {
				sc.fail(c, contracts.SeverityHigh, "%s requires %s but contains %s values",
					c, dtc.DataTypeRequirements[c], t)
				break
			}
		}
	}
	return sc
}

func allowedTypes(requirement string) map[contracts.GeneralType]bool {
	if requirement == pipelineconfig.RequireString {
		return map[contracts.GeneralType]bool{contracts.TypeString: true}
	}
	return map[contracts.GeneralType]bool{contracts.TypeInteger: true, contracts.TypeFloat: true}
}

// ranges: min and max of each configured column fall in the widened band.
// nil when the vendor has no range table.
func (e *Evaluator) ranges(v contracts.Vendor, m contracts.Market, reports []contracts.QualityReport) *scorecard {
	rc := e.cfg.RangeAndNonNegativeCheck
	table, ok := rc.Vendors[v.Key()]
	if !ok || len(table) == 0 {
		return nil
	}
	excluded := toSet(rc.ExcludedColumns)

	var checked []contracts.QualityReport
	for _, r := range reports {
		if _, has := table[r.ColumnName]; has && r.IsNumeric && !excluded[r.ColumnName] {
			checked = append(checked, r)
		}
	}

	sc := newScorecard(v, m, MetricRangeCheck, contracts.DimensionValidity, len(checked))
	for _, r := range checked {
		band := table[r.ColumnName]
		lo := band.LL * (1 - rc.Tolerance/100)
		hi := band.UL * (1 + rc.Tolerance/100)
		if r.Min < lo || r.Max > hi {
			sc.fail(r.ColumnName, contracts.SeverityMedium, "%s spans [%g, %g], expected within [%g, %g]",
				r.ColumnName, r.Min, r.Max, lo, hi)
		}
	}
	return sc
}

// nonNegative: numeric columns without a range table must have min > 0
func (e *Evaluator) nonNegative(v contracts.Vendor, m contracts.Market, reports []contracts.QualityReport) *scorecard {
	rc := e.cfg.RangeAndNonNegativeCheck
	table := rc.Vendors[v.Key()]
	excluded := toSet(rc.ExcludedColumns)

	var checked []contracts.QualityReport
	for _, r := range reports {
		if _, has := table[r.ColumnName]; !has && r.IsNumeric && !excluded[r.ColumnName] {
			checked = append(checked, r)
		}
	}

	sc := newScorecard(v, m, MetricNonNegativeCheck, contracts.DimensionValidity, len(checked))
	for _, r := range checked {
		if r.Min <= 0 && r.TotalCount > r.NullCount+r.ZeroCount {
			sc.fail(r.ColumnName, contracts.SeverityHigh, "%s has a minimum of %g", r.ColumnName, r.Min)
		}
	}
	return sc
}

// stdDev: std-dev within ±tolerance% of the expectation; an expected 0 must be exact.
// nil when the vendor has no expectations.
func (e *Evaluator) stdDev(v contracts.Vendor, m contracts.Market, byColumn map[string]contracts.QualityReport) *scorecard {
	sd := e.cfg.StandardDevCheck
	expected, ok := sd.Vendors[v.Key()]
	if !ok || len(expected) == 0 {
		return nil
	}
	excluded := toSet(sd.ExcludedColumns)

	var columns []string
	for _, c := range sortedKeys(expected) {
		if _, has := byColumn[c]; has && !excluded[c] {
			columns = append(columns, c)
		}
	}

	sc := newScorecard(v, m, MetricStdDevCheck, contracts.DimensionAccuracy, len(columns))
	for _, c := range columns {
		want := expected[c]
		got := byColumn[c].StdDev
		if want == 0 {
			if got != 0 {
				sc.fail(c, contracts.SeverityHigh, "%s std dev is %g, expected exactly 0", c, got)
			}
			continue
		}
		if math.Abs(got-want) > want*sd.Tolerance/100 {
			sc.fail(c, contracts.SeverityMedium, "%s std dev is %g, expected %g ±%g%%", c, got, want, sd.Tolerance)
		}
	}
	return sc
}

func toSet(xs []string) map[string]bool {
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}
