package quality

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/pkg/logger"
)

// BusinessRule is one row-level predicate over a (vendor, market) table
type BusinessRule struct {
	Name    string
	Columns []string
	// Applies reports whether the rule is meaningful for the pair (nil = always)
	Applies func(v contracts.Vendor, m contracts.Market) bool
	// Violations counts offending rows; the table carries every column in Columns
	Violations func(t *Table, v contracts.Vendor, m contracts.Market) int
}

// rowRule builds a rule over numeric columns from a per-row pass predicate.
// Rows with a NaN in any input are violations.
func rowRule(name string, columns []string, pass func(t *Table, row int) bool) BusinessRule {
	return BusinessRule{
		Name:    name,
		Columns: columns,
		Violations: func(t *Table, _ contracts.Vendor, _ contracts.Market) int {
			n := 0
			for r := 0; r < t.Len(); r++ {
				if hasNaN(t, r, columns) || !pass(t, r) {
					n++
				}
			}
			return n
		},
	}
}

func hasNaN(t *Table, row int, columns []string) bool {
	for _, c := range columns {
		if math.IsNaN(t.Float(row, c)) {
			return true
		}
	}
	return false
}

// duplicateRule counts rows repeating an earlier row on columns (all when empty)
func duplicateRule(name string, columns []string) BusinessRule {
	return BusinessRule{
		Name:    name,
		Columns: columns,
		Violations: func(t *Table, _ contracts.Vendor, _ contracts.Market) int {
			seen := make(map[string]struct{}, t.Len())
			n := 0
			for r := 0; r < t.Len(); r++ {
				k := t.RowKey(r, columns...)
				if _, dup := seen[k]; dup {
					n++
					continue
				}
				seen[k] = struct{}{}
			}
			return n
		},
	}
}

func seriesRule(dq pipelineconfig.DataQuality) BusinessRule {
	return BusinessRule{
		Name:    "Vendor Series Match",
		Columns: []string{"series"},
		Applies: func(v contracts.Vendor, _ contracts.Market) bool {
			_, ok := dq.SeriesWhitelist(v)
			return ok
		},
		Violations: func(t *Table, v contracts.Vendor, _ contracts.Market) int {
			series, _ := dq.SeriesWhitelist(v)
			allowed := make(map[string]bool, len(series))
			for _, s := range series {
				allowed[s] = true
			}
			n := 0
			for r := 0; r < t.Len(); r++ {
				if !allowed[t.String(r, "series")] {
					n++
				}
			}
			return n
		},
	}
}

func currencyRule(dq pipelineconfig.DataQuality) BusinessRule {
	return BusinessRule{
		Name:    "Currency Market Match",
		Columns: []string{"currency"},
		Applies: func(_ contracts.Vendor, m contracts.Market) bool {
			_, ok := dq.CurrencyFor(m)
			return ok
		},
		Violations: func(t *Table, _ contracts.Vendor, m contracts.Market) int {
			want, _ := dq.CurrencyFor(m)
			n := 0
			for r := 0; r < t.Len(); r++ {
				if t.String(r, "currency") != want {
					n++
				}
			}
			return n
		},
	}
}

// FinanceRules is the finance catalogue
func FinanceRules(dq pipelineconfig.DataQuality) []BusinessRule {
	return []BusinessRule{
		rowRule("GLP >= NLP",
			[]string{"monthly_rental_glp", "monthly_rental_nlp"},
			func(t *Table, r int) bool {
				return t.Float(r, "monthly_rental_glp") >= t.Float(r, "monthly_rental_nlp")
			}),
		rowRule("Total Payable > OTR",
			[]string{"total_payable_amount", "otr"},
			func(t *Table, r int) bool {
				return t.Float(r, "total_payable_amount") > t.Float(r, "otr")
			}),
		duplicateRule("No Duplicate Records", nil),
		duplicateRule("Unique Car Line",
			[]string{"series", "model_range_code", "model_code", "line_code", "contract_type"}),
		rowRule("Total Deposit >= Deposit",
			[]string{"total_deposit", "deposit"},
			func(t *Table, r int) bool {
				return t.Float(r, "total_deposit") >= t.Float(r, "deposit")
			}),
		rowRule("Total Deposit + Total Credit = OTR",
			[]string{"total_deposit", "total_credit_amount", "otr"},
			func(t *Table, r int) bool {
				sum := decimal.NewFromFloat(t.Float(r, "total_deposit")).
					Add(decimal.NewFromFloat(t.Float(r, "total_credit_amount")))
				return sum.Equal(decimal.NewFromFloat(t.Float(r, "otr")))
			}),
		rowRule("Optional Final Payment < Total Payable",
			[]string{"optional_final_payment", "total_payable_amount"},
			func(t *Table, r int) bool {
				return t.Float(r, "optional_final_payment") < t.Float(r, "total_payable_amount")
			}),
		rowRule("Optional Final Payment < OTR",
			[]string{"optional_final_payment", "otr"},
			func(t *Table, r int) bool {
				return t.Float(r, "optional_final_payment") < t.Float(r, "otr")
			}),
		rowRule("Fixed ROI <= APR",
			[]string{"fixed_roi", "apr", "deposit"},
			func(t *Table, r int) bool {
				// 보증금이 있는 계약은 항상 통과 (기존 동작 유지)
				if t.Float(r, "deposit") != 0 {
					return true
				}
				return t.Float(r, "fixed_roi") < t.Float(r, "apr")
			}),
		seriesRule(dq),
		currencyRule(dq),
	}
}

// PriceRules is the prices catalogue. Exemptions come from overrides.
func PriceRules(dq pipelineconfig.DataQuality, overrides Overrides) []BusinessRule {
	return []BusinessRule{
		rowRule("GLP >= NLP",
			[]string{"gross_list_price", "net_list_price"},
			func(t *Table, r int) bool {
				return t.Float(r, "gross_list_price") >= t.Float(r, "net_list_price")
			}),
		duplicateRule("No Duplicate Records", nil),
		duplicateRule("Unique Car Line",
			[]string{"series", "model_range_code", "model_code", "line_code"}),
		{
			Name:    "Non-Negative Option Price",
			Columns: []string{"line_option_codes"},
			Applies: func(v contracts.Vendor, m contracts.Market) bool {
				return !overrides.For(v, m).SkipNegativePrice
			},
			Violations: countOptionRows(func(o contracts.LineItemOption) bool {
				return o.NetListPrice < 0 || o.GrossListPrice < 0
			}),
		},
		{
			Name:    "Included Option Priced At Zero",
			Columns: []string{"line_option_codes"},
			Applies: func(v contracts.Vendor, m contracts.Market) bool {
				return !overrides.For(v, m).SkipIncludedPrice
			},
			Violations: countOptionRows(func(o contracts.LineItemOption) bool {
				return o.Included && (o.NetListPrice != 0 || o.GrossListPrice != 0)
			}),
		},
		seriesRule(dq),
		currencyRule(dq),
	}
}

// countOptionRows counts rows with at least one offending option
func countOptionRows(bad func(contracts.LineItemOption) bool) func(t *Table, _ contracts.Vendor, _ contracts.Market) int {
	return func(t *Table, _ contracts.Vendor, _ contracts.Market) int {
		n := 0
		for r := 0; r < t.Len(); r++ {
			for _, o := range t.Options(r, "line_option_codes") {
				if bad(o) {
					n++
					break
				}
			}
		}
		return n
	}
}

// RuleEvaluator runs a rule catalogue over (vendor, market) tables
type RuleEvaluator struct {
	rules  []BusinessRule
	logger *logger.Logger
}

// NewRuleEvaluator creates an evaluator for a catalogue
func NewRuleEvaluator(rules []BusinessRule, log *logger.Logger) *RuleEvaluator {
	return &RuleEvaluator{rules: rules, logger: log}
}

// Evaluate returns one report per applicable rule. Rules whose columns are
// missing are skipped with a warning.
func (e *RuleEvaluator) Evaluate(t *Table, v contracts.Vendor, m contracts.Market) []contracts.BusinessRuleReport {
	out := make([]contracts.BusinessRuleReport, 0, len(e.rules))
	for _, rule := range e.rules {
		if missing := t.Missing(rule.Columns...); len(missing) > 0 {
			e.logger.WithFields(map[string]interface{}{
				"rule":            rule.Name,
				"missing_columns": missing,
				"vendor":          v,
				"market":          m,
			}).Warn("Business rule skipped, columns missing")
			continue
		}
		if rule.Applies != nil && !rule.Applies(v, m) {
			continue
		}

		columns := rule.Columns
		if len(columns) == 0 {
			columns = []string{"*"}
		}
		out = append(out, contracts.BusinessRuleReport{
			Vendor:            v,
			Market:            m,
			RuleName:          rule.Name,
			ColumnName:        strings.Join(columns, ", "),
			SuccessPercentage: successPercentage(t.Len(), rule.Violations(t, v, m)),
		})
	}
	return out
}

// successPercentage is (total-violations)/total*100, 0 for an empty table
func successPercentage(total, violations int) float64 {
	if total == 0 {
		return 0
	}
	if violations > total {
		violations = total
	}
	return float64(total-violations) / float64(total) * 100
}
