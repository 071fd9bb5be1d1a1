package contracts

import (
	"fmt"
	"strings"
)

// Column order of the persisted and tabular projections.
// ⭐ SSOT: CSV 헤더, Avro 스키마, 품질 테이블 컬럼 순서는 여기서만 정의
var (
	LineItemColumns = []string{
		"vendor", "market", "series",
		"model_range_code", "model_range_description",
		"model_code", "model_description",
		"line_code", "line_description",
		"currency", "net_list_price", "gross_list_price", "on_the_road_price",
		"engine_performance_kw", "engine_performance_hp",
		"line_option_codes",
		"recorded_at", "last_scraped_on",
	}

	FinanceLineItemColumns = []string{
		"vendor", "market", "series",
		"model_range_code", "model_range_description",
		"model_code", "model_description",
		"line_code", "line_description",
		"contract_type", "currency",
		"monthly_rental_glp", "monthly_rental_nlp",
		"term_of_agreement", "number_of_installments",
		"deposit", "total_deposit", "total_credit_amount", "total_payable_amount",
		"otr", "annual_mileage", "excess_mileage", "optional_final_payment",
		"apr", "fixed_roi", "sales_offer",
		"option_gross_list_price", "option_description", "option_type",
		"recorded_at", "last_scraped_on",
	}
)

func (id Identity) values() []interface{} {
	return []interface{}{
		string(id.Vendor), string(id.Market), id.Series,
		id.ModelRangeCode, id.ModelRangeDescription,
		id.ModelCode, id.ModelDescription,
		id.LineCode, id.LineDescription,
	}
}

// Values projects the item in LineItemColumns order.
// line_option_codes is returned as []LineItemOption.
func (li LineItem) Values() []interface{} {
	return append(li.Identity.values(),
		string(li.Currency), li.NetListPrice, li.GrossListPrice, li.OnTheRoadPrice,
		li.EnginePerformanceKW, li.EnginePerformanceHP,
		li.LineOptionCodes,
		li.RecordedAt, li.LastScrapedOn,
	)
}

// Values projects the item in FinanceLineItemColumns order
func (fi FinanceLineItem) Values() []interface{} {
	return append(fi.Identity.values(),
		fi.ContractType, string(fi.Currency),
		fi.MonthlyRentalGLP, fi.MonthlyRentalNLP,
		fi.TermOfAgreement, fi.NumberOfInstallments,
		fi.Deposit, fi.TotalDeposit, fi.TotalCreditAmount, fi.TotalPayableAmount,
		fi.OTR, fi.AnnualMileage, fi.ExcessMileage, fi.OptionalFinalPayment,
		fi.APR, fi.FixedROI, fi.SalesOffer,
		fi.OptionGrossListPrice, fi.OptionDescription, fi.OptionType,
		fi.RecordedAt, fi.LastScrapedOn,
	)
}

// Report column orders
var (
	DifferenceColumns = []string{
		"recorded_at", "vendor", "market", "series",
		"model_range_code", "model_range_description",
		"model_code", "model_description",
		"line_code", "line_description",
		"old_value", "new_value", "reason",
	}

	PriceDifferenceColumns = []string{
		"recorded_at", "vendor", "market", "series",
		"model_range_code", "model_range_description",
		"model_code", "model_description",
		"line_code", "line_description",
		"currency", "old_price", "new_price", "model_price_change",
		"perc_change", "option_code", "reason",
	}

	OptionPriceDifferenceColumns = []string{
		"recorded_at", "vendor", "market", "series",
		"model_range_code", "model_range_description",
		"model_code", "model_description",
		"line_code", "line_description",
		"currency", "option_description",
		"option_old_price", "option_new_price", "option_price_change",
		"perc_change", "reason",
	}

	QualityReportColumns = []string{
		"vendor", "market", "column_name", "is_numeric",
		"total_count", "null_count", "zero_count", "distinct_count", "non_distinct_count",
		"null_percentage", "zero_percentage", "special_char_percentage",
		"mean", "min", "max", "percentile_25", "percentile_50", "percentile_75", "std_dev",
		"general_types", "inconsistent_type",
	}

	QualityMetricColumns = []string{"vendor", "market", "metric_name", "insight", "insight_type", "score"}

	QualityRuleColumns = []string{"vendor", "market", "metric_name", "column_name", "insight", "insight_type", "score", "severity"}

	BusinessRuleColumns = []string{"vendor", "market", "rule_name", "column_name", "success_percentage"}
)

// Values projects the difference in DifferenceColumns order
func (d DifferenceItem) Values() []interface{} {
	out := append([]interface{}{d.RecordedAt}, d.Identity.values()...)
	return append(out, d.OldValue, d.NewValue, string(d.Reason))
}

// Values projects the item in PriceDifferenceColumns order
func (p PriceDifferenceItem) Values() []interface{} {
	out := append([]interface{}{p.RecordedAt}, p.Identity.values()...)
	return append(out,
		string(p.Currency), p.OldPrice, p.NewPrice, p.ModelPriceChange,
		p.PercChange, p.OptionCode, string(p.Reason),
	)
}

// Values projects the item in OptionPriceDifferenceColumns order
func (o OptionPriceDifferenceItem) Values() []interface{} {
	out := append([]interface{}{o.RecordedAt}, o.Identity.values()...)
	return append(out,
		string(o.Currency), o.OptionDescription,
		o.OptionOldPrice, o.OptionNewPrice, o.OptionPriceChange,
		o.PercChange, string(o.Reason),
	)
}

// Values projects the report in QualityReportColumns order.
// general_types is rendered as "Integer:3;String:1" in bucket order.
func (r QualityReport) Values() []interface{} {
	types := make([]string, 0, len(r.GeneralTypes))
	for _, t := range r.TypesPresent() {
		types = append(types, fmt.Sprintf("%s:%d", t, r.GeneralTypes[t]))
	}
	return []interface{}{
		string(r.Vendor), string(r.Market), r.ColumnName, r.IsNumeric,
		r.TotalCount, r.NullCount, r.ZeroCount, r.DistinctCount, r.NonDistinctCount,
		r.NullPercentage, r.ZeroPercentage, r.SpecialCharPercentage,
		r.Mean, r.Min, r.Max, r.Percentile25, r.Percentile50, r.Percentile75, r.StdDev,
		strings.Join(types, ";"), r.InconsistentType,
	}
}

// Values projects the metric in QualityMetricColumns order
func (m QualityMetric) Values() []interface{} {
	return []interface{}{string(m.Vendor), string(m.Market), m.MetricName, m.Insight, string(m.InsightType), m.Score}
}

// Values projects the failure in QualityRuleColumns order
func (q QualityRule) Values() []interface{} {
	return []interface{}{
		string(q.Vendor), string(q.Market), q.MetricName, q.ColumnName,
		q.Insight, string(q.InsightType), q.Score, string(q.Severity),
	}
}

// Values projects the report in BusinessRuleColumns order
func (b BusinessRuleReport) Values() []interface{} {
	return []interface{}{string(b.Vendor), string(b.Market), b.RuleName, b.ColumnName, b.SuccessPercentage}
}
