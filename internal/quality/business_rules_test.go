package quality

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/pkg/logger"
)

func evaluateFinance(t *testing.T, items ...contracts.FinanceLineItem) []contracts.BusinessRuleReport {
	t.Helper()
	e := NewRuleEvaluator(FinanceRules(ruleConfig()), logger.NewNop())
	v, m := items[0].Vendor, items[0].Market
	return e.Evaluate(FromFinanceItems(items), v, m)
}

func evaluatePrices(t *testing.T, items ...contracts.LineItem) []contracts.BusinessRuleReport {
	t.Helper()
	e := NewRuleEvaluator(PriceRules(ruleConfig(), DefaultOverrides()), logger.NewNop())
	v, m := items[0].Vendor, items[0].Market
	return e.Evaluate(FromLineItems(items), v, m)
}

func TestFinanceRulesAllPass(t *testing.T) {
	reports := evaluateFinance(t,
		financeItem(contracts.VendorBMW, contracts.MarketUK, "A"),
		financeItem(contracts.VendorBMW, contracts.MarketUK, "B"),
	)

	require.Len(t, reports, 11)
	for _, r := range reports {
		assert.Equal(t, 100.0, r.SuccessPercentage, r.RuleName)
		assert.Equal(t, contracts.VendorBMW, r.Vendor)
		assert.Equal(t, contracts.MarketUK, r.Market)
	}

	dup, ok := reportByRule(reports, "No Duplicate Records")
	require.True(t, ok)
	assert.Equal(t, "*", dup.ColumnName)

	glp, ok := reportByRule(reports, "GLP >= NLP")
	require.True(t, ok)
	assert.Equal(t, "monthly_rental_glp, monthly_rental_nlp", glp.ColumnName)
}

func TestFinanceRuleViolations(t *testing.T) {
	tests := []struct {
		name   string
		rule   string
		mutate func(*contracts.FinanceLineItem)
	}{
		{"glp below nlp", "GLP >= NLP", func(f *contracts.FinanceLineItem) { f.MonthlyRentalGLP = 300 }},
		{"payable not above otr", "Total Payable > OTR", func(f *contracts.FinanceLineItem) { f.TotalPayableAmount = 25000 }},
		{"total deposit below deposit", "Total Deposit >= Deposit", func(f *contracts.FinanceLineItem) { f.TotalDeposit = 4000; f.TotalCreditAmount = 21000 }},
		{"deposit and credit do not add up", "Total Deposit + Total Credit = OTR", func(f *contracts.FinanceLineItem) { f.TotalCreditAmount = 19999.99 }},
		{"final payment above payable", "Optional Final Payment < Total Payable", func(f *contracts.FinanceLineItem) { f.OptionalFinalPayment = 30000 }},
		{"final payment above otr", "Optional Final Payment < OTR", func(f *contracts.FinanceLineItem) { f.OptionalFinalPayment = 26000 }},
		{"roi above apr without deposit", "Fixed ROI <= APR", func(f *contracts.FinanceLineItem) { f.Deposit = 0; f.FixedROI = 7 }},
		{"series outside whitelist", "Vendor Series Match", func(f *contracts.FinanceLineItem) { f.Series = "X7" }},
		{"currency mismatch", "Currency Market Match", func(f *contracts.FinanceLineItem) { f.Currency = contracts.CurrencyEUR }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := financeItem(contracts.VendorBMW, contracts.MarketUK, "B")
			tt.mutate(&bad)

			reports := evaluateFinance(t, financeItem(contracts.VendorBMW, contracts.MarketUK, "A"), bad)

			r, ok := reportByRule(reports, tt.rule)
			require.True(t, ok)
			assert.Equal(t, 50.0, r.SuccessPercentage)
		})
	}
}

func TestFinanceDepositSumIsExact(t *testing.T) {
	item := financeItem(contracts.VendorBMW, contracts.MarketUK, "A")
	item.TotalDeposit = 0.1
	item.TotalCreditAmount = 0.2
	item.OTR = 0.3
	item.Deposit = 0.1
	item.TotalPayableAmount = 1
	item.OptionalFinalPayment = 0.01

	r, ok := reportByRule(evaluateFinance(t, item), "Total Deposit + Total Credit = OTR")
	require.True(t, ok)
	assert.Equal(t, 100.0, r.SuccessPercentage)
}

func TestFinanceFixedROIPassesWithDeposit(t *testing.T) {
	item := financeItem(contracts.VendorBMW, contracts.MarketUK, "A")
	item.FixedROI = 9
	item.APR = 4

	r, ok := reportByRule(evaluateFinance(t, item), "Fixed ROI <= APR")
	require.True(t, ok)
	assert.Equal(t, 100.0, r.SuccessPercentage)
}

func TestFinanceDuplicates(t *testing.T) {
	a := financeItem(contracts.VendorBMW, contracts.MarketUK, "A")
	twin := a
	twin.MonthlyRentalGLP = 550

	reports := evaluateFinance(t, a, a, twin, financeItem(contracts.VendorBMW, contracts.MarketUK, "B"))

	dup, _ := reportByRule(reports, "No Duplicate Records")
	assert.Equal(t, 75.0, dup.SuccessPercentage)

	unique, _ := reportByRule(reports, "Unique Car Line")
	assert.Equal(t, 50.0, unique.SuccessPercentage)
}

func TestRulesNotApplicable(t *testing.T) {
	// Mercedes has no series whitelist and AT no configured currency
	reports := evaluateFinance(t, financeItem(contracts.VendorMercedesBenz, contracts.MarketAT, "A"))

	_, ok := reportByRule(reports, "Vendor Series Match")
	assert.False(t, ok)
	_, ok = reportByRule(reports, "Currency Market Match")
	assert.False(t, ok)
	assert.Len(t, reports, 9)
}

func TestPriceRules(t *testing.T) {
	reports := evaluatePrices(t,
		lineItem(contracts.VendorBMW, contracts.MarketUK, "A", option("S1", false, 100, 120)),
		lineItem(contracts.VendorBMW, contracts.MarketUK, "B", option("S2", false, -5, 0)),
		lineItem(contracts.VendorBMW, contracts.MarketUK, "C", option("S3", true, 10, 12)),
		lineItem(contracts.VendorBMW, contracts.MarketUK, "D"),
	)

	require.Len(t, reports, 7)

	neg, ok := reportByRule(reports, "Non-Negative Option Price")
	require.True(t, ok)
	assert.Equal(t, 75.0, neg.SuccessPercentage)
	assert.Equal(t, "line_option_codes", neg.ColumnName)

	inc, ok := reportByRule(reports, "Included Option Priced At Zero")
	require.True(t, ok)
	assert.Equal(t, 75.0, inc.SuccessPercentage)

	glp, _ := reportByRule(reports, "GLP >= NLP")
	assert.Equal(t, 100.0, glp.SuccessPercentage)
}

func TestPriceRuleOverrides(t *testing.T) {
	tests := []struct {
		name        string
		vendor      contracts.Vendor
		market      contracts.Market
		hasNegative bool
		hasIncluded bool
	}{
		{"audi germany skips negative prices", contracts.VendorAudi, contracts.MarketDE, false, true},
		{"bmw germany skips included prices", contracts.VendorBMW, contracts.MarketDE, true, false},
		{"us skips included prices", contracts.VendorTesla, contracts.MarketUS, true, false},
		{"audi uk runs both", contracts.VendorAudi, contracts.MarketUK, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := evaluatePrices(t, lineItem(tt.vendor, tt.market, "A", option("S1", true, -1, -1)))

			_, ok := reportByRule(reports, "Non-Negative Option Price")
			assert.Equal(t, tt.hasNegative, ok)
			_, ok = reportByRule(reports, "Included Option Priced At Zero")
			assert.Equal(t, tt.hasIncluded, ok)
		})
	}
}

func TestRuleSkippedWhenColumnsMissing(t *testing.T) {
	var buf bytes.Buffer
	e := NewRuleEvaluator(PriceRules(ruleConfig(), DefaultOverrides()), logger.NewWithWriter(&buf, "warn"))

	tbl := NewTable([]string{"vendor", "market", "gross_list_price"})
	tbl.Append([]interface{}{"BMW", "UK", 100.0})

	reports := e.Evaluate(tbl, contracts.VendorBMW, contracts.MarketUK)

	require.Len(t, reports, 1)
	assert.Equal(t, "No Duplicate Records", reports[0].RuleName)
	assert.Contains(t, buf.String(), "Business rule skipped")
	assert.Contains(t, buf.String(), "net_list_price")
}

func TestNaNCountsAsViolation(t *testing.T) {
	tbl := NewTable(contracts.LineItemColumns)
	row := lineItem(contracts.VendorBMW, contracts.MarketUK, "A").Values()
	tbl.Append(row)
	bad := lineItem(contracts.VendorBMW, contracts.MarketUK, "B").Values()
	bad[10] = "n/a" // net_list_price
	tbl.Append(bad)

	e := NewRuleEvaluator(PriceRules(ruleConfig(), DefaultOverrides()), logger.NewNop())
	r, ok := reportByRule(e.Evaluate(tbl, contracts.VendorBMW, contracts.MarketUK), "GLP >= NLP")

	require.True(t, ok)
	assert.Equal(t, 50.0, r.SuccessPercentage)
}

func TestSuccessPercentageBounds(t *testing.T) {
	assert.Equal(t, 0.0, successPercentage(0, 0))
	assert.Equal(t, 100.0, successPercentage(3, 0))
	assert.Equal(t, 0.0, successPercentage(3, 3))
	assert.Equal(t, 0.0, successPercentage(3, 5))
	assert.InDelta(t, 66.6667, successPercentage(3, 1), 0.001)

	reports := evaluatePrices(t,
		lineItem(contracts.VendorBMW, contracts.MarketUK, "A", option("S1", true, -1, -1)),
		lineItem(contracts.VendorBMW, contracts.MarketUK, "A", option("S1", true, -1, -1)),
	)
	for _, r := range reports {
		assert.GreaterOrEqual(t, r.SuccessPercentage, 0.0)
		assert.LessOrEqual(t, r.SuccessPercentage, 100.0)
	}
}
