package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/pkg/logger"
)

func suiteConfig() pipelineconfig.DataQuality {
	cfg := ruleConfig()
	cfg.NumericColumns = []string{"net_list_price", "gross_list_price", "on_the_road_price"}
	return cfg
}

func TestSuiteRunLineItems(t *testing.T) {
	s := NewSuite(contracts.KindPrices, suiteConfig(), logger.NewNop())

	res := s.RunLineItems([]contracts.LineItem{
		lineItem(contracts.VendorBMW, contracts.MarketUK, "A"),
		lineItem(contracts.VendorBMW, contracts.MarketUK, "B"),
		lineItem(contracts.VendorAudi, contracts.MarketDE, "A"),
	})

	assert.Equal(t, contracts.KindPrices, res.Kind)
	assert.Equal(t, 3, res.Rows)
	require.Len(t, res.Reports, 2*len(contracts.LineItemColumns))
	assert.Equal(t, contracts.VendorAudi, res.Reports[0].Vendor)
	assert.Equal(t, contracts.VendorBMW, res.Reports[len(res.Reports)-1].Vendor)

	// Audi DE is exempt from the non-negative check
	assert.Len(t, res.Metrics, 5+6)

	audiRules := 0
	for _, b := range res.BusinessRules {
		if b.Vendor == contracts.VendorAudi {
			audiRules++
		}
	}
	// series is "3", outside the Audi whitelist
	series, ok := reportByRule(res.BusinessRules, "Vendor Series Match")
	require.True(t, ok)
	assert.Equal(t, contracts.VendorAudi, series.Vendor)
	assert.Equal(t, 0.0, series.SuccessPercentage)
	assert.Equal(t, 6, audiRules)

	for _, m := range res.Metrics {
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, 100.0)
	}
}

func TestSuiteRunFinanceItemsCoercesNumeric(t *testing.T) {
	cfg := ruleConfig()
	cfg.NumericColumns = []string{"term_of_agreement", "otr"}
	s := NewSuite(contracts.KindFinance, cfg, logger.NewNop())

	res := s.RunFinanceItems([]contracts.FinanceLineItem{financeItem(contracts.VendorBMW, contracts.MarketUK, "A")})

	require.Len(t, res.Reports, len(contracts.FinanceLineItemColumns))
	for _, r := range res.Reports {
		if r.ColumnName == "term_of_agreement" {
			assert.True(t, r.IsNumeric)
			assert.Equal(t, 48.0, r.Mean)
			assert.Equal(t, []contracts.GeneralType{contracts.TypeInteger}, r.TypesPresent())
		}
	}
	assert.Len(t, res.BusinessRules, 11)
}

func TestSuiteUnparseableNumericIsNull(t *testing.T) {
	cfg := pipelineconfig.DataQuality{NumericColumns: []string{"price"}}
	s := NewSuite(contracts.KindPrices, cfg, logger.NewNop())

	tbl := NewTable([]string{"vendor", "market", "price"})
	tbl.Append([]interface{}{"BMW", "UK", "12.5"})
	tbl.Append([]interface{}{"BMW", "UK", "unknown"})

	res := s.Run(tbl)

	var price contracts.QualityReport
	for _, r := range res.Reports {
		if r.ColumnName == "price" {
			price = r
		}
	}
	assert.Equal(t, 1, price.NullCount)
	assert.Equal(t, 12.5, price.Mean)
}

func TestSuiteEmpty(t *testing.T) {
	s := NewSuite(contracts.KindPrices, suiteConfig(), logger.NewNop())

	res := s.RunLineItems(nil)

	assert.Equal(t, 0, res.Rows)
	assert.NotNil(t, res.Reports)
	assert.Empty(t, res.Metrics)
	assert.Equal(t, 100.0, res.MinScore())
}

func TestMinScore(t *testing.T) {
	res := &SuiteResult{Metrics: []contracts.QualityMetric{{Score: 90}, {Score: 42.5}, {Score: 100}}}
	assert.Equal(t, 42.5, res.MinScore())
}
