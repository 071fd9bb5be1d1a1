package quality

import (
	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/pipelineconfig"
)

func identity(v contracts.Vendor, m contracts.Market, series, line string) contracts.Identity {
	return contracts.Identity{
		Vendor:                v,
		Market:                m,
		Series:                series,
		ModelRangeCode:        "G20",
		ModelRangeDescription: "3 Series Saloon",
		ModelCode:             "28FF",
		ModelDescription:      "320i",
		LineCode:              line,
		LineDescription:       "Line " + line,
	}
}

func lineItem(v contracts.Vendor, m contracts.Market, line string, opts ...contracts.LineItemOption) contracts.LineItem {
	return contracts.LineItem{
		Identity:            identity(v, m, "3", line),
		Currency:            m.Currency(),
		NetListPrice:        30000,
		GrossListPrice:      36000,
		OnTheRoadPrice:      37000,
		EnginePerformanceKW: "135",
		EnginePerformanceHP: "184",
		LineOptionCodes:     opts,
		RecordedAt:          "20240102",
		LastScrapedOn:       "20240102",
	}
}

func financeItem(v contracts.Vendor, m contracts.Market, line string) contracts.FinanceLineItem {
	return contracts.FinanceLineItem{
		Identity:             identity(v, m, "3", line),
		ContractType:         "PCP",
		Currency:             m.Currency(),
		MonthlyRentalGLP:     500,
		MonthlyRentalNLP:     400,
		TermOfAgreement:      48,
		NumberOfInstallments: 47,
		Deposit:              5000,
		TotalDeposit:         5000,
		TotalCreditAmount:    20000,
		TotalPayableAmount:   30000,
		OTR:                  25000,
		AnnualMileage:        10000,
		ExcessMileage:        0.1,
		OptionalFinalPayment: 10000,
		APR:                  5.9,
		FixedROI:             5.5,
		SalesOffer:           0,
		OptionGrossListPrice: 0,
		OptionDescription:    "None",
		OptionType:           "None",
		RecordedAt:           "20240102",
		LastScrapedOn:        "20240102",
	}
}

func option(code string, included bool, net, gross float64) contracts.LineItemOption {
	return contracts.LineItemOption{Code: code, Description: "Option " + code, Type: "Extra", Included: included, NetListPrice: net, GrossListPrice: gross}
}

func ruleConfig() pipelineconfig.DataQuality {
	return pipelineconfig.DataQuality{
		AudiSeries: []string{"A3", "A4"},
		BMWSeries:  []string{"3", "5"},
		Currency:   map[string]string{"UK": "GBP", "DE": "EUR"},
	}
}

func reportByRule(reports []contracts.BusinessRuleReport, name string) (contracts.BusinessRuleReport, bool) {
	for _, r := range reports {
		if r.RuleName == name {
			return r, true
		}
	}
	return contracts.BusinessRuleReport{}, false
}

func metricByName(metrics []contracts.QualityMetric, name string) (contracts.QualityMetric, bool) {
	for _, m := range metrics {
		if m.MetricName == name {
			return m, true
		}
	}
	return contracts.QualityMetric{}, false
}

func metricNames(metrics []contracts.QualityMetric) []string {
	out := make([]string, len(metrics))
	for i, m := range metrics {
		out[i] = m.MetricName
	}
	return out
}
