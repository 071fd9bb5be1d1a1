package contracts

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIdentity() Identity {
	return Identity{
		Vendor:                VendorBMW,
		Market:                MarketUK,
		Series:                "3",
		ModelRangeCode:        "G20",
		ModelRangeDescription: "3 Series Saloon",
		ModelCode:             "28FF",
		ModelDescription:      "320i",
		LineCode:              "SPORT",
		LineDescription:       "Sport",
	}
}

func sampleLineItem() LineItem {
	return LineItem{
		Identity:       sampleIdentity(),
		Currency:       CurrencyGBP,
		NetListPrice:   35000,
		GrossListPrice: 42000,
		OnTheRoadPrice: 42900,
		RecordedAt:     "20240102",
		LastScrapedOn:  "20240102",
	}
}

func TestNewLineItem_RejectsBlankIdentity(t *testing.T) {
	blankers := map[string]func(*LineItem){
		"series":                  func(li *LineItem) { li.Series = "" },
		"model_range_code":        func(li *LineItem) { li.ModelRangeCode = "  " },
		"model_range_description": func(li *LineItem) { li.ModelRangeDescription = "\t" },
		"model_code":              func(li *LineItem) { li.ModelCode = "" },
		"model_description":       func(li *LineItem) { li.ModelDescription = "" },
		"line_code":               func(li *LineItem) { li.LineCode = "" },
		"line_description":        func(li *LineItem) { li.LineDescription = " " },
		"vendor":                  func(li *LineItem) { li.Vendor = "" },
		"market":                  func(li *LineItem) { li.Market = "XX" },
		"currency":                func(li *LineItem) { li.Currency = "" },
	}

	for field, blank := range blankers {
		t.Run(field, func(t *testing.T) {
			li := sampleLineItem()
			blank(&li)

			_, err := NewLineItem(li)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArgument))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, field, verr.Field)
		})
	}
}

func TestNewLineItem_CurrencyMustMatchMarket(t *testing.T) {
	li := sampleLineItem()
	li.Currency = CurrencyEUR

	_, err := NewLineItem(li)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewLineItem_RejectsNonFinitePrices(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), -1} {
		li := sampleLineItem()
		li.NetListPrice = v
		_, err := NewLineItem(li)
		assert.ErrorIs(t, err, ErrInvalidArgument, "net_list_price=%v", v)
	}
}

func TestNewLineItem_NormalizesOptions(t *testing.T) {
	li := sampleLineItem()
	li.LineOptionCodes = []LineItemOption{
		{Code: "BRK", Description: "New\nBrakes", Type: "Safety", NetListPrice: 100, GrossListPrice: 120},
		{Code: "BRK", Description: "New Brakes", Type: "Safety", NetListPrice: 100, GrossListPrice: 120},
		{Code: "PNT", Description: "Paint", Type: "Colour"},
	}

	got, err := NewLineItem(li)
	require.NoError(t, err)
	require.Len(t, got.LineOptionCodes, 2)
	assert.Equal(t, "New Brakes", got.LineOptionCodes[0].Description)
	assert.Equal(t, "PNT", got.LineOptionCodes[1].Code)
	assert.Equal(t, NotAvailable, got.EnginePerformanceKW)
}

func TestDefaultLineItemOption(t *testing.T) {
	opt := DefaultLineItemOption()
	assert.Equal(t, NotAvailable, opt.Description)
	assert.Equal(t, NotAvailable, opt.Type)
	assert.Zero(t, opt.NetListPrice)
	assert.Zero(t, opt.GrossListPrice)
	assert.False(t, opt.Included)
}

func TestNewLineItemOption(t *testing.T) {
	opt, err := NewLineItemOption(" A1 ", "Heated\r\nSeats", "", true, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "A1", opt.Code)
	assert.Equal(t, "Heated Seats", opt.Description)
	assert.Equal(t, NotAvailable, opt.Type)
	assert.Equal(t, "A1-Heated Seats", opt.Token())

	_, err = NewLineItemOption("A1", "x", "y", false, math.NaN(), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestVehicleID(t *testing.T) {
	a := sampleIdentity()
	b := sampleIdentity()
	b.LineDescription = "M Sport"
	c := sampleIdentity()
	c.ModelRangeDescription = "3 SERIES SALOON"

	assert.Len(t, a.VehicleID(), 16)
	assert.Equal(t, a.VehicleID(), sampleIdentity().VehicleID(), "stable across calls")
	assert.NotEqual(t, a.VehicleID(), b.VehicleID(), "distinct vehicles")
	assert.Equal(t, a.VehicleID(), c.VehicleID(), "case-insensitive")

	// codes do not take part in the vehicle identity
	d := sampleIdentity()
	d.ModelCode = "OTHER"
	assert.Equal(t, a.VehicleID(), d.VehicleID())
}

func TestIsCurrent(t *testing.T) {
	tests := []struct {
		name        string
		scrapedOn   string
		wantCurrent bool
		wantKnown   bool
	}{
		{"today", "20240102", true, true},
		{"prior day", "20240101", false, true},
		{"absent", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			li := sampleLineItem()
			li.LastScrapedOn = tt.scrapedOn
			current, known := li.IsCurrent("20240102")
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantKnown, known)

			fi := FinanceLineItem{LastScrapedOn: tt.scrapedOn}
			current, known = fi.IsCurrent("20240102")
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestNewFinanceLineItem(t *testing.T) {
	fi := FinanceLineItem{
		Identity:        sampleIdentity(),
		ContractType:    "PCP",
		Currency:        CurrencyGBP,
		TermOfAgreement: 48,
		APR:             6.9,
	}

	got, err := NewFinanceLineItem(fi)
	require.NoError(t, err)
	assert.Equal(t, 48, got.TermOfAgreement)

	fi.ContractType = " "
	_, err = NewFinanceLineItem(fi)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	fi.ContractType = "PCP"
	fi.Deposit = math.Inf(-1)
	_, err = NewFinanceLineItem(fi)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestValuesFollowColumnOrder(t *testing.T) {
	li := sampleLineItem()
	assert.Len(t, li.Values(), len(LineItemColumns))
	assert.Equal(t, "BMW", li.Values()[0])
	assert.Equal(t, 35000.0, li.Values()[10])

	fi := FinanceLineItem{Identity: sampleIdentity(), TermOfAgreement: 36}
	assert.Len(t, fi.Values(), len(FinanceLineItemColumns))
	assert.Equal(t, 36, fi.Values()[13])
}

func TestReportValuesFollowColumnOrder(t *testing.T) {
	id := sampleIdentity()

	d := DifferenceItem{RecordedAt: "20240102", Identity: id, OldValue: "500", NewValue: "550", Reason: ReasonPriceChange}
	assert.Len(t, d.Values(), len(DifferenceColumns))
	assert.Equal(t, "PRICE_CHANGE", d.Values()[12])

	p := PriceDifferenceItem{Identity: id, PercChange: "10%", Reason: PriceIncrease}
	assert.Len(t, p.Values(), len(PriceDifferenceColumns))

	o := OptionPriceDifferenceItem{Identity: id, Reason: OptionPriceDecrease}
	assert.Len(t, o.Values(), len(OptionPriceDifferenceColumns))

	r := QualityReport{ColumnName: "series", GeneralTypes: map[GeneralType]int{TypeString: 3, TypeInteger: 1}}
	values := r.Values()
	assert.Len(t, values, len(QualityReportColumns))
	assert.Equal(t, "Integer:1;String:3", values[19])

	assert.Len(t, QualityMetric{}.Values(), len(QualityMetricColumns))
	assert.Len(t, QualityRule{}.Values(), len(QualityRuleColumns))
	assert.Len(t, BusinessRuleReport{}.Values(), len(BusinessRuleColumns))
}
