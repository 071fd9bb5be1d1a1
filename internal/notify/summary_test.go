package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carwatch/internal/contracts"
)

func diffItem(v contracts.Vendor, m contracts.Market, series string, reason contracts.DifferenceReason, oldValue, newValue string) contracts.DifferenceItem {
	return contracts.DifferenceItem{
		RecordedAt: "20240102",
		Identity: contracts.Identity{
			Vendor:                v,
			Market:                m,
			Series:                series,
			ModelRangeCode:        "MR",
			ModelRangeDescription: "Range",
			ModelCode:             "MC-" + series,
			ModelDescription:      "320i",
			LineCode:              "LC",
			LineDescription:       "M Sport",
		},
		OldValue: oldValue,
		NewValue: newValue,
		Reason:   reason,
	}
}

func TestSummarizeDeduplicatesOptions(t *testing.T) {
	diffs := []contracts.DifferenceItem{
		diffItem(contracts.VendorBMW, contracts.MarketUK, "3", contracts.ReasonOptionAdded, "", "BRK-New Brakes"),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "4", contracts.ReasonOptionAdded, "", "BRK-New Brakes"),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "5", contracts.ReasonOptionAdded, "", "PNT-Paint"),
	}

	s := Summarize("20240102", diffs)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, map[contracts.Vendor]map[contracts.Market]map[contracts.DifferenceReason]int{
		contracts.VendorBMW: {contracts.MarketUK: {contracts.ReasonOptionAdded: 2}},
	}, s.Counts())
}

func TestSummarizeDeduplicatesOptionsByCode(t *testing.T) {
	diffs := []contracts.DifferenceItem{
		diffItem(contracts.VendorBMW, contracts.MarketUK, "3", contracts.ReasonOptionAdded, "", "BRK-New Brakes"),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "4", contracts.ReasonOptionAdded, "", "BRK-New Brakes Pack"),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "5", contracts.ReasonOptionAdded, "", "PNT-Paint"),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "3", contracts.ReasonOptionRemoved, "N/A-Tow Bar", ""),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "4", contracts.ReasonOptionRemoved, "N/A-Tow Bar", ""),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "5", contracts.ReasonOptionRemoved, "N/A-Roof Rails", ""),
	}

	counts := Summarize("20240102", diffs).Counts()[contracts.VendorBMW][contracts.MarketUK]
	assert.Equal(t, 2, counts[contracts.ReasonOptionAdded])
	assert.Equal(t, 2, counts[contracts.ReasonOptionRemoved])
}

func TestOptionCode(t *testing.T) {
	assert.Equal(t, "BRK", optionCode("BRK-New Brakes"))
	assert.Equal(t, "BRK", optionCode("BRK-New Brakes Pack"))
	assert.Equal(t, "desc:Tow Bar", optionCode("N/A-Tow Bar"))
	assert.Equal(t, "desc:Tow Bar", optionCode("-Tow Bar"))
	assert.Equal(t, "PNT", optionCode("PNT"))
}

func TestSummarizeLineReasonsCountPerLine(t *testing.T) {
	diffs := []contracts.DifferenceItem{
		diffItem(contracts.VendorAudi, contracts.MarketDE, "A4", contracts.ReasonNewLine, "", ""),
		diffItem(contracts.VendorAudi, contracts.MarketDE, "A6", contracts.ReasonNewLine, "", ""),
		diffItem(contracts.VendorAudi, contracts.MarketDE, "A6", contracts.ReasonOptionIncluded, "100/0/0", "100/X1"),
		diffItem(contracts.VendorAudi, contracts.MarketDE, "A4", contracts.ReasonOptionIncluded, "90/0/0", "90/X1"),
		diffItem(contracts.VendorAudi, contracts.MarketDE, "A4", contracts.ReasonOptionPriceChange, `{"option_description":"Pack","old_price":"1"}`, "2"),
		diffItem(contracts.VendorAudi, contracts.MarketDE, "A6", contracts.ReasonOptionPriceChange, `{"option_description":"Pack","old_price":"1"}`, "3"),
	}

	counts := Summarize("20240102", diffs).Counts()[contracts.VendorAudi][contracts.MarketDE]
	assert.Equal(t, 2, counts[contracts.ReasonNewLine])
	assert.Equal(t, 1, counts[contracts.ReasonOptionIncluded])
	assert.Equal(t, 1, counts[contracts.ReasonOptionPriceChange])
}

func TestSummarizeOrdering(t *testing.T) {
	diffs := []contracts.DifferenceItem{
		diffItem(contracts.VendorTesla, contracts.MarketUS, "Model 3", contracts.ReasonLineRemoved, "", ""),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "3", contracts.ReasonOptionRemoved, "BRK-New Brakes", ""),
		diffItem(contracts.VendorBMW, contracts.MarketDE, "3", contracts.ReasonNewLine, "", ""),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "3", contracts.ReasonNewLine, "", ""),
	}

	s := Summarize("20240102", diffs)

	require.Len(t, s.Sections, 3)
	assert.Equal(t, contracts.VendorBMW, s.Sections[0].Vendor)
	assert.Equal(t, contracts.MarketDE, s.Sections[0].Market)
	assert.Equal(t, contracts.MarketUK, s.Sections[1].Market)
	assert.Equal(t, contracts.VendorTesla, s.Sections[2].Vendor)

	uk := s.Sections[1].Counts
	require.Len(t, uk, 2)
	assert.Equal(t, contracts.ReasonNewLine, uk[0].Reason, "reasons follow the closed enum order")
	assert.Equal(t, contracts.ReasonOptionRemoved, uk[1].Reason)
	assert.Equal(t, "Options removed", uk[1].Label)

	assert.Equal(t, Summarize("20240102", diffs), s, "deterministic")
}

func TestSummarizePriceTable(t *testing.T) {
	diffs := []contracts.DifferenceItem{
		diffItem(contracts.VendorBMW, contracts.MarketUK, "3", contracts.ReasonPriceChange, "40000", "42000"),
		diffItem(contracts.VendorBMW, contracts.MarketUK, "4", contracts.ReasonPriceChange, "35000.5", "33950"),
		diffItem(contracts.VendorBMW, contracts.MarketDE, "3", contracts.ReasonPriceChange, "1000", "1000.25"),
	}

	s := Summarize("20240102", diffs)
	require.Len(t, s.Sections, 2)

	de := s.Sections[0]
	assert.Equal(t, []PriceRow{{ModelName: "320i M Sport", OldPrice: "€1,000", NewPrice: "€1,000.25", PercentChange: "0% ↑"}}, de.PriceChanges)

	uk := s.Sections[1]
	require.Len(t, uk.PriceChanges, 2)
	assert.Equal(t, PriceRow{ModelName: "320i M Sport", OldPrice: "£40,000", NewPrice: "£42,000", PercentChange: "5% ↑"}, uk.PriceChanges[0])
	assert.Equal(t, "3% ↓", uk.PriceChanges[1].PercentChange)
	assert.Equal(t, "£35,000.50", uk.PriceChanges[1].OldPrice)
	assert.Equal(t, 2, uk.Counts[0].Count)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize("20240102", nil)
	assert.True(t, s.Empty())
	assert.Empty(t, s.Sections)
	assert.Empty(t, s.Counts())
	assert.True(t, (*Summary)(nil).Empty())
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$1,234,567", FormatPrice("$", 1234567))
	assert.Equal(t, "£999.90", FormatPrice("£", 999.9))
	assert.Equal(t, "€0", FormatPrice("€", 0))
}

func TestRenderText(t *testing.T) {
	s := Summarize("20240102", []contracts.DifferenceItem{
		diffItem(contracts.VendorBMW, contracts.MarketUK, "3", contracts.ReasonPriceChange, "40000", "42000"),
	})
	text := RenderText(s)
	assert.Contains(t, text, "Car price monitor 20240102: 1 differences")
	assert.Contains(t, text, "BMW UK")
	assert.Contains(t, text, "Price changes: 1")
	assert.Contains(t, text, "320i M Sport | £40,000 | £42,000 | 5% ↑")
}
