package notify

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/diff"
)

// Summary is the notification payload of one day's differences
// ⭐ SSOT: 알림 채널은 이 구조체만 포맷팅한다 (집계 로직 없음)
type Summary struct {
	Date     string    `json:"date"`
	Total    int       `json:"total"`
	Sections []Section `json:"sections"`
}

// Section is the (vendor, market) block of a summary
type Section struct {
	Vendor       contracts.Vendor `json:"vendor"`
	Market       contracts.Market `json:"market"`
	Counts       []ReasonCount    `json:"counts"`
	PriceChanges []PriceRow       `json:"price_changes,omitempty"`
}

// ReasonCount is the de-duplicated count of one reason
type ReasonCount struct {
	Reason contracts.DifferenceReason `json:"reason"`
	Label  string                     `json:"label"`
	Count  int                        `json:"count"`
}

// PriceRow is one line of the price change table
type PriceRow struct {
	ModelName     string `json:"model_name"`
	OldPrice      string `json:"old_price"`
	NewPrice      string `json:"new_price"`
	PercentChange string `json:"percent_change"`
}

// PriceTableHeader is the column order of PriceRow
var PriceTableHeader = []string{"MODEL NAME", "OLD PRICE", "NEW PRICE", "% OF CHANGE"}

// Cells returns the row in PriceTableHeader order
func (r PriceRow) Cells() []string {
	return []string{r.ModelName, r.OldPrice, r.NewPrice, r.PercentChange}
}

// Counts returns the nested vendor → market → reason → count view
func (s *Summary) Counts() map[contracts.Vendor]map[contracts.Market]map[contracts.DifferenceReason]int {
	out := make(map[contracts.Vendor]map[contracts.Market]map[contracts.DifferenceReason]int)
	for _, sec := range s.Sections {
		if len(sec.Counts) == 0 {
			continue
		}
		if out[sec.Vendor] == nil {
			out[sec.Vendor] = make(map[contracts.Market]map[contracts.DifferenceReason]int)
		}
		reasons := make(map[contracts.DifferenceReason]int, len(sec.Counts))
		for _, rc := range sec.Counts {
			reasons[rc.Reason] = rc.Count
		}
		out[sec.Vendor][sec.Market] = reasons
	}
	return out
}

// Empty reports whether there is nothing to notify
func (s *Summary) Empty() bool {
	return s == nil || s.Total == 0
}

type sectionKey struct {
	vendor contracts.Vendor
	market contracts.Market
}

type countKey struct {
	sectionKey
	reason contracts.DifferenceReason
	token  string
}

// Summarize aggregates raw differences. Counts are de-duplicated per
// (vendor, market, reason, option or line), so an option removed from
// several series on the same day counts once.
func Summarize(date string, diffs []contracts.DifferenceItem) *Summary {
	seen := make(map[countKey]bool)
	counts := make(map[sectionKey]map[contracts.DifferenceReason]int)
	rows := make(map[sectionKey][]PriceRow)
	rowSeen := make(map[contracts.LineKey]bool)

	for _, d := range diffs {
		sk := sectionKey{vendor: d.Vendor, market: d.Market}
		ck := countKey{sectionKey: sk, reason: d.Reason, token: dedupeToken(d)}
		if !seen[ck] {
			seen[ck] = true
			if counts[sk] == nil {
				counts[sk] = make(map[contracts.DifferenceReason]int)
			}
			counts[sk][d.Reason]++
		}

		if d.Reason == contracts.ReasonPriceChange && !rowSeen[d.Key()] {
			rowSeen[d.Key()] = true
			rows[sk] = append(rows[sk], priceRow(d))
		}
	}

	summary := &Summary{Date: date, Total: len(diffs), Sections: []Section{}}
	for _, v := range contracts.AllVendors() {
		for _, m := range contracts.AllMarkets() {
			sk := sectionKey{vendor: v, market: m}
			reasons, ok := counts[sk]
			if !ok {
				continue
			}
			sec := Section{Vendor: v, Market: m, PriceChanges: rows[sk]}
			for _, r := range contracts.AllDifferenceReasons() {
				if n := reasons[r]; n > 0 {
					sec.Counts = append(sec.Counts, ReasonCount{Reason: r, Label: r.Label(), Count: n})
				}
			}
			summary.Sections = append(summary.Sections, sec)
		}
	}
	return summary
}

// dedupeToken identifies what a diff is about: the option for option
// reasons, the trim line otherwise.
func dedupeToken(d contracts.DifferenceItem) string {
	switch d.Reason {
	case contracts.ReasonOptionAdded:
		return optionCode(d.NewValue)
	case contracts.ReasonOptionRemoved:
		return optionCode(d.OldValue)
	case contracts.ReasonOptionIncluded, contracts.ReasonOptionExcluded:
		if _, code, ok := strings.Cut(d.NewValue, "/"); ok {
			return code
		}
		return d.NewValue
	case contracts.ReasonOptionPriceChange:
		var payload struct {
			OptionDescription string `json:"option_description"`
		}
		if err := json.Unmarshal([]byte(d.OldValue), &payload); err == nil {
			return payload.OptionDescription
		}
		return d.OldValue
	}
	k := d.Key()
	return strings.Join([]string{k.Series, k.ModelRangeCode, k.ModelCode, k.LineCode}, "\x1f")
}

// optionCode reduces a "{code}-{description}" token to its code, keeping
// the description only for options published without one.
func optionCode(token string) string {
	code, desc, ok := strings.Cut(token, "-")
	code = strings.TrimSpace(code)
	if !ok {
		return code
	}
	if code == "" || strings.EqualFold(code, "N/A") {
		return "desc:" + strings.TrimSpace(desc)
	}
	return code
}

func priceRow(d contracts.DifferenceItem) PriceRow {
	oldPrice, _ := strconv.ParseFloat(d.OldValue, 64)
	newPrice, _ := strconv.ParseFloat(d.NewValue, 64)
	symbol := d.Market.Currency().Symbol()

	arrow := "↑"
	if newPrice < oldPrice {
		arrow = "↓"
	}

	return PriceRow{
		ModelName:     d.ModelDescription + " " + d.LineDescription,
		OldPrice:      FormatPrice(symbol, oldPrice),
		NewPrice:      FormatPrice(symbol, newPrice),
		PercentChange: strings.TrimPrefix(diff.PercentChange(oldPrice, newPrice), "-") + " " + arrow,
	}
}

var printer = message.NewPrinter(language.English)

// FormatPrice renders a price with thousands separators and the currency symbol
func FormatPrice(symbol string, v float64) string {
	if v == float64(int64(v)) {
		return symbol + printer.Sprintf("%d", int64(v))
	}
	return symbol + printer.Sprintf("%.2f", v)
}
