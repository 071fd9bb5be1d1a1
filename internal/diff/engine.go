package diff

import (
	"encoding/json"
	"strconv"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/pkg/logger"
)

// Engine compares two daily line-item snapshots
// ⭐ SSOT: 일간 변경 감지 로직은 이 패키지에서만 구현
type Engine struct {
	overrides Overrides
	logger    *logger.Logger
}

// NewEngine creates an engine with the default override table
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		overrides: DefaultOverrides(),
		logger:    log.WithComponent("diff"),
	}
}

// WithOverrides replaces the override table
func (e *Engine) WithOverrides(o Overrides) *Engine {
	e.overrides = o
	return e
}

// Result holds the raw and derived differences of one run
type Result struct {
	Differences            []contracts.DifferenceItem            `json:"differences"`
	PriceDifferences       []contracts.PriceDifferenceItem       `json:"price_differences"`
	OptionPriceDifferences []contracts.OptionPriceDifferenceItem `json:"option_price_differences"`
}

// Run compares the snapshots and derives the enriched price records
func (e *Engine) Run(today string, current, previous []contracts.LineItem) (*Result, error) {
	diffs := e.Compare(today, current, previous)

	prices, err := DerivePriceDifferences(diffs)
	if err != nil {
		return nil, err
	}
	options, err := DeriveOptionPriceDifferences(diffs)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"date":                     today,
		"current":                  len(current),
		"previous":                 len(previous),
		"differences":              len(diffs),
		"price_differences":        len(prices),
		"option_price_differences": len(options),
	}).Info("Differences computed")

	return &Result{
		Differences:            diffs,
		PriceDifferences:       prices,
		OptionPriceDifferences: options,
	}, nil
}

// Compare returns the raw differences between current and previous.
// Output follows the order of current, then the previous lines absent today.
func (e *Engine) Compare(today string, current, previous []contracts.LineItem) []contracts.DifferenceItem {
	prevIndex := make(map[contracts.LineKey]int, len(previous))
	for i, item := range previous {
		key := item.Key()
		if _, dup := prevIndex[key]; dup {
			e.logger.WithField("key", key).Warn("Duplicate line in previous snapshot, first one wins")
			continue
		}
		prevIndex[key] = i
	}

	var out []contracts.DifferenceItem
	seen := make(map[contracts.LineKey]bool, len(current))

	for _, cur := range current {
		key := cur.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		i, ok := prevIndex[key]
		if !ok {
			out = append(out, newDiff(today, cur.Identity, "", "", contracts.ReasonNewLine))
			continue
		}
		out = append(out, e.compareLine(today, cur, previous[i])...)
	}

	for _, prev := range previous {
		key := prev.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, newDiff(today, prev.Identity, "", "", contracts.ReasonLineRemoved))
	}

	return out
}

func (e *Engine) compareLine(today string, cur, prev contracts.LineItem) []contracts.DifferenceItem {
	var out []contracts.DifferenceItem
	rules := e.overrides.For(cur.Vendor, cur.Market)
	curNet := formatNumber(cur.NetListPrice)

	if cur.NetListPrice != prev.NetListPrice {
		out = append(out, newDiff(today, cur.Identity, formatNumber(prev.NetListPrice), curNet, contracts.ReasonPriceChange))
	}

	pairs, added, removed := matchOptions(cur.LineOptionCodes, prev.LineOptionCodes)

	for _, p := range pairs {
		if p.kind == matchByDescription {
			continue
		}
		switch {
		case p.cur.Included == p.prev.Included:
		case p.cur.Included || rules.FlipsAsIncluded:
			old := curNet + "/" + formatNumber(p.prev.NetListPrice) + "/" + formatNumber(p.prev.GrossListPrice)
			out = append(out, newDiff(today, cur.Identity, old, curNet+"/"+p.cur.Code, contracts.ReasonOptionIncluded))
		default:
			out = append(out, newDiff(today, cur.Identity, curNet, curNet+"/"+p.cur.Code, contracts.ReasonOptionExcluded))
		}

		if p.cur.NetListPrice != p.prev.NetListPrice {
			old, _ := json.Marshal(optionOldPrice{
				OptionDescription: p.cur.Description,
				OldPrice:          formatNumber(p.prev.NetListPrice),
			})
			out = append(out, newDiff(today, cur.Identity, string(old), formatNumber(p.cur.NetListPrice), contracts.ReasonOptionPriceChange))
		}
	}

	for _, opt := range added {
		out = append(out, newDiff(today, cur.Identity, "", opt.Token(), contracts.ReasonOptionAdded))
	}
	for _, opt := range removed {
		out = append(out, newDiff(today, cur.Identity, opt.Token(), "", contracts.ReasonOptionRemoved))
	}

	return out
}

// optionOldPrice is the old_value payload of OPTION_PRICE_CHANGE
type optionOldPrice struct {
	OptionDescription string `json:"option_description"`
	OldPrice          string `json:"old_price"`
}

func newDiff(today string, id contracts.Identity, oldValue, newValue string, reason contracts.DifferenceReason) contracts.DifferenceItem {
	return contracts.DifferenceItem{
		RecordedAt: today,
		Identity:   id,
		OldValue:   oldValue,
		NewValue:   newValue,
		Reason:     reason,
	}
}

// formatNumber renders the shortest decimal that round-trips (500, 550.5)
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
