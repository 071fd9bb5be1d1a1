package diff

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/carwatch/internal/contracts"
)

// lineChanges collects the price-relevant raw diffs of one matched line
type lineChanges struct {
	first contracts.DifferenceItem
	price *contracts.DifferenceItem
	flips []contracts.DifferenceItem
}

// DerivePriceDifferences collapses PRICE_CHANGE / OPTION_INCLUDED / OPTION_EXCLUDED
// diffs into one record per line, or one per flipped option when options flipped.
func DerivePriceDifferences(diffs []contracts.DifferenceItem) ([]contracts.PriceDifferenceItem, error) {
	var order []contracts.LineKey
	lines := make(map[contracts.LineKey]*lineChanges)

	for i := range diffs {
		d := diffs[i]
		switch d.Reason {
		case contracts.ReasonPriceChange, contracts.ReasonOptionIncluded, contracts.ReasonOptionExcluded:
		default:
			continue
		}

		key := d.Key()
		lc, ok := lines[key]
		if !ok {
			lc = &lineChanges{first: d}
			lines[key] = lc
			order = append(order, key)
		}
		if d.Reason == contracts.ReasonPriceChange {
			lc.price = &d
		} else {
			lc.flips = append(lc.flips, d)
		}
	}

	out := make([]contracts.PriceDifferenceItem, 0, len(order))
	for _, key := range order {
		items, err := lines[key].derive()
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (lc *lineChanges) derive() ([]contracts.PriceDifferenceItem, error) {
	var oldPrice, newPrice decimal.Decimal
	if lc.price != nil {
		var err error
		if oldPrice, err = parseDecimal(lc.price.OldValue); err != nil {
			return nil, fmt.Errorf("price change old_value: %w", err)
		}
		if newPrice, err = parseDecimal(lc.price.NewValue); err != nil {
			return nil, fmt.Errorf("price change new_value: %w", err)
		}
	} else {
		// 가격 변동 없이 포함 여부만 바뀐 경우: new_value = "{net}/{code}"
		net, _, err := splitFlipValue(lc.flips[0].NewValue)
		if err != nil {
			return nil, err
		}
		oldPrice, newPrice = net, net
	}

	delta := newPrice.Sub(oldPrice)
	base := contracts.PriceDifferenceItem{
		RecordedAt:       lc.first.RecordedAt,
		Identity:         lc.first.Identity,
		Currency:         lc.first.Market.Currency(),
		OldPrice:         oldPrice.InexactFloat64(),
		NewPrice:         newPrice.InexactFloat64(),
		ModelPriceChange: delta.InexactFloat64(),
		PercChange:       percentChange(oldPrice, newPrice),
	}

	if len(lc.flips) == 0 {
		base.Reason = contracts.CombinePriceReason(base.ModelPriceChange, "")
		return []contracts.PriceDifferenceItem{base}, nil
	}

	out := make([]contracts.PriceDifferenceItem, 0, len(lc.flips))
	for _, flip := range lc.flips {
		_, code, err := splitFlipValue(flip.NewValue)
		if err != nil {
			return nil, err
		}
		item := base
		item.OptionCode = code
		item.Reason = contracts.CombinePriceReason(base.ModelPriceChange, flip.Reason)
		out = append(out, item)
	}
	return out, nil
}

// DeriveOptionPriceDifferences produces one record per OPTION_PRICE_CHANGE diff
func DeriveOptionPriceDifferences(diffs []contracts.DifferenceItem) ([]contracts.OptionPriceDifferenceItem, error) {
	var out []contracts.OptionPriceDifferenceItem
	for _, d := range diffs {
		if d.Reason != contracts.ReasonOptionPriceChange {
			continue
		}

		var old optionOldPrice
		if err := json.Unmarshal([]byte(d.OldValue), &old); err != nil {
			return nil, fmt.Errorf("option price change old_value %q: %w", d.OldValue, err)
		}
		oldPrice, err := parseDecimal(old.OldPrice)
		if err != nil {
			return nil, fmt.Errorf("option old price: %w", err)
		}
		newPrice, err := parseDecimal(d.NewValue)
		if err != nil {
			return nil, fmt.Errorf("option new price: %w", err)
		}

		delta := newPrice.Sub(oldPrice)
		reason := contracts.OptionPriceIncrease
		if delta.IsNegative() {
			reason = contracts.OptionPriceDecrease
		}

		out = append(out, contracts.OptionPriceDifferenceItem{
			RecordedAt:        d.RecordedAt,
			Identity:          d.Identity,
			Currency:          d.Market.Currency(),
			OptionDescription: old.OptionDescription,
			OptionOldPrice:    oldPrice.InexactFloat64(),
			OptionNewPrice:    newPrice.InexactFloat64(),
			OptionPriceChange: delta.InexactFloat64(),
			PercChange:        percentChange(oldPrice, newPrice),
			Reason:            reason,
		})
	}
	return out, nil
}

// percentChange is round((new-old)/old*100) with a trailing %, "0%" when old is 0
func percentChange(oldPrice, newPrice decimal.Decimal) string {
	if oldPrice.IsZero() {
		return "0%"
	}
	pct := newPrice.Sub(oldPrice).Div(oldPrice).Mul(decimal.NewFromInt(100)).RoundBank(0)
	return pct.String() + "%"
}

func splitFlipValue(v string) (decimal.Decimal, string, error) {
	net, code, ok := strings.Cut(v, "/")
	if !ok {
		return decimal.Zero, "", fmt.Errorf("malformed option flip value %q", v)
	}
	d, err := parseDecimal(net)
	if err != nil {
		return decimal.Zero, "", err
	}
	return d, code, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %q: %w", s, err)
	}
	return decimal.NewFromFloat(f), nil
}

// PercentChange formats the change between two prices the way derived records do
func PercentChange(oldPrice, newPrice float64) string {
	return percentChange(decimal.NewFromFloat(oldPrice), decimal.NewFromFloat(newPrice))
}
