package snapshot

import (
	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/pipelineconfig"
)

// Filter restricts a snapshot to a subset of identity columns.
// Empty fields match everything.
type Filter struct {
	Vendor                contracts.Vendor
	Market                contracts.Market
	Series                string
	ModelRangeCode        string
	ModelRangeDescription string
	ModelCode             string
	ModelDescription      string
	LineCode              string
	LineDescription       string // trim line
}

// Match reports whether id satisfies every non-empty field
func (f Filter) Match(id contracts.Identity) bool {
	checks := []struct {
		want string
		got  string
	}{
		{string(f.Vendor), string(id.Vendor)},
		{string(f.Market), string(id.Market)},
		{f.Series, id.Series},
		{f.ModelRangeCode, id.ModelRangeCode},
		{f.ModelRangeDescription, id.ModelRangeDescription},
		{f.ModelCode, id.ModelCode},
		{f.ModelDescription, id.ModelDescription},
		{f.LineCode, id.LineCode},
		{f.LineDescription, id.LineDescription},
	}
	for _, c := range checks {
		if c.want != "" && c.want != c.got {
			return false
		}
	}
	return true
}

// FilterLineItems keeps matching items in their original order
func FilterLineItems(items []contracts.LineItem, f Filter) []contracts.LineItem {
	out := []contracts.LineItem{}
	for _, li := range items {
		if f.Match(li.Identity) {
			out = append(out, li)
		}
	}
	return out
}

// FilterFinanceItems keeps matching items in their original order
func FilterFinanceItems(items []contracts.FinanceLineItem, f Filter) []contracts.FinanceLineItem {
	out := []contracts.FinanceLineItem{}
	for _, fi := range items {
		if f.Match(fi.Identity) {
			out = append(out, fi)
		}
	}
	return out
}

// LoadLineItemsWhere loads the prices snapshot restricted by f
func (r *Repository) LoadLineItemsWhere(date string, f Filter) ([]contracts.LineItem, error) {
	items, err := r.LoadLineItems(date)
	if err != nil {
		return nil, err
	}
	return FilterLineItems(items, f), nil
}

// LoadFinanceItemsWhere loads the finance snapshot restricted by f
func (r *Repository) LoadFinanceItemsWhere(date string, f Filter) ([]contracts.FinanceLineItem, error) {
	items, err := r.LoadFinanceItems(date)
	if err != nil {
		return nil, err
	}
	return FilterFinanceItems(items, f), nil
}

// LoadMarket returns the line items of one (vendor, market)
func (r *Repository) LoadMarket(date string, v contracts.Vendor, m contracts.Market) ([]contracts.LineItem, error) {
	return r.LoadLineItemsWhere(date, Filter{Vendor: v, Market: m})
}

// LoadFinanceMarket returns the finance items of one (vendor, market)
func (r *Repository) LoadFinanceMarket(date string, v contracts.Vendor, m contracts.Market) ([]contracts.FinanceLineItem, error) {
	return r.LoadFinanceItemsWhere(date, Filter{Vendor: v, Market: m})
}

// LoadBySeries returns the line items of one series
func (r *Repository) LoadBySeries(date string, v contracts.Vendor, m contracts.Market, series string) ([]contracts.LineItem, error) {
	return r.LoadLineItemsWhere(date, Filter{Vendor: v, Market: m, Series: series})
}

// LoadByModelRangeCode returns the line items of one model range
func (r *Repository) LoadByModelRangeCode(date string, v contracts.Vendor, m contracts.Market, modelRangeCode string) ([]contracts.LineItem, error) {
	return r.LoadLineItemsWhere(date, Filter{Vendor: v, Market: m, ModelRangeCode: modelRangeCode})
}

// LoadByModelRangeDescription returns the line items of one model range, by description
func (r *Repository) LoadByModelRangeDescription(date string, v contracts.Vendor, m contracts.Market, description string) ([]contracts.LineItem, error) {
	return r.LoadLineItemsWhere(date, Filter{Vendor: v, Market: m, ModelRangeDescription: description})
}

// LoadByModelCode returns the line items of one model
func (r *Repository) LoadByModelCode(date string, v contracts.Vendor, m contracts.Market, modelCode string) ([]contracts.LineItem, error) {
	return r.LoadLineItemsWhere(date, Filter{Vendor: v, Market: m, ModelCode: modelCode})
}

// LoadByLineCode returns the line items of one line of a model
func (r *Repository) LoadByLineCode(date string, v contracts.Vendor, m contracts.Market, modelCode, lineCode string) ([]contracts.LineItem, error) {
	return r.LoadLineItemsWhere(date, Filter{Vendor: v, Market: m, ModelCode: modelCode, LineCode: lineCode})
}

// LoadByTrimLine returns the line items of one trim line (line description) of a model
func (r *Repository) LoadByTrimLine(date string, v contracts.Vendor, m contracts.Market, modelCode, trimLine string) ([]contracts.LineItem, error) {
	return r.LoadLineItemsWhere(date, Filter{Vendor: v, Market: m, ModelCode: modelCode, LineDescription: trimLine})
}

// LoadLineOptionCodesForLineCode returns the options of the first matching line (empty when absent)
func (r *Repository) LoadLineOptionCodesForLineCode(date string, v contracts.Vendor, m contracts.Market, modelCode, lineCode string) ([]contracts.LineItemOption, error) {
	items, err := r.LoadByLineCode(date, v, m, modelCode, lineCode)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []contracts.LineItemOption{}, nil
	}
	return items[0].LineOptionCodes, nil
}

// UpdateLineItems replaces the freshly scraped (vendor, market) slices of existing with
// the new items, keeps every other pair untouched, and persists the result under today.
func (r *Repository) UpdateLineItems(existing, fresh []contracts.LineItem, scraped []pipelineconfig.VendorMarket, today string) ([]contracts.LineItem, error) {
	merged, dropped := mergeByPair(existing, fresh, scraped, func(li contracts.LineItem) contracts.Identity { return li.Identity })
	r.logDropped(dropped, contracts.KindPrices)
	if err := r.SaveLineItems(today, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// UpdateFinanceItems is UpdateLineItems for finance offers
func (r *Repository) UpdateFinanceItems(existing, fresh []contracts.FinanceLineItem, scraped []pipelineconfig.VendorMarket, today string) ([]contracts.FinanceLineItem, error) {
	merged, dropped := mergeByPair(existing, fresh, scraped, func(fi contracts.FinanceLineItem) contracts.Identity { return fi.Identity })
	r.logDropped(dropped, contracts.KindFinance)
	if err := r.SaveFinanceItems(today, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (r *Repository) logDropped(dropped int, kind contracts.SnapshotKind) {
	if dropped == 0 {
		return
	}
	r.logger.WithFields(map[string]interface{}{
		"kind":    kind,
		"dropped": dropped,
	}).Warn("New items outside the scraped (vendor, market) pairs were ignored")
}

// mergeByPair returns fresh items of scraped pairs followed by existing items of other pairs
func mergeByPair[T any](existing, fresh []T, scraped []pipelineconfig.VendorMarket, identity func(T) contracts.Identity) ([]T, int) {
	set := make(map[pipelineconfig.VendorMarket]bool, len(scraped))
	for _, p := range scraped {
		set[p] = true
	}
	pair := func(item T) pipelineconfig.VendorMarket {
		id := identity(item)
		return pipelineconfig.VendorMarket{Vendor: id.Vendor, Market: id.Market}
	}

	merged := make([]T, 0, len(existing)+len(fresh))
	dropped := 0
	for _, item := range fresh {
		if set[pair(item)] {
			merged = append(merged, item)
		} else {
			dropped++
		}
	}
	for _, item := range existing {
		if !set[pair(item)] {
			merged = append(merged, item)
		}
	}
	return merged, dropped
}
