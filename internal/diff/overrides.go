package diff

import "github.com/wonny/carwatch/internal/contracts"

// Rules are the per (vendor, market) deviations of the diff algorithm
type Rules struct {
	// FlipsAsIncluded reports every included-flag flip as OPTION_INCLUDED,
	// whichever direction it went.
	FlipsAsIncluded bool
}

// Overrides maps (vendor, market) to Rules. An empty Vendor matches every vendor.
// ⭐ SSOT: 벤더/마켓별 diff 예외는 이 테이블에서만 정의
type Overrides map[OverrideKey]Rules

// OverrideKey selects an override row
type OverrideKey struct {
	Vendor contracts.Vendor
	Market contracts.Market
}

// DefaultOverrides returns the production override table
func DefaultOverrides() Overrides {
	return Overrides{
		{Market: contracts.MarketUS}: {FlipsAsIncluded: true},
	}
}

// For resolves the rules of a pair. An exact (vendor, market) row wins over
// the market-wide row.
func (o Overrides) For(v contracts.Vendor, m contracts.Market) Rules {
	if r, ok := o[OverrideKey{Vendor: v, Market: m}]; ok {
		return r
	}
	return o[OverrideKey{Market: m}]
}
