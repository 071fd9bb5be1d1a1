package quality

import "github.com/wonny/carwatch/internal/contracts"

// Rules are the per (vendor, market) exemptions of the quality checks
type Rules struct {
	// SkipNegativePrice disables the non-negative option price rule and the
	// Non-Negative column check.
	SkipNegativePrice bool
	// SkipIncludedPrice disables the included-option-priced-at-zero rule.
	SkipIncludedPrice bool
}

// OverrideKey selects an override row. An empty Vendor matches every vendor.
type OverrideKey struct {
	Vendor contracts.Vendor
	Market contracts.Market
}

// Overrides maps (vendor, market) to exemptions
// ⭐ SSOT: 벤더/마켓별 품질 검사 예외는 이 테이블에서만 정의
type Overrides map[OverrideKey]Rules

// DefaultOverrides returns the production exemptions
func DefaultOverrides() Overrides {
	return Overrides{
		{Market: contracts.MarketUS}:                               {SkipIncludedPrice: true},
		{Vendor: contracts.VendorAudi, Market: contracts.MarketDE}: {SkipNegativePrice: true},
		{Vendor: contracts.VendorBMW, Market: contracts.MarketDE}:  {SkipIncludedPrice: true},
	}
}

// For resolves the exemptions of a pair, exact row first
func (o Overrides) For(v contracts.Vendor, m contracts.Market) Rules {
	if r, ok := o[OverrideKey{Vendor: v, Market: m}]; ok {
		return r
	}
	return o[OverrideKey{Market: m}]
}
