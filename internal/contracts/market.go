package contracts

import (
	"strings"
)

// Vendor is a vehicle manufacturer whose configurator is scraped
type Vendor string

const (
	VendorAudi         Vendor = "AUDI"
	VendorBMW          Vendor = "BMW"
	VendorMercedesBenz Vendor = "MERCEDES_BENZ"
	VendorTesla        Vendor = "TESLA"
)

// AllVendors returns vendors in reporting order
func AllVendors() []Vendor {
	return []Vendor{VendorAudi, VendorBMW, VendorMercedesBenz, VendorTesla}
}

// Valid reports whether v is a known vendor
func (v Vendor) Valid() bool {
	for _, known := range AllVendors() {
		if v == known {
			return true
		}
	}
	return false
}

// Key is the lowercase form used as a YAML key (audi, bmw, mercedes_benz, tesla)
func (v Vendor) Key() string {
	return strings.ToLower(string(v))
}

func (v Vendor) String() string {
	return string(v)
}

// ParseVendor accepts the enum name or its config key, case-insensitively.
// "mercedes-benz" and "mercedes benz" are accepted as well.
func ParseVendor(s string) (Vendor, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	v := Vendor(norm)
	if !v.Valid() {
		return "", invalid("vendor", "unknown vendor %q", s)
	}
	return v, nil
}

// Market is a sales region
type Market string

const (
	MarketDE Market = "DE"
	MarketUK Market = "UK"
	MarketUS Market = "US"
	MarketNL Market = "NL"
	MarketAT Market = "AT"
	MarketFR Market = "FR"
	MarketAU Market = "AU"
	MarketES Market = "ES"
	MarketIT Market = "IT"
	MarketBE Market = "BE"
	MarketCH Market = "CH"
	MarketPT Market = "PT"
	MarketSE Market = "SE"
	MarketCA Market = "CA"
)

// Currency is an ISO 4217 code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyUSD Currency = "USD"
	CurrencyAUD Currency = "AUD"
	CurrencyCHF Currency = "CHF"
	CurrencySEK Currency = "SEK"
	CurrencyCAD Currency = "CAD"
)

// ⭐ SSOT: 시장 → 통화 매핑은 여기서만 정의
var marketCurrency = map[Market]Currency{
	MarketDE: CurrencyEUR,
	MarketUK: CurrencyGBP,
	MarketUS: CurrencyUSD,
	MarketNL: CurrencyEUR,
	MarketAT: CurrencyEUR,
	MarketFR: CurrencyEUR,
	MarketAU: CurrencyAUD,
	MarketES: CurrencyEUR,
	MarketIT: CurrencyEUR,
	MarketBE: CurrencyEUR,
	MarketCH: CurrencyCHF,
	MarketPT: CurrencyEUR,
	MarketSE: CurrencySEK,
	MarketCA: CurrencyCAD,
}

// AllMarkets returns markets in reporting order
func AllMarkets() []Market {
	return []Market{
		MarketDE, MarketUK, MarketUS, MarketNL, MarketAT, MarketFR, MarketAU,
		MarketES, MarketIT, MarketBE, MarketCH, MarketPT, MarketSE, MarketCA,
	}
}

// Valid reports whether m is a known market
func (m Market) Valid() bool {
	_, ok := marketCurrency[m]
	return ok
}

// Currency returns the selling currency of the market
func (m Market) Currency() Currency {
	return marketCurrency[m]
}

func (m Market) String() string {
	return string(m)
}

// ParseMarket accepts a market code case-insensitively; GB is an alias of UK
func ParseMarket(s string) (Market, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	if norm == "GB" {
		norm = "UK"
	}
	m := Market(norm)
	if !m.Valid() {
		return "", invalid("market", "unknown market %q", s)
	}
	return m, nil
}

// Symbol returns the display symbol used in notifications
func (c Currency) Symbol() string {
	switch c {
	case CurrencyEUR:
		return "€"
	case CurrencyGBP:
		return "£"
	case CurrencyUSD:
		return "$"
	case CurrencyAUD:
		return "A$"
	case CurrencyCHF:
		return "CHF "
	case CurrencySEK:
		return "kr "
	case CurrencyCAD:
		return "C$"
	default:
		return string(c) + " "
	}
}
