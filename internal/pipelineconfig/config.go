package pipelineconfig

import (
	"github.com/wonny/carwatch/internal/contracts"
)

// Config is the static pipeline configuration (YAML)
// ⭐ SSOT: 출력 경로, 스크래퍼 대상, 품질 임계값은 이 구조체에서만 정의
type Config struct {
	Output             Output          `yaml:"output" json:"output"`
	Scraper            Scraper         `yaml:"scraper" json:"scraper"`
	Collector          CollectorConfig `yaml:"collector" json:"collector"`
	DataQualityFinance DataQuality     `yaml:"data_quality_finance" json:"data_quality_finance"`
	DataQualityPrices  DataQuality     `yaml:"data_quality_prices" json:"data_quality_prices"`
}

// FileType selects the snapshot serialization
type FileType string

const (
	FileTypeAvro FileType = "avro"
	FileTypeCSV  FileType = "csv"
	FileTypeDual FileType = "dual"
)

// Output locates the dated snapshot tree
type Output struct {
	Directory              string   `yaml:"directory" json:"directory"`
	PricesFilename         string   `yaml:"prices_filename" json:"prices_filename"`
	FinanceOptionsFilename string   `yaml:"finance_options_filename" json:"finance_options_filename"`
	FileType               FileType `yaml:"file_type" json:"file_type"`
}

// Scraper lists the (vendor, market) pairs scraped each day
type Scraper struct {
	// vendor key (audi, bmw, ...) → markets
	Enabled map[string][]string `yaml:"enabled" json:"enabled"`
}

// CollectorConfig configures the file-based collection harness
type CollectorConfig struct {
	Inbox   string `yaml:"inbox" json:"inbox"`
	Workers int    `yaml:"workers" json:"workers"`
}

// DataQuality holds the thresholds of one snapshot kind
type DataQuality struct {
	NumericColumns           []string               `yaml:"numeric_columns" json:"numeric_columns"`
	AcceptableColumnsCheck   AcceptableColumnsCheck `yaml:"acceptable_columns_check" json:"acceptable_columns_check"`
	CheckDataTypeConsistency DataTypeConsistency    `yaml:"check_data_type_consistency" json:"check_data_type_consistency"`
	EqualityCheck            EqualityCheck          `yaml:"equality_check" json:"equality_check"`
	RangeAndNonNegativeCheck RangeCheck             `yaml:"range_and_non_negative_check" json:"range_and_non_negative_check"`
	StandardDevCheck         StdDevCheck            `yaml:"standard_dev_check" json:"standard_dev_check"`

	AudiSeries  []string          `yaml:"audi_series" json:"audi_series"`
	BMWSeries   []string          `yaml:"bmw_series" json:"bmw_series"`
	TeslaSeries []string          `yaml:"tesla_series" json:"tesla_series"`
	Currency    map[string]string `yaml:"currency" json:"currency"` // market → currency (UK: GBP)
}

// AcceptableColumnsCheck wraps the completeness allow-lists
type AcceptableColumnsCheck struct {
	FieldRequirements FieldRequirements `yaml:"field_requirements" json:"field_requirements"`
}

// FieldRequirements are the columns allowed to carry nulls, zeros or special characters
type FieldRequirements struct {
	NullAllowable        []string `yaml:"null_allowable" json:"null_allowable"`
	ZeroAllowable        []string `yaml:"zero_allowable" json:"zero_allowable"`
	SpecialCharAllowable []string `yaml:"special_char_allowable" json:"special_char_allowable"`
}

// Required general type of a column
const (
	RequireString  = "String"
	RequireNumeric = "Numeric"
)

// DataTypeConsistency maps columns to their required general type
type DataTypeConsistency struct {
	DataTypeRequirements map[string]string `yaml:"data_type_requirements" json:"data_type_requirements"`
	DataTypeExclusion    []string          `yaml:"data_type_exclusion" json:"data_type_exclusion"`
}

// EqualityCheck lists column pairs whose distinct counts must agree.
// Empty means the evaluator's defaults for the snapshot kind.
type EqualityCheck struct {
	Pairs [][2]string `yaml:"pairs" json:"pairs"`
}

// Range is an inclusive [ll, ul] band before tolerance
type Range struct {
	LL float64 `yaml:"ll" json:"ll"`
	UL float64 `yaml:"ul" json:"ul"`
}

// RangeCheck holds per-vendor column ranges
type RangeCheck struct {
	Tolerance       float64                     `yaml:"tolerance" json:"tolerance"`
	ExcludedColumns []string                    `yaml:"excluded_columns" json:"excluded_columns"`
	Vendors         map[string]map[string]Range `yaml:",inline" json:"vendors"`
}

// StdDevCheck holds per-vendor expected standard deviations
type StdDevCheck struct {
	Tolerance       float64                       `yaml:"tolerance" json:"tolerance"`
	ExcludedColumns []string                      `yaml:"excluded_columns" json:"excluded_columns"`
	Vendors         map[string]map[string]float64 `yaml:",inline" json:"vendors"`
}

// VendorMarket is one scraped pair
type VendorMarket struct {
	Vendor contracts.Vendor
	Market contracts.Market
}

// EnabledPairs returns the scraped pairs in vendor order, markets in config order.
// Entries that fail to parse are skipped (Validate rejects them up front).
func (c *Config) EnabledPairs() []VendorMarket {
	var out []VendorMarket
	for _, v := range contracts.AllVendors() {
		markets, ok := c.Scraper.Enabled[v.Key()]
		if !ok {
			continue
		}
		for _, m := range markets {
			market, err := contracts.ParseMarket(m)
			if err != nil {
				continue
			}
			out = append(out, VendorMarket{Vendor: v, Market: market})
		}
	}
	return out
}

// IsEnabled reports whether (vendor, market) is scraped
func (c *Config) IsEnabled(v contracts.Vendor, m contracts.Market) bool {
	for _, p := range c.EnabledPairs() {
		if p.Vendor == v && p.Market == m {
			return true
		}
	}
	return false
}

// Quality returns the thresholds of a snapshot kind
func (c *Config) Quality(kind contracts.SnapshotKind) DataQuality {
	if kind == contracts.KindFinance {
		return c.DataQualityFinance
	}
	return c.DataQualityPrices
}

// SeriesWhitelist returns the configured series of a vendor.
// ok is false for vendors without a whitelist.
func (dq DataQuality) SeriesWhitelist(v contracts.Vendor) (series []string, ok bool) {
	switch v {
	case contracts.VendorAudi:
		return dq.AudiSeries, true
	case contracts.VendorBMW:
		return dq.BMWSeries, true
	case contracts.VendorTesla:
		return dq.TeslaSeries, true
	}
	return nil, false
}

// CurrencyFor returns the configured currency of a market key (e.g. "UK")
func (dq DataQuality) CurrencyFor(m contracts.Market) (string, bool) {
	cur, ok := dq.Currency[string(m)]
	return cur, ok
}
