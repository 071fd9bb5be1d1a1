package pipelineconfig

import (
	"fmt"
	"strings"

	"github.com/wonny/carwatch/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Output ===
	if strings.TrimSpace(cfg.Output.Directory) == "" {
		return ValidationError{"output.directory", "required"}
	}
	switch cfg.Output.FileType {
	case FileTypeAvro, FileTypeCSV, FileTypeDual:
	default:
		return ValidationError{"output.file_type", fmt.Sprintf("must be avro, csv or dual, got %q", cfg.Output.FileType)}
	}
	if strings.ContainsAny(cfg.Output.PricesFilename, `/\`) {
		return ValidationError{"output.prices_filename", "must be a bare file name"}
	}
	if strings.ContainsAny(cfg.Output.FinanceOptionsFilename, `/\`) {
		return ValidationError{"output.finance_options_filename", "must be a bare file name"}
	}
	if cfg.Output.PricesFilename == cfg.Output.FinanceOptionsFilename {
		return ValidationError{"output", "prices and finance filenames must differ"}
	}

	// === Scraper ===
	for vendorKey, markets := range cfg.Scraper.Enabled {
		v, err := contracts.ParseVendor(vendorKey)
		if err != nil {
			return ValidationError{"scraper.enabled." + vendorKey, "unknown vendor"}
		}
		if vendorKey != v.Key() {
			return ValidationError{"scraper.enabled." + vendorKey, fmt.Sprintf("use the key %q", v.Key())}
		}
		seen := map[string]bool{}
		for _, m := range markets {
			if _, err := contracts.ParseMarket(m); err != nil {
				return ValidationError{"scraper.enabled." + vendorKey, fmt.Sprintf("unknown market %q", m)}
			}
			if seen[m] {
				return ValidationError{"scraper.enabled." + vendorKey, fmt.Sprintf("duplicate market %q", m)}
			}
			seen[m] = true
		}
	}

	// === Data quality ===
	if err := validateQuality("data_quality_finance", cfg.DataQualityFinance); err != nil {
		return err
	}
	return validateQuality("data_quality_prices", cfg.DataQualityPrices)
}

func validateQuality(section string, dq DataQuality) error {
	for col, req := range dq.CheckDataTypeConsistency.DataTypeRequirements {
		if req != RequireString && req != RequireNumeric {
			return ValidationError{
				section + ".check_data_type_consistency.data_type_requirements." + col,
				fmt.Sprintf("must be %s or %s, got %q", RequireString, RequireNumeric, req),
			}
		}
	}

	for i, pair := range dq.EqualityCheck.Pairs {
		if pair[0] == "" || pair[1] == "" || pair[0] == pair[1] {
			return ValidationError{fmt.Sprintf("%s.equality_check.pairs[%d]", section, i), "needs two distinct columns"}
		}
	}

	rc := dq.RangeAndNonNegativeCheck
	if rc.Tolerance < 0 {
		return ValidationError{section + ".range_and_non_negative_check.tolerance", "must be >= 0"}
	}
	for vendorKey, cols := range rc.Vendors {
		if _, err := contracts.ParseVendor(vendorKey); err != nil {
			return ValidationError{section + ".range_and_non_negative_check." + vendorKey, "unknown vendor"}
		}
		for col, r := range cols {
			if r.LL > r.UL {
				return ValidationError{
					section + ".range_and_non_negative_check." + vendorKey + "." + col,
					fmt.Sprintf("ll (%v) must not exceed ul (%v)", r.LL, r.UL),
				}
			}
		}
	}

	sc := dq.StandardDevCheck
	if sc.Tolerance < 0 {
		return ValidationError{section + ".standard_dev_check.tolerance", "must be >= 0"}
	}
	for vendorKey, cols := range sc.Vendors {
		if _, err := contracts.ParseVendor(vendorKey); err != nil {
			return ValidationError{section + ".standard_dev_check." + vendorKey, "unknown vendor"}
		}
		for col, expected := range cols {
			if expected < 0 {
				return ValidationError{section + ".standard_dev_check." + vendorKey + "." + col, "must be >= 0"}
			}
		}
	}

	for market, cur := range dq.Currency {
		m, err := contracts.ParseMarket(market)
		if err != nil {
			return ValidationError{section + ".currency." + market, "unknown market"}
		}
		if contracts.Currency(cur) != m.Currency() {
			return ValidationError{section + ".currency." + market, fmt.Sprintf("%s does not match market currency %s", cur, m.Currency())}
		}
	}
	return nil
}
