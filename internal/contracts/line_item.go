package contracts

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NotAvailable is the placeholder used by scrapers for unknown text values
const NotAvailable = "N/A"

// LineItemOption is one configurable option of a trim line
type LineItemOption struct {
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	Type           string  `json:"type"`
	Included       bool    `json:"included"`
	NetListPrice   float64 `json:"net_list_price"`
	GrossListPrice float64 `json:"gross_list_price"`
}

// DefaultLineItemOption returns the placeholder option
func DefaultLineItemOption() LineItemOption {
	return LineItemOption{Description: NotAvailable, Type: NotAvailable}
}

// NewLineItemOption builds a normalized option
func NewLineItemOption(code, description, optionType string, included bool, net, gross float64) (LineItemOption, error) {
	opt := LineItemOption{
		Code:           strings.TrimSpace(code),
		Description:    description,
		Type:           optionType,
		Included:       included,
		NetListPrice:   net,
		GrossListPrice: gross,
	}
	return opt.Normalize()
}

// Normalize strips line breaks from the description and checks prices are finite
func (o LineItemOption) Normalize() (LineItemOption, error) {
	o.Description = NormalizeText(o.Description)
	if o.Description == "" {
		o.Description = NotAvailable
	}
	if strings.TrimSpace(o.Type) == "" {
		o.Type = NotAvailable
	}
	if !finite(o.NetListPrice) {
		return o, invalid("line_option_codes.net_list_price", "must be finite, got %v", o.NetListPrice)
	}
	if !finite(o.GrossListPrice) {
		return o, invalid("line_option_codes.gross_list_price", "must be finite, got %v", o.GrossListPrice)
	}
	return o, nil
}

// Token is the "{code}-{description}" form used in diff values
func (o LineItemOption) Token() string {
	return o.Code + "-" + o.Description
}

// NormalizeText folds line breaks and runs of whitespace to single spaces (NFC)
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// LineKey identifies a trim line across days
type LineKey struct {
	Vendor         Vendor
	Market         Market
	Series         string
	ModelRangeCode string
	ModelCode      string
	LineCode       string
}

// Identity is the descriptive hierarchy shared by line and finance items
type Identity struct {
	Vendor                Vendor `json:"vendor"`
	Market                Market `json:"market"`
	Series                string `json:"series"`
	ModelRangeCode        string `json:"model_range_code"`
	ModelRangeDescription string `json:"model_range_description"`
	ModelCode             string `json:"model_code"`
	ModelDescription      string `json:"model_description"`
	LineCode              string `json:"line_code"`
	LineDescription       string `json:"line_description"`
}

// Validate rejects unknown enums and blank identity strings
func (id Identity) Validate() error {
	if !id.Vendor.Valid() {
		return invalid("vendor", "unknown vendor %q", id.Vendor)
	}
	if !id.Market.Valid() {
		return invalid("market", "unknown market %q", id.Market)
	}
	fields := []struct {
		name  string
		value string
	}{
		{"series", id.Series},
		{"model_range_code", id.ModelRangeCode},
		{"model_range_description", id.ModelRangeDescription},
		{"model_code", id.ModelCode},
		{"model_description", id.ModelDescription},
		{"line_code", id.LineCode},
		{"line_description", id.LineDescription},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return invalid(f.name, "must not be blank")
		}
	}
	return nil
}

// Key returns the cross-day match key
func (id Identity) Key() LineKey {
	return LineKey{
		Vendor:         id.Vendor,
		Market:         id.Market,
		Series:         id.Series,
		ModelRangeCode: id.ModelRangeCode,
		ModelCode:      id.ModelCode,
		LineCode:       id.LineCode,
	}
}

// VehicleID is a short stable hash of the lowercased descriptive identity
func (id Identity) VehicleID() string {
	parts := []string{
		string(id.Market),
		string(id.Vendor),
		id.Series,
		id.ModelRangeDescription,
		id.ModelDescription,
		id.LineDescription,
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(NormalizeText(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:8])
}

// LineItem is one priced trim line of a vendor configurator
type LineItem struct {
	Identity
	Currency            Currency         `json:"currency"`
	NetListPrice        float64          `json:"net_list_price"`
	GrossListPrice      float64          `json:"gross_list_price"`
	OnTheRoadPrice      float64          `json:"on_the_road_price"`
	EnginePerformanceKW string           `json:"engine_performance_kw"`
	EnginePerformanceHP string           `json:"engine_performance_hp"`
	LineOptionCodes     []LineItemOption `json:"line_option_codes"`
	RecordedAt          string           `json:"recorded_at"`
	LastScrapedOn       string           `json:"last_scraped_on"`
}

// NewLineItem normalizes and validates a scraped line item
func NewLineItem(li LineItem) (LineItem, error) {
	if err := li.Identity.Validate(); err != nil {
		return LineItem{}, err
	}
	if li.Currency == "" {
		return LineItem{}, invalid("currency", "is required")
	}
	if li.Currency != li.Market.Currency() {
		return LineItem{}, invalid("currency", "%s does not match market %s (%s)", li.Currency, li.Market, li.Market.Currency())
	}
	prices := []struct {
		name  string
		value float64
	}{
		{"net_list_price", li.NetListPrice},
		{"gross_list_price", li.GrossListPrice},
		{"on_the_road_price", li.OnTheRoadPrice},
	}
	for _, p := range prices {
		if !finite(p.value) || p.value < 0 {
			return LineItem{}, invalid(p.name, "must be a finite non-negative number, got %v", p.value)
		}
	}
	if strings.TrimSpace(li.EnginePerformanceKW) == "" {
		li.EnginePerformanceKW = NotAvailable
	}
	if strings.TrimSpace(li.EnginePerformanceHP) == "" {
		li.EnginePerformanceHP = NotAvailable
	}

	options, err := dedupeOptions(li.LineOptionCodes)
	if err != nil {
		return LineItem{}, err
	}
	li.LineOptionCodes = options
	return li, nil
}

// IsCurrent reports whether the item was scraped on today.
// known is false when last_scraped_on is absent.
func (li LineItem) IsCurrent(today string) (current, known bool) {
	return isCurrent(li.LastScrapedOn, today)
}

// FinanceLineItem is one finance offer for a trim line
type FinanceLineItem struct {
	Identity
	ContractType         string   `json:"contract_type"`
	Currency             Currency `json:"currency"`
	MonthlyRentalGLP     float64  `json:"monthly_rental_glp"`
	MonthlyRentalNLP     float64  `json:"monthly_rental_nlp"`
	TermOfAgreement      int      `json:"term_of_agreement"`
	NumberOfInstallments float64  `json:"number_of_installments"`
	Deposit              float64  `json:"deposit"`
	TotalDeposit         float64  `json:"total_deposit"`
	TotalCreditAmount    float64  `json:"total_credit_amount"`
	TotalPayableAmount   float64  `json:"total_payable_amount"`
	OTR                  float64  `json:"otr"`
	AnnualMileage        float64  `json:"annual_mileage"`
	ExcessMileage        float64  `json:"excess_mileage"`
	OptionalFinalPayment float64  `json:"optional_final_payment"`
	APR                  float64  `json:"apr"`
	FixedROI             float64  `json:"fixed_roi"`
	SalesOffer           float64  `json:"sales_offer"`
	OptionGrossListPrice float64  `json:"option_gross_list_price"`
	OptionDescription    string   `json:"option_description"`
	OptionType           string   `json:"option_type"`
	RecordedAt           string   `json:"recorded_at"`
	LastScrapedOn        string   `json:"last_scraped_on"`
}

// NewFinanceLineItem normalizes and validates a scraped finance offer
func NewFinanceLineItem(fi FinanceLineItem) (FinanceLineItem, error) {
	if err := fi.Identity.Validate(); err != nil {
		return FinanceLineItem{}, err
	}
	if strings.TrimSpace(fi.ContractType) == "" {
		return FinanceLineItem{}, invalid("contract_type", "must not be blank")
	}
	if fi.Currency == "" {
		return FinanceLineItem{}, invalid("currency", "is required")
	}
	if fi.Currency != fi.Market.Currency() {
		return FinanceLineItem{}, invalid("currency", "%s does not match market %s (%s)", fi.Currency, fi.Market, fi.Market.Currency())
	}
	for name, v := range fi.numericFields() {
		if !finite(v) {
			return FinanceLineItem{}, invalid(name, "must be finite, got %v", v)
		}
	}
	fi.OptionDescription = NormalizeText(fi.OptionDescription)
	return fi, nil
}

// IsCurrent follows the same rule as LineItem.IsCurrent
func (fi FinanceLineItem) IsCurrent(today string) (current, known bool) {
	return isCurrent(fi.LastScrapedOn, today)
}

func (fi FinanceLineItem) numericFields() map[string]float64 {
	return map[string]float64{
		"monthly_rental_glp":      fi.MonthlyRentalGLP,
		"monthly_rental_nlp":      fi.MonthlyRentalNLP,
		"number_of_installments":  fi.NumberOfInstallments,
		"deposit":                 fi.Deposit,
		"total_deposit":           fi.TotalDeposit,
		"total_credit_amount":     fi.TotalCreditAmount,
		"total_payable_amount":    fi.TotalPayableAmount,
		"otr":                     fi.OTR,
		"annual_mileage":          fi.AnnualMileage,
		"excess_mileage":          fi.ExcessMileage,
		"optional_final_payment":  fi.OptionalFinalPayment,
		"apr":                     fi.APR,
		"fixed_roi":               fi.FixedROI,
		"sales_offer":             fi.SalesOffer,
		"option_gross_list_price": fi.OptionGrossListPrice,
	}
}

func isCurrent(lastScrapedOn, today string) (bool, bool) {
	if strings.TrimSpace(lastScrapedOn) == "" {
		return false, false
	}
	return lastScrapedOn == today, true
}

// dedupeOptions normalizes options and drops exact duplicates, keeping first occurrence
func dedupeOptions(in []LineItemOption) ([]LineItemOption, error) {
	out := make([]LineItemOption, 0, len(in))
	seen := make(map[LineItemOption]struct{}, len(in))
	for _, o := range in {
		n, err := o.Normalize()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
