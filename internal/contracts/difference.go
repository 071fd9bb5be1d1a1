package contracts

// DifferenceReason classifies a raw day-over-day change
type DifferenceReason string

const (
	ReasonNewLine           DifferenceReason = "NEW_LINE"
	ReasonLineRemoved       DifferenceReason = "LINE_REMOVED"
	ReasonPriceChange       DifferenceReason = "PRICE_CHANGE"
	ReasonOptionAdded       DifferenceReason = "OPTION_ADDED"
	ReasonOptionRemoved     DifferenceReason = "OPTION_REMOVED"
	ReasonOptionIncluded    DifferenceReason = "OPTION_INCLUDED"
	ReasonOptionExcluded    DifferenceReason = "OPTION_EXCLUDED"
	ReasonOptionPriceChange DifferenceReason = "OPTION_PRICE_CHANGE"
)

// AllDifferenceReasons returns reasons in summary order
func AllDifferenceReasons() []DifferenceReason {
	return []DifferenceReason{
		ReasonNewLine,
		ReasonLineRemoved,
		ReasonPriceChange,
		ReasonOptionAdded,
		ReasonOptionRemoved,
		ReasonOptionIncluded,
		ReasonOptionExcluded,
		ReasonOptionPriceChange,
	}
}

// Valid reports whether r is one of the closed set of reasons
func (r DifferenceReason) Valid() bool {
	for _, known := range AllDifferenceReasons() {
		if r == known {
			return true
		}
	}
	return false
}

// IsOptionReason reports whether the reason concerns a single option
func (r DifferenceReason) IsOptionReason() bool {
	switch r {
	case ReasonOptionAdded, ReasonOptionRemoved, ReasonOptionIncluded, ReasonOptionExcluded, ReasonOptionPriceChange:
		return true
	}
	return false
}

// Label is the human form used in notifications
func (r DifferenceReason) Label() string {
	switch r {
	case ReasonNewLine:
		return "New lines"
	case ReasonLineRemoved:
		return "Removed lines"
	case ReasonPriceChange:
		return "Price changes"
	case ReasonOptionAdded:
		return "Options added"
	case ReasonOptionRemoved:
		return "Options removed"
	case ReasonOptionIncluded:
		return "Options included"
	case ReasonOptionExcluded:
		return "Options excluded"
	case ReasonOptionPriceChange:
		return "Option price changes"
	default:
		return string(r)
	}
}

// DifferenceItem is one raw change between yesterday and today.
// OldValue/NewValue encodings depend on Reason.
type DifferenceItem struct {
	RecordedAt string `json:"recorded_at"`
	Identity
	OldValue string           `json:"old_value"`
	NewValue string           `json:"new_value"`
	Reason   DifferenceReason `json:"reason"`
}

// PriceDifferenceReason is the merged reason of a line's price/inclusion changes
type PriceDifferenceReason string

const (
	PriceIncrease               PriceDifferenceReason = "PRICE_INCREASE"
	PriceDecrease               PriceDifferenceReason = "PRICE_DECREASE"
	OptionIncluded              PriceDifferenceReason = "OPTION_INCLUDED"
	OptionExcluded              PriceDifferenceReason = "OPTION_EXCLUDED"
	PriceIncreaseOptionIncluded PriceDifferenceReason = "PRICE_INCREASE_OPTION_INCLUDED"
	PriceDecreaseOptionIncluded PriceDifferenceReason = "PRICE_DECREASE_OPTION_INCLUDED"
	PriceIncreaseOptionExcluded PriceDifferenceReason = "PRICE_INCREASE_OPTION_EXCLUDED"
	PriceDecreaseOptionExcluded PriceDifferenceReason = "PRICE_DECREASE_OPTION_EXCLUDED"
)

// CombinePriceReason merges a price direction (sign of delta, 0 for none)
// with an option flip (ReasonOptionIncluded/ReasonOptionExcluded or "").
func CombinePriceReason(delta float64, flip DifferenceReason) PriceDifferenceReason {
	switch {
	case flip == ReasonOptionIncluded && delta > 0:
		return PriceIncreaseOptionIncluded
	case flip == ReasonOptionIncluded && delta < 0:
		return PriceDecreaseOptionIncluded
	case flip == ReasonOptionIncluded:
		return OptionIncluded
	case flip == ReasonOptionExcluded && delta > 0:
		return PriceIncreaseOptionExcluded
	case flip == ReasonOptionExcluded && delta < 0:
		return PriceDecreaseOptionExcluded
	case flip == ReasonOptionExcluded:
		return OptionExcluded
	case delta < 0:
		return PriceDecrease
	default:
		return PriceIncrease
	}
}

// PriceDifferenceItem is the enriched price record of one matched line
type PriceDifferenceItem struct {
	RecordedAt string `json:"recorded_at"`
	Identity
	Currency         Currency              `json:"currency"`
	OldPrice         float64               `json:"old_price"`
	NewPrice         float64               `json:"new_price"`
	ModelPriceChange float64               `json:"model_price_change"`
	PercChange       string                `json:"perc_change"`
	OptionCode       string                `json:"option_code"`
	Reason           PriceDifferenceReason `json:"reason"`
}

// OptionPriceDifferenceReason is the direction of an option price change
type OptionPriceDifferenceReason string

const (
	OptionPriceIncrease OptionPriceDifferenceReason = "PRICE_INCREASE"
	OptionPriceDecrease OptionPriceDifferenceReason = "PRICE_DECREASE"
)

// OptionPriceDifferenceItem is the enriched record of one option price change
type OptionPriceDifferenceItem struct {
	RecordedAt string `json:"recorded_at"`
	Identity
	Currency          Currency                    `json:"currency"`
	OptionDescription string                      `json:"option_description"`
	OptionOldPrice    float64                     `json:"option_old_price"`
	OptionNewPrice    float64                     `json:"option_new_price"`
	OptionPriceChange float64                     `json:"option_price_change"`
	PercChange        string                      `json:"perc_change"`
	Reason            OptionPriceDifferenceReason `json:"reason"`
}
