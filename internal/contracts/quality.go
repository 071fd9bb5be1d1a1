package contracts

// GeneralType is the coarse type inventory bucket of a cell
type GeneralType string

const (
	TypeInteger GeneralType = "Integer"
	TypeFloat   GeneralType = "Float"
	TypeString  GeneralType = "String"
	TypeBoolean GeneralType = "Boolean"
	TypeUnknown GeneralType = "Unknown"
)

// AllGeneralTypes returns the inventory buckets in report order
func AllGeneralTypes() []GeneralType {
	return []GeneralType{TypeInteger, TypeFloat, TypeString, TypeBoolean, TypeUnknown}
}

// Dimension groups quality checks
type Dimension string

const (
	DimensionCompleteness Dimension = "Completeness"
	DimensionConsistency  Dimension = "Consistency"
	DimensionValidity     Dimension = "Validity"
	DimensionAccuracy     Dimension = "Accuracy"
)

// Severity of a failed quality rule
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// QualityReport holds raw statistics of one column for one (vendor, market)
type QualityReport struct {
	Vendor     Vendor `json:"vendor"`
	Market     Market `json:"market"`
	ColumnName string `json:"column_name"`
	IsNumeric  bool   `json:"is_numeric"`

	TotalCount       int `json:"total_count"`
	NullCount        int `json:"null_count"`
	ZeroCount        int `json:"zero_count"`
	DistinctCount    int `json:"distinct_count"`
	NonDistinctCount int `json:"non_distinct_count"`

	NullPercentage        float64 `json:"null_percentage"`
	ZeroPercentage        float64 `json:"zero_percentage"`
	SpecialCharPercentage float64 `json:"special_char_percentage"`

	// Numeric columns: value statistics. Others: string-length statistics.
	Mean         float64 `json:"mean"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile25 float64 `json:"percentile_25"`
	Percentile50 float64 `json:"percentile_50"`
	Percentile75 float64 `json:"percentile_75"`
	StdDev       float64 `json:"std_dev"`

	GeneralTypes     map[GeneralType]int `json:"general_types"`
	InconsistentType bool                `json:"inconsistent_type"`
}

// TypesPresent lists the general types with a non-zero count, in bucket order
func (r QualityReport) TypesPresent() []GeneralType {
	var out []GeneralType
	for _, t := range AllGeneralTypes() {
		if r.GeneralTypes[t] > 0 {
			out = append(out, t)
		}
	}
	return out
}

// QualityMetric is the overall score of one check for one (vendor, market)
type QualityMetric struct {
	Vendor      Vendor    `json:"vendor"`
	Market      Market    `json:"market"`
	MetricName  string    `json:"metric_name"`
	Insight     string    `json:"insight"`
	InsightType Dimension `json:"insight_type"`
	Score       float64   `json:"score"`
}

// QualityRule is one column-level failure of a check
type QualityRule struct {
	Vendor      Vendor    `json:"vendor"`
	Market      Market    `json:"market"`
	MetricName  string    `json:"metric_name"`
	ColumnName  string    `json:"column_name"`
	Insight     string    `json:"insight"`
	InsightType Dimension `json:"insight_type"`
	Score       float64   `json:"score"`
	Severity    Severity  `json:"severity"`
}

// BusinessRuleReport is the success share of one row-level rule
type BusinessRuleReport struct {
	Vendor            Vendor  `json:"vendor"`
	Market            Market  `json:"market"`
	RuleName          string  `json:"rule_name"`
	ColumnName        string  `json:"column_name"`
	SuccessPercentage float64 `json:"success_percentage"`
}
