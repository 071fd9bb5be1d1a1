package quality

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wonny/carwatch/internal/contracts"
)

// specialChars is the closed set counted by the special-character share
var specialChars = []string{"\n", ":", "'", "\"", ",", ";", "√", "©"}

// Profile computes one QualityReport per column of a (vendor, market) table.
// Columns listed in numeric get value statistics, the others string-length statistics.
func Profile(t *Table, vendor contracts.Vendor, market contracts.Market, numeric []string) []contracts.QualityReport {
	isNumeric := make(map[string]bool, len(numeric))
	for _, c := range numeric {
		isNumeric[c] = true
	}

	out := make([]contracts.QualityReport, 0, len(t.Columns()))
	for _, col := range t.Columns() {
		out = append(out, profileColumn(t.Column(col), vendor, market, col, isNumeric[col]))
	}
	return out
}

func profileColumn(cells []interface{}, vendor contracts.Vendor, market contracts.Market, column string, numeric bool) contracts.QualityReport {
	r := contracts.QualityReport{
		Vendor:       vendor,
		Market:       market,
		ColumnName:   column,
		IsNumeric:    numeric,
		TotalCount:   len(cells),
		GeneralTypes: make(map[contracts.GeneralType]int),
	}

	distinct := make(map[string]struct{})
	var kept, special int
	var series []float64

	for _, v := range cells {
		text := cellText(v)
		if containsSpecial(text) {
			special++
		}

		if isNull(v) {
			r.NullCount++
			continue
		}
		r.GeneralTypes[generalType(v)]++

		if isZero(v) {
			r.ZeroCount++
			continue
		}

		kept++
		distinct[text] = struct{}{}

		if numeric {
			if f := toFloat(v); !math.IsNaN(f) {
				series = append(series, f)
			}
		} else {
			series = append(series, float64(utf8.RuneCountInString(text)))
		}
	}

	r.DistinctCount = len(distinct)
	r.NonDistinctCount = kept - len(distinct)
	r.NullPercentage = percentage(r.NullCount, r.TotalCount)
	r.ZeroPercentage = percentage(r.ZeroCount, r.TotalCount)
	r.SpecialCharPercentage = percentage(special, r.TotalCount)
	r.InconsistentType = len(r.TypesPresent()) > 1

	if len(series) > 0 {
		sort.Float64s(series)
		r.Mean = round2(mean(series))
		r.Min = round2(series[0])
		r.Max = round2(series[len(series)-1])
		r.Percentile25 = round2(percentile(series, 0.25))
		r.Percentile50 = round2(percentile(series, 0.50))
		r.Percentile75 = round2(percentile(series, 0.75))
		r.StdDev = round2(stdDev(series))
	}
	return r
}

// generalType buckets a non-null cell
func generalType(v interface{}) contracts.GeneralType {
	switch x := v.(type) {
	case int:
		return contracts.TypeInteger
	case float64:
		return contracts.TypeFloat
	case bool:
		return contracts.TypeBoolean
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return contracts.TypeString
		}
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return contracts.TypeInteger
		}
		return contracts.TypeFloat
	default:
		return contracts.TypeUnknown
	}
}

// isNull covers nil, empty strings and NaN (failed coercion)
func isNull(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// isZero matches numeric zeros only; the string "0" is not a zero
func isZero(v interface{}) bool {
	switch x := v.(type) {
	case float64:
		return x == 0
	case int:
		return x == 0
	}
	return false
}

func cellText(v interface{}) string {
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return ""
	}
	return stringOf(v)
}

func containsSpecial(s string) bool {
	for _, c := range specialChars {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

// percentage returns part/total*100 rounded to two decimals, 0 when total is 0
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the sample standard deviation (n-1), 0 below two values
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// percentile interpolates linearly between closest ranks of sorted xs
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	if lo == hi {
		return sorted[int(lo)]
	}
	return sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*(pos-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
