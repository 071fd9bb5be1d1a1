package pipeline

import (
	"fmt"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/snapshot"
)

// Report file names under {root}/{date}/reports/
const (
	ReportDifferences            = "differences.csv"
	ReportPriceDifferences       = "price_differences.csv"
	ReportOptionPriceDifferences = "option_price_differences.csv"
)

// QualityReportNames returns the four quality files of a snapshot kind
func QualityReportNames(kind contracts.SnapshotKind) []string {
	return []string{
		fmt.Sprintf("quality_report_%s.csv", kind),
		fmt.Sprintf("quality_metrics_%s.csv", kind),
		fmt.Sprintf("quality_rules_%s.csv", kind),
		fmt.Sprintf("business_rules_%s.csv", kind),
	}
}

type reportFile struct {
	name string
	data []byte
}

type valuer interface {
	Values() []interface{}
}

func rowsOf[T valuer](items []T) [][]interface{} {
	rows := make([][]interface{}, len(items))
	for i, it := range items {
		rows[i] = it.Values()
	}
	return rows
}

type reportTable struct {
	name    string
	columns []string
	rows    [][]interface{}
}

// buildReports encodes every report table of a run, header-only when empty
func buildReports(res *RunResult) ([]reportFile, error) {
	tables := []reportTable{
		{ReportDifferences, contracts.DifferenceColumns, rowsOf(res.Differences)},
		{ReportPriceDifferences, contracts.PriceDifferenceColumns, rowsOf(res.PriceDifferences)},
		{ReportOptionPriceDifferences, contracts.OptionPriceDifferenceColumns, rowsOf(res.OptionPriceDifferences)},
	}

	for _, kind := range []contracts.SnapshotKind{contracts.KindPrices, contracts.KindFinance} {
		q, ok := res.Quality[kind]
		if !ok {
			continue
		}
		names := QualityReportNames(kind)
		tables = append(tables,
			reportTable{names[0], contracts.QualityReportColumns, rowsOf(q.Reports)},
			reportTable{names[1], contracts.QualityMetricColumns, rowsOf(q.Metrics)},
			reportTable{names[2], contracts.QualityRuleColumns, rowsOf(q.Rules)},
			reportTable{names[3], contracts.BusinessRuleColumns, rowsOf(q.BusinessRules)},
		)
	}

	files := make([]reportFile, 0, len(tables))
	for _, t := range tables {
		data, err := snapshot.EncodeCSV(t.columns, t.rows)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", t.name, err)
		}
		files = append(files, reportFile{name: t.name, data: data})
	}
	return files, nil
}
