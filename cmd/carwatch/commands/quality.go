package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/quality"
)

// qualityCmd represents the quality command
var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "데이터 품질 점검",
	Long: `하루치 스냅샷에 대해 품질 스위트를 실행하고 점수를 출력합니다.

Checks:
  - Completeness / Consistency / Validity / Accuracy 지표
  - 가격/금융 비즈니스 규칙

Example:
  go run ./cmd/carwatch quality --kind finance
  go run ./cmd/carwatch quality --date 20240102 --kind prices`,
	RunE: runQuality,
}

var (
	qualityDate string
	qualityKind string
)

func init() {
	rootCmd.AddCommand(qualityCmd)

	qualityCmd.Flags().StringVar(&qualityDate, "date", "", "date key YYYYMMDD (default: today in $TIMEZONE)")
	qualityCmd.Flags().StringVar(&qualityKind, "kind", string(contracts.KindPrices), "snapshot kind (prices|finance)")
}

func runQuality(cmd *cobra.Command, args []string) error {
	kind, err := contracts.ParseSnapshotKind(qualityKind)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	date := a.todayKey(qualityDate)

	suite := quality.NewSuite(kind, a.pipeline.Quality(kind), a.log)

	var result *quality.SuiteResult
	if kind == contracts.KindFinance {
		items, err := a.repo.LoadFinanceItems(date)
		if err != nil {
			return err
		}
		result = suite.RunFinanceItems(items)
	} else {
		items, err := a.repo.LoadLineItems(date)
		if err != nil {
			return err
		}
		result = suite.RunLineItems(items)
	}

	PrintHeader("Data Quality", map[string]string{
		"Date": date,
		"Kind": string(kind),
		"Rows": fmt.Sprintf("%d", result.Rows),
	})

	widths := []int{10, 4, 28, 12, 7}
	PrintTableHeader([]string{"VENDOR", "MKT", "METRIC", "DIMENSION", "SCORE"}, widths)
	for _, m := range result.Metrics {
		PrintTableRow([]string{
			string(m.Vendor), string(m.Market), m.MetricName,
			string(m.InsightType), fmt.Sprintf("%.2f", m.Score),
		}, widths)
	}

	fmt.Println()
	widths = []int{10, 4, 44, 8}
	PrintTableHeader([]string{"VENDOR", "MKT", "BUSINESS RULE", "PASS %"}, widths)
	for _, r := range result.BusinessRules {
		PrintTableRow([]string{
			string(r.Vendor), string(r.Market), r.RuleName,
			fmt.Sprintf("%.1f", r.SuccessPercentage),
		}, widths)
	}

	fmt.Println()
	if len(result.Metrics) == 0 {
		PrintWarning("No rows to evaluate")
		return nil
	}
	PrintKeyValue("Min score", fmt.Sprintf("%.2f", result.MinScore()), 10)
	return nil
}
