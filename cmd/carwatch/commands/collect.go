package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "스크래퍼 CSV 수집",
	Long: `inbox 디렉토리의 CSV 파일을 오늘 스냅샷에 병합합니다.

File names:
  {inbox}/{vendor}_{market}_prices.csv
  {inbox}/{vendor}_{market}_finance_options.csv

파일이 없거나 읽을 수 없으면 해당 (vendor, market)은 전일 데이터를 사용합니다.

Example:
  go run ./cmd/carwatch collect --inbox ./inbox`,
	RunE: runCollect,
}

var (
	collectInbox string
	collectDate  string
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectInbox, "inbox", "", "directory of CSV exports (default: collector.inbox)")
	collectCmd.Flags().StringVar(&collectDate, "date", "", "date key YYYYMMDD (default: today in $TIMEZONE)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp()
	if err != nil {
		return err
	}

	col := a.collector(collectInbox)
	if col == nil {
		return fmt.Errorf("no inbox: pass --inbox or set collector.inbox")
	}

	today := a.todayKey(collectDate)
	yesterday, _, err := a.repo.PreviousDate(today)
	if err != nil {
		return err
	}

	PrintHeader("Collection", map[string]string{
		"Date":     today,
		"Fallback": orDash(yesterday),
	})

	res, err := col.Collect(ctx, today, yesterday)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	widths := []int{10, 4, 8, 8, 10}
	PrintTableHeader([]string{"VENDOR", "MKT", "PRICES", "FINANCE", "SOURCE"}, widths)
	for _, f := range res.Fetches {
		source := "fresh"
		if f.PricesFallback || f.FinanceFallback {
			source = "fallback"
		}
		PrintTableRow([]string{
			string(f.Vendor), string(f.Market),
			fmt.Sprintf("%d", f.PriceCount), fmt.Sprintf("%d", f.FinanceCount),
			source,
		}, widths)
	}

	fmt.Println()
	if n := res.Fallbacks(); n > 0 {
		PrintWarning(fmt.Sprintf("%d source(s) fell back to %s", n, orDash(yesterday)))
	}
	PrintSuccess(fmt.Sprintf("Snapshot %s: %d line items, %d finance items",
		today, len(res.LineItems), len(res.FinanceItems)))
	return nil
}
