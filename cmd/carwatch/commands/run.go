package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/carwatch/internal/diff"
	"github.com/wonny/carwatch/internal/notify"
	"github.com/wonny/carwatch/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "일일 파이프라인 실행",
	Long: `오늘 스냅샷에 대해 전체 파이프라인을 실행합니다.

Steps:
  1. collect  - inbox 파일 수집 (설정된 경우)
  2. diff     - 전일 대비 변경 사항
  3. notify   - 알림 발송 (--dry-run 시 생략)
  4. quality  - 가격/금융 품질 리포트
  5. report   - {root}/{date}/reports/ 에 CSV 저장

Example:
  go run ./cmd/carwatch run
  go run ./cmd/carwatch run --date 20240102 --dry-run`,
	RunE: runPipeline,
}

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "전일 대비 변경 사항 조회",
	Long: `오늘과 직전 스냅샷을 비교해 변경 요약을 출력합니다.
파일은 쓰지 않고 알림도 보내지 않습니다.`,
	RunE: runDiff,
}

var (
	runDate      string
	runYesterday string
	runDryRun    bool
	runInbox     string
	diffDate     string
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(diffCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "date key YYYYMMDD (default: today in $TIMEZONE)")
	runCmd.Flags().StringVar(&runYesterday, "yesterday", "", "previous date key (default: latest earlier snapshot)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "skip notifications")
	runCmd.Flags().StringVar(&runInbox, "inbox", "", "collect CSV exports from this directory first")

	diffCmd.Flags().StringVar(&diffDate, "date", "", "date key YYYYMMDD (default: today in $TIMEZONE)")
}

// signalContext cancels on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	defer a.Close()

	today := a.todayKey(runDate)
	PrintHeader("Daily Pipeline", map[string]string{
		"Date":     today,
		"Dry run":  fmt.Sprintf("%t", runDryRun),
		"Pipeline": a.cfg.PipelineFile,
	})

	res, err := a.runner(runInbox).Run(ctx, pipeline.RunConfig{
		Today:     today,
		Yesterday: runYesterday,
		DryRun:    runDryRun,
	})
	if res != nil {
		printRunResult(res)
	}
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("Run %s completed in %.2fs", res.RunID, res.Duration.Seconds()))
	return nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	today := a.todayKey(diffDate)
	yesterday, ok, err := a.repo.PreviousDate(today)
	if err != nil {
		return err
	}
	if !ok {
		PrintWarning(fmt.Sprintf("No snapshot before %s", today))
		return nil
	}

	current, err := a.repo.LoadLineItems(today)
	if err != nil {
		return err
	}
	previous, err := a.repo.LoadLineItems(yesterday)
	if err != nil {
		return err
	}

	out, err := diff.NewEngine(a.log).Run(today, current, previous)
	if err != nil {
		return err
	}

	PrintHeader("Differences", map[string]string{
		"Today":     today,
		"Yesterday": yesterday,
	})
	PrintKeyValue("Differences", fmt.Sprintf("%d", len(out.Differences)), 24)
	PrintKeyValue("Price differences", fmt.Sprintf("%d", len(out.PriceDifferences)), 24)
	PrintKeyValue("Option price differences", fmt.Sprintf("%d", len(out.OptionPriceDifferences)), 24)
	PrintSeparator()

	fmt.Println(notify.RenderText(notify.Summarize(today, out.Differences)))
	return nil
}

func printRunResult(res *pipeline.RunResult) {
	PrintSeparator()
	PrintKeyValue("Run ID", res.RunID, 12)
	PrintKeyValue("Yesterday", orDash(res.Yesterday), 12)
	PrintKeyValue("Differences", fmt.Sprintf("%d (price %d, option %d)",
		res.DifferenceCount, res.PriceDifferenceCount, res.OptionPriceDifferenceCount), 12)
	for kind, score := range res.QualityScores {
		PrintKeyValue("Quality", fmt.Sprintf("%s %.2f", kind, score), 12)
	}
	PrintSeparator()

	widths := []int{10, 8, 8, 8, 10}
	PrintTableHeader([]string{"STAGE", "STATUS", "IN", "OUT", "DURATION"}, widths)
	for _, s := range res.Stages {
		status := "ok"
		switch {
		case s.Skipped:
			status = "skipped"
		case !s.Success:
			status = "failed"
		}
		PrintTableRow([]string{
			string(s.Stage), status,
			fmt.Sprintf("%d", s.InputCount), fmt.Sprintf("%d", s.OutputCount),
			fmt.Sprintf("%dms", s.DurationMS),
		}, widths)
	}

	if len(res.Warnings) > 0 {
		PrintWarning(fmt.Sprintf("%d warning(s)", len(res.Warnings)))
		PrintList(res.Warnings)
	}
	if len(res.Reports) > 0 {
		fmt.Println()
		PrintInfo("Reports")
		PrintList(res.Reports)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
