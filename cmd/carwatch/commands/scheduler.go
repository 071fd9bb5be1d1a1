package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/carwatch/internal/api"
	"github.com/wonny/carwatch/internal/api/handlers"
	"github.com/wonny/carwatch/internal/scheduler"
	"github.com/wonny/carwatch/internal/scheduler/jobs"
	"github.com/wonny/carwatch/pkg/httputil"
	"github.com/wonny/carwatch/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 + 상태 API 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)
  status  - 실행 중인 스케줄러의 작업 상태 조회

Example:
  go run ./cmd/carwatch scheduler start
  go run ./cmd/carwatch scheduler run daily_pipeline
  go run ./cmd/carwatch scheduler status --addr http://localhost:8089`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_pipeline: $SCHEDULE_DAILY (수집 → 비교 → 알림 → 품질 → 리포트)
- snapshot_retention: 매일 03:30 ($RETENTION_DAYS, 0이면 비활성)

상태 API는 $PORT 에서 제공됩니다. Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}

	statusAddr string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)

	schedulerStatusCmd.Flags().StringVar(&statusAddr, "addr", "", "scheduler API address (default http://localhost:$PORT)")
}

// initScheduler registers every job against the wired pipeline
func initScheduler(a *app) (*scheduler.Scheduler, *jobs.DailyPipelineJob, error) {
	loc := a.cfg.Location()
	sched := scheduler.New(a.log, loc)

	daily := jobs.NewDailyPipelineJob(a.runner(""), a.cfg.ScheduleDaily, loc, a.log)
	if err := sched.AddJob(daily); err != nil {
		return nil, nil, err
	}
	if err := sched.AddJob(jobs.NewRetentionJob(a.repo, a.cfg.RetentionDays, loc, a.log)); err != nil {
		return nil, nil, err
	}

	return sched, daily, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
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

	sched, daily, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Status API
	var cache *redis.Cache
	if a.redis.Enabled() {
		cache = redis.NewCache(a.redis, redisPrefix)
	}
	var dbCheck handlers.DatabaseChecker
	if a.db != nil {
		dbCheck = a.db
	}
	router := api.NewRouter(
		handlers.NewHealthHandler(dbCheck, a.log),
		handlers.NewRunHandler(a.repo, cache, daily, a.log),
		handlers.NewJobHandler(sched, a.log),
		a.log,
	)
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sched.Start()

	PrintHeader("Scheduler", map[string]string{
		"Timezone": a.cfg.Timezone,
		"API":      fmt.Sprintf("http://localhost:%s", a.cfg.Port),
	})
	PrintInfo("Registered jobs")
	PrintList(sched.GetAllJobs())
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			sched.Stop()
			return err
		}
	}

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	PrintSuccess("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	sched, _, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	widths := []int{20, 16}
	PrintTableHeader([]string{"JOB", "SCHEDULE"}, widths)
	for _, name := range sched.GetAllJobs() {
		PrintTableRow([]string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	jobName := args[0]

	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	defer a.Close()

	sched, _, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	PrintInfo(fmt.Sprintf("Running job: %s", jobName))
	res, err := sched.RunJobNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !res.Success {
		PrintError(fmt.Sprintf("%s failed after %.2fs: %s", jobName, res.Duration.Seconds(), res.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("%s completed in %.2fs", jobName, res.Duration.Seconds()))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	addr := statusAddr
	if addr == "" {
		addr = "http://localhost:" + a.cfg.Port
	}

	client := httputil.NewWithTimeout(a.log, 5*time.Second).DisableRetry()
	resp, err := client.Get(context.Background(), addr+"/api/jobs")
	if err != nil {
		return fmt.Errorf("query scheduler at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query scheduler at %s: status %d", addr, resp.StatusCode)
	}

	var stats []scheduler.JobStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return fmt.Errorf("decode job stats: %w", err)
	}

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, stat := range stats {
		fmt.Printf("📊 %s\n", stat.JobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastSuccess != nil {
			fmt.Printf("   Last Success: %s\n", stat.LastSuccess.Format("2006-01-02 15:04:05"))
		}
		if stat.LastFailure != nil {
			fmt.Printf("   Last Failure: %s\n", stat.LastFailure.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}
