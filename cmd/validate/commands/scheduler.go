package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/walkforward/internal/scheduler"
	"github.com/wonny/walkforward/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `검증 스케줄러를 시작하거나 등록 작업을 조회합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각

Example:
  go run ./cmd/validate scheduler start
  go run ./cmd/validate scheduler list`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- walkforward_validation: VALIDATION_SCHEDULE (기본 화요일 06:00)
- run_retention: 매일 03:30 (REPORT_PERSIST_DB=true 이고 REPORT_RETENTION > 0 일 때)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Walk-forward Scheduler ===")

	d, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	d, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer d.Close()

	// 다음 실행 시각은 cron 이 시작된 뒤에만 계산된다
	sched.Start()
	defer sched.Stop()

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		stat := stats[name]
		fmt.Printf("  - %s (%s)\n", name, stat.Schedule)
		if stat.NextRun != nil {
			fmt.Printf("    next run: %s\n", stat.NextRun.Format("2006-01-02 15:04:05"))
		}
	}
}

func initScheduler(cmd *cobra.Command) (*deps, *scheduler.Scheduler, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	d, err := newDeps(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(d.log, scheduler.WithRetry(cfg.Scheduler.MaxRetries, cfg.Scheduler.RetryDelay))

	if err := sched.AddJob(jobs.NewValidationJob(d.runner, cfg.Scheduler.ValidationSchedule, d.log)); err != nil {
		d.Close()
		return nil, nil, err
	}

	if d.repo != nil && cfg.Report.Retention > 0 {
		if err := sched.AddJob(jobs.NewRetentionJob(d.repo, cfg.Report.Retention, d.log)); err != nil {
			d.Close()
			return nil, nil, err
		}
	}

	return d, sched, nil
}
