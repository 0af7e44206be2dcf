package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/internal/scheduler"
	"github.com/wonny/scout/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the recurring scan/monitor/sync jobs",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
- scan:momentum       weekdays 18:00 (full momentum scan)
- scan:fundamental    weekdays 18:30 (full fundamental scan)
- monitor:momentum    weekdays hourly 10-14 (prune pass)
- monitor:fundamental weekdays 15:00 (prune pass)
- sync:retained       weekdays 17:15 (price mirror for retained set)
- sync:full           Saturday 08:00 (whole-universe mirror)

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job immediately
  status  - job execution statistics

Example:
  go run ./cmd/scout scheduler start
  go run ./cmd/scout scheduler run scan:momentum`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Job execution statistics",
		RunE:  showSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Scout Scheduler ===")

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
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
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is asynchronous; without the daemon running, wait here so the
	// job finishes before the connections close.
	fmt.Println("Job started, waiting for completion (Ctrl+C to abandon)")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}

func showSchedulerStatus(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for jobName, stat := range stats {
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success Rate: %.1f%%\n", stat.SuccessRate*100)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastError != "" {
			fmt.Printf("   Last Error: %s\n", stat.LastError)
		}

		fmt.Println()
	}

	return nil
}

// initScheduler wires the dependency graph and registers the recurring jobs.
// Cron expressions include a seconds field.
func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := initApp()
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log)

	momentum := a.evaluators[contracts.CriteriaMomentum]
	fundamental := a.evaluators[contracts.CriteriaFundamental]

	register := []scheduler.Job{
		jobs.NewScanJob(a.engine, momentum, "0 0 18 * * 1-5"),
		jobs.NewScanJob(a.engine, fundamental, "0 30 18 * * 1-5"),
		jobs.NewMonitorJob(a.monitor, momentum, "0 0 10-14 * * 1-5"),
		jobs.NewMonitorJob(a.monitor, fundamental, "0 0 15 * * 1-5"),
		jobs.NewSyncJob(a.syncer, false, "0 15 17 * * 1-5"),
		jobs.NewSyncJob(a.syncer, true, "0 0 8 * * 6"),
	}
	for _, job := range register {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, fmt.Errorf("register job %s: %w", job.Name(), err)
		}
	}

	return a, sched, nil
}
