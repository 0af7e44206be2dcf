package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/scout/backend/internal/contracts"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Retention reports",
	Long: `Builds human-readable reports over the retention store.

Subcommands:
  overview - per-pipeline retained counts and top scores
  daily    - scan runs and prunes for one day
  stock    - full retention history for one symbol

Example:
  go run ./cmd/scout report overview
  go run ./cmd/scout report daily 2026-08-21
  go run ./cmd/scout report stock 2330`,
}

var (
	reportOverviewCmd = &cobra.Command{
		Use:   "overview",
		Short: "Per-pipeline retention overview",
		RunE:  runReportOverview,
	}

	reportDailyCmd = &cobra.Command{
		Use:   "daily [YYYY-MM-DD]",
		Short: "Runs and prunes for one day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReportDaily,
	}

	reportWeeklyCmd = &cobra.Command{
		Use:   "weekly [YYYY-MM-DD]",
		Short: "Runs and prunes for the week ending on a day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReportWeekly,
	}

	reportStockCmd = &cobra.Command{
		Use:   "stock [symbol]",
		Short: "Retention history for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportStock,
	}
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportOverviewCmd)
	reportCmd.AddCommand(reportDailyCmd)
	reportCmd.AddCommand(reportWeeklyCmd)
	reportCmd.AddCommand(reportStockCmd)
}

func runReportOverview(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	overview, err := a.reports.BuildOverview(context.Background())
	if err != nil {
		return fmt.Errorf("build overview: %w", err)
	}

	fmt.Print(overview.Render())
	return nil
}

func runReportDaily(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if len(args) == 1 {
		parsed, err := time.Parse("2006-01-02", args[0])
		if err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", args[0])
		}
		date = parsed
	}

	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	daily, err := a.reports.BuildDaily(context.Background(), date)
	if err != nil {
		return fmt.Errorf("build daily report: %w", err)
	}

	fmt.Print(daily.Render())
	return nil
}

func runReportWeekly(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if len(args) == 1 {
		parsed, err := time.Parse("2006-01-02", args[0])
		if err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", args[0])
		}
		date = parsed
	}

	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	weekly, err := a.reports.BuildWeekly(context.Background(), date)
	if err != nil {
		return fmt.Errorf("build weekly report: %w", err)
	}

	fmt.Print(weekly.Render())
	return nil
}

func runReportStock(cmd *cobra.Command, args []string) error {
	symbol := contracts.NormalizeSymbol(args[0])

	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	stock, err := a.reports.BuildStock(context.Background(), symbol)
	if err != nil {
		return fmt.Errorf("build stock report: %w", err)
	}

	fmt.Print(stock.Render())
	return nil
}
