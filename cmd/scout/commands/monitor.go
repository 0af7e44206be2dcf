package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/scout/backend/internal/contracts"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor [momentum|fundamental]",
	Short: "Re-evaluate the retained sets",
	Long: `Re-evaluates every currently retained symbol and prunes the ones that no
longer pass. The monitor never adds symbols; only a scan grows the retained
set. Manually retained symbols are re-scored but never auto-pruned. Without
a pipeline argument, both pipelines are monitored in sequence.

Example:
  go run ./cmd/scout monitor
  go run ./cmd/scout monitor momentum`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	kinds := contracts.AllCriteriaKinds()
	if len(args) == 1 {
		kind, err := parseKindArg(args[0])
		if err != nil {
			return err
		}
		kinds = []contracts.CriteriaKind{kind}
	}

	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, kind := range kinds {
		fmt.Printf("=== Scout Monitor: %s ===\n", kind)

		summary, err := a.monitor.Run(ctx, a.evaluators[kind])
		if err != nil {
			return fmt.Errorf("monitor %s: %w", kind, err)
		}

		fmt.Printf("\n✅ Monitor pass complete\n")
		fmt.Printf("   Checked: %d\n", summary.Checked)
		fmt.Printf("   Pruned:  %d\n", summary.Pruned)
		fmt.Printf("   Failed:  %d\n\n", summary.Failed)
	}

	return nil
}
