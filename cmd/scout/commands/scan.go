package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/internal/scan"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [momentum|fundamental]",
	Short: "Run a full universe scan for one pipeline",
	Long: `Runs one criteria pipeline over the whole symbol universe and retains
every symbol that passes.

An interrupted run (Ctrl+C) saves its cursor; the next scan of the same
kind resumes where it left off instead of starting over. Without a
pipeline argument, both pipelines run in sequence.

Example:
  go run ./cmd/scout scan
  go run ./cmd/scout scan momentum
  go run ./cmd/scout scan fundamental --start-from 2330
  go run ./cmd/scout scan momentum --fresh`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

var (
	scanStartFrom string
	scanFresh     bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanStartFrom, "start-from", "", "start at this symbol, overriding any saved cursor")
	scanCmd.Flags().BoolVar(&scanFresh, "fresh", false, "discard any saved cursor and start from the beginning")
}

func runScan(cmd *cobra.Command, args []string) error {
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

	// Ctrl+C cancels the run; the engine saves its cursor on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := scan.Options{
		StartFrom: contracts.NormalizeSymbol(scanStartFrom),
		Fresh:     scanFresh,
	}

	for _, kind := range kinds {
		fmt.Printf("=== Scout Scan: %s ===\n", kind)

		summary, err := a.engine.Run(ctx, a.evaluators[kind], opts)
		if errors.Is(err, contracts.ErrInterrupted) {
			fmt.Println("\nScan interrupted; cursor saved. Re-run to resume.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan %s: %w", kind, err)
		}

		fmt.Printf("\n✅ Scan complete\n")
		fmt.Printf("   Attempted: %d\n", summary.SymbolsAttempted)
		fmt.Printf("   Passed:    %d\n", summary.SymbolsPassed)
		fmt.Printf("   Failed:    %d\n", summary.SymbolsFailed)
		fmt.Printf("   Duration:  %s\n\n", summary.Duration())
	}

	return nil
}
