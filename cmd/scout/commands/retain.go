package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/scout/backend/internal/contracts"
)

// retainCmd represents the retain command
var retainCmd = &cobra.Command{
	Use:   "retain [symbol]",
	Short: "Manually retain a symbol",
	Long: `Marks a symbol as manually retained for one pipeline. Manual records are
re-scored by the monitor for drift reporting but never auto-pruned; only an
explicit unretain removes them.

Example:
  go run ./cmd/scout retain 2330 --kind momentum`,
	Args: cobra.ExactArgs(1),
	RunE: runRetain,
}

// unretainCmd represents the unretain command
var unretainCmd = &cobra.Command{
	Use:   "unretain [symbol]",
	Short: "Remove a symbol from the retained set",
	Long: `Prunes a retained symbol for one pipeline. The record is kept for audit,
so a later scan can still report when the symbol re-qualified.

Example:
  go run ./cmd/scout unretain 2330 --kind momentum`,
	Args: cobra.ExactArgs(1),
	RunE: runUnretain,
}

var retainKind string

func init() {
	rootCmd.AddCommand(retainCmd)
	rootCmd.AddCommand(unretainCmd)

	retainCmd.Flags().StringVar(&retainKind, "kind", "momentum", "criteria kind (momentum|fundamental)")
	unretainCmd.Flags().StringVar(&retainKind, "kind", "momentum", "criteria kind (momentum|fundamental)")
}

func runRetain(cmd *cobra.Command, args []string) error {
	kind, err := parseKindArg(retainKind)
	if err != nil {
		return err
	}
	symbol := contracts.NormalizeSymbol(args[0])

	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	record, err := a.monitor.Retain(context.Background(), symbol, kind, a.evaluators[kind])
	if err != nil {
		return fmt.Errorf("retain: %w", err)
	}

	fmt.Printf("✅ Retained %s (%s)\n", record.Symbol, record.Kind)
	if record.Current.Score != 0 {
		fmt.Printf("   Score: %.4f\n", record.Current.Score)
	}

	return nil
}

func runUnretain(cmd *cobra.Command, args []string) error {
	kind, err := parseKindArg(retainKind)
	if err != nil {
		return err
	}
	symbol := contracts.NormalizeSymbol(args[0])

	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	if err := a.monitor.Unretain(context.Background(), symbol, kind); err != nil {
		if errors.Is(err, contracts.ErrSymbolNotFound) {
			return fmt.Errorf("no retention record for %s (%s)", symbol, kind)
		}
		return fmt.Errorf("unretain: %w", err)
	}

	fmt.Printf("✅ Unretained %s (%s)\n", symbol, kind)
	return nil
}
