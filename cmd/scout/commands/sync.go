package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror universe and price data into Postgres",
	Long: `Snapshots the current symbol universe and mirrors recent daily bars into
the local database. By default only retained symbols are synced; --full
mirrors the whole universe.

Example:
  go run ./cmd/scout sync
  go run ./cmd/scout sync --full`,
	RunE: runSync,
}

var syncFull bool

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&syncFull, "full", false, "sync the whole universe, not just retained symbols")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("=== Scout Sync ===")

	summary, err := a.syncer.Run(ctx, syncFull)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("\n✅ Sync complete\n")
	fmt.Printf("   Universe size: %d\n", summary.UniverseSize)
	fmt.Printf("   Synced:        %d\n", summary.SymbolsSynced)
	fmt.Printf("   Failed:        %d\n", summary.SymbolsFailed)

	return nil
}
