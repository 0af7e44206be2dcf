package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/scout/backend/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Scout - scan-and-retain engine for stock screening",
	Long: `Scout Unified CLI

Scans the listed-symbol universe against momentum and fundamental
criteria pipelines and retains the symbols that pass.

Usage:
  go run ./cmd/scout [command]

Examples:
  go run ./cmd/scout scan momentum
  go run ./cmd/scout monitor fundamental
  go run ./cmd/scout retain 2330 --kind momentum
  go run ./cmd/scout report overview
  go run ./cmd/scout serve`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "override ENV (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// applyGlobalFlags folds the root command's persistent flags into the loaded
// config. Flags win over environment variables.
func applyGlobalFlags(cfg *config.Config) error {
	if env != "" {
		switch env {
		case "development", "staging", "production":
			cfg.Env = env
		default:
			return fmt.Errorf("invalid --env %q (want development, staging or production)", env)
		}
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return nil
}
