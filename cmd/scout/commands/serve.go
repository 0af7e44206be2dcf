package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/scout/backend/internal/api"
	"github.com/wonny/scout/backend/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Starts the HTTP API over the retention store.

Endpoints:
  GET    /health                  - Health check
  GET    /api/retention/active    - Active + manual records for a kind
  GET    /api/retention/pruned    - Recently pruned records
  GET    /api/retention/{symbol}  - Per-symbol retention history
  POST   /api/retention/{symbol}  - Manual retain
  DELETE /api/retention/{symbol}  - Unretain
  GET    /api/runs                - Scan run summaries
  GET    /api/overview            - Retention overview

Example:
  go run ./cmd/scout serve
  go run ./cmd/scout serve --port 8089`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Scout API Server ===")

	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	// Override port if flag is set
	if servePort != "" {
		a.cfg.Port = servePort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	retention := handlers.NewRetentionHandler(a.store, a.reports, a.monitor, a.evaluators, a.log)
	router := api.NewRouter(retention, a.log)
	server := api.New(a.cfg, a.log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
