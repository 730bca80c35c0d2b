package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmcortes/newswire/internal/api"
	"github.com/jmcortes/newswire/internal/config"
	"github.com/jmcortes/newswire/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP article generation service",
	Long: `Start the HTTP service: topic submission, result polling and live
event streams over SSE. The service shuts down gracefully on SIGINT or
SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(os.Stderr, cfg.Logging.Level)
	slog.SetDefault(logger.Slog())

	reg, bus, pipe := buildPipeline(cfg, logger)

	router := api.NewRouter(cfg.Server, reg, bus, pipe, logger)
	srv := api.NewServer(cfg.Server, router, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
