package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/flowlens/internal/api"
	"github.com/huangsam/flowlens/internal/iostore"
	"github.com/huangsam/flowlens/internal/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchCatalog reloads the metrics file on change until ctx is done.
func watchCatalog(ctx context.Context) {
	if cfg.MetricsFile == "" {
		return
	}
	go func() {
		if err := metricConfig.Watch(ctx, cfg.MetricsFile, logger); err != nil {
			logger.Error("metrics file watch stopped", zap.Error(err))
		}
	}()
}

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flowlens HTTP API",
	Long: `Serve metric results as JSON over HTTP.

Routes:
  GET  /health
  GET  /api/v1/metrics
  GET  /api/v1/metrics/{metric}
  GET  /api/v1/metrics/{metric}/details
  POST /api/v1/dashboard

Query parameters and the dashboard body fall back to the configured filter.
When --metrics-file is set, edits to the file are picked up without a restart.

Examples:
  # Serve on the default address
  flowlens serve --org acme

  # Serve on another port with debug logs
  flowlens serve --serve-addr :9090 --log-level debug`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		watchCatalog(ctx)
		srv := api.NewServer(cfg, engineDeps(), metricConfig, iostore.Manager.GetRunStore(), logger)
		return srv.ListenAndServe(ctx)
	},
}

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the flowlens MCP server",
	Long:  `Launch an MCP server on stdio that allows AI agents to compute flow metrics via standard tools.`,
	// Logs go to stderr, so stdout stays reserved for the protocol
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		watchCatalog(ctx)
		return mcp.StartMCPServer(ctx, cfg, engineDeps(), metricConfig, iostore.Manager.GetRunStore())
	},
}
