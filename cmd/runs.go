package cmd

import (
	"fmt"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/internal/iostore"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsSetup loads minimal configuration needed for run tracking operations.
func runsSetup(cmd *cobra.Command, args []string) error {
	if err := runsMigrateSetup(cmd, args); err != nil {
		return err
	}
	// No event store for run commands
	if err := iostore.InitStores("", "", cfg.RunBackend, cfg.RunDBConnect); err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// runsMigrateSetup loads the run store settings without opening the store.
func runsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeConfig("run")
	if err != nil {
		return err
	}
	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	return nil
}

// runsCmd focused on run history management.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the history of metric computations",
	Long: `Manage the run history recorded by metric, dashboard, serve and mcp.

Every computation stores:
- Run metadata (request id, metric, filter, window, state, duration)
- The presented points of the current and previous period

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show run tracking statistics
  export  - Export runs and points to Parquet
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  # Export for analysis in pandas/DuckDB
  flowlens runs export --output-file flow-runs`,
}

// runsStatusCmd shows run store status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run tracking statistics and connection details",
	Long: `Show detailed information about the run history.

Displays:
- Backend type and connection status
- Total number of recorded runs
- Last and oldest run timestamps
- Table sizes

Examples:
  flowlens runs status`,
	PreRunE: runsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iostore.Manager.GetRunStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		iostore.PrintRunStatus(status)
	},
}

// runsExportCmd exports the run history to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all recorded runs and points to Parquet.

Writes two files next to --output-file:
  <output-file>.runs.parquet
  <output-file>.run_points.parquet

Examples:
  flowlens runs export --output-file flow-runs
  duckdb -c "SELECT metric, state, count(*) FROM read_parquet('flow-runs.runs.parquet') GROUP BY ALL"`,
	PreRunE: runsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ExecuteRunExport(iostore.Manager.GetRunStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export runs", err)
		}
	},
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all run history",
	Long: `Delete all recorded runs and points.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  flowlens runs export --output-file backup
  flowlens runs clear`,
	PreRunE: runsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		path := lo.CoalesceOrEmpty(cfg.RunDBConnect, contract.GetRunDBFilePath())
		if err := iostore.ClearRuns(cfg.RunBackend, path, cfg.RunDBConnect); err != nil {
			contract.LogFatal("Failed to clear runs", err)
		}
		fmt.Println("Runs cleared successfully.")
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run run-store schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  flowlens runs migrate
  flowlens runs migrate --target-version 1`,
	PreRunE: runsMigrateSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		target, _ := cmd.Flags().GetInt("target-version")
		if err := iostore.MigrateRuns(cfg.RunBackend, cfg.RunDBConnect, target); err != nil {
			contract.LogFatal("Failed to migrate run store", err)
		}
	},
}
