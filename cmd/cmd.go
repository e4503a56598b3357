// Package cmd defines the command-line interface for flowlens.
package cmd

import (
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(metricCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(detailsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(runsCmd)

	// Add the events subcommands to the parent events command
	eventsCmd.AddCommand(eventsImportCmd)
	eventsCmd.AddCommand(eventsStatusCmd)
	eventsCmd.AddCommand(eventsClearCmd)
	eventsCmd.AddCommand(eventsMigrateCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("org", "", "Organization id whose events are measured")
	rootCmd.PersistentFlags().String("team", "", "Restrict events to one team id")
	rootCmd.PersistentFlags().String("sprint", "", "Sprint id whose window replaces --start and --end")
	rootCmd.PersistentFlags().String("start", "", "Start date in ISO8601 or time ago (default: 84 days before end)")
	rootCmd.PersistentFlags().String("end", "", "End date in ISO8601 or time ago (default: now)")
	rootCmd.PersistentFlags().String("timezone", "", "IANA time zone for bucketing (default: UTC)")
	rootCmd.PersistentFlags().String("assignees", "", "Comma-separated list of assignees")
	rootCmd.PersistentFlags().String("repos", "", "Comma-separated list of repositories")
	rootCmd.PersistentFlags().String("pr-ids", "", "Comma-separated list of pull request ids")
	rootCmd.PersistentFlags().StringP("granularity", "g", string(contract.DefaultGranularity), "Bucket size: day or week or month or quarter")
	rootCmd.PersistentFlags().String("week-start", contract.DefaultWeekStartName, "First day of a week bucket")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("fetch-limit", contract.DefaultFetchLimit, "Maximum events fetched per period")
	rootCmd.PersistentFlags().String("fetch-timeout", "30s", "Timeout of one event fetch")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet or prom")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("event-backend", string(schema.SQLiteBackend), "Event store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("event-db-connect", "", "Database connection string for the event store")
	rootCmd.PersistentFlags().String("run-backend", string(schema.SQLiteBackend), "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("run-db-connect", "", "Database connection string for run tracking (must differ from event-db-connect)")
	rootCmd.PersistentFlags().String("metrics-file", "", "YAML file that overrides or extends the metric catalog")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Command flags are bound to Viper by sharedSetupWrapper, since metric and
	// details share the paging keys with different defaults
	metricCmd.Flags().Int("page", 0, "Also list this 1-based page of the raw events (0 = no listing)")
	metricCmd.Flags().Int("page-size", contract.DefaultPageSize, "Events per listed page")
	detailsCmd.Flags().Int("page", 1, "1-based page of the raw events")
	detailsCmd.Flags().Int("page-size", contract.DefaultPageSize, "Events per page")
	dashboardCmd.Flags().String("metrics", "", "Comma-separated list of metrics (default: every catalog metric)")
	serveCmd.Flags().String("serve-addr", contract.DefaultServeAddr, "Address the HTTP API listens on")
	serveCmd.Flags().String("serve-timeout", "60s", "Per-request timeout of the HTTP API")
	eventsImportCmd.Flags().String("file", "", "JSON document with events, sprints and integrations")

	// Both migrate commands share the target version
	for _, c := range []*cobra.Command{eventsMigrateCmd, runsMigrateCmd} {
		c.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	}
}
