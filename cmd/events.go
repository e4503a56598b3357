package cmd

import (
	"fmt"
	"strings"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/internal/iostore"
	"github.com/huangsam/flowlens/schema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeConfig reads and validates the backend and connection string of one store.
// Store commands use it instead of sharedSetup so they work without a filter.
func storeConfig(prefix string) (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backend := schema.DatabaseBackend(strings.ToLower(lo.CoalesceOrEmpty(viper.GetString(prefix+"-backend"), string(schema.SQLiteBackend))))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid %s backend '%s'. must be sqlite, mysql, postgresql, none", prefix, backend)
	}
	connStr := viper.GetString(prefix + "-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// eventsSetup loads minimal configuration needed for event store operations.
func eventsSetup(cmd *cobra.Command, _ []string) error {
	if err := bindCommandFlags(cmd); err != nil {
		return err
	}
	backend, connStr, err := storeConfig("event")
	if err != nil {
		return err
	}

	// No run tracking for event commands
	if err := iostore.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize event store: %w", err)
	}

	cfg.EventBackend = backend
	cfg.EventDBConnect = connStr
	return nil
}

// eventsMigrateSetup loads the event store settings without opening the store,
// so migrations can run on a fresh database.
func eventsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeConfig("event")
	if err != nil {
		return err
	}
	cfg.EventBackend = backend
	cfg.EventDBConnect = connStr
	return nil
}

// eventsCmd focused on event store management.
//
// Note: Event subcommands use minimal initialization (eventsSetup) instead of
// the full sharedSetup used by metric commands. This avoids filter validation
// for simple storage operations.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Manage the local store of raw delivery events",
	Long: `Manage the store that metrics are computed from.

The store holds raw events (issues, bugs, commits, pull requests, builds and
vulnerabilities), sprint windows and the integrations of each organization.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (always empty)

Subcommands:
  import  - Upsert events, sprints and integrations from a JSON file
  status  - Show store statistics and connection info
  clear   - Remove all stored events
  migrate - Run database schema migrations

Examples:
  # Load a day of events
  flowlens events import --file events.json

  # Check what is stored
  flowlens events status`,
}

// eventsImportCmd imports events from a JSON document.
var eventsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert events, sprints and integrations from a JSON file",
	Long: `Import a JSON document with the top-level keys events, sprints and integrations.

Rows are upserted by id (events and sprints) or by organization and source
(integrations), so importing the same file twice is harmless.

Examples:
  flowlens events import --file events.json

  # Import into PostgreSQL (set connection string via env variable)
  FLOWLENS_EVENT_BACKEND=postgresql FLOWLENS_EVENT_DB_CONNECT="host=... dbname=..." flowlens events import --file events.json`,
	PreRunE: eventsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		summary, err := iostore.ExecuteImport(rootCtx, iostore.Manager.GetEventStore(), viper.GetString("file"))
		if err != nil {
			contract.LogFatal("Failed to import events", err)
		}
		fmt.Printf("Imported %d events, %d sprints and %d integrations.\n", summary.Events, summary.Sprints, summary.Integrations)
	},
}

// eventsStatusCmd shows event store status.
var eventsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display event store statistics and connection details",
	Long: `Show detailed information about the event store.

Displays:
- Backend type and connection status
- Total number of stored events
- Newest and oldest event timestamps
- Table sizes

Examples:
  flowlens events status`,
	PreRunE: eventsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iostore.Manager.GetEventStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get event store status", err)
		}
		iostore.PrintEventStatus(status)
	},
}

// eventsClearCmd clears the event store.
var eventsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored events, sprints and integrations",
	Long: `Delete all stored events, sprints and integrations from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the event tables

WARNING: This action cannot be undone.

Examples:
  flowlens events clear`,
	PreRunE: eventsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		path := lo.CoalesceOrEmpty(cfg.EventDBConnect, contract.GetEventDBFilePath())
		if err := iostore.ClearEvents(cfg.EventBackend, path, cfg.EventDBConnect); err != nil {
			contract.LogFatal("Failed to clear events", err)
		}
		fmt.Println("Events cleared successfully.")
	},
}

// eventsMigrateCmd runs database migrations for the event store.
var eventsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run event store schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the event store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version
  flowlens events migrate

  # Roll back all migrations
  flowlens events migrate --target-version 0`,
	PreRunE: eventsMigrateSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		target, _ := cmd.Flags().GetInt("target-version")
		if err := iostore.MigrateEvents(cfg.EventBackend, cfg.EventDBConnect, target); err != nil {
			contract.LogFatal("Failed to migrate event store", err)
		}
	},
}
