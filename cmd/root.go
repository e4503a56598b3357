package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/huangsam/flowlens/core"
	"github.com/huangsam/flowlens/core/algo"
	"github.com/huangsam/flowlens/internal/catalog"
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/internal/iostore"
	"github.com/huangsam/flowlens/internal/report"
	"github.com/huangsam/flowlens/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profilePrefix is the file prefix for CPU and memory profiles. Empty disables profiling.
var profilePrefix string

// Runtime collaborators built by sharedSetup.
var (
	logger       = zap.NewNop()
	metricConfig *catalog.Catalog
)

// startProfiling starts CPU profiling if enabled.
func startProfiling() error {
	if profilePrefix == "" {
		return nil
	}

	cpuFile, err := os.Create(profilePrefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}

	// Memory profiling will be captured at the end
	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", profilePrefix, profilePrefix)
	return err
}

// stopProfiling stops profiling and writes memory profile.
func stopProfiling() error {
	if profilePrefix == "" {
		return nil
	}

	pprof.StopCPUProfile()

	memFile, err := os.Create(profilePrefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profilePrefix)
	return err
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "flowlens",
	Short:              "Compute engineering flow metrics from issue, git, CI and security events.",
	Long:               `Flowlens turns raw delivery events into bucketed flow metrics, compares them with the previous period and grades them against targets.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in the dotenv file, config file and ENV variables if set.
func initConfig() {
	// A missing .env file is the normal case
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		contract.LogWarn("Cannot load .env file", err)
	}

	setConfigFile()

	viper.SetEnvPrefix("FLOWLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("fetch-limit", contract.DefaultFetchLimit)
	viper.SetDefault("fetch-timeout", "30s")
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("granularity", contract.DefaultGranularity)
	viper.SetDefault("week-start", contract.DefaultWeekStartName)
	viper.SetDefault("page-size", contract.DefaultPageSize)
	viper.SetDefault("color", "yes")
	viper.SetDefault("event-backend", schema.SQLiteBackend)
	viper.SetDefault("event-db-connect", "")
	viper.SetDefault("run-backend", schema.SQLiteBackend)
	viper.SetDefault("run-db-connect", "")
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("serve-addr", contract.DefaultServeAddr)
	viper.SetDefault("serve-timeout", "60s")
}

// setConfigFile points viper at the explicit --config file or the default search paths.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".flowlens") // Name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// sharedSetup unmarshals config, runs validation and opens the stores.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	profilePrefix = viper.GetString("profile")
	if err := startProfiling(); err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}

	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input, time.Now()); err != nil {
		return err
	}

	l, err := contract.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = l

	// 4. Load the metric catalog, from the metrics file when one is given.
	if cfg.MetricsFile != "" {
		metricConfig, err = catalog.Load(cfg.MetricsFile)
		if err != nil {
			return fmt.Errorf("failed to load metrics file: %w", err)
		}
	} else {
		metricConfig = catalog.Default()
	}

	// 5. Initialize persistence layer with validated config
	if err := iostore.InitStores(cfg.EventBackend, cfg.EventDBConnect, cfg.RunBackend, cfg.RunDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	return nil
}

// sharedSetupWrapper binds the flags of the running command and wraps sharedSetup
// to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	if err := bindCommandFlags(cmd); err != nil {
		return err
	}
	return sharedSetup(rootCtx, cmd, args)
}

// bindCommandFlags binds the local flags of cmd to Viper.
func bindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.LocalNonPersistentFlags()); err != nil {
		return fmt.Errorf("error binding %s flags: %w", cmd.Name(), err)
	}
	return nil
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	setConfigFile()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// engineDeps wires the event store, catalog and reporter into the engine.
func engineDeps() core.Deps {
	events := iostore.Manager.GetEventStore()
	return core.Deps{
		Catalog:      metricConfig,
		Registry:     algo.NewRegistry(),
		Fetcher:      events,
		Integrations: events,
		Sprints:      events,
		Reporter:     report.NewZapReporter(logger),
		Options:      core.OptionsFromConfig(cfg),
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// StopProfiling stops profiling if enabled.
func StopProfiling() error {
	return stopProfiling()
}

// SyncLogger flushes buffered log entries.
func SyncLogger() {
	_ = logger.Sync()
}
