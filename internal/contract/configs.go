package contract

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/flowlens/schema"
	"github.com/samber/lo"
)

// Default values for configuration.
const (
	DefaultLookbackDays  = 84
	DefaultWorkers       = 8
	DefaultFetchTimeout  = 30 * time.Second
	DefaultFetchLimit    = 50000
	DefaultPageSize      = 20
	MaxPageSize          = 500
	DefaultPrecision     = 2
	MaxPrecision         = 4
	DefaultServeAddr     = ":8080"
	DefaultServeTimeout  = 60 * time.Second
	DefaultLogLevel      = "info"
	DefaultGranularity   = schema.WeekGranularity
	DefaultWeekStartName = "monday"
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for a computation.
// This struct is the "final, validated" config.
type Config struct {
	Filter      schema.Filter
	Location    *time.Location
	Granularity schema.Granularity
	WeekStart   time.Weekday
	Metrics     []schema.Metric

	Workers      int
	FetchTimeout time.Duration
	FetchLimit   int

	Page *schema.PageRequest

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	EventBackend   schema.DatabaseBackend
	EventDBConnect string // Please use env var as this is plaintext

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext

	MetricsFile  string
	LogLevel     string
	ServeAddr    string
	ServeTimeout time.Duration
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Filter fields ---
	Org       string `mapstructure:"org"`
	Team      string `mapstructure:"team"`
	Sprint    string `mapstructure:"sprint"`
	Start     string `mapstructure:"start"`
	End       string `mapstructure:"end"`
	TimeZone  string `mapstructure:"timezone"`
	Assignees string `mapstructure:"assignees"`
	Repos     string `mapstructure:"repos"`
	PRIDs     string `mapstructure:"pr-ids"`

	// --- Bucketing ---
	Granularity string `mapstructure:"granularity"`
	WeekStart   string `mapstructure:"week-start"`
	Metrics     string `mapstructure:"metrics"`

	// --- Execution ---
	Workers      int    `mapstructure:"workers"`
	FetchTimeout string `mapstructure:"fetch-timeout"`
	FetchLimit   int    `mapstructure:"fetch-limit"`

	// --- Listing ---
	Page     int `mapstructure:"page"`
	PageSize int `mapstructure:"page-size"`

	// --- Output ---
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Precision  int    `mapstructure:"precision"`
	Width      int    `mapstructure:"width"`
	Color      string `mapstructure:"color"`

	// --- Storage ---
	EventBackend   string `mapstructure:"event-backend"`
	EventDBConnect string `mapstructure:"event-db-connect"`
	RunBackend     string `mapstructure:"run-backend"`
	RunDBConnect   string `mapstructure:"run-db-connect"`

	// --- Catalog, logging and server ---
	MetricsFile  string `mapstructure:"metrics-file"`
	LogLevel     string `mapstructure:"log-level"`
	ServeAddr    string `mapstructure:"serve-addr"`
	ServeTimeout string `mapstructure:"serve-timeout"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Filter.Scope = cloneScope(c.Filter.Scope)
	if c.Metrics != nil {
		clone.Metrics = slices.Clone(c.Metrics)
	}
	if c.Page != nil {
		page := *c.Page
		clone.Page = &page
	}
	return &clone
}

// CloneWithFilter creates a copy of the Config with the given filter.
func (c *Config) CloneWithFilter(filter schema.Filter) *Config {
	clone := c.Clone()
	clone.Filter = filter
	clone.Filter.Scope = cloneScope(filter.Scope)
	return clone
}

// MetricRequest builds the request for one metric from the configuration.
func (c *Config) MetricRequest(metric schema.Metric) schema.MetricRequest {
	req := schema.MetricRequest{
		Metric:      metric,
		Granularity: c.Granularity,
		Filter:      c.Filter,
	}
	if c.Page != nil {
		page := *c.Page
		req.Page = &page
	}
	return req
}

func cloneScope(s schema.Scope) schema.Scope {
	return schema.Scope{
		TeamID:         s.TeamID,
		Assignees:      slices.Clone(s.Assignees),
		Repositories:   slices.Clone(s.Repositories),
		PullRequestIDs: slices.Clone(s.PullRequestIDs),
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. The now argument anchors relative dates.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput, now time.Time) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processFilter(cfg, input, now); err != nil {
		return err
	}
	if err := processPaging(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseCSVList splits a comma separated flag value, dropping blanks and duplicates.
func ParseCSVList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string { return strings.TrimSpace(p) })
	return lo.Uniq(lo.Compact(parts))
}

// ParseMetricList parses a comma separated list of metric identifiers.
func ParseMetricList(s string) []schema.Metric {
	return lo.Map(ParseCSVList(s), func(m string, _ int) schema.Metric {
		return schema.Metric(strings.ToUpper(m))
	})
}

// validateSimpleInputs processes and validates all non-filter fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.MetricsFile = input.MetricsFile
	cfg.Metrics = ParseMetricList(input.Metrics)

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(input.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	colors, err := ParseBoolString(lo.CoalesceOrEmpty(input.Color, "yes"))
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Granularity and week start ---
	cfg.Granularity = schema.Granularity(strings.ToUpper(lo.CoalesceOrEmpty(input.Granularity, string(DefaultGranularity))))
	if _, ok := schema.ValidGranularities[cfg.Granularity]; !ok {
		return fmt.Errorf("invalid granularity '%s'. must be day, week, month, quarter", input.Granularity)
	}
	weekStart, err := ParseWeekday(input.WeekStart)
	if err != nil {
		return fmt.Errorf("invalid --week-start value: %w", err)
	}
	cfg.WeekStart = weekStart

	// --- 2. Workers and fetch bounds ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.FetchLimit <= 0 {
		return fmt.Errorf("fetch-limit must be greater than 0 (received %d)", input.FetchLimit)
	}
	cfg.FetchLimit = input.FetchLimit

	cfg.FetchTimeout = DefaultFetchTimeout
	if input.FetchTimeout != "" {
		d, err := ParseLookbackDuration(input.FetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid fetch-timeout: %w", err)
		}
		cfg.FetchTimeout = d
	}

	// --- 3. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(lo.CoalesceOrEmpty(input.Output, string(schema.TextOut))))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet, prom", input.Output)
	}

	// --- 4. Server ---
	cfg.ServeAddr = lo.CoalesceOrEmpty(input.ServeAddr, DefaultServeAddr)
	cfg.ServeTimeout = DefaultServeTimeout
	if input.ServeTimeout != "" {
		d, err := ParseLookbackDuration(input.ServeTimeout)
		if err != nil {
			return fmt.Errorf("invalid serve-timeout: %w", err)
		}
		cfg.ServeTimeout = d
	}

	return nil
}

// validateBackendConfigs validates event and run backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Event Backend Validation ---
	cfg.EventBackend = schema.DatabaseBackend(strings.ToLower(lo.CoalesceOrEmpty(input.EventBackend, string(schema.SQLiteBackend))))
	if _, ok := schema.ValidDatabaseBackends[cfg.EventBackend]; !ok {
		return fmt.Errorf("invalid event backend '%s'. must be sqlite, mysql, postgresql, none", input.EventBackend)
	}
	cfg.EventDBConnect = input.EventDBConnect
	if err := ValidateDatabaseConnectionString(cfg.EventBackend, cfg.EventDBConnect); err != nil {
		return fmt.Errorf("event store: %w", err)
	}

	// --- Run Backend Validation ---
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(lo.CoalesceOrEmpty(input.RunBackend, string(schema.SQLiteBackend))))
	if _, ok := schema.ValidDatabaseBackends[cfg.RunBackend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
	}
	cfg.RunDBConnect = input.RunDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect); err != nil {
		return fmt.Errorf("run store: %w", err)
	}

	// SQLite stores must not share a file since both migrate their own schema version
	if cfg.EventBackend == schema.SQLiteBackend && cfg.RunBackend == schema.SQLiteBackend {
		eventPath := lo.CoalesceOrEmpty(cfg.EventDBConnect, GetEventDBFilePath())
		runPath := lo.CoalesceOrEmpty(cfg.RunDBConnect, GetRunDBFilePath())
		if eventPath == runPath {
			return fmt.Errorf("event and run storage must use different SQLite database files. Both resolve to %q", eventPath)
		}
	}

	return nil
}

// processFilter builds the filter from the raw inputs.
func processFilter(cfg *Config, input *ConfigRawInput, now time.Time) error {
	filter, loc, err := ParseFilter(input, now)
	if err != nil {
		return err
	}
	cfg.Filter = filter
	cfg.Location = loc
	return nil
}

// ParseFilter builds a filter from the filter fields of the raw inputs. A missing end
// defaults to now and a missing start to DefaultLookbackDays before the end.
// The start <= end rule is left to the engine so that an inverted range is reported
// in-band as NOT_CONFIGURED.
func ParseFilter(input *ConfigRawInput, now time.Time) (schema.Filter, *time.Location, error) {
	loc, err := LoadLocation(input.TimeZone)
	if err != nil {
		return schema.Filter{}, nil, err
	}

	filter := schema.Filter{
		OrgID:    strings.TrimSpace(input.Org),
		SprintID: strings.TrimSpace(input.Sprint),
		TimeZone: loc.String(),
		Scope: schema.Scope{
			TeamID:         strings.TrimSpace(input.Team),
			Assignees:      ParseCSVList(input.Assignees),
			Repositories:   ParseCSVList(input.Repos),
			PullRequestIDs: ParseCSVList(input.PRIDs),
		},
	}

	filter.End = now.In(loc)
	if input.End != "" {
		t, err := ParseTimeInput(input.End, now, loc)
		if err != nil {
			return schema.Filter{}, nil, fmt.Errorf("invalid end date: %w", err)
		}
		filter.End = t
	}

	filter.Start = filter.End.AddDate(0, 0, -DefaultLookbackDays)
	if input.Start != "" {
		t, err := ParseTimeInput(input.Start, now, loc)
		if err != nil {
			return schema.Filter{}, nil, fmt.Errorf("invalid start date: %w", err)
		}
		filter.Start = t
	}
	return filter, loc, nil
}

// processPaging validates the page request. Page 0 means no listing was requested.
func processPaging(cfg *Config, input *ConfigRawInput) error {
	cfg.Page = nil
	if input.Page < 0 {
		return fmt.Errorf("page must not be negative (received %d)", input.Page)
	}
	size := input.PageSize
	if size == 0 {
		size = DefaultPageSize
	}
	if size < 0 || size > MaxPageSize {
		return fmt.Errorf("page-size must be greater than 0 and cannot exceed %d (received %d)", MaxPageSize, input.PageSize)
	}
	if input.Page > 0 {
		cfg.Page = &schema.PageRequest{Number: input.Page, Size: size}
	}
	return nil
}
