package schema

// Custom string types for type safety.
type (
	// Granularity represents the width of a time bucket.
	Granularity string

	// Metric identifies a flow metric.
	Metric string

	// EventKind represents the type of a raw engineering event.
	EventKind string

	// Source represents the integration a metric reads its events from.
	Source string

	// Rule names the derivation rule applied to a bucketed series.
	Rule string

	// ChartDataState represents the in-band outcome of a metric computation.
	ChartDataState string

	// Phase represents a step of the per-request orchestration.
	Phase string

	// Classification represents the outcome of a threshold evaluation.
	Classification string

	// Direction represents whether higher or lower values are better.
	Direction string

	// Trend represents the direction of a period-over-period change.
	Trend string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for persistence.
	DatabaseBackend string
)

// All granularities supported.
const (
	DayGranularity     Granularity = "DAY"
	WeekGranularity    Granularity = "WEEK" // default
	MonthGranularity   Granularity = "MONTH"
	QuarterGranularity Granularity = "QUARTER"
)

// Built-in metrics.
const (
	IssueThroughput    Metric = "ISSUE_THROUGHPUT"
	BugThroughput      Metric = "BUG_THROUGHPUT"
	PRThroughput       Metric = "PR_THROUGHPUT"
	CommitCount        Metric = "COMMIT_COUNT"
	PRMergedCount      Metric = "PR_MERGED_COUNT"
	PRCycleTime        Metric = "PR_CYCLE_TIME"
	BuildSuccessRate   Metric = "BUILD_SUCCESS_RATE"
	BuildDuration      Metric = "BUILD_DURATION"
	VulnerabilityCount Metric = "VULNERABILITY_COUNT"
)

// Event kinds recorded by integrations.
const (
	IssueOpened           EventKind = "ISSUE_OPENED"
	IssueClosed           EventKind = "ISSUE_CLOSED"
	BugOpened             EventKind = "BUG_OPENED"
	BugClosed             EventKind = "BUG_CLOSED"
	CommitPushed          EventKind = "COMMIT"
	PROpened              EventKind = "PR_OPENED"
	PRMerged              EventKind = "PR_MERGED"
	BuildStarted          EventKind = "BUILD_STARTED"
	BuildSucceeded        EventKind = "BUILD_SUCCEEDED"
	BuildFailed           EventKind = "BUILD_FAILED"
	VulnerabilityDetected EventKind = "VULNERABILITY_DETECTED"
	VulnerabilityResolved EventKind = "VULNERABILITY_RESOLVED"
)

// Integration sources.
const (
	IssueTrackerSource Source = "issue_tracker"
	GitSource          Source = "git"
	CISource           Source = "ci"
	SecuritySource     Source = "security"
)

// Derivation rules.
const (
	RatioRule Rule = "ratio"
	CountRule Rule = "count"
	MeanRule  Rule = "mean"
)

// Chart data states.
const (
	ReadyState         ChartDataState = "READY"
	NoIntegrationState ChartDataState = "NO_INTEGRATION"
	NotConfiguredState ChartDataState = "NOT_CONFIGURED"
	ErrorState         ChartDataState = "ERROR"
)

// Orchestration phases in the order they run.
const (
	ResolvingFilterPhase Phase = "RESOLVING_FILTER"
	FetchingDataPhase    Phase = "FETCHING_DATA"
	AggregatingPhase     Phase = "AGGREGATING"
	DerivingPhase        Phase = "DERIVING"
	ComparingPhase       Phase = "COMPARING"
	AssembledPhase       Phase = "ASSEMBLED"
)

// Threshold classifications.
const (
	Meets   Classification = "MEETS"
	Warning Classification = "WARNING"
	Breach  Classification = "BREACH"
)

// Threshold directions.
const (
	HigherIsBetter Direction = "HIGHER_IS_BETTER"
	LowerIsBetter  Direction = "LOWER_IS_BETTER"
)

// Trends.
const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
	PromOut    OutputMode = "prom"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// AllGranularities lists the granularities from finest to coarsest.
var AllGranularities = []Granularity{DayGranularity, WeekGranularity, MonthGranularity, QuarterGranularity}

// ValidGranularities lists all valid granularities.
var ValidGranularities = map[Granularity]struct{}{
	DayGranularity:     {},
	WeekGranularity:    {},
	MonthGranularity:   {},
	QuarterGranularity: {},
}

// ValidRules lists all valid derivation rules.
var ValidRules = map[Rule]struct{}{
	RatioRule: {},
	CountRule: {},
	MeanRule:  {},
}

// ValidDirections lists all valid threshold directions.
var ValidDirections = map[Direction]struct{}{
	HigherIsBetter: {},
	LowerIsBetter:  {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
	PromOut:    {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
