package schema

// PreviousPeriodStat compares the final value of a period against its predecessor.
type PreviousPeriodStat struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Delta    float64 `json:"delta"`

	// PercentChange is nil when the previous value is zero or there is no history.
	PercentChange *float64 `json:"percent_change"`
	Trend         Trend    `json:"trend"`
	HasHistory    bool     `json:"has_history"`
}

// PercentAvailable reports whether a percentage change could be computed.
func (p PreviousPeriodStat) PercentAvailable() bool {
	return p.PercentChange != nil
}

// ThresholdResult is the classification of a value against configured cutoffs.
type ThresholdResult struct {
	Value          float64        `json:"value"`
	Classification Classification `json:"classification"`
	Direction      Direction      `json:"direction"`
	Granularity    Granularity    `json:"granularity"`
	Target         float64        `json:"target"`
	Warning        *float64       `json:"warning,omitempty"`
}
