package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/flowlens/schema"
)

// Color variables for console output.
var (
	BreachColor  = color.New(color.FgRed, color.Bold) // BreachColor represents standard danger.
	WarningColor = color.New(color.FgYellow)          // WarningColor represents standard caution, not bold.
	MeetsColor   = color.New(color.FgGreen)           // MeetsColor represents a healthy value.
	NeutralColor = color.New(color.FgCyan)            // NeutralColor represents informational output.
)

// GetPlainLabel returns the plain text label of a threshold classification.
// An empty classification means no threshold was evaluated.
func GetPlainLabel(c schema.Classification) string {
	switch c {
	case schema.Meets:
		return "Meets"
	case schema.Warning:
		return "Warning"
	case schema.Breach:
		return "Breach"
	default:
		return "-"
	}
}

// GetColorLabel returns a colored classification label for console output (table).
func GetColorLabel(c schema.Classification) string {
	text := GetPlainLabel(c)

	switch c {
	case schema.Meets:
		return MeetsColor.Sprint(text)
	case schema.Warning:
		return WarningColor.Sprint(text)
	case schema.Breach:
		return BreachColor.Sprint(text)
	default:
		return text
	}
}

// GetStateLabel returns a colored label for a chart data state.
func GetStateLabel(s schema.ChartDataState) string {
	switch s {
	case schema.ReadyState:
		return MeetsColor.Sprint(s)
	case schema.NoIntegrationState, schema.NotConfiguredState:
		return WarningColor.Sprint(s)
	default:
		return BreachColor.Sprint(s)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetEventDBFilePath returns the path to the SQLite DB file for event storage.
func GetEventDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".flowlens_events.db"
	}
	return filepath.Join(homeDir, ".flowlens_events.db")
}

// GetRunDBFilePath returns the path to the SQLite DB file for run history.
func GetRunDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".flowlens_runs.db"
	}
	return filepath.Join(homeDir, ".flowlens_runs.db")
}

// TruncateText truncates a string to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 to leave room for the ellipsis and at least one character.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
