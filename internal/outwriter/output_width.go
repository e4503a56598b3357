package outwriter

import (
	"os"

	"github.com/huangsam/flowlens/internal/contract"
	"golang.org/x/term"
)

// getTerminalWidth returns the width override from flag/env or the detected terminal width.
func getTerminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		// Fallback to conservative default if terminal size can't be detected
		return 80
	}
	return detectedWidth
}

// getMaxTableTextWidth calculates the room left for the free-text column of a table
// whose other columns take about fixedWidth characters.
func getMaxTableTextWidth(cfg *contract.Config, fixedWidth int) int {
	// Reserve generous space for table borders, separators, and padding
	available := getTerminalWidth(cfg) - fixedWidth - 20
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
