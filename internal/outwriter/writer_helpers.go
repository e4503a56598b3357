package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/huangsam/flowlens/internal/contract"
)

// writeWithFile sends one rendering of results, details or the catalog to --output-file,
// or to stdout when no file is set. The status line goes to stderr so piped output stays clean.
func writeWithFile(outputFile string, render func(io.Writer) error, status string) (err error) {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	if file == os.Stdout {
		return render(file)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", outputFile, closeErr)
		}
	}()
	if err := render(file); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 %s to %s\n", status, outputFile)
	return nil
}

// writeJSON writes data as indented JSON.
func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes header followed by the rows produced by writeRows.
// Buffered write errors surface from the final flush.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(cw); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// createFormatters returns the value formatter for metric values, deltas and cutoffs
// at the configured precision, plus the format for counts.
// Values that round to zero print without a sign, and NaN or Inf print as "n/a".
func createFormatters(precision int) (fmtFloat func(float64) string, intFmt string) {
	fmtFloat = func(v float64) string {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "n/a"
		}
		s := fmt.Sprintf("%.*f", precision, v)
		if strings.HasPrefix(s, "-") && strings.Trim(s, "-0.") == "" {
			return s[1:]
		}
		return s
	}
	return fmtFloat, "%d"
}
