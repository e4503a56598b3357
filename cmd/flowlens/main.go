// main is the entry point of the flowlens CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/flowlens/cmd"
	"github.com/huangsam/flowlens/internal/iostore"
)

func main() {
	err := cmd.Execute()

	iostore.CloseStores()
	cmd.SyncLogger()
	if perr := cmd.StopProfiling(); perr != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warn profiling: %v\n", perr)
	}

	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
