package iostore

import (
	"fmt"
	"slices"

	"github.com/huangsam/flowlens/schema"
	"github.com/samber/lo"
)

const statusTimeFormat = "2006-01-02 15:04:05"

// PrintEventStatus prints event store status information.
func PrintEventStatus(status schema.EventStoreStatus) {
	fmt.Printf("Event Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Events: %d\n", status.TotalEvents)
	if status.TotalEvents > 0 {
		fmt.Printf("Newest Event: %s\n", status.NewestEventTime.Format(statusTimeFormat))
		fmt.Printf("Oldest Event: %s\n", status.OldestEventTime.Format(statusTimeFormat))
	}
	printTableSizes(status.TableSizes)
}

// PrintRunStatus prints run store status information.
func PrintRunStatus(status schema.RunStoreStatus) {
	fmt.Printf("Run Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		fmt.Printf("Last Run ID: %d\n", status.LastRunID)
		fmt.Printf("Last Run: %s\n", status.LastRunTime.Format(statusTimeFormat))
		fmt.Printf("Oldest Run: %s\n", status.OldestRunTime.Format(statusTimeFormat))
		fmt.Printf("Failed Runs: %d\n", status.FailedRuns)
	}
	printTableSizes(status.TableSizes)
}

func printTableSizes(sizes map[string]int64) {
	fmt.Println("Table Sizes:")
	tables := lo.Keys(sizes)
	slices.Sort(tables)
	for _, table := range tables {
		fmt.Printf("  %s: %d rows\n", table, sizes[table])
	}
}
