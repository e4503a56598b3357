// Package agg has the bucketing logic that turns raw events into time series.
package agg

import (
	"fmt"
	"sort"
	"time"

	"github.com/huangsam/flowlens/schema"
)

// Options controls how a window is partitioned into buckets.
type Options struct {
	Granularity schema.Granularity
	WeekStart   time.Weekday
	Location    *time.Location
}

// location returns the configured location or UTC.
func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Bucketize partitions the window into calendar-aligned buckets and assigns every event to
// exactly one of them. Buckets without events are still emitted. The first and last buckets
// are clipped to the window so that the buckets cover it exactly.
func Bucketize(events []schema.RawEvent, flow schema.FlowMapping, opts Options, window schema.Window) (schema.Series, error) {
	buckets, err := BuildBuckets(opts, window)
	if err != nil {
		return schema.Series{}, err
	}

	for _, e := range events {
		if !window.Contains(e.Timestamp) {
			return schema.Series{}, fmt.Errorf("event %q at %s is outside window [%s, %s)",
				e.ID, e.Timestamp.Format(time.RFC3339), window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
		}
		b := &buckets[findBucket(buckets, e.Timestamp)]
		b.Counts[e.Kind]++
		if _, ok := flow.Inflow[e.Kind]; ok {
			b.Inflow++
		}
		if _, ok := flow.Outflow[e.Kind]; ok {
			b.Outflow++
			b.OutflowValue += e.Value
		}
	}

	accumulate(buckets)

	return schema.Series{
		Granularity: opts.Granularity,
		Window:      window,
		Buckets:     buckets,
	}, nil
}

// BuildBuckets returns the empty, ordered buckets covering the window.
// A zero-length window has no buckets.
func BuildBuckets(opts Options, window schema.Window) ([]schema.Bucket, error) {
	if _, ok := schema.ValidGranularities[opts.Granularity]; !ok {
		return nil, fmt.Errorf("unsupported granularity %q", opts.Granularity)
	}
	if window.End.Before(window.Start) {
		return nil, fmt.Errorf("window end %s is before start %s", window.End, window.Start)
	}

	loc := opts.location()
	start := window.Start.In(loc)
	end := window.End.In(loc)

	buckets := []schema.Bucket{}
	for cursor := AlignStart(start, opts.Granularity, opts.WeekStart); cursor.Before(end); {
		next := Step(cursor, opts.Granularity)
		bStart, bEnd := cursor, next
		if bStart.Before(start) {
			bStart = start
		}
		if bEnd.After(end) {
			bEnd = end
		}
		buckets = append(buckets, schema.Bucket{
			Label:  Label(cursor, opts.Granularity),
			Start:  bStart,
			End:    bEnd,
			Counts: map[schema.EventKind]int{},
		})
		cursor = next
	}
	return buckets, nil
}

// AlignStart truncates t to the start of its calendar bucket in t's location.
func AlignStart(t time.Time, g schema.Granularity, weekStart time.Weekday) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch g {
	case schema.DayGranularity:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case schema.WeekGranularity:
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
		return day.AddDate(0, 0, -offset)
	case schema.MonthGranularity:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case schema.QuarterGranularity:
		return time.Date(y, quarterStartMonth(m), 1, 0, 0, 0, 0, loc)
	default:
		return t
	}
}

// Step returns the start of the bucket after the aligned time t.
func Step(t time.Time, g schema.Granularity) time.Time {
	switch g {
	case schema.DayGranularity:
		return t.AddDate(0, 0, 1)
	case schema.WeekGranularity:
		return t.AddDate(0, 0, 7)
	case schema.MonthGranularity:
		return t.AddDate(0, 1, 0)
	case schema.QuarterGranularity:
		return t.AddDate(0, 3, 0)
	default:
		return t
	}
}

// Label formats the aligned bucket start for display.
func Label(t time.Time, g schema.Granularity) string {
	switch g {
	case schema.MonthGranularity:
		return t.Format("2006-01")
	case schema.QuarterGranularity:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	default:
		return t.Format("2006-01-02")
	}
}

func quarterStartMonth(m time.Month) time.Month {
	return time.Month((int(m)-1)/3*3 + 1)
}

// findBucket returns the index of the last bucket starting at or before t.
// The caller guarantees t is inside the window.
func findBucket(buckets []schema.Bucket, t time.Time) int {
	return sort.Search(len(buckets), func(i int) bool {
		return buckets[i].Start.After(t)
	}) - 1
}

// accumulate fills the running totals left to right.
func accumulate(buckets []schema.Bucket) {
	var in, out int
	for i := range buckets {
		in += buckets[i].Inflow
		out += buckets[i].Outflow
		buckets[i].CumulativeInflow = in
		buckets[i].CumulativeOutflow = out
	}
}
