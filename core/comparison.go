package core

import "github.com/huangsam/flowlens/schema"

// Compare compares the final values of the current and previous derived series.
// An empty previous series yields the current value with zero delta and no percentage.
func Compare(current, previous schema.DerivedSeries) schema.PreviousPeriodStat {
	cur, _ := current.Last()
	prev, ok := previous.Last()
	if !ok {
		return schema.PreviousPeriodStat{Current: cur, Trend: schema.TrendFlat}
	}

	stat := schema.PreviousPeriodStat{
		Current:    cur,
		Previous:   prev,
		Delta:      cur - prev,
		Trend:      trendOf(cur - prev),
		HasHistory: true,
	}
	if prev != 0 {
		pct := (cur - prev) / prev * 100
		stat.PercentChange = &pct
	}
	return stat
}

func trendOf(delta float64) schema.Trend {
	switch {
	case delta > 0:
		return schema.TrendUp
	case delta < 0:
		return schema.TrendDown
	default:
		return schema.TrendFlat
	}
}
