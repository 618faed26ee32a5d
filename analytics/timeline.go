package analytics

import (
	"sort"
	"time"
)

// DailyValue is one day of a revenue series.
type DailyValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MonthSeries holds the daily values of one calendar month.
type MonthSeries []DailyValue

// timeline indexes daily values by calendar day. Repeated days are summed.
type timeline struct {
	values map[time.Time]float64
}

func newTimeline(series ...[]DailyValue) timeline {
	tl := timeline{values: make(map[time.Time]float64)}
	for _, s := range series {
		for _, v := range s {
			if v.Date.IsZero() {
				continue
			}
			tl.values[Day(v.Date)] += v.Value
		}
	}
	return tl
}

func (tl timeline) get(d time.Time) (float64, bool) {
	v, ok := tl.values[Day(d)]
	return v, ok
}

// dated returns the observed days in [from, to], oldest first.
func (tl timeline) dated(from, to time.Time) []DailyValue {
	from, to = Day(from), Day(to)
	out := make([]DailyValue, 0)
	for d, v := range tl.values {
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, DailyValue{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// window returns the observed values in [from, to].
func (tl timeline) window(from, to time.Time) []float64 {
	dv := tl.dated(from, to)
	out := make([]float64, len(dv))
	for i, v := range dv {
		out[i] = v.Value
	}
	return out
}

func (tl timeline) sum(from, to time.Time) float64 {
	total := 0.0
	for _, v := range tl.window(from, to) {
		total += v
	}
	return total
}

// until returns a copy holding only days on or before asOf.
func (tl timeline) until(asOf time.Time) timeline {
	asOf = Day(asOf)
	out := timeline{values: make(map[time.Time]float64, len(tl.values))}
	for d, v := range tl.values {
		if !d.After(asOf) {
			out.values[d] = v
		}
	}
	return out
}

// monthsBefore lists, oldest first, the month starts with data strictly before limit.
func (tl timeline) monthsBefore(limit time.Time) []time.Time {
	seen := make(map[time.Time]bool)
	for d := range tl.values {
		if d.Before(limit) {
			seen[MonthStart(d)] = true
		}
	}
	out := make([]time.Time, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// SplitMonths separates a daily series into the month containing asOf (up
// to asOf) and the earlier months, oldest first. Days after asOf are dropped.
func SplitMonths(daily []DailyValue, asOf time.Time) ([]DailyValue, []MonthSeries) {
	asOf = Day(asOf)
	monthStart := MonthStart(asOf)
	mtd := make([]DailyValue, 0)
	byMonth := make(map[time.Time]MonthSeries)
	for _, v := range daily {
		d := Day(v.Date)
		if d.After(asOf) || d.IsZero() {
			continue
		}
		if !d.Before(monthStart) {
			mtd = append(mtd, DailyValue{Date: d, Value: v.Value})
			continue
		}
		m := MonthStart(d)
		byMonth[m] = append(byMonth[m], DailyValue{Date: d, Value: v.Value})
	}
	keys := make([]time.Time, 0, len(byMonth))
	for m := range byMonth {
		keys = append(keys, m)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	months := make([]MonthSeries, 0, len(keys))
	for _, m := range keys {
		months = append(months, byMonth[m])
	}
	sort.Slice(mtd, func(i, j int) bool { return mtd[i].Date.Before(mtd[j].Date) })
	return mtd, months
}
