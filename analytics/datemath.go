package analytics

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// Preset names a dashboard date window.
type Preset string

const (
	PresetMTD    Preset = "MTD"
	PresetYTD    Preset = "YTD"
	PresetLast30 Preset = "Last 30"
	PresetLast90 Preset = "Last 90"
	PresetCustom Preset = "Custom"
)

// CompareMode selects how a comparison window is derived from the primary range.
type CompareMode string

const (
	ComparePreviousPeriod CompareMode = "previous_period"
	ComparePreviousYear   CompareMode = "previous_year"
	CompareMoM            CompareMode = "mom"
)

// ParsePreset maps a free-form preset name to a Preset. The boolean is false
// for unknown names, in which case PresetMTD is returned.
func ParsePreset(s string) (Preset, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mtd", "":
		return PresetMTD, true
	case "ytd":
		return PresetYTD, true
	case "last 30", "last30", "last_30":
		return PresetLast30, true
	case "last 90", "last90", "last_90":
		return PresetLast90, true
	case "custom":
		return PresetCustom, true
	}
	return PresetMTD, false
}

// ParseCompareMode maps a free-form mode to a CompareMode. Unknown modes fall
// back to ComparePreviousPeriod with ok=false.
func ParseCompareMode(s string) (CompareMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "previous_period", "":
		return ComparePreviousPeriod, true
	case "previous_year":
		return ComparePreviousYear, true
	case "mom":
		return CompareMoM, true
	}
	return ComparePreviousPeriod, false
}

// DateRange is an inclusive span of calendar days. The zero value is the
// "unresolvable" range and callers skip comparisons against it.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from two dates, swapping them when inverted.
func NewDateRange(start, end time.Time) DateRange {
	if start.IsZero() || end.IsZero() {
		return DateRange{}
	}
	s, e := Day(start), Day(end)
	if s.After(e) {
		s, e = e, s
	}
	return DateRange{Start: s, End: e}
}

func (r DateRange) IsEmpty() bool {
	return r.Start.IsZero() || r.End.IsZero()
}

// Days returns the inclusive day count, 0 for the empty range.
func (r DateRange) Days() int {
	if r.IsEmpty() {
		return 0
	}
	return daysBetween(r.Start, r.End) + 1
}

func (r DateRange) Contains(t time.Time) bool {
	if r.IsEmpty() {
		return false
	}
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Shift moves both bounds by n days.
func (r DateRange) Shift(n int) DateRange {
	if r.IsEmpty() {
		return r
	}
	return DateRange{Start: r.Start.AddDate(0, 0, n), End: r.End.AddDate(0, 0, n)}
}

// IsMonthToDate reports whether the range starts on the 1st and ends in the same month.
func (r DateRange) IsMonthToDate() bool {
	if r.IsEmpty() {
		return false
	}
	return r.Start.Day() == 1 && r.Start.Year() == r.End.Year() && r.Start.Month() == r.End.Month()
}

func (r DateRange) StartString() string {
	if r.IsEmpty() {
		return ""
	}
	return r.Start.Format(DateLayout)
}

func (r DateRange) EndString() string {
	if r.IsEmpty() {
		return ""
	}
	return r.End.Format(DateLayout)
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}{r.StartString(), r.EndString()})
}

// ResolvePreset turns a preset into a concrete range ending at maxDate.
// Computed starts earlier than minDate are clamped to it. Custom uses the
// caller-supplied range as given (swapped if inverted). An unknown preset is
// treated as MTD. A zero maxDate, or a Custom preset without a usable range,
// yields the empty range.
func ResolvePreset(preset Preset, maxDate, minDate time.Time, custom DateRange) DateRange {
	if preset == PresetCustom {
		return NewDateRange(custom.Start, custom.End)
	}
	if maxDate.IsZero() {
		return DateRange{}
	}
	end := Day(maxDate)

	var start time.Time
	switch preset {
	case PresetYTD:
		start = time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case PresetLast30:
		start = end.AddDate(0, 0, -29)
	case PresetLast90:
		start = end.AddDate(0, 0, -89)
	default:
		start = MonthStart(end)
	}

	if !minDate.IsZero() {
		if floor := Day(minDate); start.Before(floor) && !floor.After(end) {
			start = floor
		}
	}
	return DateRange{Start: start, End: end}
}

// ResolveComparisonRange derives the comparison window for primary.
//
//   - previous_period: both bounds move back by the inclusive length of primary.
//   - previous_year: both bounds move back one calendar year; Feb 29 becomes Feb 28.
//   - mom: each bound moves back one month, its day clamped to the target month's length.
//
// Unknown modes behave like previous_period.
func ResolveComparisonRange(primary DateRange, mode CompareMode) DateRange {
	if primary.IsEmpty() {
		return DateRange{}
	}
	switch mode {
	case ComparePreviousYear:
		return DateRange{Start: AddMonthsClamped(primary.Start, -12), End: AddMonthsClamped(primary.End, -12)}
	case CompareMoM:
		return DateRange{Start: AddMonthsClamped(primary.Start, -1), End: AddMonthsClamped(primary.End, -1)}
	default:
		return primary.Shift(-primary.Days())
	}
}

// ClampRange limits r to [lo, hi]. Zero bounds are ignored. A range lying
// entirely outside the bounds clamps to the empty range.
func ClampRange(r DateRange, lo, hi time.Time) DateRange {
	if r.IsEmpty() {
		return r
	}
	s, e := r.Start, r.End
	if !lo.IsZero() && s.Before(Day(lo)) {
		s = Day(lo)
	}
	if !hi.IsZero() && e.After(Day(hi)) {
		e = Day(hi)
	}
	if s.After(e) {
		return DateRange{}
	}
	return DateRange{Start: s, End: e}
}

// AddMonthsClamped moves t by n months keeping the day-of-month where the
// target month allows it and clamping to its last day otherwise.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysInMonth(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func MonthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), DaysInMonth(t.Year(), t.Month()), 0, 0, 0, 0, time.UTC)
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func daysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// PctDelta is the relative change from comp to curr, nil when comp is ~0.
func PctDelta(curr, comp float64) *float64 {
	if comp > -1e-9 && comp < 1e-9 {
		return nil
	}
	v := (curr - comp) / comp
	return &v
}
