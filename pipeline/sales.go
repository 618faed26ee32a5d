package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"salesdash/analytics"
	"salesdash/models"
	"salesdash/utils"
)

// dynamicLookbackDays is how much history feeds the dynamic MTD pace.
const dynamicLookbackDays = 210

// LineAmounts is revenue per product line. GrandTotal covers mapped lines
// only; Unmapped is reported beside it.
type LineAmounts struct {
	GrandTotal float64 `json:"grand_total"`
	IQBAR      float64 `json:"iqbar"`
	IQMIX      float64 `json:"iqmix"`
	IQJOE      float64 `json:"iqjoe"`
	Unmapped   float64 `json:"unmapped"`
}

func (a LineAmounts) Line(l models.ProductLine) float64 {
	switch l {
	case models.ProductLineIQBAR:
		return a.IQBAR
	case models.ProductLineIQMIX:
		return a.IQMIX
	case models.ProductLineIQJOE:
		return a.IQJOE
	case models.ProductLineUnmapped:
		return a.Unmapped
	}
	return 0
}

func sumByLine(rows []models.DailyRevenueRow) LineAmounts {
	var iqbar, iqmix, iqjoe, unmapped utils.Money
	for _, row := range rows {
		switch row.ProductLine {
		case models.ProductLineIQBAR:
			iqbar.Add(row.Revenue)
		case models.ProductLineIQMIX:
			iqmix.Add(row.Revenue)
		case models.ProductLineIQJOE:
			iqjoe.Add(row.Revenue)
		default:
			unmapped.Add(row.Revenue)
		}
	}
	return LineAmounts{
		GrandTotal: utils.SumMoney(iqbar.Float64(), iqmix.Float64(), iqjoe.Float64()),
		IQBAR:      iqbar.Float64(),
		IQMIX:      iqmix.Float64(),
		IQJOE:      iqjoe.Float64(),
		Unmapped:   unmapped.Float64(),
	}
}

// LineDeltas are fractional changes against the comparison window, nil
// where the comparison amount is zero.
type LineDeltas struct {
	GrandTotal *float64 `json:"grand_total"`
	IQBAR      *float64 `json:"iqbar"`
	IQMIX      *float64 `json:"iqmix"`
	IQJOE      *float64 `json:"iqjoe"`
}

func deltas(curr, comp LineAmounts) LineDeltas {
	return LineDeltas{
		GrandTotal: analytics.PctDelta(curr.GrandTotal, comp.GrandTotal),
		IQBAR:      analytics.PctDelta(curr.IQBAR, comp.IQBAR),
		IQMIX:      analytics.PctDelta(curr.IQMIX, comp.IQMIX),
		IQJOE:      analytics.PctDelta(curr.IQJOE, comp.IQJOE),
	}
}

// Pace is one month-end projection measured against the goal.
type Pace struct {
	ProjectedTotal float64  `json:"projected_total"`
	Goal           float64  `json:"goal"`
	PaceToGoal     *float64 `json:"pace_to_goal"`
	PaceDelta      *float64 `json:"pace_delta"`
}

func newPace(projected, goal float64) *Pace {
	p := &Pace{ProjectedTotal: projected, Goal: goal}
	if goal > 0 {
		ratio := projected / goal
		delta := ratio - 1
		p.PaceToGoal = &ratio
		p.PaceDelta = &delta
	}
	return p
}

// LinePace projects one product line to month end.
type LinePace struct {
	ProductLine      models.ProductLine `json:"product_line"`
	Current          float64            `json:"current"`
	LinearProjected  float64            `json:"linear_projected"`
	DynamicProjected *float64           `json:"dynamic_projected"`
}

// MTDPace is set only when the primary range is month-to-date.
type MTDPace struct {
	ElapsedDays int        `json:"elapsed_days"`
	MonthDays   int        `json:"month_days"`
	Linear      *Pace      `json:"linear"`
	Dynamic     *Pace      `json:"dynamic"`
	Lines       []LinePace `json:"lines"`
}

type SalesSummary struct {
	Current LineAmounts `json:"current"`
	Compare LineAmounts `json:"compare"`
	Deltas  LineDeltas  `json:"deltas"`
	MTD     *MTDPace    `json:"mtd"`
}

type DailyRow struct {
	Date  string  `json:"date"`
	IQBAR float64 `json:"iqbar"`
	IQMIX float64 `json:"iqmix"`
	IQJOE float64 `json:"iqjoe"`
	Total float64 `json:"total"`
}

type PivotRow struct {
	Date      string `json:"date"`
	DateLabel string `json:"date_label"`
	LineAmounts
}

type SalesData struct {
	Summary SalesSummary `json:"summary"`
	Daily   []DailyRow   `json:"daily"`
	Pivot   []PivotRow   `json:"pivot"`
}

func (r *request) sales() (SalesData, error) {
	current, err := r.loader.dailyRows(r.primary)
	if err != nil {
		return SalesData{}, fmt.Errorf("load current window: %w", err)
	}
	previous, err := r.loader.dailyRows(r.compare)
	if err != nil {
		return SalesData{}, fmt.Errorf("load comparison window: %w", err)
	}

	out := SalesData{Daily: []DailyRow{}, Pivot: []PivotRow{}}
	curr := sumByLine(current)
	comp := sumByLine(previous)
	out.Summary = SalesSummary{Current: curr, Compare: comp, Deltas: deltas(curr, comp)}

	if r.primary.IsMonthToDate() {
		mtd, err := r.mtdPace(curr)
		if err != nil {
			return SalesData{}, err
		}
		out.Summary.MTD = mtd
	}

	for _, day := range groupByDay(current) {
		out.Daily = append(out.Daily, DailyRow{
			Date:  day.date,
			IQBAR: day.amounts.IQBAR,
			IQMIX: day.amounts.IQMIX,
			IQJOE: day.amounts.IQJOE,
			Total: day.amounts.GrandTotal,
		})
		out.Pivot = append(out.Pivot, PivotRow{
			Date:        day.date,
			DateLabel:   utils.LongDateLabel(day.at),
			LineAmounts: day.amounts,
		})
	}
	return out, nil
}

// mtdPace projects the month containing the primary range's end two ways:
// a straight-line extrapolation and the revenue projector. Lines share the
// projector's overall ratio.
func (r *request) mtdPace(curr LineAmounts) (*MTDPace, error) {
	end := r.primary.End
	elapsed := end.Day()
	monthDays := analytics.DaysInMonth(end.Year(), end.Month())

	goal, err := r.loader.repo.MonthlyGoal(r.ctx, r.query.Channel, end.Year(), end.Month())
	if err != nil {
		return nil, fmt.Errorf("load monthly goal: %w", err)
	}

	linearOf := func(v float64) float64 {
		return v / float64(elapsed) * float64(monthDays)
	}
	pace := &MTDPace{
		ElapsedDays: elapsed,
		MonthDays:   monthDays,
		Linear:      newPace(linearOf(curr.GrandTotal), goal),
	}

	history, err := r.loader.dailyRows(analytics.NewDateRange(end.AddDate(0, 0, -dynamicLookbackDays), end))
	if err != nil {
		return nil, fmt.Errorf("load pace history: %w", err)
	}
	mtd, months := analytics.SplitMonths(dailyTotals(history), end)
	result, err := analytics.Project(mtd, months, r.resolution.Assumptions, goal)
	switch {
	case errors.Is(err, analytics.ErrNoMTDData):
	case err != nil:
		return nil, fmt.Errorf("dynamic pace: %w", err)
	default:
		pace.Dynamic = newPace(result.ProjectedTotal, goal)
	}

	for _, line := range models.ProductLines {
		lp := LinePace{
			ProductLine:     line,
			Current:         curr.Line(line),
			LinearProjected: linearOf(curr.Line(line)),
		}
		if pace.Dynamic != nil && curr.GrandTotal > 0 {
			v := lp.Current * (pace.Dynamic.ProjectedTotal / curr.GrandTotal)
			lp.DynamicProjected = &v
		}
		pace.Lines = append(pace.Lines, lp)
	}
	return pace, nil
}

type dayAmounts struct {
	date    string
	at      time.Time
	amounts LineAmounts
}

// groupByDay buckets rows per calendar day, oldest first.
func groupByDay(rows []models.DailyRevenueRow) []dayAmounts {
	byDay := make(map[string][]models.DailyRevenueRow)
	dates := make(map[string]time.Time)
	for _, row := range rows {
		d := analytics.Day(row.Date)
		key := d.Format(analytics.DateLayout)
		byDay[key] = append(byDay[key], row)
		dates[key] = d
	}
	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]dayAmounts, 0, len(keys))
	for _, k := range keys {
		out = append(out, dayAmounts{date: k, at: dates[k], amounts: sumByLine(byDay[k])})
	}
	return out
}
