package analytics

import (
	"errors"
	"math"
	"time"
)

const (
	recentWindowDays        = 14
	minPriorDays            = 7
	seasonalityLookbackDays = 90
	baselineLookbackDays    = 84
	backtestMaxMonths       = 6
	minBacktestMonths       = 2
	ciZ                     = 1.96
	minVolatility           = 0.1
)

// ErrNoMTDData is returned when the current month has no observed days.
var ErrNoMTDData = errors.New("no month-to-date revenue to project from")

// Assumptions are the fully resolved forecast inputs. Scenario names live
// outside this package; by the time a projection runs only the numbers remain.
type Assumptions struct {
	RecentWeight         float64 `json:"recent_weight" yaml:"recent_weight"`
	MoMWeight            float64 `json:"mom_weight" yaml:"mom_weight"`
	WeekdayStrength      float64 `json:"weekday_strength" yaml:"weekday_strength"`
	ManualMultiplier     float64 `json:"manual_multiplier" yaml:"manual_multiplier"`
	PromoLiftPct         float64 `json:"promo_lift_pct" yaml:"promo_lift_pct"`
	ContentLiftPct       float64 `json:"content_lift_pct" yaml:"content_lift_pct"`
	InstockRate          float64 `json:"instock_rate" yaml:"instock_rate"`
	GrowthFloor          float64 `json:"growth_floor" yaml:"growth_floor"`
	GrowthCeiling        float64 `json:"growth_ceiling" yaml:"growth_ceiling"`
	VolatilityMultiplier float64 `json:"volatility_multiplier" yaml:"volatility_multiplier"`
}

// DefaultAssumptions are the "base" values.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		RecentWeight:         0.6,
		MoMWeight:            0.4,
		WeekdayStrength:      1.0,
		ManualMultiplier:     1.0,
		PromoLiftPct:         0.0,
		ContentLiftPct:       0.0,
		InstockRate:          1.0,
		GrowthFloor:          0.5,
		GrowthCeiling:        1.8,
		VolatilityMultiplier: 1.0,
	}
}

// EffectiveMultiplier is the product of every scenario adjustment applied on
// top of the clamped baseline growth factor.
func (a Assumptions) EffectiveMultiplier() float64 {
	return a.WeekdayStrength * a.ManualMultiplier * (1 + a.PromoLiftPct) * (1 + a.ContentLiftPct) * a.InstockRate
}

// ChartPoint is one day of the month chart.
type ChartPoint struct {
	Date          string  `json:"date"`
	ActualDaily   float64 `json:"actual_daily"`
	ForecastDaily float64 `json:"forecast_daily"`
}

// BacktestMonth compares a simulated projection against the completed month.
type BacktestMonth struct {
	Month     string  `json:"month"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
	APE       float64 `json:"ape"`
}

// ForecastResult is the month-end revenue projection.
type ForecastResult struct {
	AsOfDate         string             `json:"as_of_date"`
	MTDActual        float64            `json:"mtd_actual"`
	ProjectedTotal   float64            `json:"projected_total"`
	LinearTotal      float64            `json:"linear_total"`
	CILow            float64            `json:"ci_low"`
	CIHigh           float64            `json:"ci_high"`
	MAPE             *float64           `json:"mape"`
	MAPEMonths       int                `json:"mape_months"`
	BaseGrowthFactor float64            `json:"base_growth_factor"`
	GrowthFactor     float64            `json:"growth_factor"`
	Goal             float64            `json:"goal"`
	PaceToGoal       *float64           `json:"pace_to_goal"`
	PaceDelta        *float64           `json:"pace_delta"`
	LinearPace       *float64           `json:"linear_pace"`
	StatSig          SignificanceResult `json:"stat_sig"`
	ElapsedDays      int                `json:"elapsed_days"`
	MonthDays        int                `json:"month_days"`
	RemainingDays    int                `json:"remaining_days"`
	Chart            []ChartPoint       `json:"chart"`
	Backtest         []BacktestMonth    `json:"backtest"`
}

// monthProjection is the outcome of one run of the projection model.
type monthProjection struct {
	asOf       time.Time
	monthStart time.Time
	monthEnd   time.Time

	mtdActual   float64
	elapsedDays int
	monthDays   int

	recentAvg   float64
	baseGF      float64
	adjustedGF  float64
	weekday     [7]float64
	residualStd float64

	forecast  []DailyValue
	remaining float64
	projected float64
}

// projectMonth runs the model for the month containing asOf using every
// observed day in tl on or before asOf.
func projectMonth(tl timeline, asOf time.Time, a Assumptions) (monthProjection, bool) {
	asOf = Day(asOf)
	p := monthProjection{
		asOf:       asOf,
		monthStart: MonthStart(asOf),
		monthEnd:   MonthEnd(asOf),
	}

	current := tl.window(p.monthStart, asOf)
	if len(current) == 0 {
		return p, false
	}
	for _, v := range current {
		p.mtdActual += v
	}
	p.elapsedDays = asOf.Day()
	p.monthDays = p.monthEnd.Day()

	// 1. Baseline growth from the recent trend and the month-over-month pace.
	recent := tl.window(asOf.AddDate(0, 0, -(recentWindowDays-1)), asOf)
	prior := tl.window(asOf.AddDate(0, 0, -(2*recentWindowDays-1)), asOf.AddDate(0, 0, -recentWindowDays))
	if len(recent) > 0 {
		p.recentAvg = Mean(recent)
	} else {
		p.recentAvg = p.mtdActual / float64(p.elapsedDays)
	}
	recentRatio := 1.0
	if len(prior) >= minPriorDays {
		recentRatio = safeRatio(p.recentAvg, Mean(prior), 1.0)
	}

	prevStart := MonthStart(p.monthStart.AddDate(0, 0, -1))
	prevDays := p.elapsedDays
	if n := DaysInMonth(prevStart.Year(), prevStart.Month()); prevDays > n {
		prevDays = n
	}
	prevWindow := tl.window(prevStart, prevStart.AddDate(0, 0, prevDays-1))
	momRatio := 1.0
	if len(prevWindow) > 0 {
		prevSum := 0.0
		for _, v := range prevWindow {
			prevSum += v
		}
		momRatio = safeRatio(p.mtdActual/float64(p.elapsedDays), prevSum/float64(prevDays), 1.0)
	}

	blended := math.Max(a.RecentWeight, 0)*recentRatio + math.Max(a.MoMWeight, 0)*momRatio
	p.baseGF = clamp(blended, a.GrowthFloor, a.GrowthCeiling)

	// 2. Scenario adjustments.
	p.adjustedGF = p.baseGF * a.EffectiveMultiplier()

	// 3. Weekday seasonality from the trailing window before the month.
	seasonal := tl.dated(p.monthStart.AddDate(0, 0, -seasonalityLookbackDays), p.monthStart.AddDate(0, 0, -1))
	if len(seasonal) == 0 {
		seasonal = tl.dated(p.monthStart, asOf)
	}
	p.weekday = WeekdayFactors(seasonal)
	p.residualStd = weekdayResidualStd(seasonal, p.weekday)

	// 4. Remaining days.
	for d := asOf.AddDate(0, 0, 1); !d.After(p.monthEnd); d = d.AddDate(0, 0, 1) {
		v := math.Max(0, p.recentAvg*p.adjustedGF*p.weekday[d.Weekday()])
		p.forecast = append(p.forecast, DailyValue{Date: d, Value: v})
		p.remaining += v
	}
	p.projected = p.mtdActual + p.remaining
	return p, true
}

// WeekdayFactors returns, per weekday, the mean revenue on that weekday over
// the overall daily mean. Weekdays with no data, or a zero overall mean, get 1.
func WeekdayFactors(days []DailyValue) [7]float64 {
	var factors [7]float64
	for i := range factors {
		factors[i] = 1
	}
	if len(days) == 0 {
		return factors
	}
	var sums [7]float64
	var counts [7]int
	total := 0.0
	for _, d := range days {
		wd := d.Date.Weekday()
		sums[wd] += d.Value
		counts[wd]++
		total += d.Value
	}
	overall := total / float64(len(days))
	if overall == 0 {
		return factors
	}
	for wd := range factors {
		if counts[wd] > 0 {
			factors[wd] = (sums[wd] / float64(counts[wd])) / overall
		}
	}
	return factors
}

func weekdayResidualStd(days []DailyValue, factors [7]float64) float64 {
	if len(days) < 2 {
		return 0
	}
	values := make([]float64, len(days))
	for i, d := range days {
		values[i] = d.Value
	}
	overall := Mean(values)
	residuals := make([]float64, len(days))
	for i, d := range days {
		residuals[i] = d.Value - overall*factors[d.Date.Weekday()]
	}
	return SampleStdDev(residuals)
}

// backtest replays the model on up to backtestMaxMonths completed months
// before currentMonthStart, each cut off at asOfDay. It returns one row per
// month with a positive actual total, and every daily forecast error.
func backtest(tl timeline, currentMonthStart time.Time, asOfDay int, a Assumptions) ([]BacktestMonth, []float64) {
	months := tl.monthsBefore(currentMonthStart)
	if len(months) > backtestMaxMonths {
		months = months[len(months)-backtestMaxMonths:]
	}

	rows := make([]BacktestMonth, 0, len(months))
	errs := make([]float64, 0)
	for _, m := range months {
		cutoff := asOfDay
		if n := DaysInMonth(m.Year(), m.Month()); cutoff > n {
			cutoff = n
		}
		asOf := m.AddDate(0, 0, cutoff-1)
		p, ok := projectMonth(tl.until(asOf), asOf, a)
		if !ok {
			continue
		}
		actual := tl.sum(m, MonthEnd(m))
		if actual <= 0 {
			continue
		}
		rows = append(rows, BacktestMonth{
			Month:     m.Format("2006-01"),
			Predicted: p.projected,
			Actual:    actual,
			APE:       math.Abs(p.projected-actual) / actual,
		})
		for _, f := range p.forecast {
			got, _ := tl.get(f.Date)
			errs = append(errs, got-f.Value)
		}
	}
	return rows, errs
}

// Project computes the month-end projection for the month of the latest day
// in mtd. historical holds completed months before it. A goal <= 0 means no
// goal is configured and pace fields stay nil.
func Project(mtd []DailyValue, historical []MonthSeries, a Assumptions, goal float64) (ForecastResult, error) {
	var asOf time.Time
	for _, v := range mtd {
		if v.Date.After(asOf) {
			asOf = v.Date
		}
	}
	if asOf.IsZero() {
		return ForecastResult{}, ErrNoMTDData
	}
	asOf = Day(asOf)

	series := make([][]DailyValue, 0, len(historical)+1)
	series = append(series, mtd)
	for _, m := range historical {
		series = append(series, m)
	}
	tl := newTimeline(series...).until(asOf)

	p, ok := projectMonth(tl, asOf, a)
	if !ok {
		return ForecastResult{}, ErrNoMTDData
	}

	res := ForecastResult{
		AsOfDate:         asOf.Format(DateLayout),
		MTDActual:        p.mtdActual,
		ProjectedTotal:   p.projected,
		LinearTotal:      p.mtdActual / float64(p.elapsedDays) * float64(p.monthDays),
		BaseGrowthFactor: p.baseGF,
		GrowthFactor:     p.adjustedGF,
		Goal:             math.Max(goal, 0),
		ElapsedDays:      p.elapsedDays,
		MonthDays:        p.monthDays,
		RemainingDays:    len(p.forecast),
	}

	// 6. Backtest accuracy over completed months.
	rows, errs := backtest(tl, p.monthStart, p.elapsedDays, a)
	res.Backtest = rows
	if len(rows) >= minBacktestMonths {
		total := 0.0
		for _, r := range rows {
			total += r.APE
		}
		res.MAPE = floatPtr(total / float64(len(rows)))
		res.MAPEMonths = len(rows)
	}

	// 5. Confidence band from the spread of daily forecast errors.
	stderr := p.residualStd
	if len(errs) >= 2 {
		stderr = SampleStdDev(errs)
	}
	band := ciZ * stderr * math.Max(a.VolatilityMultiplier, minVolatility) * math.Sqrt(float64(res.RemainingDays))
	res.CILow = math.Max(0, p.projected-band)
	res.CIHigh = math.Max(0, p.projected+band)

	res.StatSig = TwoSampleZTest(
		tl.window(p.monthStart, asOf),
		tl.window(p.monthStart.AddDate(0, 0, -baselineLookbackDays), p.monthStart.AddDate(0, 0, -1)),
	)

	// 7. Pace to goal.
	if goal > 0 {
		pace := p.projected / goal
		res.PaceToGoal = floatPtr(pace)
		res.PaceDelta = floatPtr(pace - 1)
		res.LinearPace = floatPtr(res.LinearTotal / goal)
	}

	res.Chart = monthChart(tl, p)
	return res, nil
}

func monthChart(tl timeline, p monthProjection) []ChartPoint {
	forecast := make(map[time.Time]float64, len(p.forecast))
	for _, f := range p.forecast {
		forecast[f.Date] = f.Value
	}
	chart := make([]ChartPoint, 0, p.monthDays)
	for d := p.monthStart; !d.After(p.monthEnd); d = d.AddDate(0, 0, 1) {
		pt := ChartPoint{Date: d.Format(DateLayout), ForecastDaily: forecast[d]}
		if !d.After(p.asOf) {
			pt.ActualDaily, _ = tl.get(d)
		}
		chart = append(chart, pt)
	}
	return chart
}
