package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatDays returns value for every day in [start, end].
func flatDays(start, end string, value float64) []DailyValue {
	out := []DailyValue{}
	for day := d(start); !day.After(d(end)); day = day.AddDate(0, 0, 1) {
		out = append(out, DailyValue{Date: day, Value: value})
	}
	return out
}

func months(series ...[]DailyValue) []MonthSeries {
	out := make([]MonthSeries, 0, len(series))
	for _, s := range series {
		out = append(out, MonthSeries(s))
	}
	return out
}

func flatHistory() []MonthSeries {
	return months(
		flatDays("2024-01-01", "2024-01-31", 1000),
		flatDays("2024-02-01", "2024-02-29", 1000),
		flatDays("2024-03-01", "2024-03-31", 1000),
	)
}

func TestProjectFlatRevenue(t *testing.T) {
	res, err := Project(flatDays("2024-04-01", "2024-04-15", 1000), flatHistory(), DefaultAssumptions(), 0)
	require.NoError(t, err)

	assert.Equal(t, "2024-04-15", res.AsOfDate)
	assert.Equal(t, 15, res.ElapsedDays)
	assert.Equal(t, 30, res.MonthDays)
	assert.Equal(t, 15, res.RemainingDays)
	assert.InDelta(t, 15000, res.MTDActual, 1e-6)
	assert.InDelta(t, 30000, res.ProjectedTotal, 1e-6)
	assert.InDelta(t, 30000, res.LinearTotal, 1e-6)
	assert.InDelta(t, 1.0, res.BaseGrowthFactor, 1e-9)
	assert.InDelta(t, 1.0, res.GrowthFactor, 1e-9)

	assert.InDelta(t, res.ProjectedTotal, res.CILow, 1e-6)
	assert.InDelta(t, res.ProjectedTotal, res.CIHigh, 1e-6)

	require.NotNil(t, res.MAPE)
	assert.InDelta(t, 0.0, *res.MAPE, 1e-9)
	assert.Equal(t, 3, res.MAPEMonths)
	assert.Len(t, res.Backtest, 3)
	assert.Equal(t, "2024-01", res.Backtest[0].Month)

	assert.Nil(t, res.PaceToGoal)
	assert.Nil(t, res.PaceDelta)
	assert.Nil(t, res.LinearPace)

	require.Len(t, res.Chart, 30)
	assert.Equal(t, "2024-04-01", res.Chart[0].Date)
	assert.InDelta(t, 1000, res.Chart[14].ActualDaily, 1e-9)
	assert.Zero(t, res.Chart[14].ForecastDaily)
	assert.Zero(t, res.Chart[15].ActualDaily)
	assert.InDelta(t, 1000, res.Chart[15].ForecastDaily, 1e-9)
}

func TestProjectPaceToGoal(t *testing.T) {
	res, err := Project(flatDays("2024-04-01", "2024-04-15", 1000), flatHistory(), DefaultAssumptions(), 60000)
	require.NoError(t, err)
	require.NotNil(t, res.PaceToGoal)
	assert.InDelta(t, 0.5, *res.PaceToGoal, 1e-9)
	assert.InDelta(t, -0.5, *res.PaceDelta, 1e-9)
	assert.InDelta(t, 0.5, *res.LinearPace, 1e-9)

	neg, err := Project(flatDays("2024-04-01", "2024-04-15", 1000), flatHistory(), DefaultAssumptions(), -5)
	require.NoError(t, err)
	assert.Nil(t, neg.PaceToGoal)
	assert.Zero(t, neg.Goal)
}

func TestProjectScenarioMultiplier(t *testing.T) {
	a := DefaultAssumptions()
	a.PromoLiftPct = 0.1
	res, err := Project(flatDays("2024-04-01", "2024-04-15", 1000), flatHistory(), a, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.BaseGrowthFactor, 1e-9)
	assert.InDelta(t, 1.1, res.GrowthFactor, 1e-9)
	assert.InDelta(t, 15000+15*1100, res.ProjectedTotal, 1e-6)
}

func TestProjectGrowthClampedToCeiling(t *testing.T) {
	res, err := Project(flatDays("2024-04-01", "2024-04-15", 3000), flatHistory(), DefaultAssumptions(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.8, res.BaseGrowthFactor, 1e-9)
	assert.InDelta(t, 45000+15*3000*1.8, res.ProjectedTotal, 1e-6)

	slump, err := Project(flatDays("2024-04-01", "2024-04-15", 100), flatHistory(), DefaultAssumptions(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, slump.BaseGrowthFactor, 1e-9)
}

func TestProjectMAPERequiresTwoMonths(t *testing.T) {
	oneMonth := months(flatDays("2024-03-01", "2024-03-31", 1000))
	res, err := Project(flatDays("2024-04-01", "2024-04-10", 1000), oneMonth, DefaultAssumptions(), 0)
	require.NoError(t, err)
	assert.Nil(t, res.MAPE)
	assert.Zero(t, res.MAPEMonths)

	res, err = Project(flatDays("2024-04-01", "2024-04-10", 1000), nil, DefaultAssumptions(), 0)
	require.NoError(t, err)
	assert.Nil(t, res.MAPE)
	assert.Empty(t, res.Backtest)
}

func TestProjectMAPESkipsPartialMonths(t *testing.T) {
	// February has data but none before the day-10 cutoff, so only March
	// can be replayed.
	history := months(
		flatDays("2024-02-20", "2024-02-29", 1000),
		flatDays("2024-03-01", "2024-03-31", 1000),
	)
	res, err := Project(flatDays("2024-04-01", "2024-04-10", 1000), history, DefaultAssumptions(), 0)
	require.NoError(t, err)
	require.Len(t, res.Backtest, 1)
	assert.Equal(t, "2024-03", res.Backtest[0].Month)
	assert.Nil(t, res.MAPE)
	assert.Zero(t, res.MAPEMonths)
}

func TestProjectNoisyHistory(t *testing.T) {
	var history []MonthSeries
	for m := time.January; m <= time.March; m++ {
		start := time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC)
		var days []DailyValue
		for day := start; day.Month() == m; day = day.AddDate(0, 0, 1) {
			v := 800.0
			switch day.Weekday() {
			case time.Saturday, time.Sunday:
				v = 1500
			}
			if day.Day()%5 == 0 {
				v *= 0.4
			}
			days = append(days, DailyValue{Date: day, Value: v})
		}
		history = append(history, days)
	}
	mtd := flatDays("2024-04-01", "2024-04-09", 900)

	a := DefaultAssumptions()
	a.VolatilityMultiplier = 5
	res, err := Project(mtd, history, a, 40000)
	require.NoError(t, err)

	require.NotNil(t, res.MAPE)
	assert.False(t, math.IsNaN(*res.MAPE) || math.IsInf(*res.MAPE, 0))
	assert.GreaterOrEqual(t, *res.MAPE, 0.0)
	assert.GreaterOrEqual(t, res.CILow, 0.0)
	assert.LessOrEqual(t, res.CILow, res.ProjectedTotal)
	assert.GreaterOrEqual(t, res.CIHigh, res.ProjectedTotal)
	assert.Greater(t, res.CIHigh, res.CILow)
	assert.GreaterOrEqual(t, res.BaseGrowthFactor, 0.5)
	assert.LessOrEqual(t, res.BaseGrowthFactor, 1.8)
	assert.True(t, res.StatSig.Sufficient())
}

func TestProjectWithoutMTD(t *testing.T) {
	_, err := Project(nil, flatHistory(), DefaultAssumptions(), 0)
	assert.ErrorIs(t, err, ErrNoMTDData)
}

func TestProjectLastDayOfMonth(t *testing.T) {
	res, err := Project(flatDays("2024-04-01", "2024-04-30", 1000), flatHistory(), DefaultAssumptions(), 0)
	require.NoError(t, err)
	assert.Zero(t, res.RemainingDays)
	assert.InDelta(t, res.MTDActual, res.ProjectedTotal, 1e-9)
	assert.InDelta(t, res.ProjectedTotal, res.CILow, 1e-9)
}

func TestWeekdayFactors(t *testing.T) {
	// 2024-03-04 is a Monday; four full weeks with Saturdays doubled.
	var days []DailyValue
	for i := 0; i < 28; i++ {
		day := d("2024-03-04").AddDate(0, 0, i)
		v := 1000.0
		if day.Weekday() == time.Saturday {
			v = 2000
		}
		days = append(days, DailyValue{Date: day, Value: v})
	}
	f := WeekdayFactors(days)
	assert.InDelta(t, 1.75, f[time.Saturday], 1e-9)
	assert.InDelta(t, 0.875, f[time.Monday], 1e-9)

	flat := WeekdayFactors(nil)
	for _, v := range flat {
		assert.Equal(t, 1.0, v)
	}
}

func TestSplitMonths(t *testing.T) {
	daily := append(flatDays("2024-02-27", "2024-03-05", 10), DailyValue{Date: d("2024-03-09"), Value: 99})
	mtd, hist := SplitMonths(daily, d("2024-03-05"))
	assert.Len(t, mtd, 5)
	require.Len(t, hist, 1)
	assert.Len(t, hist[0], 3)
}
