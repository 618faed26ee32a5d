package pipeline

import (
	"errors"
	"fmt"
	"log"

	"salesdash/analytics"
)

// forecastHistoryMonths is how many completed months are loaded before the
// as-of month: six for the backtest plus margin for its trailing windows.
const forecastHistoryMonths = 10

type ForecastData struct {
	// Projection is nil when the as-of month has no revenue yet.
	Projection   *analytics.ForecastResult `json:"projection"`
	Scenario     string                    `json:"scenario"`
	Assumptions  analytics.Assumptions     `json:"assumptions"`
	Adjusted     []string                  `json:"adjusted"`
	StatSigLabel string                    `json:"stat_sig_label"`
}

// forecast projects the month containing the end of the primary range.
func (r *request) forecast() (ForecastData, error) {
	out := ForecastData{
		Scenario:     r.resolution.Scenario,
		Assumptions:  r.resolution.Assumptions,
		Adjusted:     r.resolution.Adjusted,
		StatSigLabel: analytics.SignificanceResult{}.Label(),
	}
	if r.primary.IsEmpty() {
		return out, nil
	}
	asOf := r.primary.End
	from := analytics.MonthStart(asOf).AddDate(0, -forecastHistoryMonths, 0)

	rows, err := r.loader.dailyRows(analytics.NewDateRange(from, asOf))
	if err != nil {
		return ForecastData{}, fmt.Errorf("load history: %w", err)
	}
	goal, err := r.loader.repo.MonthlyGoal(r.ctx, r.query.Channel, asOf.Year(), asOf.Month())
	if err != nil {
		return ForecastData{}, fmt.Errorf("load monthly goal: %w", err)
	}

	mtd, months := analytics.SplitMonths(dailyTotals(rows), asOf)
	result, err := analytics.Project(mtd, months, r.resolution.Assumptions, goal)
	if errors.Is(err, analytics.ErrNoMTDData) {
		log.Printf("📈 [FORECAST] no revenue in %s yet, projection skipped", monthKey(asOf))
		return out, nil
	}
	if err != nil {
		return ForecastData{}, err
	}
	out.Projection = &result
	out.StatSigLabel = result.StatSig.Label()
	log.Printf("📈 [FORECAST] %s projected %.2f (growth %.3f, scenario %s)",
		result.AsOfDate, result.ProjectedTotal, result.GrowthFactor, out.Scenario)
	return out, nil
}
