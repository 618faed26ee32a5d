package pipeline

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"salesdash/analytics"
	"salesdash/models"
	"salesdash/utils"
)

// minCAGRMonths is the history needed before a growth rate is reported.
const minCAGRMonths = 13

type MonthlyRow struct {
	Month string  `json:"month"`
	IQBAR float64 `json:"iqbar"`
	IQMIX float64 `json:"iqmix"`
	IQJOE float64 `json:"iqjoe"`
	Total float64 `json:"total"`
}

type BusinessSummary struct {
	Months          int      `json:"months"`
	TotalSales      float64  `json:"total_sales"`
	AvgMonthlySales float64  `json:"avg_monthly_sales"`
	CAGR            *float64 `json:"cagr"`
}

type BusinessData struct {
	Monthly []MonthlyRow    `json:"monthly"`
	Summary BusinessSummary `json:"summary"`
	PnL     *PnLSummary     `json:"pnl_summary"`
}

// business reports whole-history monthly revenue for the channel and the
// payout summary of the selected range. A settlement failure only drops the
// payout summary.
func (r *request) business() (BusinessData, error) {
	out := BusinessData{Monthly: []MonthlyRow{}}
	if r.bounds.IsEmpty() {
		return out, nil
	}

	pnl, err := r.pnl()
	if err != nil {
		log.Printf("⚠️  [BUSINESS] pnl summary: %v", err)
		r.errs["business.pnl"] = err.Error()
	}
	out.PnL = pnl

	rows, err := r.loader.dailyRows(analytics.NewDateRange(r.bounds.MinDate, r.bounds.MaxDate))
	if err != nil {
		return BusinessData{}, fmt.Errorf("load history: %w", err)
	}

	byMonth := make(map[string][]models.DailyRevenueRow)
	for _, row := range rows {
		key := monthKey(analytics.Day(row.Date))
		byMonth[key] = append(byMonth[key], row)
	}
	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// The trailing month is dropped unless the data reaches its last day.
	maxDate := analytics.Day(r.bounds.MaxDate)
	if maxDate.Day() < analytics.DaysInMonth(maxDate.Year(), maxDate.Month()) {
		partial := monthKey(maxDate)
		if n := len(keys); n > 0 && keys[n-1] == partial {
			keys = keys[:n-1]
		}
	}

	var total utils.Money
	for _, k := range keys {
		a := sumByLine(byMonth[k])
		out.Monthly = append(out.Monthly, MonthlyRow{
			Month: k,
			IQBAR: a.IQBAR,
			IQMIX: a.IQMIX,
			IQJOE: a.IQJOE,
			Total: a.GrandTotal,
		})
		total.Add(a.GrandTotal)
	}

	n := len(out.Monthly)
	out.Summary = BusinessSummary{Months: n, TotalSales: total.Float64()}
	if n > 0 {
		out.Summary.AvgMonthlySales = out.Summary.TotalSales / float64(n)
	}
	if n >= minCAGRMonths {
		out.Summary.CAGR = cagr(out.Monthly[0].Total, out.Monthly[n-1].Total, n)
	}
	return out, nil
}

// cagr annualizes the growth from first to last over n months.
func cagr(first, last float64, months int) *float64 {
	if first <= 0 || last <= 0 || months <= 0 {
		return nil
	}
	years := float64(months) / 12
	v := math.Pow(last/first, 1/years) - 1
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// monthKey is the label used for monthly rows.
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}
