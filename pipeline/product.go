package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"salesdash/analytics"
	"salesdash/models"
	"salesdash/utils"
)

const (
	skuSummaryLimit = 100
	topMoverCount   = 5
)

// LineSummary is revenue, units and orders for one product line.
type LineSummary struct {
	ProductLine models.ProductLine `json:"product_line"`
	Sales       float64            `json:"sales"`
	Units       int                `json:"units"`
	Orders      int                `json:"orders"`
	AOV         float64            `json:"aov"`
}

type TrendPoint struct {
	Period      string             `json:"period"`
	ProductLine models.ProductLine `json:"product_line"`
	Sales       float64            `json:"sales"`
	Units       int                `json:"units"`
}

type SKUSummary struct {
	SKU         string             `json:"sku"`
	Tag         string             `json:"tag"`
	ProductLine models.ProductLine `json:"product_line"`
	Sales       float64            `json:"sales"`
	Units       int                `json:"units"`
	Orders      int                `json:"orders"`
	AOV         float64            `json:"aov"`
}

// Mover compares a SKU's sales with the window right before the primary one.
type Mover struct {
	SKU           string   `json:"sku"`
	Tag           string   `json:"tag"`
	Sales         float64  `json:"sales"`
	PreviousSales float64  `json:"prev_sales"`
	Change        float64  `json:"change"`
	ChangePct     *float64 `json:"change_pct"`
}

type TopMovers struct {
	PreviousPeriod analytics.DateRange `json:"previous_period"`
	Gainers        []Mover             `json:"gainers"`
	Decliners      []Mover             `json:"decliners"`
}

type ProductData struct {
	ProductLine   models.ProductLine                  `json:"product_line"`
	ProductTag    string                              `json:"product_tag"`
	Granularity   Granularity                         `json:"granularity"`
	Summary       []LineSummary                       `json:"summary"`
	Trend         []TrendPoint                        `json:"trend"`
	SKUSummary    []SKUSummary                        `json:"sku_summary"`
	SKUSummaryAll map[models.ProductLine][]SKUSummary `json:"sku_summary_all"`
	TopMovers     TopMovers                           `json:"top_movers"`
}

func (r *request) product() (ProductData, error) {
	q := r.query
	out := ProductData{
		ProductLine:   q.ProductLine,
		ProductTag:    q.ProductTag,
		Granularity:   q.Granularity,
		SKUSummaryAll: make(map[models.ProductLine][]SKUSummary),
	}

	daily, err := r.loader.dailyRows(r.primary)
	if err != nil {
		return ProductData{}, fmt.Errorf("load daily rows: %w", err)
	}
	out.Summary = lineSummaries(daily)
	out.Trend = trend(daily, q.Granularity)

	skuRows, err := r.loader.skuRows(r.primary)
	if err != nil {
		return ProductData{}, fmt.Errorf("load sku rows: %w", err)
	}
	out.SKUSummary = limitSKUs(summarizeSKUs(filterSKURows(skuRows, q.ProductLine, q.ProductTag)))
	for _, line := range models.ProductLines {
		out.SKUSummaryAll[line] = limitSKUs(summarizeSKUs(filterSKURows(skuRows, line, "")))
	}

	movers, err := r.topMovers(skuRows)
	if err != nil {
		return ProductData{}, err
	}
	out.TopMovers = movers
	return out, nil
}

func lineSummaries(rows []models.DailyRevenueRow) []LineSummary {
	type acc struct {
		sales  utils.Money
		units  int
		orders int
	}
	byLine := make(map[models.ProductLine]*acc)
	for _, row := range rows {
		a, ok := byLine[row.ProductLine]
		if !ok {
			a = &acc{}
			byLine[row.ProductLine] = a
		}
		a.sales.Add(row.Revenue)
		a.units += row.Units
		a.orders += row.Orders
	}
	out := make([]LineSummary, 0, len(byLine))
	for line, a := range byLine {
		s := LineSummary{ProductLine: line, Sales: a.sales.Float64(), Units: a.units, Orders: a.orders}
		s.AOV = aov(s.Sales, s.Orders)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sales != out[j].Sales {
			return out[i].Sales > out[j].Sales
		}
		return out[i].ProductLine < out[j].ProductLine
	})
	return out
}

func aov(sales float64, orders int) float64 {
	if orders <= 0 {
		return 0
	}
	return sales / float64(orders)
}

// periodLabel buckets a day. Weeks are numbered from the year's first
// Monday; days before it fall in week 00.
func periodLabel(t time.Time, g Granularity) string {
	switch g {
	case GranularityWeek:
		weekday := (int(t.Weekday()) + 6) % 7
		week := (t.YearDay() - 1 + 7 - weekday) / 7
		return fmt.Sprintf("%d-%02d", t.Year(), week)
	case GranularityMonth:
		return monthKey(t)
	}
	return t.Format(analytics.DateLayout)
}

func trend(rows []models.DailyRevenueRow, g Granularity) []TrendPoint {
	type key struct {
		period string
		line   models.ProductLine
	}
	sales := make(map[key]*utils.Money)
	units := make(map[key]int)
	for _, row := range rows {
		k := key{periodLabel(analytics.Day(row.Date), g), row.ProductLine}
		m, ok := sales[k]
		if !ok {
			m = &utils.Money{}
			sales[k] = m
		}
		m.Add(row.Revenue)
		units[k] += row.Units
	}
	out := make([]TrendPoint, 0, len(sales))
	for k, m := range sales {
		out = append(out, TrendPoint{Period: k.period, ProductLine: k.line, Sales: m.Float64(), Units: units[k]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].ProductLine < out[j].ProductLine
	})
	return out
}

// skuTag is the label a SKU row is filtered by: its tag, or the SKU itself
// when untagged.
func skuTag(row models.SKUDailyRow) string {
	if strings.TrimSpace(row.Tag) != "" {
		return row.Tag
	}
	return row.SKU
}

func filterSKURows(rows []models.SKUDailyRow, line models.ProductLine, tag string) []models.SKUDailyRow {
	out := make([]models.SKUDailyRow, 0, len(rows))
	for _, row := range rows {
		if row.ProductLine != line {
			continue
		}
		if strings.TrimSpace(tag) != "" && !utils.EqualFoldTrim(skuTag(row), tag) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// summarizeSKUs totals rows per SKU, highest sales first.
func summarizeSKUs(rows []models.SKUDailyRow) []SKUSummary {
	type acc struct {
		summary SKUSummary
		sales   utils.Money
	}
	bySKU := make(map[string]*acc)
	order := make([]string, 0)
	for _, row := range rows {
		key := utils.NormalizeKey(row.SKU)
		a, ok := bySKU[key]
		if !ok {
			a = &acc{summary: SKUSummary{SKU: row.SKU, Tag: skuTag(row), ProductLine: row.ProductLine}}
			bySKU[key] = a
			order = append(order, key)
		}
		a.sales.Add(row.Revenue)
		a.summary.Units += row.Units
		a.summary.Orders += row.Orders
	}
	out := make([]SKUSummary, 0, len(order))
	for _, key := range order {
		a := bySKU[key]
		s := a.summary
		s.Sales = a.sales.Float64()
		s.AOV = aov(s.Sales, s.Orders)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sales > out[j].Sales })
	return out
}

func limitSKUs(s []SKUSummary) []SKUSummary {
	if len(s) > skuSummaryLimit {
		return s[:skuSummaryLimit]
	}
	return s
}

// topMovers ranks the selected line's SKUs by absolute sales change against
// the equal-length window ending the day before the primary range starts.
func (r *request) topMovers(current []models.SKUDailyRow) (TopMovers, error) {
	out := TopMovers{Gainers: []Mover{}, Decliners: []Mover{}}
	if r.primary.IsEmpty() {
		return out, nil
	}
	prevRange := r.primary.Shift(-r.primary.Days())
	out.PreviousPeriod = prevRange

	q := r.query
	curr := summarizeSKUs(filterSKURows(current, q.ProductLine, q.ProductTag))
	if len(curr) == 0 {
		return out, nil
	}
	prevRows, err := r.loader.skuRows(prevRange)
	if err != nil {
		return out, fmt.Errorf("load previous sku rows: %w", err)
	}
	prevSales := make(map[string]float64)
	for _, s := range summarizeSKUs(filterSKURows(prevRows, q.ProductLine, q.ProductTag)) {
		prevSales[utils.NormalizeKey(s.SKU)] = s.Sales
	}

	movers := make([]Mover, 0, len(curr))
	for _, s := range curr {
		prev := prevSales[utils.NormalizeKey(s.SKU)]
		movers = append(movers, Mover{
			SKU:           s.SKU,
			Tag:           s.Tag,
			Sales:         s.Sales,
			PreviousSales: prev,
			Change:        s.Sales - prev,
			ChangePct:     analytics.PctDelta(s.Sales, prev),
		})
	}

	sort.SliceStable(movers, func(i, j int) bool { return movers[i].Change > movers[j].Change })
	out.Gainers = append(out.Gainers, movers[:min(topMoverCount, len(movers))]...)
	sort.SliceStable(movers, func(i, j int) bool { return movers[i].Change < movers[j].Change })
	out.Decliners = append(out.Decliners, movers[:min(topMoverCount, len(movers))]...)
	return out, nil
}
