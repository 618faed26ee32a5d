package pipeline

import (
	"context"
	"sort"

	"salesdash/analytics"
	"salesdash/models"
	"salesdash/store"
)

// loader memoizes repository reads for the lifetime of one request, since
// several sections read the same window.
type loader struct {
	ctx     context.Context
	repo    store.Repository
	channel models.Channel

	daily map[string][]models.DailyRevenueRow
	sku   map[string][]models.SKUDailyRow
}

func newLoader(ctx context.Context, repo store.Repository, channel models.Channel) *loader {
	return &loader{
		ctx:     ctx,
		repo:    repo,
		channel: channel,
		daily:   make(map[string][]models.DailyRevenueRow),
		sku:     make(map[string][]models.SKUDailyRow),
	}
}

func rangeKey(r analytics.DateRange) string {
	return r.StartString() + ".." + r.EndString()
}

func (l *loader) dailyRows(r analytics.DateRange) ([]models.DailyRevenueRow, error) {
	if r.IsEmpty() {
		return nil, nil
	}
	key := rangeKey(r)
	if rows, ok := l.daily[key]; ok {
		return rows, nil
	}
	rows, err := l.repo.DailyRows(l.ctx, l.channel, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	l.daily[key] = rows
	return rows, nil
}

func (l *loader) skuRows(r analytics.DateRange) ([]models.SKUDailyRow, error) {
	if r.IsEmpty() {
		return nil, nil
	}
	key := rangeKey(r)
	if rows, ok := l.sku[key]; ok {
		return rows, nil
	}
	rows, err := l.repo.SKUDailyRows(l.ctx, l.channel, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	l.sku[key] = rows
	return rows, nil
}

// dailyTotals sums mapped revenue per day, oldest first.
func dailyTotals(rows []models.DailyRevenueRow) []analytics.DailyValue {
	byDay := make(map[string]*analytics.DailyValue)
	for _, row := range rows {
		if !row.ProductLine.IsMapped() {
			continue
		}
		d := analytics.Day(row.Date)
		key := d.Format(analytics.DateLayout)
		v, ok := byDay[key]
		if !ok {
			v = &analytics.DailyValue{Date: d}
			byDay[key] = v
		}
		v.Value += row.Revenue
	}
	out := make([]analytics.DailyValue, 0, len(byDay))
	for _, v := range byDay {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
