package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"salesdash/models"
)

type goalKey struct {
	year    int
	month   time.Month
	channel models.Channel
}

// Memory is an in-process Repository. It backs tests and runs without a
// database.
type Memory struct {
	mu        sync.RWMutex
	daily     []models.DailyRevenueRow
	skuDaily  []models.SKUDailyRow
	settled   []models.SettlementRow
	snapshots []models.Snapshot
	goals     map[goalKey]float64
	nextID    int64
}

func NewMemory() *Memory {
	return &Memory{goals: make(map[goalKey]float64)}
}

// AddDailyRows appends revenue rows. Dates are truncated to the calendar day.
func (m *Memory) AddDailyRows(rows ...models.DailyRevenueRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		r.Date = day(r.Date)
		m.daily = append(m.daily, r)
	}
}

func (m *Memory) AddSKUDailyRows(rows ...models.SKUDailyRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		r.Date = day(r.Date)
		m.skuDaily = append(m.skuDaily, r)
	}
}

func (m *Memory) AddSettlementRows(rows ...models.SettlementRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		r.Date = day(r.Date)
		m.settled = append(m.settled, r)
	}
}

// AddSnapshot stores an immutable snapshot and returns its id. Every row is
// stamped with the snapshot's capture time.
func (m *Memory) AddSnapshot(capturedAt time.Time, sourceFile string, rows []models.InventorySnapshotRow) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	copied := make([]models.InventorySnapshotRow, len(rows))
	for i, r := range rows {
		r.CapturedAt = capturedAt
		copied[i] = r
	}
	m.snapshots = append(m.snapshots, models.Snapshot{
		ID:         m.nextID,
		CapturedAt: capturedAt,
		SourceFile: sourceFile,
		Rows:       copied,
	})
	sort.SliceStable(m.snapshots, func(i, j int) bool {
		return m.snapshots[i].CapturedAt.Before(m.snapshots[j].CapturedAt)
	})
	return m.nextID
}

// SetMonthlyGoal replaces the goal for one month and channel.
func (m *Memory) SetMonthlyGoal(channel models.Channel, year int, month time.Month, goal float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[goalKey{year, month, channel}] = goal
}

func (m *Memory) DateBounds(ctx context.Context, channel models.Channel) (models.DateBounds, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var b models.DateBounds
	for _, r := range m.daily {
		if r.Channel != channel || r.Date.IsZero() {
			continue
		}
		if b.MinDate.IsZero() || r.Date.Before(b.MinDate) {
			b.MinDate = r.Date
		}
		if r.Date.After(b.MaxDate) {
			b.MaxDate = r.Date
		}
		b.RowCount++
	}
	if b.IsEmpty() {
		return b, ErrNoData
	}
	return b, nil
}

func (m *Memory) DailyRows(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.DailyRevenueRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DailyRevenueRow, 0)
	for _, r := range m.daily {
		if r.Channel == channel && inRange(r.Date, from, to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ProductLine < out[j].ProductLine
	})
	return out, nil
}

func (m *Memory) SKUDailyRows(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.SKUDailyRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SKUDailyRow, 0)
	for _, r := range m.skuDaily {
		if r.Channel == channel && inRange(r.Date, from, to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

func (m *Memory) SettlementRows(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.SettlementRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SettlementRow, 0)
	for _, r := range m.settled {
		if r.Channel == channel && inRange(r.Date, from, to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) LatestSnapshot(ctx context.Context) (models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.snapshots) == 0 {
		return models.Snapshot{}, ErrNoSnapshot
	}
	latest := m.snapshots[len(m.snapshots)-1]
	latest.Rows = append([]models.InventorySnapshotRow(nil), latest.Rows...)
	return latest, nil
}

// SnapshotHistory returns up to limit of the most recent snapshots, oldest first.
func (m *Memory) SnapshotHistory(ctx context.Context, limit int) ([]models.SnapshotSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := m.snapshots
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[len(snaps)-limit:]
	}
	out := make([]models.SnapshotSummary, 0, len(snaps))
	for _, s := range snaps {
		total := 0
		for _, r := range s.Rows {
			total += r.TotalInventory
		}
		out = append(out, models.SnapshotSummary{
			ID:         s.ID,
			CapturedAt: s.CapturedAt,
			SourceFile: s.SourceFile,
			TotalUnits: total,
		})
	}
	return out, nil
}

func (m *Memory) MonthlyGoal(ctx context.Context, channel models.Channel, year int, month time.Month) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0.0
	for k, g := range m.goals {
		if k.year == year && k.month == month && strings.EqualFold(string(k.channel), string(channel)) {
			total += g
		}
	}
	return total, nil
}
