// Package store is the read path into ingested sales and inventory data.
package store

import (
	"context"
	"errors"
	"time"

	"salesdash/models"
)

var (
	// ErrNoSnapshot is returned when no inventory snapshot has been imported.
	ErrNoSnapshot = errors.New("no inventory snapshot imported")
	// ErrNoData is returned when a channel has no dated sales rows.
	ErrNoData = errors.New("no sales data for channel")
)

// Repository serves the rows the dashboard is computed from. Date bounds
// are inclusive calendar days.
type Repository interface {
	DateBounds(ctx context.Context, channel models.Channel) (models.DateBounds, error)
	DailyRows(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.DailyRevenueRow, error)
	SKUDailyRows(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.SKUDailyRow, error)
	SettlementRows(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.SettlementRow, error)
	LatestSnapshot(ctx context.Context) (models.Snapshot, error)
	SnapshotHistory(ctx context.Context, limit int) ([]models.SnapshotSummary, error)
	// MonthlyGoal returns the summed goal for the month, 0 when none is set.
	MonthlyGoal(ctx context.Context, channel models.Channel, year int, month time.Month) (float64, error)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func inRange(t, from, to time.Time) bool {
	d := day(t)
	return !d.Before(day(from)) && !d.After(day(to))
}

var (
	_ Repository = (*Memory)(nil)
	_ Repository = (*Postgres)(nil)
)
