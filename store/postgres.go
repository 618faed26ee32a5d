package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesdash/models"
)

// Schema creates the tables the Postgres repository reads. Ingestion owns
// the writes; the dashboard only queries.
const Schema = `
CREATE TABLE IF NOT EXISTS daily_revenue (
	date          DATE NOT NULL,
	channel       TEXT NOT NULL DEFAULT 'Amazon',
	product_line  TEXT NOT NULL,
	revenue       NUMERIC(14,2) NOT NULL DEFAULT 0,
	units         INTEGER NOT NULL DEFAULT 0,
	orders        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, channel, product_line)
);

CREATE TABLE IF NOT EXISTS sku_daily (
	date          DATE NOT NULL,
	channel       TEXT NOT NULL DEFAULT 'Amazon',
	sku           TEXT NOT NULL,
	tag           TEXT NOT NULL DEFAULT '',
	product_line  TEXT NOT NULL DEFAULT 'Unmapped',
	revenue       NUMERIC(14,2) NOT NULL DEFAULT 0,
	units         INTEGER NOT NULL DEFAULT 0,
	orders        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, channel, sku)
);

CREATE TABLE IF NOT EXISTS settlements (
	id              BIGSERIAL PRIMARY KEY,
	date            DATE NOT NULL,
	channel         TEXT NOT NULL DEFAULT 'Amazon',
	description     TEXT NOT NULL DEFAULT '',
	gross_sales     NUMERIC(14,2) NOT NULL DEFAULT 0,
	net_payout      NUMERIC(14,2) NOT NULL DEFAULT 0,
	selling_fees    NUMERIC(14,2) NOT NULL DEFAULT 0,
	fba_fees        NUMERIC(14,2) NOT NULL DEFAULT 0,
	other_txn_fees  NUMERIC(14,2) NOT NULL DEFAULT 0,
	other           NUMERIC(14,2) NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS settlements_channel_date ON settlements (channel, date);

CREATE TABLE IF NOT EXISTS inventory_snapshots (
	id           BIGSERIAL PRIMARY KEY,
	captured_at  TIMESTAMPTZ NOT NULL,
	source_file  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS inventory_items (
	snapshot_id      BIGINT NOT NULL REFERENCES inventory_snapshots(id),
	sku              TEXT NOT NULL,
	tag              TEXT NOT NULL DEFAULT '',
	product_line     TEXT NOT NULL DEFAULT 'Unmapped',
	total_inventory  INTEGER NOT NULL DEFAULT 0,
	inbound          INTEGER NOT NULL DEFAULT 0,
	available        INTEGER NOT NULL DEFAULT 0,
	reserved         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS monthly_goals (
	year          INTEGER NOT NULL,
	month         INTEGER NOT NULL,
	channel       TEXT NOT NULL,
	product_line  TEXT NOT NULL,
	goal          NUMERIC(14,2) NOT NULL,
	PRIMARY KEY (year, month, channel, product_line)
);
`

// Postgres reads dashboard inputs through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates missing tables.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) DateBounds(ctx context.Context, channel models.Channel) (models.DateBounds, error) {
	var (
		b                models.DateBounds
		minDate, maxDate *time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT MIN(date), MAX(date), COUNT(*) FROM daily_revenue WHERE channel = $1`,
		string(channel),
	).Scan(&minDate, &maxDate, &b.RowCount)
	if err != nil {
		return b, fmt.Errorf("failed to query date bounds: %w", err)
	}
	if minDate == nil || maxDate == nil {
		return b, ErrNoData
	}
	b.MinDate, b.MaxDate = day(*minDate), day(*maxDate)
	return b, nil
}

func (p *Postgres) DailyRows(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.DailyRevenueRow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT date, product_line, revenue::float8, units, orders
		FROM daily_revenue
		WHERE channel = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, product_line
	`, string(channel), day(from), day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily revenue: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyRevenueRow, 0)
	for rows.Next() {
		var (
			r    models.DailyRevenueRow
			line string
		)
		if err := rows.Scan(&r.Date, &line, &r.Revenue, &r.Units, &r.Orders); err != nil {
			log.Printf("[STORE] Error scanning daily revenue row: %v", err)
			return nil, fmt.Errorf("failed to scan daily revenue: %w", err)
		}
		r.Date = day(r.Date)
		r.Channel = channel
		r.ProductLine = models.NormalizeProductLine(line)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) SKUDailyRows(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.SKUDailyRow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT date, sku, tag, product_line, revenue::float8, units, orders
		FROM sku_daily
		WHERE channel = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, sku
	`, string(channel), day(from), day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query sku daily: %w", err)
	}
	defer rows.Close()

	out := make([]models.SKUDailyRow, 0)
	for rows.Next() {
		var (
			r    models.SKUDailyRow
			line string
		)
		if err := rows.Scan(&r.Date, &r.SKU, &r.Tag, &line, &r.Revenue, &r.Units, &r.Orders); err != nil {
			log.Printf("[STORE] Error scanning sku daily row: %v", err)
			return nil, fmt.Errorf("failed to scan sku daily: %w", err)
		}
		r.Date = day(r.Date)
		r.Channel = channel
		r.ProductLine = models.NormalizeProductLine(line)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) SettlementRows(ctx context.Context, channel models.Channel, from, to time.Time) ([]models.SettlementRow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT date, description, gross_sales::float8, net_payout::float8,
		       selling_fees::float8, fba_fees::float8, other_txn_fees::float8, other::float8
		FROM settlements
		WHERE channel = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, id
	`, string(channel), day(from), day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	out := make([]models.SettlementRow, 0)
	for rows.Next() {
		var r models.SettlementRow
		if err := rows.Scan(&r.Date, &r.Description, &r.GrossSales, &r.NetPayout,
			&r.SellingFees, &r.FBAFees, &r.OtherTxnFees, &r.Other); err != nil {
			log.Printf("[STORE] Error scanning settlement row: %v", err)
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		r.Date = day(r.Date)
		r.Channel = channel
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) LatestSnapshot(ctx context.Context) (models.Snapshot, error) {
	var s models.Snapshot
	err := p.pool.QueryRow(ctx, `
		SELECT id, captured_at, source_file
		FROM inventory_snapshots
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`).Scan(&s.ID, &s.CapturedAt, &s.SourceFile)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, ErrNoSnapshot
	}
	if err != nil {
		return s, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT sku, tag, product_line, total_inventory, inbound, available, reserved
		FROM inventory_items
		WHERE snapshot_id = $1
		ORDER BY sku
	`, s.ID)
	if err != nil {
		return s, fmt.Errorf("failed to query snapshot items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r    models.InventorySnapshotRow
			line string
		)
		if err := rows.Scan(&r.SKU, &r.Tag, &line, &r.TotalInventory, &r.Inbound, &r.Available, &r.Reserved); err != nil {
			log.Printf("[STORE] Error scanning snapshot item: %v", err)
			return s, fmt.Errorf("failed to scan snapshot item: %w", err)
		}
		r.ProductLine = models.NormalizeProductLine(line)
		r.CapturedAt = s.CapturedAt
		s.Rows = append(s.Rows, r)
	}
	return s, rows.Err()
}

func (p *Postgres) SnapshotHistory(ctx context.Context, limit int) ([]models.SnapshotSummary, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, captured_at, source_file, total_units FROM (
			SELECT s.id, s.captured_at, s.source_file, COALESCE(SUM(i.total_inventory), 0)::int AS total_units
			FROM inventory_snapshots s
			LEFT JOIN inventory_items i ON i.snapshot_id = s.id
			GROUP BY s.id, s.captured_at, s.source_file
			ORDER BY s.captured_at DESC, s.id DESC
			LIMIT $1
		) recent
		ORDER BY captured_at, id
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot history: %w", err)
	}
	defer rows.Close()

	out := make([]models.SnapshotSummary, 0)
	for rows.Next() {
		var s models.SnapshotSummary
		if err := rows.Scan(&s.ID, &s.CapturedAt, &s.SourceFile, &s.TotalUnits); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) MonthlyGoal(ctx context.Context, channel models.Channel, year int, month time.Month) (float64, error) {
	var goal float64
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(goal), 0)::float8
		FROM monthly_goals
		WHERE year = $1 AND month = $2 AND LOWER(channel) = LOWER($3)
	`, year, int(month), string(channel)).Scan(&goal)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to query monthly goal: %w", err)
	}
	return goal, nil
}
