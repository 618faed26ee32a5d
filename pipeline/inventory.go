package pipeline

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"salesdash/analytics"
	"salesdash/models"
	"salesdash/store"
	"salesdash/utils"
)

// demandLookbackDays covers the longest demand window.
const demandLookbackDays = 90

// manualOverrideTag marks snapshot rows maintained by hand; they carry no
// reliable stock figures.
const manualOverrideTag = "manual override"

type WeightsEcho struct {
	analytics.DemandWeights
	TargetWOS float64 `json:"target_wos"`
}

type InventoryData struct {
	Snapshot *models.Snapshot                                `json:"snapshot"`
	AsOfDate string                                          `json:"as_of_date"`
	Rows     []analytics.DemandProfile                       `json:"rows"`
	ByLine   map[models.ProductLine][]analytics.DemandProfile `json:"by_line"`
	Weights  WeightsEcho                                     `json:"weights"`
	History  []models.SnapshotSummary                        `json:"history"`
	Insights analytics.InventoryInsights                     `json:"insights"`
}

func (r *request) inventory(historyLimit int) (InventoryData, error) {
	out := InventoryData{
		Rows:    []analytics.DemandProfile{},
		ByLine:  make(map[models.ProductLine][]analytics.DemandProfile),
		Weights: WeightsEcho{DemandWeights: r.weights, TargetWOS: r.targetWOS},
		History: []models.SnapshotSummary{},
	}
	for _, line := range models.ProductLines {
		out.ByLine[line] = []analytics.DemandProfile{}
	}

	history, err := r.loader.repo.SnapshotHistory(r.ctx, historyLimit)
	if err != nil {
		log.Printf("⚠️  [INVENTORY] snapshot history: %v", err)
		r.errs["inventory.history"] = err.Error()
	} else if history != nil {
		out.History = history
	}

	snap, err := r.loader.repo.LatestSnapshot(r.ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		// The empty payload still renders; the gap is reported per section.
		r.errs["inventory.snapshot"] = err.Error()
		out.Insights = analytics.Insights(nil, r.targetWOS)
		return out, nil
	}
	if err != nil {
		return InventoryData{}, fmt.Errorf("load latest snapshot: %w", err)
	}
	out.Snapshot = &snap

	// Demand windows end at the channel's last sale, not the snapshot time.
	asOf := analytics.Day(r.bounds.MaxDate)
	if asOf.IsZero() {
		asOf = analytics.Day(snap.CapturedAt)
	}
	out.AsOfDate = asOf.Format(analytics.DateLayout)

	skuRows, err := r.loader.skuRows(analytics.NewDateRange(asOf.AddDate(0, 0, -(demandLookbackDays-1)), asOf))
	if err != nil {
		return InventoryData{}, fmt.Errorf("load sku history: %w", err)
	}
	sales := make(map[string][]analytics.UnitSale)
	for _, row := range skuRows {
		// Refund and zero-revenue rows do not count as demand.
		if row.Units <= 0 || row.Revenue <= 0 {
			continue
		}
		key := utils.NormalizeKey(row.SKU)
		sales[key] = append(sales[key], analytics.UnitSale{Date: row.Date, Units: row.Units})
	}

	for _, item := range snap.Rows {
		if !item.ProductLine.IsMapped() {
			continue
		}
		if strings.Contains(strings.ToLower(item.Tag), manualOverrideTag) {
			continue
		}
		key := utils.NormalizeKey(item.SKU)
		p := analytics.ComputeDemandProfile(item.SKU, sales[key], item, r.weights, r.targetWOS, asOf)
		out.Rows = append(out.Rows, p)
	}
	analytics.SortProfiles(out.Rows)
	for _, p := range out.Rows {
		out.ByLine[p.ProductLine] = append(out.ByLine[p.ProductLine], p)
	}
	out.Insights = analytics.Insights(out.Rows, r.targetWOS)

	log.Printf("📦 [INVENTORY] snapshot %d: %d SKUs profiled as of %s", snap.ID, len(out.Rows), out.AsOfDate)
	return out, nil
}
