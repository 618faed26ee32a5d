package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"salesdash/models"
)

// StockStatus classifies a SKU by its weeks of supply.
type StockStatus string

const (
	StatusOOS      StockStatus = "OOS"
	StatusCritical StockStatus = "Critical"
	StatusRestock  StockStatus = "Restock"
	StatusAtRisk   StockStatus = "At Risk"
	StatusHealthy  StockStatus = "Healthy"
	StatusNoDemand StockStatus = "No Demand"
)

const (
	criticalWOS = 2.0
	restockWOS  = 4.0

	// DefaultTargetWOS is the weeks of supply a SKU should carry.
	DefaultTargetWOS = 8.0
)

// lookbackWindows are the trailing windows, in days, that feed the demand blend.
var lookbackWindows = [4]int{7, 30, 60, 90}

// DemandWeights are the percentage weights of the 7/30/60/90 day rates.
// They are expected to total 100 but are applied as given.
type DemandWeights struct {
	W7  float64 `json:"w7"`
	W30 float64 `json:"w30"`
	W60 float64 `json:"w60"`
	W90 float64 `json:"w90"`
}

func DefaultDemandWeights() DemandWeights {
	return DemandWeights{W7: 40, W30: 30, W60: 20, W90: 10}
}

func (w DemandWeights) Total() float64 {
	return w.W7 + w.W30 + w.W60 + w.W90
}

// Validate returns a warning when the weights do not total 100.
func (w DemandWeights) Validate() error {
	if total := w.Total(); math.Abs(total-100) > 1e-9 {
		return fmt.Errorf("demand weights total %.4g, expected 100", total)
	}
	return nil
}

// Finite reports whether every weight is a real number.
func (w DemandWeights) Finite() bool {
	for _, v := range w.values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (w DemandWeights) values() [4]float64 {
	return [4]float64{w.W7, w.W30, w.W60, w.W90}
}

// UnitSale is one day of units sold for a SKU.
type UnitSale struct {
	Date  time.Time
	Units int
}

// DemandProfile is the derived stock position of one SKU.
type DemandProfile struct {
	SKU            string
	Tag            string
	ProductLine    models.ProductLine
	DailyDemand    float64
	WOS            float64 // +Inf when there is no demand
	Status         StockStatus
	RestockUnits   int
	PctAvailable   float64
	Units30d       int
	TotalInventory int
	Inbound        int
	Available      int
	Reserved       int
	EstOOSDate     *time.Time
}

// MarshalJSON renders an unbounded WOS as null.
func (p DemandProfile) MarshalJSON() ([]byte, error) {
	var wos *float64
	if !math.IsInf(p.WOS, 0) && !math.IsNaN(p.WOS) {
		wos = floatPtr(p.WOS)
	}
	var oos *string
	if p.EstOOSDate != nil {
		s := p.EstOOSDate.Format(DateLayout)
		oos = &s
	}
	return json.Marshal(struct {
		SKU            string             `json:"sku"`
		Tag            string             `json:"tag"`
		ProductLine    models.ProductLine `json:"product_line"`
		DailyDemand    float64            `json:"daily_demand"`
		WOS            *float64           `json:"wos"`
		Status         StockStatus        `json:"status"`
		RestockUnits   int                `json:"restock_units"`
		PctAvailable   float64            `json:"pct_avail"`
		Units30d       int                `json:"units_30d"`
		TotalInventory int                `json:"total_inventory"`
		Inbound        int                `json:"inbound"`
		Available      int                `json:"available"`
		Reserved       int                `json:"reserved"`
		EstOOSDate     *string            `json:"est_oos_date"`
	}{
		p.SKU, p.Tag, p.ProductLine, p.DailyDemand, wos, p.Status, p.RestockUnits, p.PctAvailable,
		p.Units30d, p.TotalInventory, p.Inbound, p.Available, p.Reserved, oos,
	})
}

// windowUnits sums units per lookback window ending at asOf (inclusive).
// Negative days count as zero.
func windowUnits(history []UnitSale, asOf time.Time) [4]int {
	var sums [4]int
	end := Day(asOf)
	for _, s := range history {
		if s.Units <= 0 {
			continue
		}
		age := daysBetween(s.Date, end)
		if age < 0 {
			continue
		}
		for i, l := range lookbackWindows {
			if age < l {
				sums[i] += s.Units
			}
		}
	}
	return sums
}

// BlendedDailyDemand computes sum(w_L * units_L / L) / 100 over the four windows.
func BlendedDailyDemand(history []UnitSale, asOf time.Time, weights DemandWeights) float64 {
	sums := windowUnits(history, asOf)
	w := weights.values()
	demand := 0.0
	for i, l := range lookbackWindows {
		demand += w[i] * float64(sums[i]) / float64(l)
	}
	demand /= 100
	if demand < 0 || math.IsNaN(demand) {
		return 0
	}
	return demand
}

// WeeksOfSupply is available / weekly demand. No demand is unbounded supply
// unless nothing is available.
func WeeksOfSupply(available int, dailyDemand float64) float64 {
	if dailyDemand <= 0 {
		if available > 0 {
			return math.Inf(1)
		}
		return 0
	}
	if available <= 0 {
		return 0
	}
	return float64(available) / (dailyDemand * 7)
}

// ClassifyStock applies the status rules in priority order.
func ClassifyStock(available int, dailyDemand, wos, targetWOS float64) StockStatus {
	switch {
	case available <= 0:
		return StatusOOS
	case dailyDemand <= 0:
		return StatusNoDemand
	case wos < criticalWOS:
		return StatusCritical
	case wos < restockWOS:
		return StatusRestock
	case wos < targetWOS:
		return StatusAtRisk
	default:
		return StatusHealthy
	}
}

// RestockUnits is the order quantity that brings total inventory up to targetWOS weeks.
func RestockUnits(dailyDemand, targetWOS float64, totalInventory int) int {
	need := math.Round(targetWOS*7*dailyDemand - float64(totalInventory))
	if need <= 0 || math.IsNaN(need) {
		return 0
	}
	return int(need)
}

// ComputeDemandProfile derives the stock position of one SKU from its sales
// history and snapshot row. Windows end at asOf; a zero asOf uses the latest
// history date.
func ComputeDemandProfile(sku string, history []UnitSale, snap models.InventorySnapshotRow, weights DemandWeights, targetWOS float64, asOf time.Time) DemandProfile {
	if asOf.IsZero() {
		asOf = latestSale(history)
	}

	demand := 0.0
	units30 := 0
	if !asOf.IsZero() {
		demand = BlendedDailyDemand(history, asOf, weights)
		units30 = windowUnits(history, asOf)[1]
	}

	wos := WeeksOfSupply(snap.Available, demand)
	p := DemandProfile{
		SKU:            sku,
		Tag:            snap.Tag,
		ProductLine:    snap.ProductLine,
		DailyDemand:    demand,
		WOS:            wos,
		Status:         ClassifyStock(snap.Available, demand, wos, targetWOS),
		RestockUnits:   RestockUnits(demand, targetWOS, snap.TotalInventory),
		Units30d:       units30,
		TotalInventory: snap.TotalInventory,
		Inbound:        snap.Inbound,
		Available:      snap.Available,
		Reserved:       snap.Reserved,
	}
	if snap.TotalInventory > 0 {
		p.PctAvailable = float64(snap.Available) / float64(snap.TotalInventory)
	}
	if demand > 0 && !snap.CapturedAt.IsZero() {
		days := int(math.Floor(float64(snap.TotalInventory) / demand))
		oos := Day(snap.CapturedAt).AddDate(0, 0, days)
		p.EstOOSDate = &oos
	}
	return p
}

func latestSale(history []UnitSale) time.Time {
	var latest time.Time
	for _, s := range history {
		if s.Date.After(latest) {
			latest = s.Date
		}
	}
	return latest
}

// SortProfiles orders by product line, then WOS ascending with unbounded WOS last.
func SortProfiles(profiles []DemandProfile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		a, b := profiles[i], profiles[j]
		if a.ProductLine != b.ProductLine {
			return a.ProductLine < b.ProductLine
		}
		return a.WOS < b.WOS
	})
}

// InventoryInsights summarises a set of profiles.
type InventoryInsights struct {
	InStockQuality *float64 `json:"in_stock_quality"`
	CriticalSKUs   int      `json:"critical_skus"`
	RestockQueue   int      `json:"restock_queue"`
	OverstockSKUs  int      `json:"overstock_skus"`
	Insights       []string `json:"insights"`
}

// Insights counts SKUs per WOS band. SKUs without demand have no finite WOS
// and are left out of every band, though they still count toward the total.
func Insights(profiles []DemandProfile, targetWOS float64) InventoryInsights {
	out := InventoryInsights{Insights: []string{}}
	total := len(profiles)
	if total == 0 {
		return out
	}
	inZone := 0
	for _, p := range profiles {
		if math.IsInf(p.WOS, 0) {
			continue
		}
		switch {
		case p.WOS < criticalWOS:
			out.CriticalSKUs++
		case p.WOS < restockWOS:
			out.RestockQueue++
		}
		if p.WOS >= targetWOS {
			inZone++
		}
		if p.WOS >= 2*targetWOS {
			out.OverstockSKUs++
		}
	}
	out.InStockQuality = floatPtr(float64(inZone) / float64(total))
	out.Insights = append(out.Insights,
		fmt.Sprintf("%d/%d SKUs are at %g+ WOS.", inZone, total, targetWOS),
		fmt.Sprintf("%d SKUs are critical (<%g WOS).", out.CriticalSKUs, criticalWOS),
		fmt.Sprintf("%d SKUs are in restock range (%g-%g WOS).", out.RestockQueue, criticalWOS, restockWOS),
	)
	return out
}
