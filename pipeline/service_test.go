package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/analytics"
	"salesdash/cache"
	"salesdash/models"
	"salesdash/scenario"
	"salesdash/store"
)

func d(s string) time.Time {
	t, err := time.Parse(analytics.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func eachDay(from, to string, fn func(time.Time)) {
	for t := d(from); !t.After(d(to)); t = t.AddDate(0, 0, 1) {
		fn(t)
	}
}

// fixture holds flat Amazon revenue from Jan 1 to Mar 15 2024: IQBAR 100/day,
// IQMIX 50/day and 10/day of unmapped revenue. Two IQBAR SKUs swap places
// between the second half of February and the first half of March.
func fixture() *store.Memory {
	m := store.NewMemory()
	eachDay("2024-01-01", "2024-03-15", func(t time.Time) {
		m.AddDailyRows(
			models.DailyRevenueRow{Date: t, Channel: models.ChannelAmazon, ProductLine: models.ProductLineIQBAR, Revenue: 100, Units: 10, Orders: 5},
			models.DailyRevenueRow{Date: t, Channel: models.ChannelAmazon, ProductLine: models.ProductLineIQMIX, Revenue: 50, Units: 5, Orders: 2},
			models.DailyRevenueRow{Date: t, Channel: models.ChannelAmazon, ProductLine: models.ProductLineUnmapped, Revenue: 10, Units: 1, Orders: 1},
		)
	})
	eachDay("2024-02-15", "2024-02-29", func(t time.Time) {
		m.AddSKUDailyRows(
			models.SKUDailyRow{Date: t, Channel: models.ChannelAmazon, SKU: "BAR-CHOC", Tag: "Chocolate", ProductLine: models.ProductLineIQBAR, Revenue: 40, Units: 4, Orders: 4},
			models.SKUDailyRow{Date: t, Channel: models.ChannelAmazon, SKU: "BAR-PB", Tag: "Peanut Butter", ProductLine: models.ProductLineIQBAR, Revenue: 60, Units: 6, Orders: 6},
		)
	})
	eachDay("2024-03-01", "2024-03-15", func(t time.Time) {
		m.AddSKUDailyRows(
			models.SKUDailyRow{Date: t, Channel: models.ChannelAmazon, SKU: "BAR-CHOC", Tag: "Chocolate", ProductLine: models.ProductLineIQBAR, Revenue: 60, Units: 6, Orders: 6},
			models.SKUDailyRow{Date: t, Channel: models.ChannelAmazon, SKU: "BAR-PB", Tag: "Peanut Butter", ProductLine: models.ProductLineIQBAR, Revenue: 40, Units: 4, Orders: 4},
			models.SKUDailyRow{Date: t, Channel: models.ChannelAmazon, SKU: "MIX-LEM", Tag: "Lemon", ProductLine: models.ProductLineIQMIX, Revenue: 25, Units: 3, Orders: 3},
			// refunds never count as demand
			models.SKUDailyRow{Date: t, Channel: models.ChannelAmazon, SKU: "BAR-PB", Tag: "Peanut Butter", ProductLine: models.ProductLineIQBAR, Revenue: -5, Units: 1, Orders: 0},
		)
	})
	m.AddSnapshot(time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC), "inventory-0316.csv", []models.InventorySnapshotRow{
		{SKU: "BAR-CHOC", Tag: "Chocolate", ProductLine: models.ProductLineIQBAR, TotalInventory: 120, Available: 100, Reserved: 20},
		{SKU: "BAR-PB", Tag: "Peanut Butter", ProductLine: models.ProductLineIQBAR, TotalInventory: 500, Available: 500},
		{SKU: "MIX-LEM", Tag: "Lemon", ProductLine: models.ProductLineIQMIX, TotalInventory: 0, Available: 0},
		{SKU: "GIFT-BOX", Tag: "Gift", ProductLine: models.ProductLineUnmapped, TotalInventory: 40, Available: 40},
		{SKU: "BAR-OLD", Tag: "Manual Override - retired", ProductLine: models.ProductLineIQBAR, TotalInventory: 10, Available: 10},
	})
	m.AddSettlementRows(
		models.SettlementRow{Date: d("2024-01-10"), Channel: models.ChannelAmazon, GrossSales: 999, NetPayout: 999},
		models.SettlementRow{Date: d("2024-02-20"), Channel: models.ChannelAmazon, GrossSales: 1000, NetPayout: 800, SellingFees: -100, FBAFees: -100},
		models.SettlementRow{Date: d("2024-03-05"), Channel: models.ChannelAmazon, Description: "Storage fee", GrossSales: 1000, NetPayout: 700, SellingFees: -150, FBAFees: -120, OtherTxnFees: -10, Other: -20},
		models.SettlementRow{Date: d("2024-03-10"), Channel: models.ChannelAmazon, Description: "Reimbursement - lost inventory", NetPayout: 50, Other: 50},
		models.SettlementRow{Date: d("2024-03-12"), Channel: models.ChannelAmazon, GrossSales: 500, NetPayout: 350, SellingFees: -75, FBAFees: -60, OtherTxnFees: -15},
	)
	m.SetMonthlyGoal(models.ChannelAmazon, 2024, time.March, 6000)
	return m
}

func newTestService(repo store.Repository, opts ...Option) *Service {
	return NewService(repo, scenario.Builtin(), opts...)
}

func TestDashboardMetadataOnly(t *testing.T) {
	svc := newTestService(fixture())
	resp := svc.Dashboard(context.Background(), Query{})

	assert.Equal(t, Meta{MinDate: "2024-01-01", MaxDate: "2024-03-15", TxCount: 75 * 3}, resp.Meta)
	assert.Equal(t, models.ChannelAmazon, resp.Channel)
	assert.Equal(t, analytics.PresetMTD, resp.Preset)
	assert.Equal(t, analytics.ComparePreviousPeriod, resp.CompareMode)
	assert.Equal(t, "2024-03-01", resp.ResolvedDates.StartString())
	assert.Equal(t, "2024-03-15", resp.ResolvedDates.EndString())
	assert.Equal(t, "2024-02-15", resp.CompareDates.StartString())
	assert.Equal(t, "2024-02-29", resp.CompareDates.EndString())
	assert.Equal(t, scenario.Base, resp.Scenario.Scenario)

	assert.Nil(t, resp.Sales)
	assert.Nil(t, resp.Product)
	assert.Nil(t, resp.Business)
	assert.Nil(t, resp.Forecast)
	assert.Nil(t, resp.Inventory)
	assert.Empty(t, resp.Warnings)
	assert.Empty(t, resp.Errors)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"sales"`)
}

func TestDashboardSales(t *testing.T) {
	svc := newTestService(fixture())
	resp := svc.Dashboard(context.Background(), Query{IncludeData: true})
	require.Empty(t, resp.Errors)
	require.True(t, resp.Sales.OK())

	sales := resp.Sales.Data
	assert.InDelta(t, 2250, sales.Summary.Current.GrandTotal, 1e-9)
	assert.InDelta(t, 1500, sales.Summary.Current.IQBAR, 1e-9)
	assert.InDelta(t, 750, sales.Summary.Current.IQMIX, 1e-9)
	assert.InDelta(t, 150, sales.Summary.Current.Unmapped, 1e-9)
	assert.InDelta(t, 2250, sales.Summary.Compare.GrandTotal, 1e-9)
	require.NotNil(t, sales.Summary.Deltas.GrandTotal)
	assert.InDelta(t, 0, *sales.Summary.Deltas.GrandTotal, 1e-9)
	assert.Nil(t, sales.Summary.Deltas.IQJOE)

	mtd := sales.Summary.MTD
	require.NotNil(t, mtd)
	assert.Equal(t, 15, mtd.ElapsedDays)
	assert.Equal(t, 31, mtd.MonthDays)
	assert.InDelta(t, 4650, mtd.Linear.ProjectedTotal, 1e-6)
	require.NotNil(t, mtd.Linear.PaceToGoal)
	assert.InDelta(t, 0.775, *mtd.Linear.PaceToGoal, 1e-9)
	require.NotNil(t, mtd.Dynamic)
	assert.InDelta(t, 4650, mtd.Dynamic.ProjectedTotal, 1e-6)

	require.Len(t, sales.Daily, 15)
	assert.Equal(t, DailyRow{Date: "2024-03-01", IQBAR: 100, IQMIX: 50, Total: 150}, sales.Daily[0])
	require.Len(t, sales.Pivot, 15)
	assert.Equal(t, "March 15, 2024", sales.Pivot[14].DateLabel)
	assert.InDelta(t, 10, sales.Pivot[14].Unmapped, 1e-9)
}

// Lines are projected with the blended ratio of the whole channel rather than
// their own history, so a line growing faster than the rest is understated.
func TestPerLineDynamicPaceSharesBlendedRatio(t *testing.T) {
	m := store.NewMemory()
	eachDay("2024-01-01", "2024-03-15", func(t time.Time) {
		mix := 50.0
		if !t.Before(d("2024-03-01")) {
			mix = 150
		}
		m.AddDailyRows(
			models.DailyRevenueRow{Date: t, Channel: models.ChannelAmazon, ProductLine: models.ProductLineIQBAR, Revenue: 100},
			models.DailyRevenueRow{Date: t, Channel: models.ChannelAmazon, ProductLine: models.ProductLineIQMIX, Revenue: mix},
		)
	})
	resp := newTestService(m).Dashboard(context.Background(), Query{IncludeData: true})
	require.True(t, resp.Sales.OK())
	mtd := resp.Sales.Data.Summary.MTD
	require.NotNil(t, mtd)
	require.NotNil(t, mtd.Dynamic)
	require.Len(t, mtd.Lines, 3)

	bar, mix := mtd.Lines[0], mtd.Lines[1]
	require.NotNil(t, bar.DynamicProjected)
	require.NotNil(t, mix.DynamicProjected)
	assert.InDelta(t, *bar.DynamicProjected/bar.Current, *mix.DynamicProjected/mix.Current, 1e-9)
	assert.InDelta(t, mtd.Dynamic.ProjectedTotal, *bar.DynamicProjected+*mix.DynamicProjected, 1e-6)
	// IQBAR is flat, yet it inherits IQMIX's growth.
	assert.Greater(t, *bar.DynamicProjected, bar.LinearProjected)
	require.NotNil(t, mtd.Lines[2].DynamicProjected)
	assert.Zero(t, *mtd.Lines[2].DynamicProjected)
}

func TestDashboardProduct(t *testing.T) {
	svc := newTestService(fixture())
	resp := svc.Dashboard(context.Background(), Query{IncludeData: true, Granularity: GranularityWeek})
	require.True(t, resp.Product.OK())
	p := resp.Product.Data

	require.Len(t, p.Summary, 3)
	assert.Equal(t, models.ProductLineIQBAR, p.Summary[0].ProductLine)
	assert.InDelta(t, 1500, p.Summary[0].Sales, 1e-9)
	assert.Equal(t, 150, p.Summary[0].Units)
	assert.InDelta(t, 20, p.Summary[0].AOV, 1e-9)
	assert.Equal(t, models.ProductLineUnmapped, p.Summary[2].ProductLine)

	require.NotEmpty(t, p.Trend)
	assert.Equal(t, "2024-09", p.Trend[0].Period)

	require.Len(t, p.SKUSummary, 2)
	assert.Equal(t, "BAR-CHOC", p.SKUSummary[0].SKU)
	assert.InDelta(t, 900, p.SKUSummary[0].Sales, 1e-9)
	assert.InDelta(t, 10, p.SKUSummary[0].AOV, 1e-9)
	assert.Len(t, p.SKUSummaryAll[models.ProductLineIQMIX], 1)
	assert.Empty(t, p.SKUSummaryAll[models.ProductLineIQJOE])

	movers := p.TopMovers
	assert.Equal(t, "2024-02-15", movers.PreviousPeriod.StartString())
	require.Len(t, movers.Gainers, 2)
	require.Len(t, movers.Decliners, 2)
	assert.Equal(t, "BAR-CHOC", movers.Gainers[0].SKU)
	assert.InDelta(t, 300, movers.Gainers[0].Change, 1e-9)
	require.NotNil(t, movers.Gainers[0].ChangePct)
	assert.InDelta(t, 0.5, *movers.Gainers[0].ChangePct, 1e-9)
	assert.Equal(t, "BAR-PB", movers.Decliners[0].SKU)
	// The refund row lowers current sales by 75.
	assert.InDelta(t, 525-900, movers.Decliners[0].Change, 1e-9)
}

func TestDashboardProductTagFilter(t *testing.T) {
	svc := newTestService(fixture())
	resp := svc.Dashboard(context.Background(), Query{IncludeData: true, ProductTag: "  chocolate"})
	require.True(t, resp.Product.OK())
	require.Len(t, resp.Product.Data.SKUSummary, 1)
	assert.Equal(t, "BAR-CHOC", resp.Product.Data.SKUSummary[0].SKU)
	assert.Len(t, resp.Product.Data.TopMovers.Gainers, 1)
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "2024-01", periodLabel(d("2024-01-01"), GranularityWeek))
	assert.Equal(t, "2023-00", periodLabel(d("2023-01-01"), GranularityWeek))
	assert.Equal(t, "2023-01", periodLabel(d("2023-01-02"), GranularityWeek))
	assert.Equal(t, "2024-03", periodLabel(d("2024-03-09"), GranularityMonth))
	assert.Equal(t, "2024-03-09", periodLabel(d("2024-03-09"), GranularityDay))
}

func TestDashboardBusiness(t *testing.T) {
	svc := newTestService(fixture())
	resp := svc.Dashboard(context.Background(), Query{IncludeData: true})
	require.True(t, resp.Business.OK())
	b := resp.Business.Data

	// March is incomplete and left out.
	require.Len(t, b.Monthly, 2)
	assert.Equal(t, MonthlyRow{Month: "2024-01", IQBAR: 3100, IQMIX: 1550, Total: 4650}, b.Monthly[0])
	assert.Equal(t, "2024-02", b.Monthly[1].Month)
	assert.InDelta(t, 4350, b.Monthly[1].Total, 1e-9)
	assert.Equal(t, 2, b.Summary.Months)
	assert.InDelta(t, 9000, b.Summary.TotalSales, 1e-9)
	assert.InDelta(t, 4500, b.Summary.AvgMonthlySales, 1e-9)
	assert.Nil(t, b.Summary.CAGR)
}

func TestDashboardPnL(t *testing.T) {
	svc := newTestService(fixture())
	resp := svc.Dashboard(context.Background(), Query{IncludeData: true})
	require.Empty(t, resp.Errors)
	require.True(t, resp.Business.OK())

	pnl := resp.Business.Data.PnL
	require.NotNil(t, pnl)
	assert.Equal(t, "2024-03-01", pnl.Period.StartString())
	assert.Equal(t, "2024-02-15", pnl.ComparePeriod.StartString())

	kpis := pnl.KPIs
	assert.Equal(t, 1500.0, kpis.GrossSales)
	assert.Equal(t, 1100.0, kpis.NetPayout)
	require.NotNil(t, kpis.Margin)
	assert.InDelta(t, 1100.0/1500, *kpis.Margin, 1e-9)
	assert.InDelta(t, 0.5, *kpis.GrossSalesDelta, 1e-9)
	assert.InDelta(t, 0.375, *kpis.NetPayoutDelta, 1e-9)
	require.NotNil(t, kpis.MarginPPDelta)
	assert.InDelta(t, 1100.0/1500-0.8, *kpis.MarginPPDelta, 1e-9)

	require.Len(t, pnl.Fees, 4)
	assert.Equal(t, "Selling Fees", pnl.Fees[0].Label)
	assert.Equal(t, -225.0, pnl.Fees[0].Amount)
	assert.Equal(t, -100.0, pnl.Fees[0].Compare)
	assert.InDelta(t, 1.25, *pnl.Fees[0].DeltaPct, 1e-9)
	assert.Equal(t, "Other", pnl.Fees[3].Label)
	assert.Equal(t, 30.0, pnl.Fees[3].Amount)
	assert.Nil(t, pnl.Fees[3].DeltaPct)

	assert.Equal(t, []ReasonLine{{Reason: "Reimbursement - lost inventory", Amount: 50}, {Reason: "Storage fee", Amount: -20}}, pnl.OtherReasons)
	assert.Equal(t, []ReasonLine{{Reason: "Reimbursement - lost inventory", Amount: 50}}, pnl.Reimbursements)
	assert.Equal(t, []ReasonLine{{Reason: "Storage fee", Amount: -20}}, pnl.FeeReasons)
}

type brokenSettlements struct {
	*store.Memory
}

func (brokenSettlements) SettlementRows(context.Context, models.Channel, time.Time, time.Time) ([]models.SettlementRow, error) {
	return nil, errors.New("settlements unavailable")
}

func TestPnLFailureKeepsMonthly(t *testing.T) {
	svc := newTestService(brokenSettlements{fixture()})
	resp := svc.Dashboard(context.Background(), Query{IncludeData: true})

	assert.Equal(t, map[string]string{"business.pnl": "load settlements: settlements unavailable"}, resp.Errors)
	require.True(t, resp.Business.OK())
	assert.Nil(t, resp.Business.Data.PnL)
	assert.Len(t, resp.Business.Data.Monthly, 2)
}

func TestCAGR(t *testing.T) {
	v := cagr(100, 121, 24)
	require.NotNil(t, v)
	assert.InDelta(t, 0.1, *v, 1e-9)
	assert.Nil(t, cagr(0, 121, 24))
	assert.Nil(t, cagr(100, -5, 24))
}

func TestDashboardForecast(t *testing.T) {
	svc := newTestService(fixture())
	resp := svc.Dashboard(context.Background(), Query{
		IncludeData: true,
		Scenario:    "promo_push",
		Overrides:   scenario.Overrides{"manual_multiplier": 1.0},
	})
	require.True(t, resp.Forecast.OK())
	f := resp.Forecast.Data
	assert.Equal(t, "promo_push", f.Scenario)
	require.NotNil(t, f.Projection)
	assert.Equal(t, "2024-03-15", f.Projection.AsOfDate)
	assert.InDelta(t, 2250, f.Projection.MTDActual, 1e-9)
	assert.InDelta(t, 6000, f.Projection.Goal, 1e-9)
	require.NotNil(t, f.Projection.PaceToGoal)
	assert.Len(t, f.Projection.Chart, 31)
	assert.NotEmpty(t, f.StatSigLabel)
}

func TestDashboardForecastWithoutRevenue(t *testing.T) {
	m := store.NewMemory()
	m.AddDailyRows(models.DailyRevenueRow{Date: d("2024-03-05"), Channel: models.ChannelAmazon, ProductLine: models.ProductLineUnmapped, Revenue: 10})
	resp := newTestService(m).Dashboard(context.Background(), Query{IncludeData: true})
	require.True(t, resp.Forecast.OK())
	assert.Nil(t, resp.Forecast.Data.Projection)

	raw, err := json.Marshal(resp.Forecast.Data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"projection":null`)
}

func TestDashboardInventory(t *testing.T) {
	svc := newTestService(fixture())
	resp := svc.Dashboard(context.Background(), Query{IncludeData: true})
	require.True(t, resp.Inventory.OK())
	inv := resp.Inventory.Data

	assert.Equal(t, "2024-03-15", inv.AsOfDate)
	require.NotNil(t, inv.Snapshot)
	assert.Equal(t, "inventory-0316.csv", inv.Snapshot.SourceFile)
	require.Len(t, inv.Rows, 3)

	choc := inv.Rows[0]
	assert.Equal(t, "BAR-CHOC", choc.SKU)
	assert.InDelta(t, 4.566667, choc.DailyDemand, 1e-6)
	assert.Equal(t, analytics.StatusRestock, choc.Status)
	assert.Equal(t, 136, choc.RestockUnits)
	assert.Equal(t, "BAR-PB", inv.Rows[1].SKU)
	assert.Equal(t, analytics.StatusHealthy, inv.Rows[1].Status)
	assert.Equal(t, analytics.StatusOOS, inv.Rows[2].Status)

	assert.Len(t, inv.ByLine[models.ProductLineIQBAR], 2)
	assert.Len(t, inv.ByLine[models.ProductLineIQMIX], 1)
	assert.Empty(t, inv.ByLine[models.ProductLineIQJOE])

	assert.Equal(t, analytics.DefaultDemandWeights(), inv.Weights.DemandWeights)
	assert.Equal(t, analytics.DefaultTargetWOS, inv.Weights.TargetWOS)
	require.Len(t, inv.History, 1)
	assert.Equal(t, 670, inv.History[0].TotalUnits)
	assert.Equal(t, 1, inv.Insights.CriticalSKUs)
	assert.Equal(t, 1, inv.Insights.RestockQueue)
}

func TestDashboardWarnings(t *testing.T) {
	svc := newTestService(fixture())
	resp := svc.Dashboard(context.Background(), Query{
		Preset:      "Last 7",
		CompareMode: "yoy",
		Scenario:    "moonshot",
		Weights:     &analytics.DemandWeights{W7: 50, W30: 50, W60: 50, W90: 50},
		Overrides:   scenario.Overrides{"unknown_knob": 2},
	})
	assert.Equal(t, analytics.PresetMTD, resp.Preset)
	assert.Equal(t, analytics.ComparePreviousPeriod, resp.CompareMode)
	assert.Equal(t, scenario.Base, resp.Scenario.Scenario)
	assert.Len(t, resp.Warnings, 5)
	assert.Empty(t, resp.Errors)
}

func TestDashboardCustomRange(t *testing.T) {
	svc := newTestService(fixture())
	ctx := context.Background()

	resp := svc.Dashboard(ctx, Query{Preset: "YTD", StartDate: "2024-02-20", EndDate: "2024-02-10"})
	assert.Equal(t, analytics.PresetCustom, resp.Preset)
	assert.Equal(t, "2024-02-10", resp.ResolvedDates.StartString())
	assert.Equal(t, "2024-02-20", resp.ResolvedDates.EndString())
	assert.Len(t, resp.Warnings, 1)

	resp = svc.Dashboard(ctx, Query{Preset: "Custom", StartDate: "2023-12-15", EndDate: "2024-01-10"})
	assert.Equal(t, "2024-01-01", resp.ResolvedDates.StartString())

	resp = svc.Dashboard(ctx, Query{Preset: "Custom", StartDate: "2025-01-01", EndDate: "2025-01-31", IncludeData: true})
	assert.True(t, resp.ResolvedDates.IsEmpty())
	assert.NotEmpty(t, resp.Warnings)
	require.True(t, resp.Sales.OK())
	assert.Zero(t, resp.Sales.Data.Summary.Current.GrandTotal)
	assert.Nil(t, resp.Forecast.Data.Projection)
}

func TestDashboardEmptyChannel(t *testing.T) {
	resp := newTestService(fixture()).Dashboard(context.Background(), Query{Channel: "shopify", IncludeData: true})
	assert.Equal(t, models.ChannelShopify, resp.Channel)
	assert.True(t, resp.ResolvedDates.IsEmpty())
	assert.Contains(t, resp.Warnings, "no sales data imported for Shopify")
	assert.Empty(t, resp.Errors)
	require.True(t, resp.Business.OK())
	assert.Empty(t, resp.Business.Data.Monthly)
}

func TestDashboardWithoutSnapshot(t *testing.T) {
	m := store.NewMemory()
	eachDay("2024-03-01", "2024-03-10", func(t time.Time) {
		m.AddDailyRows(models.DailyRevenueRow{Date: t, Channel: models.ChannelAmazon, ProductLine: models.ProductLineIQBAR, Revenue: 100, Units: 10, Orders: 5})
	})
	svc := newTestService(m, WithCache(cache.NewMemory(), time.Minute))
	resp := svc.Dashboard(context.Background(), Query{IncludeData: true})

	assert.Equal(t, map[string]string{"inventory.snapshot": store.ErrNoSnapshot.Error()}, resp.Errors)
	require.True(t, resp.Inventory.OK())
	assert.Nil(t, resp.Inventory.Data.Snapshot)
	assert.Empty(t, resp.Inventory.Data.Rows)
	assert.True(t, resp.Sales.OK())
	assert.True(t, resp.Forecast.OK())

	// Responses with a section error are not cached.
	_, _, err := svc.DashboardJSON(context.Background(), Query{IncludeData: true})
	require.NoError(t, err)
	_, hit, err := svc.DashboardJSON(context.Background(), Query{IncludeData: true})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDashboardNonFiniteInputs(t *testing.T) {
	svc := newTestService(fixture())
	ctx := context.Background()
	q := Query{
		IncludeData: true,
		Weights:     &analytics.DemandWeights{W7: math.Inf(1), W30: 30, W60: 30, W90: 10},
		TargetWOS:   math.NaN(),
	}

	resp := svc.Dashboard(ctx, q)
	assert.Len(t, resp.Warnings, 2)
	require.True(t, resp.Inventory.OK())
	assert.Equal(t, analytics.DefaultDemandWeights(), resp.Inventory.Data.Weights.DemandWeights)
	assert.Equal(t, analytics.DefaultTargetWOS, resp.Inventory.Data.Weights.TargetWOS)

	raw, hit, err := svc.DashboardJSON(ctx, q)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, string(raw), `"inventory"`)
}

type brokenSnapshots struct {
	*store.Memory
}

func (brokenSnapshots) LatestSnapshot(context.Context) (models.Snapshot, error) {
	return models.Snapshot{}, errors.New("snapshot table missing")
}

func TestSectionFailureIsIsolated(t *testing.T) {
	svc := newTestService(brokenSnapshots{fixture()})
	resp := svc.Dashboard(context.Background(), Query{IncludeData: true})

	assert.False(t, resp.Inventory.OK())
	assert.Nil(t, resp.Inventory.Data)
	assert.Equal(t, "load latest snapshot: snapshot table missing", resp.Errors["inventory"])
	assert.True(t, resp.Sales.OK())
	assert.True(t, resp.Product.OK())
	assert.True(t, resp.Business.OK())
	assert.True(t, resp.Forecast.OK())
}

func TestDashboardJSONCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	svc := newTestService(fixture(), WithCache(c, time.Minute))

	first, hit, err := svc.DashboardJSON(ctx, Query{IncludeData: true})
	require.NoError(t, err)
	assert.False(t, hit)
	second, hit, err := svc.DashboardJSON(ctx, Query{IncludeData: true, Channel: "amazon"})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(first, &decoded))
	assert.Contains(t, decoded, "inventory")

	broken := newTestService(brokenSnapshots{fixture()}, WithCache(cache.NewMemory(), time.Minute))
	_, _, err = broken.DashboardJSON(ctx, Query{IncludeData: true})
	require.NoError(t, err)
	_, hit, err = broken.DashboardJSON(ctx, Query{IncludeData: true})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDateRangeMeta(t *testing.T) {
	svc := newTestService(fixture())
	meta, err := svc.DateRange(context.Background(), models.ChannelShopify)
	require.NoError(t, err)
	assert.Equal(t, Meta{}, meta)
}
