package models

import (
	"strings"
	"time"
)

// --- Enums ---

// ProductLine groups SKUs into the brand's three product families.
type ProductLine string

const (
	ProductLineIQBAR    ProductLine = "IQBAR"
	ProductLineIQMIX    ProductLine = "IQMIX"
	ProductLineIQJOE    ProductLine = "IQJOE"
	ProductLineUnmapped ProductLine = "Unmapped"
)

// ProductLines lists the mapped product lines in display order.
var ProductLines = []ProductLine{ProductLineIQBAR, ProductLineIQMIX, ProductLineIQJOE}

// NormalizeProductLine maps free-form text onto a ProductLine.
// Anything that is not one of the three known lines is Unmapped.
func NormalizeProductLine(s string) ProductLine {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.Contains(upper, "IQBAR"):
		return ProductLineIQBAR
	case strings.Contains(upper, "IQMIX"):
		return ProductLineIQMIX
	case strings.Contains(upper, "IQJOE"):
		return ProductLineIQJOE
	}
	return ProductLineUnmapped
}

// IsMapped reports whether p is one of the three known product lines.
func (p ProductLine) IsMapped() bool {
	return p == ProductLineIQBAR || p == ProductLineIQMIX || p == ProductLineIQJOE
}

// Channel is the sales channel a row was imported from.
type Channel string

const (
	ChannelAmazon  Channel = "Amazon"
	ChannelShopify Channel = "Shopify"
)

// NormalizeChannel defaults to Amazon for anything that is not Shopify.
func NormalizeChannel(s string) Channel {
	if strings.EqualFold(strings.TrimSpace(s), string(ChannelShopify)) {
		return ChannelShopify
	}
	return ChannelAmazon
}

// --- Ingested rows ---

// DailyRevenueRow is one (date, product line, channel) revenue aggregate.
type DailyRevenueRow struct {
	Date        time.Time   `json:"date"`
	Channel     Channel     `json:"channel"`
	ProductLine ProductLine `json:"product_line"`
	Revenue     float64     `json:"revenue"`
	Units       int         `json:"units"`
	Orders      int         `json:"orders"`
}

// SKUDailyRow is a per-SKU daily aggregate used for SKU tables, top movers and demand.
type SKUDailyRow struct {
	Date        time.Time   `json:"date"`
	Channel     Channel     `json:"channel"`
	SKU         string      `json:"sku"`
	Tag         string      `json:"tag"`
	ProductLine ProductLine `json:"product_line"`
	Revenue     float64     `json:"revenue"`
	Units       int         `json:"units"`
	Orders      int         `json:"orders"`
}

// SettlementRow is one marketplace settlement transaction. Fees and
// adjustments are signed the way the payout report carries them, so fees
// are negative and NetPayout is the amount actually paid out.
type SettlementRow struct {
	Date         time.Time `json:"date"`
	Channel      Channel   `json:"channel"`
	Description  string    `json:"description"`
	GrossSales   float64   `json:"gross_sales"`
	NetPayout    float64   `json:"net_payout"`
	SellingFees  float64   `json:"selling_fees"`
	FBAFees      float64   `json:"fba_fees"`
	OtherTxnFees float64   `json:"other_transaction_fees"`
	Other        float64   `json:"other"`
}

// InventorySnapshotRow is a single SKU line of an inventory snapshot.
type InventorySnapshotRow struct {
	SKU            string      `json:"sku"`
	Tag            string      `json:"tag"`
	ProductLine    ProductLine `json:"product_line"`
	TotalInventory int         `json:"total_inventory"`
	Inbound        int         `json:"inbound"`
	Available      int         `json:"available"`
	Reserved       int         `json:"reserved"`
	CapturedAt     time.Time   `json:"captured_at"`
}

// Snapshot is an immutable point-in-time set of inventory rows.
type Snapshot struct {
	ID         int64                  `json:"id"`
	CapturedAt time.Time              `json:"captured_at"`
	SourceFile string                 `json:"source_file"`
	Rows       []InventorySnapshotRow `json:"-"`
}

// SnapshotSummary is one entry of the snapshot history.
type SnapshotSummary struct {
	ID         int64     `json:"id"`
	CapturedAt time.Time `json:"captured_at"`
	SourceFile string    `json:"source_file"`
	TotalUnits int       `json:"total_units"`
}

// DateBounds describes the date coverage of a channel's data.
type DateBounds struct {
	MinDate  time.Time `json:"min_date"`
	MaxDate  time.Time `json:"max_date"`
	RowCount int       `json:"tx_count"`
}

// IsEmpty reports whether the channel has no dated rows at all.
func (b DateBounds) IsEmpty() bool {
	return b.MaxDate.IsZero()
}
