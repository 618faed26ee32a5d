package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"salesdash/analytics"
	"salesdash/models"
	"salesdash/utils"
)

type FeeLine struct {
	Label    string   `json:"label"`
	Amount   float64  `json:"amount"`
	Compare  float64  `json:"compare"`
	DeltaPct *float64 `json:"delta_pct"`
}

type ReasonLine struct {
	Reason string  `json:"reason"`
	Amount float64 `json:"amount"`
}

type PnLKPIs struct {
	GrossSales      float64  `json:"gross_sales"`
	NetPayout       float64  `json:"net_payout"`
	Margin          *float64 `json:"margin"`
	GrossSalesDelta *float64 `json:"gross_sales_delta"`
	NetPayoutDelta  *float64 `json:"net_payout_delta"`
	MarginPPDelta   *float64 `json:"margin_pp_delta"`
}

// PnLSummary is the payout view of the selected range: what was sold, what
// was paid out, and where the difference went.
type PnLSummary struct {
	Period         analytics.DateRange `json:"period"`
	ComparePeriod  analytics.DateRange `json:"compare_period"`
	KPIs           PnLKPIs             `json:"kpis"`
	Fees           []FeeLine           `json:"fees"`
	FeeReasons     []ReasonLine        `json:"fee_reasons"`
	Reimbursements []ReasonLine        `json:"reimbursements"`
	OtherReasons   []ReasonLine        `json:"other_reasons"`
}

type settlementTotals struct {
	gross, net, selling, fba, otherTxn, other utils.Money
}

func (t *settlementTotals) add(row models.SettlementRow) {
	t.gross.Add(row.GrossSales)
	t.net.Add(row.NetPayout)
	t.selling.Add(row.SellingFees)
	t.fba.Add(row.FBAFees)
	t.otherTxn.Add(row.OtherTxnFees)
	t.other.Add(row.Other)
}

func (t settlementTotals) margin() *float64 {
	gross := t.gross.Float64()
	if math.Abs(gross) <= 1e-9 {
		return nil
	}
	v := t.net.Float64() / gross
	return &v
}

// pnl summarizes settlements over the primary range against the comparison
// range. It returns nil when there is no primary range.
func (r *request) pnl() (*PnLSummary, error) {
	if r.primary.IsEmpty() {
		return nil, nil
	}

	// One read covers both windows; rows are split by date below.
	span := r.primary
	if !r.compare.IsEmpty() {
		start, end := span.Start, span.End
		if r.compare.Start.Before(start) {
			start = r.compare.Start
		}
		if r.compare.End.After(end) {
			end = r.compare.End
		}
		span = analytics.NewDateRange(start, end)
	}
	rows, err := r.loader.repo.SettlementRows(r.ctx, r.loader.channel, span.Start, span.End)
	if err != nil {
		return nil, fmt.Errorf("load settlements: %w", err)
	}

	var cur, cmp settlementTotals
	reasons := make(map[string]*utils.Money)
	var order []string
	for _, row := range rows {
		if r.compare.Contains(row.Date) {
			cmp.add(row)
		}
		if !r.primary.Contains(row.Date) {
			continue
		}
		cur.add(row)
		if row.Other == 0 {
			continue
		}
		reason := strings.TrimSpace(row.Description)
		if reason == "" {
			reason = "Other"
		}
		m, ok := reasons[reason]
		if !ok {
			m = &utils.Money{}
			reasons[reason] = m
			order = append(order, reason)
		}
		m.Add(row.Other)
	}

	out := &PnLSummary{
		Period:        r.primary,
		ComparePeriod: r.compare,
		KPIs: PnLKPIs{
			GrossSales:      utils.RoundMoney(cur.gross.Float64()),
			NetPayout:       utils.RoundMoney(cur.net.Float64()),
			Margin:          cur.margin(),
			GrossSalesDelta: analytics.PctDelta(cur.gross.Float64(), cmp.gross.Float64()),
			NetPayoutDelta:  analytics.PctDelta(cur.net.Float64(), cmp.net.Float64()),
		},
		Fees: []FeeLine{
			feeLine("Selling Fees", cur.selling, cmp.selling),
			feeLine("FBA Fees", cur.fba, cmp.fba),
			feeLine("Other Txn Fees", cur.otherTxn, cmp.otherTxn),
			feeLine("Other", cur.other, cmp.other),
		},
		FeeReasons:     []ReasonLine{},
		Reimbursements: []ReasonLine{},
		OtherReasons:   make([]ReasonLine, 0, len(order)),
	}
	if m, c := cur.margin(), cmp.margin(); m != nil && c != nil {
		pp := *m - *c
		out.KPIs.MarginPPDelta = &pp
	}
	sort.SliceStable(out.Fees, func(i, j int) bool { return out.Fees[i].Amount < out.Fees[j].Amount })

	for _, reason := range order {
		line := ReasonLine{Reason: reason, Amount: utils.RoundMoney(reasons[reason].Float64())}
		out.OtherReasons = append(out.OtherReasons, line)
		switch {
		case line.Amount > 0:
			out.Reimbursements = append(out.Reimbursements, line)
		case line.Amount < 0:
			out.FeeReasons = append(out.FeeReasons, line)
		}
	}
	sort.SliceStable(out.OtherReasons, func(i, j int) bool {
		return math.Abs(out.OtherReasons[i].Amount) > math.Abs(out.OtherReasons[j].Amount)
	})
	sort.SliceStable(out.Reimbursements, func(i, j int) bool { return out.Reimbursements[i].Amount > out.Reimbursements[j].Amount })
	sort.SliceStable(out.FeeReasons, func(i, j int) bool { return out.FeeReasons[i].Amount < out.FeeReasons[j].Amount })
	return out, nil
}

func feeLine(label string, cur, cmp utils.Money) FeeLine {
	return FeeLine{
		Label:    label,
		Amount:   utils.RoundMoney(cur.Float64()),
		Compare:  utils.RoundMoney(cmp.Float64()),
		DeltaPct: analytics.PctDelta(cur.Float64(), cmp.Float64()),
	}
}
