// Package financial prices sales and stock against the product master.
//
// Inputs are expected to be enriched and filtered to active SKUs already.
package financial

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/invintel/internal/domain"
)

// ComputeSalesFinancials prices each sales row at floor price (revenue) and
// net order price (cost). Rows whose SKU is not in the catalog are skipped.
// Without price columns the result is empty.
func ComputeSalesFinancials(sales []domain.TimeSeriesRow, catalog *domain.ProductCatalog) []domain.FinancialRow {
	if catalog == nil || !catalog.HasPrices {
		log.Warn().Int("rows", len(sales)).Msg("financial: product master has no price columns, skipping sales financials")
		return []domain.FinancialRow{}
	}

	out := make([]domain.FinancialRow, 0, len(sales))
	for _, r := range sales {
		p, ok := catalog.Lookup(r.SKU)
		if !ok {
			continue
		}
		r.Product = p

		revenue := r.Quantity * p.FloorPrice
		cost := r.Quantity * p.NetOrderPrice
		margin := revenue - cost

		out = append(out, domain.FinancialRow{
			TimeSeriesRow:   r,
			Revenue:         revenue,
			Cost:            cost,
			Margin:          margin,
			MarginPct:       pct(margin, revenue),
			AvgSellingPrice: safeDiv(revenue, r.Quantity),
		})
	}
	return out
}

// ComputeInventoryFinancials values each stock row at cost and retail.
func ComputeInventoryFinancials(stock []domain.StockRecord, catalog *domain.ProductCatalog) []domain.InventoryFinancialRow {
	if catalog == nil || !catalog.HasPrices {
		log.Warn().Int("rows", len(stock)).Msg("financial: product master has no price columns, skipping inventory valuation")
		return []domain.InventoryFinancialRow{}
	}

	out := make([]domain.InventoryFinancialRow, 0, len(stock))
	for _, s := range stock {
		p, ok := catalog.Lookup(s.SKU)
		if !ok {
			continue
		}
		s.Product = p

		atCost := s.Quantity * p.NetOrderPrice
		atRetail := s.Quantity * p.FloorPrice
		potential := atRetail - atCost

		out = append(out, domain.InventoryFinancialRow{
			StockRecord:     s,
			ValueAtCost:     atCost,
			ValueAtRetail:   atRetail,
			PotentialMargin: potential,
			MarginPct:       pct(potential, atRetail),
		})
	}
	return out
}

// Summarize totals financial rows and builds the monthly trend. Totals are
// accumulated in decimal so large rupiah sums do not drift.
func Summarize(rows []domain.FinancialRow) domain.FinancialSummary {
	type acc struct {
		revenue, cost, margin, qty decimal.Decimal
	}
	var total acc
	byMonth := make(map[time.Time]*acc)

	for _, r := range rows {
		rev := decimal.NewFromFloat(r.Revenue)
		cost := decimal.NewFromFloat(r.Cost)
		margin := decimal.NewFromFloat(r.Margin)
		qty := decimal.NewFromFloat(r.Quantity)

		total.revenue = total.revenue.Add(rev)
		total.cost = total.cost.Add(cost)
		total.margin = total.margin.Add(margin)
		total.qty = total.qty.Add(qty)

		m, ok := byMonth[r.Month]
		if !ok {
			m = &acc{}
			byMonth[r.Month] = m
		}
		m.revenue = m.revenue.Add(rev)
		m.cost = m.cost.Add(cost)
		m.margin = m.margin.Add(margin)
		m.qty = m.qty.Add(qty)
	}

	summary := domain.FinancialSummary{
		TotalRevenue:  total.revenue.InexactFloat64(),
		TotalCost:     total.cost.InexactFloat64(),
		TotalMargin:   total.margin.InexactFloat64(),
		TotalQuantity: total.qty.InexactFloat64(),
		Trend:         make([]domain.MonthlyFinancial, 0, len(byMonth)),
	}
	summary.MarginPct = pct(summary.TotalMargin, summary.TotalRevenue)
	summary.AvgSellingPrice = safeDiv(summary.TotalRevenue, summary.TotalQuantity)

	for month, m := range byMonth {
		rev := m.revenue.InexactFloat64()
		margin := m.margin.InexactFloat64()
		summary.Trend = append(summary.Trend, domain.MonthlyFinancial{
			Month:     month,
			Revenue:   rev,
			Cost:      m.cost.InexactFloat64(),
			Margin:    margin,
			MarginPct: pct(margin, rev),
			Quantity:  m.qty.InexactFloat64(),
		})
	}
	sort.Slice(summary.Trend, func(i, j int) bool { return summary.Trend[i].Month.Before(summary.Trend[j].Month) })

	return summary
}

// SummarizeInventory totals inventory valuation rows.
func SummarizeInventory(rows []domain.InventoryFinancialRow) domain.InventoryValuation {
	var atCost, atRetail, potential, qty decimal.Decimal
	for _, r := range rows {
		atCost = atCost.Add(decimal.NewFromFloat(r.ValueAtCost))
		atRetail = atRetail.Add(decimal.NewFromFloat(r.ValueAtRetail))
		potential = potential.Add(decimal.NewFromFloat(r.PotentialMargin))
		qty = qty.Add(decimal.NewFromFloat(r.Quantity))
	}

	v := domain.InventoryValuation{
		TotalValueAtCost:     atCost.InexactFloat64(),
		TotalValueAtRetail:   atRetail.InexactFloat64(),
		TotalPotentialMargin: potential.InexactFloat64(),
		TotalQuantity:        qty.InexactFloat64(),
	}
	v.MarginPct = pct(v.TotalPotentialMargin, v.TotalValueAtRetail)
	return v
}

func pct(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
