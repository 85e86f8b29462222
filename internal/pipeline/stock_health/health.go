// Package stock_health derives months of cover, replenishment status and
// order quantities from stock on hand and sales history.
package stock_health

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/andresuchdata/invintel/internal/domain"
)

// AggregateStock sums batch-level rows into one row per SKU, in order of first
// appearance. Batch and expiry are dropped since they no longer apply.
func AggregateStock(stock []domain.StockRecord) []domain.StockRecord {
	index := make(map[string]int, len(stock))
	out := make([]domain.StockRecord, 0, len(stock))
	for _, s := range stock {
		i, ok := index[s.SKU]
		if !ok {
			index[s.SKU] = len(out)
			out = append(out, domain.StockRecord{
				SKU:      s.SKU,
				Quantity: s.Quantity,
				Category: s.Category,
				Product:  s.Product,
			})
			continue
		}
		out[i].Quantity += s.Quantity
		if out[i].Product == nil {
			out[i].Product = s.Product
		}
	}
	return out
}

// TrailingWindow returns the last n distinct months present in sales, oldest first.
func TrailingWindow(sales []domain.TimeSeriesRow, n int) []time.Time {
	months := lo.Uniq(lo.Map(sales, func(r domain.TimeSeriesRow, _ int) time.Time { return r.Month }))
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	if n > 0 && len(months) > n {
		months = months[len(months)-n:]
	}
	return months
}

// TrailingAverage is each SKU's sales over window divided by the window length,
// so months without a sales row count as zero.
func TrailingAverage(sales []domain.TimeSeriesRow, window []time.Time) map[string]float64 {
	out := make(map[string]float64)
	if len(window) == 0 {
		return out
	}
	inWindow := make(map[time.Time]struct{}, len(window))
	for _, m := range window {
		inWindow[m] = struct{}{}
	}
	for _, r := range sales {
		if _, ok := inWindow[r.Month]; ok {
			out[r.SKU] += r.Quantity
		}
	}
	for sku, total := range out {
		out[sku] = total / float64(len(window))
	}
	return out
}

// Metrics aggregates stock by SKU, then classifies cover against the trailing
// average of sales. It returns the rows and the sales window used.
func Metrics(stock []domain.StockRecord, sales []domain.TimeSeriesRow, th domain.Thresholds) ([]domain.InventoryMetricRow, []time.Time) {
	window := TrailingWindow(sales, th.TrailingMonths)
	avg := TrailingAverage(sales, window)
	calc := NewInventoryCalculator(th)

	aggregated := AggregateStock(stock)
	rows := make([]domain.InventoryMetricRow, 0, len(aggregated))
	for _, s := range aggregated {
		rows = append(rows, calc.Calculate(s, avg[s.SKU]))
	}
	return rows, window
}

// Health summarizes metric rows. The health score is the share of SKUs in the
// ideal band. Sentinel covers are left out of the average cover.
func Health(rows []domain.InventoryMetricRow, window []time.Time, th domain.Thresholds) domain.InventoryHealth {
	h := domain.InventoryHealth{
		TotalSKUs: len(rows),
		Counts: map[domain.StockStatus]int{
			domain.StockNeedReplenishment: 0,
			domain.StockIdeal:             0,
			domain.StockHigh:              0,
		},
		WindowMonths: window,
	}
	if h.WindowMonths == nil {
		h.WindowMonths = []time.Time{}
	}

	var coverSum float64
	var covered int
	for _, r := range rows {
		h.Counts[r.Status]++
		h.TotalStock += r.StockQty
		if r.CoverMonths != th.CoverSentinel {
			coverSum += r.CoverMonths
			covered++
		}
	}
	if len(rows) > 0 {
		h.HealthScore = float64(h.Counts[domain.StockIdeal]) / float64(len(rows)) * 100
	}
	if covered > 0 {
		h.AvgCoverMonths = coverSum / float64(covered)
	}
	return h
}

// EOQPlan sizes orders for every metric row.
func EOQPlan(rows []domain.InventoryMetricRow, th domain.Thresholds) []domain.EOQRow {
	calc := NewInventoryCalculator(th)
	out := make([]domain.EOQRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, calc.PlanOrder(r))
	}
	return out
}

// FilterByStatus keeps rows with the given status.
func FilterByStatus(rows []domain.InventoryMetricRow, status domain.StockStatus) []domain.InventoryMetricRow {
	return lo.Filter(rows, func(r domain.InventoryMetricRow, _ int) bool { return r.Status == status })
}
