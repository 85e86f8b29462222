// Package forecast scores Rofo forecasts against purchase orders.
//
// All functions expect series that are already enriched and restricted to
// active SKUs.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/andresuchdata/invintel/internal/domain"
)

type key struct {
	sku   string
	month time.Time
}

type cell struct {
	qty     float64
	product *domain.ProductRecord
}

// sumByKey collapses duplicate (SKU, month) rows by summing quantities.
func sumByKey(rows []domain.TimeSeriesRow) map[key]*cell {
	out := make(map[key]*cell, len(rows))
	for _, r := range rows {
		k := key{sku: r.SKU, month: r.Month}
		c, ok := out[k]
		if !ok {
			c = &cell{}
			out[k] = c
		}
		c.qty += r.Quantity
		if c.product == nil {
			c.product = r.Product
		}
	}
	return out
}

// Join pairs forecast and PO quantities per (SKU, month). Only pairs with a
// positive forecast and a PO row for the same SKU and month take part. The
// result is ordered by month, then SKU.
func Join(forecastRows, poRows []domain.TimeSeriesRow, th domain.Thresholds) []domain.SKUAccuracy {
	fc := sumByKey(forecastRows)
	po := sumByKey(poRows)

	out := make([]domain.SKUAccuracy, 0, len(fc))
	for k, f := range fc {
		if f.qty <= 0 {
			continue
		}
		p, ok := po[k]
		if !ok {
			continue
		}

		product := f.product
		if product == nil {
			product = p.product
		}
		ratio := p.qty / f.qty * 100

		out = append(out, domain.SKUAccuracy{
			SKU:         k.sku,
			Product:     product,
			Month:       k.month,
			ForecastQty: f.qty,
			POQty:       p.qty,
			Ratio:       ratio,
			AbsPctError: math.Abs(ratio - 100),
			Status:      th.ClassifyAccuracy(ratio),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

// MonthlyPerformance rolls joined pairs up per month, oldest first.
// Accuracy is 100 minus MAPE and is not clamped at zero.
func MonthlyPerformance(joined []domain.SKUAccuracy) []domain.MonthlyPerformance {
	byMonth := lo.GroupBy(joined, func(a domain.SKUAccuracy) time.Time { return a.Month })

	months := lo.Keys(byMonth)
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make([]domain.MonthlyPerformance, 0, len(months))
	for _, m := range months {
		out = append(out, summarizeMonth(m, byMonth[m]))
	}
	return out
}

func summarizeMonth(month time.Time, rows []domain.SKUAccuracy) domain.MonthlyPerformance {
	perf := domain.MonthlyPerformance{
		Month:     month,
		TotalSKUs: len(rows),
		Under:     []domain.SKUAccuracy{},
		Accurate:  []domain.SKUAccuracy{},
		Over:      []domain.SKUAccuracy{},
	}

	var apeSum float64
	for _, r := range rows {
		apeSum += r.AbsPctError
		perf.Counts.Add(r.Status)
		switch r.Status {
		case domain.AccuracyUnder:
			perf.Under = append(perf.Under, r)
		case domain.AccuracyAccurate:
			perf.Accurate = append(perf.Accurate, r)
		case domain.AccuracyOver:
			perf.Over = append(perf.Over, r)
		}
	}

	if len(rows) > 0 {
		perf.MAPE = apeSum / float64(len(rows))
		perf.AccuracyPct = 100 - perf.MAPE
	}
	perf.Percentages = perf.Counts.Percentages()
	return perf
}

// CalculateMonthlyPerformance is Join followed by MonthlyPerformance.
func CalculateMonthlyPerformance(forecastRows, poRows []domain.TimeSeriesRow, th domain.Thresholds) []domain.MonthlyPerformance {
	return MonthlyPerformance(Join(forecastRows, poRows, th))
}
