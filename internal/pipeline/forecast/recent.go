package forecast

import (
	"sort"
	"time"

	"github.com/andresuchdata/invintel/internal/domain"
)

// RecentMonths summarizes the last n months of perf (which must be sorted
// oldest first) and rolls each SKU up across that window.
func RecentMonths(perf []domain.MonthlyPerformance, n int, th domain.Thresholds) domain.RecentPerformance {
	result := domain.RecentPerformance{Months: []time.Time{}, SKUs: []domain.SKURecentPerformance{}}
	if n <= 0 || len(perf) == 0 {
		return result
	}
	if n > len(perf) {
		n = len(perf)
	}
	window := perf[len(perf)-n:]

	type rollup struct {
		product            *domain.ProductRecord
		months             int
		ratioSum, apeSum   float64
		forecastSum, poSum float64
	}
	bySKU := make(map[string]*rollup)

	var accSum float64
	for _, m := range window {
		result.Months = append(result.Months, m.Month)
		accSum += m.AccuracyPct
		result.Counts.Under += m.Counts.Under
		result.Counts.Accurate += m.Counts.Accurate
		result.Counts.Over += m.Counts.Over

		for _, group := range [][]domain.SKUAccuracy{m.Under, m.Accurate, m.Over} {
			for _, a := range group {
				r, ok := bySKU[a.SKU]
				if !ok {
					r = &rollup{product: a.Product}
					bySKU[a.SKU] = r
				}
				r.months++
				r.ratioSum += a.Ratio
				r.apeSum += a.AbsPctError
				r.forecastSum += a.ForecastQty
				r.poSum += a.POQty
			}
		}
	}
	result.AvgAccuracy = accSum / float64(len(window))

	for sku, r := range bySKU {
		seen := float64(r.months)
		avgRatio := r.ratioSum / seen
		result.SKUs = append(result.SKUs, domain.SKURecentPerformance{
			SKU:            sku,
			Product:        r.product,
			MonthsSeen:     r.months,
			AvgRatio:       avgRatio,
			AvgAbsPctError: r.apeSum / seen,
			ForecastTotal:  r.forecastSum,
			POTotal:        r.poSum,
			Status:         th.ClassifyAccuracy(avgRatio),
		})
	}
	sort.Slice(result.SKUs, func(i, j int) bool {
		if result.SKUs[i].AvgAbsPctError != result.SKUs[j].AvgAbsPctError {
			return result.SKUs[i].AvgAbsPctError > result.SKUs[j].AvgAbsPctError
		}
		return result.SKUs[i].SKU < result.SKUs[j].SKU
	})
	return result
}
