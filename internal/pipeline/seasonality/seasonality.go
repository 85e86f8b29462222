// Package seasonality finds calendar-month patterns in sales financials and
// segments SKUs by profitability.
package seasonality

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/andresuchdata/invintel/internal/domain"
)

type monthTotals struct {
	revenue, margin, quantity float64
}

// Seasonality totals revenue, margin and quantity per year-month, then
// averages those totals per calendar month. Each index is the calendar-month
// average over the average of all year-month totals, and the season label
// follows the revenue index.
func Seasonality(rows []domain.FinancialRow, th domain.Thresholds) []domain.SeasonalityBucket {
	if len(rows) == 0 {
		return []domain.SeasonalityBucket{}
	}

	byMonth := make(map[time.Time]*monthTotals)
	for _, r := range rows {
		t, ok := byMonth[r.Month]
		if !ok {
			t = &monthTotals{}
			byMonth[r.Month] = t
		}
		t.revenue += r.Revenue
		t.margin += r.Margin
		t.quantity += r.Quantity
	}

	var overall monthTotals
	for _, t := range byMonth {
		overall.revenue += t.revenue
		overall.margin += t.margin
		overall.quantity += t.quantity
	}
	n := float64(len(byMonth))
	overall = monthTotals{overall.revenue / n, overall.margin / n, overall.quantity / n}

	buckets := lo.GroupBy(lo.Keys(byMonth), func(m time.Time) time.Month { return m.Month() })

	out := make([]domain.SeasonalityBucket, 0, len(buckets))
	for moy, months := range buckets {
		var sum monthTotals
		for _, m := range months {
			sum.revenue += byMonth[m].revenue
			sum.margin += byMonth[m].margin
			sum.quantity += byMonth[m].quantity
		}
		k := float64(len(months))
		b := domain.SeasonalityBucket{
			MonthOfYear:  moy,
			MonthName:    moy.String()[:3],
			AvgRevenue:   sum.revenue / k,
			AvgMargin:    sum.margin / k,
			AvgQuantity:  sum.quantity / k,
			Observations: len(months),
		}
		b.RevenueIndex = index(b.AvgRevenue, overall.revenue)
		b.MarginIndex = index(b.AvgMargin, overall.margin)
		b.QuantityIndex = index(b.AvgQuantity, overall.quantity)
		b.Season = th.ClassifySeason(b.RevenueIndex)
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MonthOfYear < out[j].MonthOfYear })
	return out
}

func index(avg, overall float64) float64 {
	if overall == 0 {
		return 1
	}
	return avg / overall
}
