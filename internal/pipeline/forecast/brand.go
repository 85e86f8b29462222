package forecast

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/andresuchdata/invintel/internal/domain"
)

// LatestCommonMonth is the most recent month in which forecast (qty > 0) and
// PO rows were joined.
func LatestCommonMonth(joined []domain.SKUAccuracy) (time.Time, bool) {
	if len(joined) == 0 {
		return time.Time{}, false
	}
	latest := joined[0].Month
	for _, j := range joined[1:] {
		if j.Month.After(latest) {
			latest = j.Month
		}
	}
	return latest, true
}

// BrandPerformance rolls the latest common month up by brand, most accurate first.
func BrandPerformance(joined []domain.SKUAccuracy) domain.GroupPerformanceReport {
	return groupPerformance(joined, func(a domain.SKUAccuracy) string { return a.Product.BrandOrUnknown() })
}

// TierPerformance is BrandPerformance grouped by SKU tier.
func TierPerformance(joined []domain.SKUAccuracy) domain.GroupPerformanceReport {
	return groupPerformance(joined, func(a domain.SKUAccuracy) string { return a.Product.TierOrUnknown() })
}

func groupPerformance(joined []domain.SKUAccuracy, groupOf func(domain.SKUAccuracy) string) domain.GroupPerformanceReport {
	latest, ok := LatestCommonMonth(joined)
	if !ok {
		return domain.GroupPerformanceReport{Groups: []domain.GroupPerformance{}}
	}

	inMonth := lo.Filter(joined, func(a domain.SKUAccuracy, _ int) bool { return a.Month.Equal(latest) })
	groups := lo.GroupBy(inMonth, groupOf)

	report := domain.GroupPerformanceReport{
		Month:  latest,
		Groups: make([]domain.GroupPerformance, 0, len(groups)),
	}
	for name, rows := range groups {
		g := domain.GroupPerformance{
			Group:    name,
			SKUCount: len(lo.Uniq(lo.Map(rows, func(a domain.SKUAccuracy, _ int) string { return a.SKU }))),
		}
		var apeSum float64
		for _, r := range rows {
			apeSum += r.AbsPctError
			g.ForecastTotal += r.ForecastQty
			g.POTotal += r.POQty
			g.Counts.Add(r.Status)
		}
		g.MAPE = apeSum / float64(len(rows))
		g.AccuracyPct = 100 - g.MAPE
		report.Groups = append(report.Groups, g)
	}

	sort.Slice(report.Groups, func(i, j int) bool {
		if report.Groups[i].AccuracyPct != report.Groups[j].AccuracyPct {
			return report.Groups[i].AccuracyPct > report.Groups[j].AccuracyPct
		}
		return report.Groups[i].Group < report.Groups[j].Group
	})
	return report
}
