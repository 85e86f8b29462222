package forecast

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/andresuchdata/invintel/internal/domain"
)

// SalesVsPlan compares monthly sales with forecast and PO totals for every
// month that has a forecast. Ratios are 0 when the forecast total is 0.
func SalesVsPlan(sales, forecastRows, poRows []domain.TimeSeriesRow) []domain.PlanComparison {
	s := monthlyTotals(sales)
	f := monthlyTotals(forecastRows)
	p := monthlyTotals(poRows)

	months := lo.Keys(f)
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make([]domain.PlanComparison, 0, len(months))
	for _, m := range months {
		pc := domain.PlanComparison{
			Month:       m,
			SalesQty:    s[m],
			ForecastQty: f[m],
			POQty:       p[m],
		}
		if pc.ForecastQty != 0 {
			pc.SalesVsForecastPct = pc.SalesQty / pc.ForecastQty * 100
			pc.POVsForecastPct = pc.POQty / pc.ForecastQty * 100
		}
		out = append(out, pc)
	}
	return out
}

// ChannelSummary totals an auxiliary channel forecast (ecommerce, reseller)
// per month and ranks its largest SKUs.
func ChannelSummary(channel string, rows []domain.TimeSeriesRow, topN int) domain.ChannelForecast {
	cf := domain.ChannelForecast{
		Channel: channel,
		Months:  []domain.ChannelMonth{},
		TopSKUs: []domain.SKUQuantity{},
	}

	byMonth := lo.GroupBy(rows, func(r domain.TimeSeriesRow) time.Time { return r.Month })
	months := lo.Keys(byMonth)
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	for _, m := range months {
		monthRows := byMonth[m]
		cf.Months = append(cf.Months, domain.ChannelMonth{
			Month:    m,
			Quantity: lo.SumBy(monthRows, func(r domain.TimeSeriesRow) float64 { return r.Quantity }),
			SKUCount: len(lo.Uniq(lo.Map(monthRows, func(r domain.TimeSeriesRow, _ int) string { return r.SKU }))),
		})
	}

	totals := make(map[string]*domain.SKUQuantity)
	for _, r := range rows {
		cf.Total += r.Quantity
		t, ok := totals[r.SKU]
		if !ok {
			t = &domain.SKUQuantity{SKU: r.SKU, Product: r.Product}
			totals[r.SKU] = t
		}
		t.Quantity += r.Quantity
	}
	cf.SKUCount = len(totals)

	for _, t := range totals {
		cf.TopSKUs = append(cf.TopSKUs, *t)
	}
	sort.Slice(cf.TopSKUs, func(i, j int) bool {
		if cf.TopSKUs[i].Quantity != cf.TopSKUs[j].Quantity {
			return cf.TopSKUs[i].Quantity > cf.TopSKUs[j].Quantity
		}
		return cf.TopSKUs[i].SKU < cf.TopSKUs[j].SKU
	})
	if topN > 0 && len(cf.TopSKUs) > topN {
		cf.TopSKUs = cf.TopSKUs[:topN]
	}
	return cf
}
