package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/invintel/internal/domain"
)

// BiasTolerancePct is the average bias band reported as balanced.
const BiasTolerancePct = 5.0

func monthlyTotals(rows []domain.TimeSeriesRow) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	for _, r := range rows {
		out[r.Month] += r.Quantity
	}
	return out
}

// ForecastBias compares PO and forecast totals for every month present in
// both series. A positive bias means purchase orders ran above forecast, i.e.
// the forecast was too low. The averages weight every month equally.
func ForecastBias(forecastRows, poRows []domain.TimeSeriesRow) domain.ForecastBias {
	fc := monthlyTotals(forecastRows)
	po := monthlyTotals(poRows)

	result := domain.ForecastBias{Months: []domain.MonthlyBias{}, Direction: domain.BiasBalanced}
	for m, f := range fc {
		p, ok := po[m]
		if !ok {
			continue
		}
		bias := p - f
		mb := domain.MonthlyBias{
			Month:         m,
			ForecastTotal: f,
			POTotal:       p,
			Bias:          bias,
		}
		if f != 0 {
			mb.BiasPct = bias / f * 100
		}
		result.Months = append(result.Months, mb)
	}
	if len(result.Months) == 0 {
		return result
	}

	sort.Slice(result.Months, func(i, j int) bool { return result.Months[i].Month.Before(result.Months[j].Month) })

	var biasSum, pctSum float64
	for _, m := range result.Months {
		biasSum += m.Bias
		pctSum += m.BiasPct
	}
	n := float64(len(result.Months))
	result.AverageBias = biasSum / n
	result.AverageBiasPct = pctSum / n

	switch {
	case math.Abs(result.AverageBiasPct) <= BiasTolerancePct:
		result.Direction = domain.BiasBalanced
	case result.AverageBiasPct > 0:
		result.Direction = domain.BiasUnderForecast
	default:
		result.Direction = domain.BiasOverForecast
	}
	return result
}
