package financial

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/andresuchdata/invintel/internal/domain"
)

// FulfillmentCosts sets monthly fulfillment cost against the units sold that
// month. Months without sales report a cost per unit of 0.
func FulfillmentCosts(costs []domain.FulfillmentCostRow, sales []domain.TimeSeriesRow) domain.FulfillmentSummary {
	salesByMonth := lo.Reduce(sales, func(agg map[time.Time]float64, r domain.TimeSeriesRow, _ int) map[time.Time]float64 {
		agg[r.Month] += r.Quantity
		return agg
	}, make(map[time.Time]float64))

	summary := domain.FulfillmentSummary{
		ComponentTotals: make(map[string]float64),
		Months:          make([]domain.FulfillmentMonth, 0, len(costs)),
	}

	for _, c := range costs {
		total := c.Total()
		qty := salesByMonth[c.Month]

		comps := make(map[string]float64, len(c.Components))
		for name, v := range c.Components {
			comps[name] = v
			summary.ComponentTotals[name] += v
		}

		summary.Months = append(summary.Months, domain.FulfillmentMonth{
			Month:       c.Month,
			TotalCost:   total,
			SalesQty:    qty,
			CostPerUnit: safeDiv(total, qty),
			Components:  comps,
		})
		summary.TotalCost += total
		summary.TotalSalesQty += qty
	}

	sort.Slice(summary.Months, func(i, j int) bool { return summary.Months[i].Month.Before(summary.Months[j].Month) })
	summary.CostPerUnit = safeDiv(summary.TotalCost, summary.TotalSalesQty)
	return summary
}
