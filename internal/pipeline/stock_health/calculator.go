package stock_health

import (
	"math"

	"github.com/andresuchdata/invintel/internal/domain"
)

// InventoryCalculator holds the per-SKU cover and order quantity math.
type InventoryCalculator struct {
	th domain.Thresholds
}

// NewInventoryCalculator creates a new inventory calculator
func NewInventoryCalculator(th domain.Thresholds) *InventoryCalculator {
	return &InventoryCalculator{th: th}
}

// Calculate computes cover months and status for one SKU-aggregated stock row.
func (ic *InventoryCalculator) Calculate(stock domain.StockRecord, avgMonthlySales float64) domain.InventoryMetricRow {
	cover := ic.Cover(stock.Quantity, avgMonthlySales)
	return domain.InventoryMetricRow{
		SKU:             stock.SKU,
		Product:         stock.Product,
		StockQty:        stock.Quantity,
		AvgMonthlySales: avgMonthlySales,
		CoverMonths:     cover,
		Status:          ic.th.ClassifyCover(cover),
	}
}

// Cover is stock expressed in months of average sales. Without a consumption
// signal it returns the configured sentinel.
func (ic *InventoryCalculator) Cover(stockQty, avgMonthlySales float64) float64 {
	if avgMonthlySales <= 0 {
		return ic.th.CoverSentinel
	}
	return stockQty / avgMonthlySales
}

// PlanOrder sizes the economic order for one metric row. Annual demand is the
// trailing monthly average times 12; holding cost per unit is the net order
// price times the configured holding rate.
func (ic *InventoryCalculator) PlanOrder(row domain.InventoryMetricRow) domain.EOQRow {
	annual := row.AvgMonthlySales * 12

	var holding float64
	if row.Product != nil {
		holding = row.Product.NetOrderPrice * ic.th.EOQHoldingRate
	}

	return domain.EOQRow{
		SKU:             row.SKU,
		Product:         row.Product,
		AvgMonthlySales: row.AvgMonthlySales,
		AnnualDemand:    annual,
		OrderCost:       ic.th.EOQOrderCost,
		HoldingCost:     holding,
		EOQ:             EOQ(annual, ic.th.EOQOrderCost, holding),
		StockQty:        row.StockQty,
		Status:          row.Status,
	}
}

// EOQ is round(sqrt(2 * demand * orderCost / holdingCost)), or 0 when any
// input is not positive.
func EOQ(annualDemand, orderCost, holdingCost float64) float64 {
	if annualDemand <= 0 || orderCost <= 0 || holdingCost <= 0 {
		return 0
	}
	return math.Round(math.Sqrt(2 * annualDemand * orderCost / holdingCost))
}
