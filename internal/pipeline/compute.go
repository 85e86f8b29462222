package pipeline

import (
	"time"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/pipeline/financial"
	"github.com/andresuchdata/invintel/internal/pipeline/forecast"
	"github.com/andresuchdata/invintel/internal/pipeline/seasonality"
	"github.com/andresuchdata/invintel/internal/pipeline/stock_health"
)

// Compute derives every metric table from ds. Each fact table is enriched and
// restricted to active SKUs here, before any engine sees it. Compute does not
// modify ds, so one dataset can be computed for several threshold sets.
func Compute(ds *Dataset, th domain.Thresholds, cfg PipelineConfig) *domain.Snapshot {
	catalog := ds.Catalog
	active := func(rows []domain.TimeSeriesRow) []domain.TimeSeriesRow {
		return FilterActive(Enrich(rows, catalog), catalog)
	}

	sales := active(ds.Sales)
	rofo := active(ds.Rofo)
	po := active(ds.PO)
	stock := FilterActiveStock(EnrichStock(ds.Stock, catalog), catalog)

	snap := &domain.Snapshot{
		Source:      ds.Source,
		GeneratedAt: cfg.now(),
		Thresholds:  th,
	}

	// forecast accuracy
	joined := forecast.Join(rofo, po, th)
	snap.MonthlyPerformance = forecast.MonthlyPerformance(joined)
	snap.RecentPerformance = forecast.RecentMonths(snap.MonthlyPerformance, cfg.RecentMonths, th)
	snap.ForecastBias = forecast.ForecastBias(rofo, po)
	snap.Brands = forecast.BrandPerformance(joined)
	snap.Tiers = forecast.TierPerformance(joined)
	snap.SalesVsPlan = forecast.SalesVsPlan(sales, rofo, po)
	snap.Channels = []domain.ChannelForecast{
		forecast.ChannelSummary(ChannelEcommerce, active(ds.Channels[ChannelEcommerce]), cfg.ChannelTopN),
		forecast.ChannelSummary(ChannelReseller, active(ds.Channels[ChannelReseller]), cfg.ChannelTopN),
	}

	// inventory
	var window []time.Time
	snap.Inventory, window = stock_health.Metrics(stock, sales, th)
	snap.InventoryHealth = stock_health.Health(snap.Inventory, window, th)
	snap.EOQ = stock_health.EOQPlan(snap.Inventory, th)

	// financials
	snap.Financials = financial.ComputeSalesFinancials(sales, catalog)
	snap.FinancialSummary = financial.Summarize(snap.Financials)
	snap.InventoryFinancial = financial.ComputeInventoryFinancials(stock, catalog)
	snap.InventoryValuation = financial.SummarizeInventory(snap.InventoryFinancial)
	snap.Fulfillment = financial.FulfillmentCosts(ds.Fulfillment, sales)

	// seasonality and profitability
	snap.Seasonality = seasonality.Seasonality(snap.Financials, th)
	snap.Profitability = seasonality.Segment(snap.Financials, th)
	snap.Segments = seasonality.SummarizeSegments(snap.Profitability)

	snap.DataQuality = BuildQuality(ds)
	snap.Summary = summarize(snap, catalog)
	return snap
}

func summarize(snap *domain.Snapshot, catalog *domain.ProductCatalog) domain.DashboardSummary {
	s := domain.DashboardSummary{
		RecentAccuracy:    snap.RecentPerformance.AvgAccuracy,
		AverageBiasPct:    snap.ForecastBias.AverageBiasPct,
		HealthScore:       snap.InventoryHealth.HealthScore,
		TotalRevenue:      snap.FinancialSummary.TotalRevenue,
		TotalMargin:       snap.FinancialSummary.TotalMargin,
		MarginPct:         snap.FinancialSummary.MarginPct,
		InventoryAtCost:   snap.InventoryValuation.TotalValueAtCost,
		ActiveSKUs:        len(catalog.ActiveSKUs()),
		NeedReplenishment: snap.InventoryHealth.Counts[domain.StockNeedReplenishment],
		HighStock:         snap.InventoryHealth.Counts[domain.StockHigh],
	}
	if n := len(snap.MonthlyPerformance); n > 0 {
		latest := snap.MonthlyPerformance[n-1]
		s.LatestMonth = latest.Month
		s.LatestAccuracy = latest.AccuracyPct
	}
	return s
}
