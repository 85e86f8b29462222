package domain

import "time"

// FinancialRow is a sales row priced against the product master.
type FinancialRow struct {
	TimeSeriesRow
	Revenue         float64 `json:"revenue"`
	Cost            float64 `json:"cost"`
	Margin          float64 `json:"margin"`
	MarginPct       float64 `json:"margin_pct"`
	AvgSellingPrice float64 `json:"avg_selling_price"`
}

// InventoryFinancialRow is a stock row valued at cost and retail.
type InventoryFinancialRow struct {
	StockRecord
	ValueAtCost     float64 `json:"value_at_cost"`
	ValueAtRetail   float64 `json:"value_at_retail"`
	PotentialMargin float64 `json:"potential_margin"`
	MarginPct       float64 `json:"margin_pct"`
}

// InventoryMetricRow is the SKU-level cover classification.
type InventoryMetricRow struct {
	SKU             string         `json:"sku"`
	Product         *ProductRecord `json:"product,omitempty"`
	StockQty        float64        `json:"stock_qty"`
	AvgMonthlySales float64        `json:"avg_monthly_sales"`
	CoverMonths     float64        `json:"cover_months"`
	Status          StockStatus    `json:"status"`
}

// InventoryHealth summarizes the inventory metric table.
type InventoryHealth struct {
	TotalSKUs      int                 `json:"total_skus"`
	Counts         map[StockStatus]int `json:"counts"`
	HealthScore    float64             `json:"health_score"`
	TotalStock     float64             `json:"total_stock"`
	WindowMonths   []time.Time         `json:"window_months"`
	AvgCoverMonths float64             `json:"avg_cover_months"`
}

// EOQRow is the economic order quantity recommendation for one SKU.
type EOQRow struct {
	SKU             string         `json:"sku"`
	Product         *ProductRecord `json:"product,omitempty"`
	AvgMonthlySales float64        `json:"avg_monthly_sales"`
	AnnualDemand    float64        `json:"annual_demand"`
	OrderCost       float64        `json:"order_cost"`
	HoldingCost     float64        `json:"holding_cost"`
	EOQ             float64        `json:"eoq"`
	StockQty        float64        `json:"stock_qty"`
	Status          StockStatus    `json:"status"`
}

// SKUAccuracy is one joined forecast/PO pair.
type SKUAccuracy struct {
	SKU         string         `json:"sku"`
	Product     *ProductRecord `json:"product,omitempty"`
	Month       time.Time      `json:"month"`
	ForecastQty float64        `json:"forecast_qty"`
	POQty       float64        `json:"po_qty"`
	Ratio       float64        `json:"ratio"`
	AbsPctError float64        `json:"abs_pct_error"`
	Status      AccuracyStatus `json:"status"`
}

// StatusCounts counts SKUs per accuracy status.
type StatusCounts struct {
	Under    int `json:"under"`
	Accurate int `json:"accurate"`
	Over     int `json:"over"`
}

// Add increments the counter for s.
func (c *StatusCounts) Add(s AccuracyStatus) {
	switch s {
	case AccuracyUnder:
		c.Under++
	case AccuracyAccurate:
		c.Accurate++
	case AccuracyOver:
		c.Over++
	}
}

// Total returns the number of counted SKUs.
func (c StatusCounts) Total() int {
	return c.Under + c.Accurate + c.Over
}

// Percentages converts counts into shares of the total.
func (c StatusCounts) Percentages() StatusPercentages {
	total := c.Total()
	if total == 0 {
		return StatusPercentages{}
	}
	n := float64(total)
	return StatusPercentages{
		Under:    float64(c.Under) / n * 100,
		Accurate: float64(c.Accurate) / n * 100,
		Over:     float64(c.Over) / n * 100,
	}
}

type StatusPercentages struct {
	Under    float64 `json:"under"`
	Accurate float64 `json:"accurate"`
	Over     float64 `json:"over"`
}

// MonthlyPerformance is the forecast accuracy rollup for one month.
type MonthlyPerformance struct {
	Month       time.Time         `json:"month"`
	AccuracyPct float64           `json:"accuracy_pct"`
	MAPE        float64           `json:"mape"`
	TotalSKUs   int               `json:"total_skus"`
	Counts      StatusCounts      `json:"counts"`
	Percentages StatusPercentages `json:"percentages"`
	Under       []SKUAccuracy     `json:"under"`
	Accurate    []SKUAccuracy     `json:"accurate"`
	Over        []SKUAccuracy     `json:"over"`
}

// MonthlyBias is the signed PO minus forecast gap for one month.
type MonthlyBias struct {
	Month         time.Time `json:"month"`
	ForecastTotal float64   `json:"forecast_total"`
	POTotal       float64   `json:"po_total"`
	Bias          float64   `json:"bias"`
	BiasPct       float64   `json:"bias_pct"`
}

// ForecastBias tracks systematic over or under forecasting.
type ForecastBias struct {
	Months         []MonthlyBias `json:"months"`
	AverageBias    float64       `json:"average_bias"`
	AverageBiasPct float64       `json:"average_bias_pct"`
	Direction      BiasDirection `json:"direction"`
}

// SKURecentPerformance rolls one SKU up across the recent window.
type SKURecentPerformance struct {
	SKU            string         `json:"sku"`
	Product        *ProductRecord `json:"product,omitempty"`
	MonthsSeen     int            `json:"months_seen"`
	AvgRatio       float64        `json:"avg_ratio"`
	AvgAbsPctError float64        `json:"avg_abs_pct_error"`
	ForecastTotal  float64        `json:"forecast_total"`
	POTotal        float64        `json:"po_total"`
	Status         AccuracyStatus `json:"status"`
}

// RecentPerformance covers the last N months of forecast accuracy.
type RecentPerformance struct {
	Months      []time.Time            `json:"months"`
	AvgAccuracy float64                `json:"avg_accuracy"`
	Counts      StatusCounts           `json:"counts"`
	SKUs        []SKURecentPerformance `json:"skus"`
}

// GroupPerformance is the accuracy rollup for one brand or tier.
type GroupPerformance struct {
	Group         string       `json:"group"`
	AccuracyPct   float64      `json:"accuracy_pct"`
	MAPE          float64      `json:"mape"`
	ForecastTotal float64      `json:"forecast_total"`
	POTotal       float64      `json:"po_total"`
	SKUCount      int          `json:"sku_count"`
	Counts        StatusCounts `json:"counts"`
}

// GroupPerformanceReport is a per-brand or per-tier report for one month.
type GroupPerformanceReport struct {
	Month  time.Time          `json:"month"`
	Groups []GroupPerformance `json:"groups"`
}

// PlanComparison compares actual sales with forecast and PO totals for one month.
type PlanComparison struct {
	Month              time.Time `json:"month"`
	SalesQty           float64   `json:"sales_qty"`
	ForecastQty        float64   `json:"forecast_qty"`
	POQty              float64   `json:"po_qty"`
	SalesVsForecastPct float64   `json:"sales_vs_forecast_pct"`
	POVsForecastPct    float64   `json:"po_vs_forecast_pct"`
}

// ChannelMonth is one month of an auxiliary channel forecast.
type ChannelMonth struct {
	Month    time.Time `json:"month"`
	Quantity float64   `json:"quantity"`
	SKUCount int       `json:"sku_count"`
}

// SKUQuantity is a ranked SKU total.
type SKUQuantity struct {
	SKU      string         `json:"sku"`
	Product  *ProductRecord `json:"product,omitempty"`
	Quantity float64        `json:"quantity"`
}

// ChannelForecast summarizes an auxiliary channel forecast table.
type ChannelForecast struct {
	Channel  string         `json:"channel"`
	Total    float64        `json:"total"`
	SKUCount int            `json:"sku_count"`
	Months   []ChannelMonth `json:"months"`
	TopSKUs  []SKUQuantity  `json:"top_skus"`
}

// MonthlyFinancial is one point of the revenue/margin trend.
type MonthlyFinancial struct {
	Month     time.Time `json:"month"`
	Revenue   float64   `json:"revenue"`
	Cost      float64   `json:"cost"`
	Margin    float64   `json:"margin"`
	MarginPct float64   `json:"margin_pct"`
	Quantity  float64   `json:"quantity"`
}

// FinancialSummary totals the sales financial rows.
type FinancialSummary struct {
	TotalRevenue    float64            `json:"total_revenue"`
	TotalCost       float64            `json:"total_cost"`
	TotalMargin     float64            `json:"total_margin"`
	MarginPct       float64            `json:"margin_pct"`
	TotalQuantity   float64            `json:"total_quantity"`
	AvgSellingPrice float64            `json:"avg_selling_price"`
	Trend           []MonthlyFinancial `json:"trend"`
}

// InventoryValuation totals the inventory financial rows.
type InventoryValuation struct {
	TotalValueAtCost     float64 `json:"total_value_at_cost"`
	TotalValueAtRetail   float64 `json:"total_value_at_retail"`
	TotalPotentialMargin float64 `json:"total_potential_margin"`
	MarginPct            float64 `json:"margin_pct"`
	TotalQuantity        float64 `json:"total_quantity"`
}

// SeasonalityBucket is one calendar month of the seasonal pattern.
type SeasonalityBucket struct {
	MonthOfYear   time.Month   `json:"month_of_year"`
	MonthName     string       `json:"month_name"`
	AvgRevenue    float64      `json:"avg_revenue"`
	AvgMargin     float64      `json:"avg_margin"`
	AvgQuantity   float64      `json:"avg_quantity"`
	RevenueIndex  float64      `json:"revenue_index"`
	MarginIndex   float64      `json:"margin_index"`
	QuantityIndex float64      `json:"quantity_index"`
	Observations  int          `json:"observations"`
	Season        SeasonStatus `json:"season"`
}

// ProfitabilitySegment is one SKU's aggregated profitability.
type ProfitabilitySegment struct {
	SKU       string         `json:"sku"`
	Product   *ProductRecord `json:"product,omitempty"`
	Revenue   float64        `json:"revenue"`
	Cost      float64        `json:"cost"`
	Margin    float64        `json:"margin"`
	Quantity  float64        `json:"quantity"`
	MarginPct float64        `json:"margin_pct"`
	Segment   MarginSegment  `json:"segment"`
}

// SegmentSummary aggregates profitability segments.
type SegmentSummary struct {
	Segment      MarginSegment `json:"segment"`
	SKUCount     int           `json:"sku_count"`
	Revenue      float64       `json:"revenue"`
	Margin       float64       `json:"margin"`
	RevenueShare float64       `json:"revenue_share"`
}

// FulfillmentMonth is one month of fulfillment cost against sales volume.
type FulfillmentMonth struct {
	Month       time.Time          `json:"month"`
	TotalCost   float64            `json:"total_cost"`
	SalesQty    float64            `json:"sales_qty"`
	CostPerUnit float64            `json:"cost_per_unit"`
	Components  map[string]float64 `json:"components"`
}

// FulfillmentSummary totals fulfillment cost.
type FulfillmentSummary struct {
	Months          []FulfillmentMonth `json:"months"`
	ComponentTotals map[string]float64 `json:"component_totals"`
	TotalCost       float64            `json:"total_cost"`
	TotalSalesQty   float64            `json:"total_sales_qty"`
	CostPerUnit     float64            `json:"cost_per_unit"`
}

// CoercionStats counts cells that could not be read as numbers or months.
type CoercionStats struct {
	Blank          int      `json:"blank"`
	Invalid        int      `json:"invalid"`
	UnparsedMonths int      `json:"unparsed_months"`
	Examples       []string `json:"examples,omitempty"`
}

// Merge folds other into s, keeping at most limit examples.
func (s *CoercionStats) Merge(other CoercionStats, limit int) {
	s.Blank += other.Blank
	s.Invalid += other.Invalid
	s.UnparsedMonths += other.UnparsedMonths
	for _, e := range other.Examples {
		if limit > 0 && len(s.Examples) >= limit {
			break
		}
		s.Examples = append(s.Examples, e)
	}
}

// TableQuality describes how one source table was ingested.
type TableQuality struct {
	Table    string        `json:"table"`
	Loaded   bool          `json:"loaded"`
	Rows     int           `json:"rows"`
	Error    string        `json:"error,omitempty"`
	Coercion CoercionStats `json:"coercion"`
}

// DataQuality is the validation report for one refresh cycle.
type DataQuality struct {
	Tables            []TableQuality `json:"tables"`
	TotalProducts     int            `json:"total_products"`
	ActiveProducts    int            `json:"active_products"`
	DuplicateSKUs     []string       `json:"duplicate_skus,omitempty"`
	MissingPrices     bool           `json:"missing_prices"`
	UnmatchedSKUs     map[string]int `json:"unmatched_skus"`
	InactiveRows      map[string]int `json:"inactive_rows"`
	NegativeStockSKUs []string       `json:"negative_stock_skus,omitempty"`
	Issues            []string       `json:"issues,omitempty"`
}

// DashboardSummary holds the headline figures.
type DashboardSummary struct {
	LatestMonth       time.Time `json:"latest_month"`
	LatestAccuracy    float64   `json:"latest_accuracy"`
	RecentAccuracy    float64   `json:"recent_accuracy"`
	AverageBiasPct    float64   `json:"average_bias_pct"`
	HealthScore       float64   `json:"health_score"`
	TotalRevenue      float64   `json:"total_revenue"`
	TotalMargin       float64   `json:"total_margin"`
	MarginPct         float64   `json:"margin_pct"`
	InventoryAtCost   float64   `json:"inventory_at_cost"`
	ActiveSKUs        int       `json:"active_skus"`
	NeedReplenishment int       `json:"need_replenishment"`
	HighStock         int       `json:"high_stock"`
}

// Snapshot is every derived table for one refresh cycle.
type Snapshot struct {
	RunID       string     `json:"run_id"`
	Source      string     `json:"source"`
	GeneratedAt time.Time  `json:"generated_at"`
	Thresholds  Thresholds `json:"thresholds"`

	Summary            DashboardSummary        `json:"summary"`
	MonthlyPerformance []MonthlyPerformance    `json:"monthly_performance"`
	RecentPerformance  RecentPerformance       `json:"recent_performance"`
	ForecastBias       ForecastBias            `json:"forecast_bias"`
	Brands             GroupPerformanceReport  `json:"brands"`
	Tiers              GroupPerformanceReport  `json:"tiers"`
	SalesVsPlan        []PlanComparison        `json:"sales_vs_plan"`
	Inventory          []InventoryMetricRow    `json:"inventory"`
	InventoryHealth    InventoryHealth         `json:"inventory_health"`
	EOQ                []EOQRow                `json:"eoq"`
	Financials         []FinancialRow          `json:"financials"`
	FinancialSummary   FinancialSummary        `json:"financial_summary"`
	InventoryFinancial []InventoryFinancialRow `json:"inventory_financial"`
	InventoryValuation InventoryValuation      `json:"inventory_valuation"`
	Seasonality        []SeasonalityBucket     `json:"seasonality"`
	Profitability      []ProfitabilitySegment  `json:"profitability"`
	Segments           []SegmentSummary        `json:"segments"`
	Channels           []ChannelForecast       `json:"channels"`
	Fulfillment        FulfillmentSummary      `json:"fulfillment"`
	DataQuality        DataQuality             `json:"data_quality"`
}
