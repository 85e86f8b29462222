package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/pipeline"
	"github.com/andresuchdata/invintel/internal/source"
	"github.com/andresuchdata/invintel/internal/storage"
)

const uploadConcurrency = 4

// Exporter writes the derived tables of a snapshot as CSV files and, when an
// object store is configured, uploads them under prefix/<run id>/.
type Exporter struct {
	dir    string
	store  storage.ObjectStorage
	prefix string
}

func NewExporter(dir string, store storage.ObjectStorage, prefix string) *Exporter {
	return &Exporter{dir: dir, store: store, prefix: prefix}
}

// Export returns the local paths written, in table order.
func (e *Exporter) Export(ctx context.Context, snap *domain.Snapshot) ([]string, error) {
	runDir := filepath.Join(e.dir, runFolder(snap))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	tables := Tables(snap)
	payloads := make([][]byte, len(tables))
	paths := make([]string, len(tables))
	for i, t := range tables {
		var buf bytes.Buffer
		if err := source.WriteCSV(&buf, t); err != nil {
			return nil, err
		}
		payloads[i] = buf.Bytes()
		paths[i] = filepath.Join(runDir, t.Name+".csv")
		if err := os.WriteFile(paths[i], payloads[i], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", paths[i], err)
		}
	}

	if e.store == nil {
		return paths, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, t := range tables {
		key := path.Join(e.prefix, runFolder(snap), t.Name+".csv")
		data := payloads[i]
		g.Go(func() error {
			if err := e.store.UploadObject(gctx, key, data, "text/csv"); err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			log.Debug().Str("key", key).Int("bytes", len(data)).Msg("export: uploaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return paths, err
	}

	log.Info().Int("tables", len(tables)).Str("prefix", e.prefix).Msg("export: upload complete")
	return paths, nil
}

func runFolder(snap *domain.Snapshot) string {
	if snap.RunID != "" {
		return snap.RunID
	}
	return snap.GeneratedAt.UTC().Format("20060102T150405Z")
}

// Tables renders every derived table of a snapshot as a CSV-ready table.
func Tables(snap *domain.Snapshot) []source.Table {
	return []source.Table{
		monthlyPerformanceTable(snap.MonthlyPerformance),
		inventoryTable(snap.Inventory),
		eoqTable(snap.EOQ),
		financialsTable(snap.Financials),
		inventoryFinancialTable(snap.InventoryFinancial),
		seasonalityTable(snap.Seasonality),
		profitabilityTable(snap.Profitability),
		channelsTable(snap.Channels),
		fulfillmentTable(snap.Fulfillment),
		dataQualityTable(snap.DataQuality),
	}
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func product(p *domain.ProductRecord) (name, brand, tier string) {
	if p == nil {
		return "", "", ""
	}
	return p.ProductName, p.Brand, p.Tier
}

func monthlyPerformanceTable(rows []domain.MonthlyPerformance) source.Table {
	t := source.Table{
		Name:   "monthly_performance",
		Header: []string{"month", "accuracy_pct", "mape", "total_skus", "under", "accurate", "over"},
	}
	for _, m := range rows {
		t.Rows = append(t.Rows, []string{
			pipeline.FormatMonth(m.Month), num(m.AccuracyPct), num(m.MAPE), strconv.Itoa(m.TotalSKUs),
			strconv.Itoa(m.Counts.Under), strconv.Itoa(m.Counts.Accurate), strconv.Itoa(m.Counts.Over),
		})
	}
	return t
}

func inventoryTable(rows []domain.InventoryMetricRow) source.Table {
	t := source.Table{
		Name:   "inventory",
		Header: []string{"sku", "product_name", "brand", "tier", "stock_qty", "avg_monthly_sales", "cover_months", "status"},
	}
	for _, r := range rows {
		name, brand, tier := product(r.Product)
		t.Rows = append(t.Rows, []string{
			r.SKU, name, brand, tier, num(r.StockQty), num(r.AvgMonthlySales), num(r.CoverMonths), string(r.Status),
		})
	}
	return t
}

func eoqTable(rows []domain.EOQRow) source.Table {
	t := source.Table{
		Name:   "eoq",
		Header: []string{"sku", "product_name", "annual_demand", "order_cost", "holding_cost", "eoq", "stock_qty", "status"},
	}
	for _, r := range rows {
		name, _, _ := product(r.Product)
		t.Rows = append(t.Rows, []string{
			r.SKU, name, num(r.AnnualDemand), num(r.OrderCost), num(r.HoldingCost), num(r.EOQ), num(r.StockQty), string(r.Status),
		})
	}
	return t
}

func financialsTable(rows []domain.FinancialRow) source.Table {
	t := source.Table{
		Name:   "financials",
		Header: []string{"sku", "month", "quantity", "revenue", "cost", "margin", "margin_pct"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.SKU, pipeline.FormatMonth(r.Month), num(r.Quantity), num(r.Revenue), num(r.Cost), num(r.Margin), num(r.MarginPct),
		})
	}
	return t
}

func inventoryFinancialTable(rows []domain.InventoryFinancialRow) source.Table {
	t := source.Table{
		Name:   "inventory_financials",
		Header: []string{"sku", "quantity", "value_at_cost", "value_at_retail", "potential_margin", "margin_pct"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.SKU, num(r.Quantity), num(r.ValueAtCost), num(r.ValueAtRetail), num(r.PotentialMargin), num(r.MarginPct),
		})
	}
	return t
}

func seasonalityTable(rows []domain.SeasonalityBucket) source.Table {
	t := source.Table{
		Name:   "seasonality",
		Header: []string{"month", "avg_revenue", "revenue_index", "margin_index", "quantity_index", "season"},
	}
	for _, b := range rows {
		t.Rows = append(t.Rows, []string{
			b.MonthName, num(b.AvgRevenue), num(b.RevenueIndex), num(b.MarginIndex), num(b.QuantityIndex), string(b.Season),
		})
	}
	return t
}

func profitabilityTable(rows []domain.ProfitabilitySegment) source.Table {
	t := source.Table{
		Name:   "profitability",
		Header: []string{"sku", "revenue", "cost", "margin", "margin_pct", "segment"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.SKU, num(r.Revenue), num(r.Cost), num(r.Margin), num(r.MarginPct), string(r.Segment),
		})
	}
	return t
}

func channelsTable(rows []domain.ChannelForecast) source.Table {
	t := source.Table{
		Name:   "channels",
		Header: []string{"channel", "month", "quantity", "sku_count"},
	}
	for _, ch := range rows {
		for _, m := range ch.Months {
			t.Rows = append(t.Rows, []string{
				ch.Channel, pipeline.FormatMonth(m.Month), num(m.Quantity), strconv.Itoa(m.SKUCount),
			})
		}
	}
	return t
}

func fulfillmentTable(f domain.FulfillmentSummary) source.Table {
	components := make([]string, 0, len(f.ComponentTotals))
	for c := range f.ComponentTotals {
		components = append(components, c)
	}
	sort.Strings(components)

	t := source.Table{
		Name:   "fulfillment",
		Header: append([]string{"month", "total_cost", "sales_qty", "cost_per_unit"}, components...),
	}
	for _, m := range f.Months {
		row := []string{pipeline.FormatMonth(m.Month), num(m.TotalCost), num(m.SalesQty), num(m.CostPerUnit)}
		for _, c := range components {
			row = append(row, num(m.Components[c]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func dataQualityTable(q domain.DataQuality) source.Table {
	t := source.Table{
		Name:   "data_quality",
		Header: []string{"table", "loaded", "rows", "blank_cells", "invalid_cells", "error"},
	}
	for _, tq := range q.Tables {
		t.Rows = append(t.Rows, []string{
			tq.Table, strconv.FormatBool(tq.Loaded), strconv.Itoa(tq.Rows),
			strconv.Itoa(tq.Coercion.Blank), strconv.Itoa(tq.Coercion.Invalid), tq.Error,
		})
	}
	return t
}
