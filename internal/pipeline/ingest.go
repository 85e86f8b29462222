package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/source"
)

// ErrMissingColumn is returned when a table lacks a column it cannot be read without.
var ErrMissingColumn = errors.New("missing required column")

var (
	productNameAliases = []string{"product_name", "name", "nama_produk", "description_name"}
	brandAliases       = []string{"brand", "brand_name", "merk"}
	tierAliases        = []string{"sku_tier", "tier", "product_tier"}
	statusAliases      = []string{"status", "product_status", "sku_status"}
	floorPriceAliases  = []string{"floor_price", "harga_floor", "selling_price", "retail_price"}
	netPriceAliases    = []string{"net_order_price", "net_price", "cost_price", "hpp"}

	stockQtyAliases = []string{"stock_qty", "quantity", "qty", "stock", "on_hand", "stock_onhand", "qty_onhand"}
	batchAliases    = []string{"batch", "batch_no", "batch_number", "lot"}
	categoryAliases = []string{"category", "kategori", "product_category"}
	expiryAliases   = []string{"expiry", "expiry_date", "exp_date", "expired_date", "ed"}

	componentAliases = []string{"component", "cost_type", "cost_component", "item", "komponen"}
)

// IngestProductMaster validates the product master into a catalog. Records
// failing validation are skipped and counted as invalid cells. Duplicate SKUs
// are returned for the data quality report.
func IngestProductMaster(t source.Table, c *Coercer) (*domain.ProductCatalog, []string, error) {
	skuIdx := t.ColIndex(skuAliases...)
	if skuIdx < 0 {
		return nil, nil, fmt.Errorf("%s: %w: sku_id", t.Name, ErrMissingColumn)
	}
	nameIdx := t.ColIndex(productNameAliases...)
	brandIdx := t.ColIndex(brandAliases...)
	tierIdx := t.ColIndex(tierAliases...)
	statusIdx := t.ColIndex(statusAliases...)
	floorIdx := t.ColIndex(floorPriceAliases...)
	netIdx := t.ColIndex(netPriceAliases...)
	hasPrices := floorIdx >= 0 && netIdx >= 0

	v := domain.Validator()
	products := make([]domain.ProductRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		where := fmt.Sprintf("%s row %d", t.Name, i+2)
		p := domain.ProductRecord{
			SKU:         t.Cell(row, skuIdx),
			ProductName: t.Cell(row, nameIdx),
			Brand:       t.Cell(row, brandIdx),
			Tier:        t.Cell(row, tierIdx),
			Status:      t.Cell(row, statusIdx),
		}
		if hasPrices {
			p.FloorPrice = c.Float(t.Cell(row, floorIdx), where+" floor_price")
			p.NetOrderPrice = c.Float(t.Cell(row, netIdx), where+" net_order_price")
		}
		if p.SKU == "" {
			continue
		}
		if err := v.Struct(p); err != nil {
			c.stats.Invalid++
			c.example(fmt.Sprintf("%s: %v", where, err))
			continue
		}
		products = append(products, p)
	}

	catalog, dups := domain.NewProductCatalog(products, hasPrices)
	if err := c.Err(); err != nil {
		return catalog, dups, fmt.Errorf("ingest %s: %w", t.Name, err)
	}
	return catalog, dups, nil
}

// IngestStock reads batch-level stock rows.
func IngestStock(t source.Table, c *Coercer) ([]domain.StockRecord, error) {
	skuIdx := t.ColIndex(skuAliases...)
	if skuIdx < 0 {
		return nil, fmt.Errorf("%s: %w: sku_id", t.Name, ErrMissingColumn)
	}
	qtyIdx := t.ColIndex(stockQtyAliases...)
	if qtyIdx < 0 {
		return nil, fmt.Errorf("%s: %w: stock_qty", t.Name, ErrMissingColumn)
	}
	batchIdx := t.ColIndex(batchAliases...)
	categoryIdx := t.ColIndex(categoryAliases...)
	expiryIdx := t.ColIndex(expiryAliases...)

	out := make([]domain.StockRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		sku := t.Cell(row, skuIdx)
		if sku == "" {
			continue
		}
		out = append(out, domain.StockRecord{
			SKU:      sku,
			Quantity: c.Float(t.Cell(row, qtyIdx), fmt.Sprintf("%s row %d", t.Name, i+2)),
			Batch:    t.Cell(row, batchIdx),
			Category: t.Cell(row, categoryIdx),
			Expiry:   t.Cell(row, expiryIdx),
		})
	}

	if err := c.Err(); err != nil {
		return out, fmt.Errorf("ingest %s: %w", t.Name, err)
	}
	return out, nil
}

// IngestFulfillmentCost accepts either one row per month (a month column plus
// one numeric column per cost component) or one row per component with month
// columns.
func IngestFulfillmentCost(t source.Table, c *Coercer) ([]domain.FulfillmentCostRow, error) {
	if monthIdx := t.ColIndex("month", "period", "bulan"); monthIdx >= 0 {
		return fulfillmentByMonthRow(t, c, monthIdx)
	}

	rows, err := Reshaper{Coercer: c}.ReshapeWide(t, componentAliases...)
	byMonth := make(map[time.Time]map[string]float64)
	for _, r := range rows {
		if byMonth[r.Month] == nil {
			byMonth[r.Month] = make(map[string]float64)
		}
		byMonth[r.Month][r.SKU] += r.Quantity
	}
	return sortedFulfillment(byMonth), err
}

func fulfillmentByMonthRow(t source.Table, c *Coercer, monthIdx int) ([]domain.FulfillmentCostRow, error) {
	byMonth := make(map[time.Time]map[string]float64)
	for i, row := range t.Rows {
		label := t.Cell(row, monthIdx)
		if label == "" {
			continue
		}
		where := fmt.Sprintf("%s row %d", t.Name, i+2)
		m, _ := c.Month(label, where)
		if byMonth[m] == nil {
			byMonth[m] = make(map[string]float64)
		}
		for j, h := range t.Header {
			if j == monthIdx || strings.TrimSpace(h) == "" {
				continue
			}
			byMonth[m][h] += c.Float(t.Cell(row, j), where+" "+h)
		}
	}

	out := sortedFulfillment(byMonth)
	if err := c.Err(); err != nil {
		return out, fmt.Errorf("ingest %s: %w", t.Name, err)
	}
	return out, nil
}

func sortedFulfillment(byMonth map[time.Time]map[string]float64) []domain.FulfillmentCostRow {
	out := make([]domain.FulfillmentCostRow, 0, len(byMonth))
	for m, comps := range byMonth {
		out = append(out, domain.FulfillmentCostRow{Month: m, Components: comps})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
