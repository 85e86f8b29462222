package pipeline

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/andresuchdata/invintel/internal/domain"
)

// BuildQuality reports what ingestion had to skip, default or drop for ds.
func BuildQuality(ds *Dataset) domain.DataQuality {
	catalog := ds.Catalog
	q := domain.DataQuality{
		Tables:         append([]domain.TableQuality(nil), ds.Tables...),
		TotalProducts:  catalog.Len(),
		ActiveProducts: len(catalog.ActiveSKUs()),
		DuplicateSKUs:  lo.Uniq(ds.Duplicates),
		MissingPrices:  !catalog.HasPrices,
		UnmatchedSKUs:  make(map[string]int),
		InactiveRows:   make(map[string]int),
	}

	series := []struct {
		name string
		rows []domain.TimeSeriesRow
	}{
		{"sales", ds.Sales},
		{"rofo", ds.Rofo},
		{"po", ds.PO},
		{ChannelEcommerce, ds.Channels[ChannelEcommerce]},
		{ChannelReseller, ds.Channels[ChannelReseller]},
	}
	for _, s := range series {
		skus := lo.Map(s.rows, func(r domain.TimeSeriesRow, _ int) string { return r.SKU })
		q.UnmatchedSKUs[s.name], q.InactiveRows[s.name] = matchCounts(skus, catalog)
	}
	stockSKUs := lo.Map(ds.Stock, func(r domain.StockRecord, _ int) string { return r.SKU })
	q.UnmatchedSKUs["stock"], q.InactiveRows["stock"] = matchCounts(stockSKUs, catalog)

	stockBySKU := make(map[string]float64)
	for _, s := range ds.Stock {
		stockBySKU[s.SKU] += s.Quantity
	}
	for sku, qty := range stockBySKU {
		if qty < 0 {
			q.NegativeStockSKUs = append(q.NegativeStockSKUs, sku)
		}
	}
	sort.Strings(q.NegativeStockSKUs)

	q.Issues = issues(q)
	return q
}

// matchCounts returns the number of distinct SKUs missing from the catalog and
// the number of rows whose SKU is in the catalog but inactive.
func matchCounts(skus []string, catalog *domain.ProductCatalog) (unmatched, inactive int) {
	missing := make(map[string]struct{})
	for _, sku := range skus {
		if _, ok := catalog.Lookup(sku); !ok {
			missing[sku] = struct{}{}
			continue
		}
		if !catalog.IsActive(sku) {
			inactive++
		}
	}
	return len(missing), inactive
}

func issues(q domain.DataQuality) []string {
	var out []string
	for _, t := range q.Tables {
		if !t.Loaded {
			out = append(out, fmt.Sprintf("%s: not loaded (%s)", t.Table, t.Error))
			continue
		}
		if t.Coercion.Invalid > 0 {
			out = append(out, fmt.Sprintf("%s: %d values could not be read as numbers", t.Table, t.Coercion.Invalid))
		}
		if t.Coercion.UnparsedMonths > 0 {
			out = append(out, fmt.Sprintf("%s: %d month labels could not be parsed", t.Table, t.Coercion.UnparsedMonths))
		}
	}
	if q.TotalProducts == 0 {
		out = append(out, "product master is empty, every metric is empty")
	}
	if q.MissingPrices && q.TotalProducts > 0 {
		out = append(out, "product master has no price columns, financial metrics are empty")
	}
	if len(q.DuplicateSKUs) > 0 {
		out = append(out, fmt.Sprintf("%d duplicate SKUs in product master, first occurrence kept", len(q.DuplicateSKUs)))
	}
	if len(q.NegativeStockSKUs) > 0 {
		out = append(out, fmt.Sprintf("%d SKUs have negative stock", len(q.NegativeStockSKUs)))
	}
	return out
}
