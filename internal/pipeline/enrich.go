package pipeline

import "github.com/andresuchdata/invintel/internal/domain"

// Enrich attaches the catalog record to each row. Rows without a match keep a
// nil Product; no row is dropped. Any previous Product is replaced.
func Enrich(rows []domain.TimeSeriesRow, catalog *domain.ProductCatalog) []domain.TimeSeriesRow {
	out := make([]domain.TimeSeriesRow, len(rows))
	for i, r := range rows {
		r.Product, _ = catalog.Lookup(r.SKU)
		out[i] = r
	}
	return out
}

// EnrichStock is Enrich for stock rows.
func EnrichStock(rows []domain.StockRecord, catalog *domain.ProductCatalog) []domain.StockRecord {
	out := make([]domain.StockRecord, len(rows))
	for i, r := range rows {
		r.Product, _ = catalog.Lookup(r.SKU)
		out[i] = r
	}
	return out
}

// FilterActive keeps rows whose SKU is active in the catalog.
func FilterActive(rows []domain.TimeSeriesRow, catalog *domain.ProductCatalog) []domain.TimeSeriesRow {
	out := make([]domain.TimeSeriesRow, 0, len(rows))
	for _, r := range rows {
		if catalog.IsActive(r.SKU) {
			out = append(out, r)
		}
	}
	return out
}

// FilterActiveStock keeps stock rows whose SKU is active in the catalog.
func FilterActiveStock(rows []domain.StockRecord, catalog *domain.ProductCatalog) []domain.StockRecord {
	out := make([]domain.StockRecord, 0, len(rows))
	for _, r := range rows {
		if catalog.IsActive(r.SKU) {
			out = append(out, r)
		}
	}
	return out
}
