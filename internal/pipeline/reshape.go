package pipeline

import (
	"fmt"
	"time"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/source"
)

// skuAliases are the header spellings accepted for the product identifier.
var skuAliases = []string{"sku_id", "sku", "sku_code", "product_id", "kode_sku", "item_code"}

// Reshaper turns wide month-per-column tables into long rows.
type Reshaper struct {
	Coercer *Coercer
}

type monthColumn struct {
	idx   int
	month time.Time
}

// ReshapeWide emits one row per (id, month column) in input order. The id
// column is the first header matching idAliases, else column 0. Rows with a
// blank id are skipped. Under the Strict policy the rows are still returned
// together with an ErrStrictCoercion-wrapping error.
func (r Reshaper) ReshapeWide(t source.Table, idAliases ...string) ([]domain.TimeSeriesRow, error) {
	if len(t.Header) == 0 {
		return nil, nil
	}

	idIdx := t.ColIndex(idAliases...)
	if idIdx < 0 {
		idIdx = 0
	}

	months := r.monthColumns(t, idIdx)
	if len(months) == 0 {
		return nil, nil
	}

	out := make([]domain.TimeSeriesRow, 0, len(t.Rows)*len(months))
	for i, row := range t.Rows {
		id := t.Cell(row, idIdx)
		if id == "" {
			continue
		}
		for _, mc := range months {
			qty := r.Coercer.Float(t.Cell(row, mc.idx), fmt.Sprintf("%s row %d %s", t.Name, i+2, t.Header[mc.idx]))
			out = append(out, domain.TimeSeriesRow{
				SKU:      id,
				Month:    mc.month,
				Quantity: qty,
			})
		}
	}

	if err := r.Coercer.Err(); err != nil {
		return out, fmt.Errorf("reshape %s: %w", t.Name, err)
	}
	return out, nil
}

func (r Reshaper) monthColumns(t source.Table, idIdx int) []monthColumn {
	var cols []monthColumn
	for i, h := range t.Header {
		if i == idIdx || !IsMonthColumn(h) {
			continue
		}
		m, _ := r.Coercer.Month(h, t.Name+" header")
		cols = append(cols, monthColumn{idx: i, month: m})
	}
	return cols
}

// ReadLong reads an already long table with explicit month and quantity
// columns. It returns false when the table does not have that shape.
func (r Reshaper) ReadLong(t source.Table) ([]domain.TimeSeriesRow, bool, error) {
	skuIdx := t.ColIndex(skuAliases...)
	monthIdx := t.ColIndex("month", "period", "bulan", "date")
	qtyIdx := t.ColIndex("quantity", "qty", "sales_qty", "forecast_qty", "po_qty", "value")
	if skuIdx < 0 || monthIdx < 0 || qtyIdx < 0 {
		return nil, false, nil
	}

	out := make([]domain.TimeSeriesRow, 0, len(t.Rows))
	for i, row := range t.Rows {
		id := t.Cell(row, skuIdx)
		if id == "" {
			continue
		}
		where := fmt.Sprintf("%s row %d", t.Name, i+2)
		m, _ := r.Coercer.Month(t.Cell(row, monthIdx), where)
		out = append(out, domain.TimeSeriesRow{
			SKU:      id,
			Month:    m,
			Quantity: r.Coercer.Float(t.Cell(row, qtyIdx), where),
		})
	}

	if err := r.Coercer.Err(); err != nil {
		return out, true, fmt.Errorf("read %s: %w", t.Name, err)
	}
	return out, true, nil
}

// TimeSeries reads t as a long table when it has month and quantity columns,
// otherwise reshapes it from wide format keyed on the SKU column.
func (r Reshaper) TimeSeries(t source.Table) ([]domain.TimeSeriesRow, error) {
	if rows, ok, err := r.ReadLong(t); ok {
		return rows, err
	}
	return r.ReshapeWide(t, skuAliases...)
}
