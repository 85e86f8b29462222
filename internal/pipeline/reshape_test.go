package pipeline

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/source"
)

func wideSales() source.Table {
	return source.NewTable("Sales", [][]string{
		{"Product Name", "SKU ID", "Jan-25", "Feb-25", "Mar-25"},
		{"Serum", "A", "1,200", "", "30"},
		{"Toner", "B", "abc", "5", " 7 "},
		{"Blank", "", "100", "100", "100"},
	})
}

func TestReshapeWideConservesTotals(t *testing.T) {
	c := NewCoercer(DefaultZero, 10, fixedNow)
	rows, err := Reshaper{Coercer: c}.ReshapeWide(wideSales(), skuAliases...)
	if err != nil {
		t.Fatalf("default policy should not fail: %v", err)
	}

	if len(rows) != 6 {
		t.Fatalf("expected 6 long rows, got %d", len(rows))
	}

	var total float64
	for _, r := range rows {
		total += r.Quantity
	}
	// 1200 + 0 + 30 + 0 + 5 + 7; the blank-id row is not part of the output
	if math.Abs(total-1242) > 1e-9 {
		t.Errorf("total expected 1242, got %f", total)
	}

	if rows[0].SKU != "A" || !rows[0].Month.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[3].SKU != "B" || rows[3].Quantity != 0 {
		t.Errorf("invalid cell should become 0, got %+v", rows[3])
	}

	stats := c.Stats()
	if stats.Blank != 1 || stats.Invalid != 1 {
		t.Errorf("expected 1 blank and 1 invalid, got %+v", stats)
	}
}

func TestReshapeWideStrictReportsIssues(t *testing.T) {
	c := NewCoercer(Strict, 10, fixedNow)
	rows, err := Reshaper{Coercer: c}.ReshapeWide(wideSales(), skuAliases...)
	if !errors.Is(err, ErrStrictCoercion) {
		t.Fatalf("expected ErrStrictCoercion, got %v", err)
	}
	if len(rows) != 6 {
		t.Errorf("strict mode should still return rows, got %d", len(rows))
	}
	if len(c.Stats().Examples) == 0 {
		t.Errorf("expected an example of the malformed cell")
	}
}

func TestReshapeWideStrictAllowsBlanks(t *testing.T) {
	tbl := source.NewTable("PO", [][]string{
		{"sku_id", "Jan-25"},
		{"A", ""},
		{"B", "3"},
	})
	c := NewCoercer(Strict, 10, fixedNow)
	if _, err := (Reshaper{Coercer: c}).ReshapeWide(tbl, skuAliases...); err != nil {
		t.Errorf("blank cells are not malformed: %v", err)
	}
}

func TestReshapeWideFallsBackToFirstColumn(t *testing.T) {
	tbl := source.NewTable("Rofo", [][]string{
		{"code", "Jan-25"},
		{"X", "4"},
	})
	rows, err := Reshaper{Coercer: NewCoercer(DefaultZero, 0, fixedNow)}.ReshapeWide(tbl, skuAliases...)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].SKU != "X" || rows[0].Quantity != 4 {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestTimeSeriesReadsLongTables(t *testing.T) {
	tbl := source.NewTable("Sales", [][]string{
		{"sku_id", "month", "qty"},
		{"A", "Jan-25", "3"},
		{"A", "2025-02", "4"},
		{"", "2025-02", "9"},
	})
	rows, err := Reshaper{Coercer: NewCoercer(DefaultZero, 0, fixedNow)}.TimeSeries(tbl)
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.TimeSeriesRow{
		{SKU: "A", Month: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Quantity: 3},
		{SKU: "A", Month: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Quantity: 4},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("long table mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCoercionPolicy(t *testing.T) {
	if p, err := ParseCoercionPolicy("STRICT"); err != nil || p != Strict {
		t.Errorf("expected strict, got %v %v", p, err)
	}
	if p, err := ParseCoercionPolicy(""); err != nil || p != DefaultZero {
		t.Errorf("expected default_zero, got %v %v", p, err)
	}
	if _, err := ParseCoercionPolicy("lenient"); err == nil {
		t.Errorf("expected error for unknown policy")
	}
}

func TestCoercerFloat(t *testing.T) {
	c := NewCoercer(DefaultZero, 0, fixedNow)
	cases := map[string]float64{
		"1,234.5": 1234.5,
		" 42 ":    42,
		"-":       0,
		"":        0,
		"NaN":     0,
		"-3":      -3,
	}
	for raw, want := range cases {
		if got := c.Float(raw, "test"); got != want {
			t.Errorf("%q expected %v, got %v", raw, want, got)
		}
	}
	if c.Stats().Invalid != 1 {
		t.Errorf("NaN should count as invalid, got %+v", c.Stats())
	}
}
