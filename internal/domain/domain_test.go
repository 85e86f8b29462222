package domain

import (
	"math"
	"testing"
)

func TestClassifyAccuracyBoundaries(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		ratio float64
		want  AccuracyStatus
	}{
		{70, AccuracyUnder},
		{79.999, AccuracyUnder},
		{80, AccuracyAccurate},
		{100, AccuracyAccurate},
		{120, AccuracyAccurate},
		{120.001, AccuracyOver},
		{150, AccuracyOver},
	}
	for _, c := range cases {
		if got := th.ClassifyAccuracy(c.ratio); got != c.want {
			t.Errorf("ratio %v expected %s, got %s", c.ratio, c.want, got)
		}
	}
}

func TestClassifyCoverAndSeasonAndMargin(t *testing.T) {
	th := DefaultThresholds()

	if got := th.ClassifyCover(3.0); got != StockHigh {
		t.Errorf("cover 3.0 expected %s, got %s", StockHigh, got)
	}
	if got := th.ClassifyCover(0.8); got != StockIdeal {
		t.Errorf("cover 0.8 expected %s, got %s", StockIdeal, got)
	}
	if got := th.ClassifyCover(1.5); got != StockIdeal {
		t.Errorf("cover 1.5 expected %s, got %s", StockIdeal, got)
	}
	if got := th.ClassifyCover(0.5); got != StockNeedReplenishment {
		t.Errorf("cover 0.5 expected %s, got %s", StockNeedReplenishment, got)
	}

	if got := th.ClassifySeason(1.2); got != SeasonPeak {
		t.Errorf("index 1.2 expected %s, got %s", SeasonPeak, got)
	}
	if got := th.ClassifySeason(0.9); got != SeasonNormal {
		t.Errorf("index 0.9 expected %s, got %s", SeasonNormal, got)
	}
	if got := th.ClassifySeason(0.89); got != SeasonLow {
		t.Errorf("index 0.89 expected %s, got %s", SeasonLow, got)
	}

	margins := map[float64]MarginSegment{
		40:  MarginHigh,
		39:  MarginMedium,
		20:  MarginMedium,
		0.5: MarginLow,
		0:   MarginNegative,
		-10: MarginNegative,
	}
	for pct, want := range margins {
		if got := th.ClassifyMargin(pct); got != want {
			t.Errorf("margin %v expected %s, got %s", pct, want, got)
		}
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds should be valid: %v", err)
	}

	bad := DefaultThresholds()
	bad.AccuracyUpper = 70
	if err := bad.Validate(); err == nil {
		t.Errorf("expected error when upper accuracy bound is below lower bound")
	}

	bad = DefaultThresholds()
	bad.TrailingMonths = 0
	if err := bad.Validate(); err == nil {
		t.Errorf("expected error for zero trailing months")
	}
}

func TestThresholdsKeyChangesWithValues(t *testing.T) {
	a := DefaultThresholds()
	b := DefaultThresholds()
	if a.Key() != b.Key() {
		t.Fatalf("equal thresholds should share a key")
	}
	b.CoverHigh = 2
	if a.Key() == b.Key() {
		t.Errorf("different thresholds should not share a key")
	}
}

func TestProductCatalogFirstDuplicateWins(t *testing.T) {
	catalog, dups := NewProductCatalog([]ProductRecord{
		{SKU: "A", ProductName: "first", Status: "Active"},
		{SKU: "B", Status: "inactive"},
		{SKU: "A", ProductName: "second", Status: "active"},
	}, true)

	if catalog.Len() != 2 {
		t.Fatalf("expected 2 products, got %d", catalog.Len())
	}
	if len(dups) != 1 || dups[0] != "A" {
		t.Errorf("expected duplicate [A], got %v", dups)
	}
	p, ok := catalog.Lookup("A")
	if !ok || p.ProductName != "first" {
		t.Errorf("expected first occurrence to win, got %+v", p)
	}
	if !catalog.IsActive("A") || catalog.IsActive("B") || catalog.IsActive("Z") {
		t.Errorf("unexpected active flags")
	}
	if active := catalog.ActiveSKUs(); len(active) != 1 {
		t.Errorf("expected 1 active SKU, got %d", len(active))
	}
}

func TestStatusCountsPercentages(t *testing.T) {
	var c StatusCounts
	c.Add(AccuracyUnder)
	c.Add(AccuracyAccurate)
	c.Add(AccuracyAccurate)
	c.Add(AccuracyOver)

	p := c.Percentages()
	if math.Abs(p.Accurate-50) > 1e-9 || math.Abs(p.Under-25) > 1e-9 || math.Abs(p.Over-25) > 1e-9 {
		t.Errorf("unexpected percentages %+v", p)
	}
	if (StatusCounts{}).Percentages() != (StatusPercentages{}) {
		t.Errorf("empty counts should give zero percentages")
	}
}

func TestParseStockStatus(t *testing.T) {
	if s, ok := ParseStockStatus("high_stock"); !ok || s != StockHigh {
		t.Errorf("expected high_stock to resolve to %s", StockHigh)
	}
	if s, ok := ParseStockStatus("Ideal/Healthy"); !ok || s != StockIdeal {
		t.Errorf("expected Ideal/Healthy to resolve")
	}
	if _, ok := ParseStockStatus("bogus"); ok {
		t.Errorf("bogus status should not resolve")
	}
}

func TestCoercionStatsMergeCapsExamples(t *testing.T) {
	s := CoercionStats{Examples: []string{"a"}}
	s.Merge(CoercionStats{Blank: 2, Invalid: 1, Examples: []string{"b", "c"}}, 2)
	if s.Blank != 2 || s.Invalid != 1 {
		t.Errorf("counts not merged: %+v", s)
	}
	if len(s.Examples) != 2 {
		t.Errorf("expected examples capped at 2, got %v", s.Examples)
	}
}
