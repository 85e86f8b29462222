package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/source"
)

func testSource() *source.Memory {
	return source.NewMemory(
		source.NewTable("Product_Master", [][]string{
			{"sku_id", "product_name", "brand", "sku_tier", "status", "floor_price", "net_order_price"},
			{"A", "Alpha", "BrandX", "T1", "Active", "10000", "6000"},
			{"B", "Beta", "BrandY", "T2", "active", "5000", "4000"},
			{"C", "Gamma", "BrandX", "T1", "Inactive", "100", "50"},
		}),
		source.NewTable("Sales", [][]string{
			{"sku_id", "Jan-25", "Feb-25", "Mar-25"},
			{"A", "100", "100", "100"},
			{"B", "10", "10", "10"},
			{"C", "999", "999", "999"},
			{"Z", "5", "5", "5"},
		}),
		source.NewTable("Rofo", [][]string{
			{"sku_id", "Mar-25"},
			{"A", "100"},
			{"B", "100"},
			{"C", "100"},
		}),
		source.NewTable("PO", [][]string{
			{"sku_id", "Mar-25"},
			{"A", "100"},
			{"B", "70"},
			{"C", "150"},
		}),
		source.NewTable("Stock_Onhand", [][]string{
			{"sku_id", "batch", "stock_qty"},
			{"A", "1", "150"},
			{"A", "2", "150"},
			{"B", "1", "5"},
			{"C", "1", "100"},
		}),
		source.NewTable("Forecast_Ecommerce", [][]string{
			{"sku_id", "Apr-25"},
			{"A", "40"},
			{"C", "400"},
		}),
	)
}

func testConfig() PipelineConfig {
	cfg := DefaultPipelineConfig()
	cfg.Now = func() time.Time { return fixedNow }
	cfg.Retry.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return cfg
}

func TestOrchestratorRun(t *testing.T) {
	snap, err := NewOrchestrator(testSource(), testConfig()).Run(context.Background(), domain.DefaultThresholds())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if snap.RunID == "" || snap.Source != "memory" || !snap.GeneratedAt.Equal(fixedNow) {
		t.Errorf("unexpected snapshot header %q %q %v", snap.RunID, snap.Source, snap.GeneratedAt)
	}

	// C is inactive and must not appear anywhere
	if len(snap.MonthlyPerformance) != 1 {
		t.Fatalf("expected 1 month of performance, got %d", len(snap.MonthlyPerformance))
	}
	perf := snap.MonthlyPerformance[0]
	if perf.TotalSKUs != 2 || perf.Counts.Accurate != 1 || perf.Counts.Under != 1 || perf.Counts.Over != 0 {
		t.Errorf("unexpected monthly counts %+v", perf.Counts)
	}
	if math.Abs(perf.AccuracyPct-85) > 1e-9 {
		t.Errorf("accuracy expected 85, got %v", perf.AccuracyPct)
	}

	inv := make(map[string]domain.InventoryMetricRow)
	for _, r := range snap.Inventory {
		inv[r.SKU] = r
	}
	if len(inv) != 2 {
		t.Fatalf("expected inventory rows for A and B only, got %d", len(inv))
	}
	if inv["A"].StockQty != 300 || math.Abs(inv["A"].CoverMonths-3) > 1e-9 || inv["A"].Status != domain.StockHigh {
		t.Errorf("unexpected row for A %+v", inv["A"])
	}
	if inv["B"].Status != domain.StockNeedReplenishment {
		t.Errorf("B expected Need Replenishment, got %s", inv["B"].Status)
	}

	if math.Abs(snap.FinancialSummary.TotalRevenue-3150000) > 1e-6 {
		t.Errorf("total revenue expected 3150000, got %v", snap.FinancialSummary.TotalRevenue)
	}
	if math.Abs(snap.FinancialSummary.TotalMargin-1230000) > 1e-6 {
		t.Errorf("total margin expected 1230000, got %v", snap.FinancialSummary.TotalMargin)
	}

	brands := make([]string, 0, len(snap.Brands.Groups))
	for _, g := range snap.Brands.Groups {
		brands = append(brands, g.Group)
	}
	if diff := cmp.Diff([]string{"BrandX", "BrandY"}, brands); diff != "" {
		t.Errorf("brand order mismatch (-want +got):\n%s", diff)
	}

	if snap.Channels[0].Channel != ChannelEcommerce || snap.Channels[0].Total != 40 {
		t.Errorf("ecommerce channel should only count active SKUs, got %+v", snap.Channels[0])
	}
	if snap.Summary.ActiveSKUs != 2 || snap.Summary.HighStock != 1 || snap.Summary.NeedReplenishment != 1 {
		t.Errorf("unexpected summary %+v", snap.Summary)
	}
}

func TestOrchestratorMissingTablesAreEmpty(t *testing.T) {
	snap, err := NewOrchestrator(testSource(), testConfig()).Run(context.Background(), domain.DefaultThresholds())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(snap.DataQuality.Tables) != 8 {
		t.Fatalf("expected a quality entry per table, got %d", len(snap.DataQuality.Tables))
	}
	missing := make(map[string]bool)
	for _, q := range snap.DataQuality.Tables {
		if !q.Loaded {
			missing[q.Table] = true
			if q.Error == "" {
				t.Errorf("%s is not loaded but has no error", q.Table)
			}
		}
	}
	if diff := cmp.Diff(map[string]bool{"Forecast_Reseller": true, "Fulfillment_Cost": true}, missing); diff != "" {
		t.Errorf("missing tables mismatch (-want +got):\n%s", diff)
	}

	if snap.Channels[1].Total != 0 || len(snap.Channels[1].Months) != 0 {
		t.Errorf("missing reseller table should give an empty channel, got %+v", snap.Channels[1])
	}
	if len(snap.Fulfillment.Months) != 0 {
		t.Errorf("missing fulfillment table should give no months, got %d", len(snap.Fulfillment.Months))
	}

	q := snap.DataQuality
	if q.UnmatchedSKUs["sales"] != 1 || q.InactiveRows["sales"] != 3 {
		t.Errorf("sales match counts expected 1 unmatched and 3 inactive rows, got %d %d",
			q.UnmatchedSKUs["sales"], q.InactiveRows["sales"])
	}
	if q.TotalProducts != 3 || q.ActiveProducts != 2 {
		t.Errorf("unexpected product counts %d/%d", q.ActiveProducts, q.TotalProducts)
	}
	if len(q.Issues) < 2 {
		t.Errorf("expected issues for the missing tables, got %v", q.Issues)
	}
}

func TestOrchestratorConnectionFailureIsFatal(t *testing.T) {
	src := testSource()
	src.ConnectErr = errors.New("unauthorized")

	_, err := NewOrchestrator(src, testConfig()).Run(context.Background(), domain.DefaultThresholds())
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestOrchestratorRejectsInvalidThresholds(t *testing.T) {
	th := domain.DefaultThresholds()
	th.AccuracyUpper = th.AccuracyLower - 1

	if _, err := NewOrchestrator(testSource(), testConfig()).Run(context.Background(), th); err == nil {
		t.Fatal("expected an error for inverted accuracy band")
	}
}

func TestStrictPolicyEmptiesMalformedTable(t *testing.T) {
	src := testSource()
	src.Put(source.NewTable("PO", [][]string{
		{"sku_id", "Mar-25"},
		{"A", "n/a"},
		{"B", "70"},
	}))
	cfg := testConfig()
	cfg.Policy = Strict

	ds, err := NewOrchestrator(src, cfg).Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(ds.PO) != 0 {
		t.Errorf("strict policy should drop the malformed PO table, got %d rows", len(ds.PO))
	}
	for _, q := range ds.Tables {
		if q.Table == "PO" && (q.Loaded || q.Coercion.Invalid != 1) {
			t.Errorf("unexpected PO quality %+v", q)
		}
	}

	snap := Compute(ds, domain.DefaultThresholds(), cfg)
	if len(snap.MonthlyPerformance) != 0 {
		t.Errorf("no PO data should give no accuracy months, got %d", len(snap.MonthlyPerformance))
	}
}

func TestComputeIsRepeatableAcrossThresholds(t *testing.T) {
	cfg := testConfig()
	ds, err := NewOrchestrator(testSource(), cfg).Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	loose := domain.DefaultThresholds()
	loose.AccuracyLower = 60
	first := Compute(ds, loose, cfg)
	second := Compute(ds, domain.DefaultThresholds(), cfg)

	if first.MonthlyPerformance[0].Counts.Accurate != 2 {
		t.Errorf("60/120 band should count B as accurate, got %+v", first.MonthlyPerformance[0].Counts)
	}
	if second.MonthlyPerformance[0].Counts.Accurate != 1 {
		t.Errorf("default band should count only A as accurate, got %+v", second.MonthlyPerformance[0].Counts)
	}
}
