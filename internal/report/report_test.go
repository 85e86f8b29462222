package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/storage"
)

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		v        float64
		decimals int
		want     string
	}{
		{1234.5, 2, "1.234,50"},
		{1000, 2, "1.000"},
		{3150000, 0, "3.150.000"},
		{999, 0, "999"},
		{-1234567.891, 1, "-1.234.567,9"},
		{-0.001, 2, "0"},
		{0.05, 1, "0,1"},
	}
	for _, tc := range cases {
		if got := FormatNumber(tc.v, tc.decimals); got != tc.want {
			t.Errorf("FormatNumber(%v, %d) expected %s, got %s", tc.v, tc.decimals, tc.want, got)
		}
	}

	if got := FormatRupiah(1230000); got != "Rp 1.230.000" {
		t.Errorf("FormatRupiah expected Rp 1.230.000, got %s", got)
	}
	if got := FormatPercent(85); got != "85%" {
		t.Errorf("FormatPercent expected 85%%, got %s", got)
	}
	if got := Round(2.346, 2); got != 2.35 {
		t.Errorf("Round expected 2.35, got %v", got)
	}
}

func testSnapshot() *domain.Snapshot {
	march := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Snapshot{
		RunID:       "run-42",
		Source:      "memory",
		GeneratedAt: time.Date(2025, time.April, 2, 8, 0, 0, 0, time.UTC),
		Summary: domain.DashboardSummary{
			LatestMonth:    march,
			LatestAccuracy: 85,
			ActiveSKUs:     2,
			TotalRevenue:   3150000,
			TotalMargin:    1230000,
		},
		MonthlyPerformance: []domain.MonthlyPerformance{
			{Month: march, AccuracyPct: 85, TotalSKUs: 2, Counts: domain.StatusCounts{Accurate: 1, Under: 1}},
		},
		Inventory: []domain.InventoryMetricRow{
			{SKU: "A", Product: &domain.ProductRecord{ProductName: "Alpha", Brand: "BrandX"}, StockQty: 300, AvgMonthlySales: 100, CoverMonths: 3, Status: domain.StockHigh},
		},
		Fulfillment: domain.FulfillmentSummary{
			ComponentTotals: map[string]float64{"packing": 10, "delivery": 20},
			Months: []domain.FulfillmentMonth{
				{Month: march, TotalCost: 30, Components: map[string]float64{"packing": 10, "delivery": 20}},
			},
		},
		DataQuality: domain.DataQuality{
			Tables: []domain.TableQuality{{Table: "Sales", Loaded: true, Rows: 4}},
			Issues: []string{"table Fulfillment_Cost not loaded"},
		},
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, testSnapshot()); err != nil {
		t.Fatalf("WriteSummary returned error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"run-42", "2025-03", "Rp 3.150.000", "85%", "table Fulfillment_Cost not loaded"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestTables(t *testing.T) {
	tables := Tables(testSnapshot())
	if len(tables) != 10 {
		t.Fatalf("expected 10 tables, got %d", len(tables))
	}

	byName := make(map[string]int)
	for i, tb := range tables {
		byName[tb.Name] = i
	}
	inv := tables[byName["inventory"]]
	if len(inv.Rows) != 1 || inv.Rows[0][1] != "Alpha" || inv.Rows[0][7] != "High Stock" {
		t.Errorf("unexpected inventory rows %v", inv.Rows)
	}

	ful := tables[byName["fulfillment"]]
	wantHeader := "month,total_cost,sales_qty,cost_per_unit,delivery,packing"
	if got := strings.Join(ful.Header, ","); got != wantHeader {
		t.Errorf("fulfillment header expected %s, got %s", wantHeader, got)
	}
	if ful.Rows[0][4] != "20" || ful.Rows[0][5] != "10" {
		t.Errorf("unexpected fulfillment row %v", ful.Rows[0])
	}
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeStore) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (f *fakeStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key], nil
}

func (f *fakeStore) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	return nil
}

func TestExportWritesAndUploads(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{}

	paths, err := NewExporter(dir, store, "exports").Export(context.Background(), testSnapshot())
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if len(paths) != 10 {
		t.Fatalf("expected 10 files, got %d", len(paths))
	}

	data, err := os.ReadFile(filepath.Join(dir, "run-42", "inventory.csv"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "sku,product_name,brand,tier,") {
		t.Errorf("unexpected csv header: %s", data)
	}

	uploaded, _ := store.GetObject(context.Background(), "exports/run-42/inventory.csv")
	if !bytes.Equal(uploaded, data) {
		t.Errorf("uploaded object should match the local file")
	}
	if len(store.objects) != 10 {
		t.Errorf("expected 10 uploads, got %d", len(store.objects))
	}
}

func TestExportUploadFailure(t *testing.T) {
	boom := errors.New("bucket gone")
	paths, err := NewExporter(t.TempDir(), &fakeStore{err: boom}, "").Export(context.Background(), testSnapshot())
	if !errors.Is(err, boom) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if len(paths) != 10 {
		t.Errorf("local files should still be reported, got %d", len(paths))
	}
}
