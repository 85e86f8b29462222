package source

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"

	"github.com/andresuchdata/invintel/internal/storage"
)

type flakySource struct {
	*Memory
	failures int
	calls    int
}

func (f *flakySource) Connect(ctx context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	return nil
}

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestConnectWithRetrySucceedsAfterFailures(t *testing.T) {
	src := &flakySource{Memory: NewMemory(), failures: 2}
	var waits []time.Duration
	policy := DefaultRetryPolicy()
	policy.Sleep = noSleep(&waits)

	if err := ConnectWithRetry(context.Background(), src, policy); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if src.calls != 3 {
		t.Errorf("expected 3 connect calls, got %d", src.calls)
	}
	if diff := cmp.Diff([]time.Duration{4 * time.Second, 8 * time.Second}, waits); diff != "" {
		t.Errorf("unexpected backoff (-want +got):\n%s", diff)
	}
}

func TestConnectWithRetryGivesUpAfterThreeAttempts(t *testing.T) {
	src := &flakySource{Memory: NewMemory(), failures: 10}
	var waits []time.Duration
	policy := DefaultRetryPolicy()
	policy.Sleep = noSleep(&waits)

	err := ConnectWithRetry(context.Background(), src, policy)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if src.calls != 3 {
		t.Errorf("expected 3 connect calls, got %d", src.calls)
	}
	if len(waits) != 2 {
		t.Errorf("expected 2 waits between 3 attempts, got %d", len(waits))
	}
}

func TestRetryDelayIsCapped(t *testing.T) {
	p := DefaultRetryPolicy()
	want := []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Errorf("delay %d expected %s, got %s", i+1, w, got)
		}
	}
}

func TestNewTableSkipsBlankRowsAndTrimsHeader(t *testing.T) {
	tbl := NewTable("Sales", [][]string{
		{" SKU ID ", "Jan-25"},
		{"A", "1"},
		{"", " "},
		{"B", "2"},
	})
	if diff := cmp.Diff([]string{"SKU ID", "Jan-25"}, tbl.Header); diff != "" {
		t.Errorf("header mismatch:\n%s", diff)
	}
	if len(tbl.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if idx := tbl.ColIndex("sku_id"); idx != 0 {
		t.Errorf("expected sku_id alias at 0, got %d", idx)
	}
	if tbl.Cell([]string{"x"}, 3) != "" {
		t.Errorf("short rows should read as blank")
	}
}

func TestCSVDirRoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := "\ufeffsku_id,Jan-25,Feb-25\nA,\"1,200\",3\nB,,4\n"
	if err := os.WriteFile(filepath.Join(dir, "Sales.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewCSVDir(dir)
	if err := src.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	names, err := src.ListTables(context.Background())
	if err != nil || len(names) != 1 || names[0] != "Sales" {
		t.Fatalf("unexpected tables %v (%v)", names, err)
	}

	tbl, err := src.FetchTable(context.Background(), "Sales")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if tbl.Header[0] != "sku_id" {
		t.Errorf("BOM not stripped from header: %q", tbl.Header[0])
	}
	if tbl.Rows[0][1] != "1,200" {
		t.Errorf("quoted cell not preserved, got %q", tbl.Rows[0][1])
	}

	if _, err := src.FetchTable(context.Background(), "PO"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestXLSXWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	data, err := WorkbookBytes(
		NewTable("Product_Master", [][]string{{"sku_id", "status"}, {"A", "Active"}}),
		NewTable("Stock_Onhand", [][]string{{"sku_id", "stock_qty"}, {"A", "10"}, {"A", "5"}}),
	)
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewXLSX(path)
	if _, err := src.FetchTable(context.Background(), "Stock_Onhand"); err == nil {
		t.Errorf("expected error before connect")
	}
	if err := src.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer src.Close()

	names, _ := src.ListTables(context.Background())
	if diff := cmp.Diff([]string{"Product_Master", "Stock_Onhand"}, names); diff != "" {
		t.Errorf("sheet list mismatch:\n%s", diff)
	}

	tbl, err := src.FetchTable(context.Background(), "stock_onhand")
	if err != nil {
		t.Fatalf("case-insensitive sheet lookup failed: %v", err)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[1][1] != "5" {
		t.Errorf("unexpected rows %v", tbl.Rows)
	}
	if _, err := src.FetchTable(context.Background(), "Missing"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return b, nil
}

func (m *memStore) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	return nil
}

func TestObjectSourceReadsWorkbookFromBucket(t *testing.T) {
	data, err := WorkbookBytes(NewTable("PO", [][]string{{"sku_id", "Jan-25"}, {"A", "7"}}))
	if err != nil {
		t.Fatal(err)
	}
	store := &memStore{objects: map[string][]byte{"inventory.xlsx": data}}

	src := NewObject(store, "inventory.xlsx")
	if err := src.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	tbl, err := src.FetchTable(context.Background(), "PO")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if tbl.Rows[0][1] != "7" {
		t.Errorf("unexpected cell %q", tbl.Rows[0][1])
	}

	missing := NewObject(store, "other.xlsx")
	if err := missing.Connect(context.Background()); err == nil {
		t.Errorf("expected connect error for missing object")
	}
}

func TestHandlerServesTablesAsCSV(t *testing.T) {
	mem := NewMemory(NewTable("Sales", [][]string{{"sku_id", "Jan-25"}, {"A", "3"}}))
	h := NewHandler(mem, DefaultRetryPolicy())
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/source/tables", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Sales"`) {
		t.Errorf("unexpected list response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/source/tables/Sales", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "sku_id,Jan-25\nA,3\n" {
		t.Errorf("unexpected csv body %q", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/source/tables/PO", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing table, got %d", rec.Code)
	}
}

func TestReadCSVRaggedRows(t *testing.T) {
	tbl, err := ReadCSV("t", bytes.NewBufferString("a,b,c\n1\n2,3,4,5\n"))
	if err != nil {
		t.Fatalf("ragged csv should parse: %v", err)
	}
	recs := tbl.Records()
	if len(recs[1]) != 3 {
		t.Errorf("short row should be padded to header width, got %v", recs[1])
	}
}
