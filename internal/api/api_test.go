package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/andresuchdata/invintel/internal/cache"
	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/service"
	"github.com/andresuchdata/invintel/internal/source"
)

type stubRefresher struct {
	err      error
	lastSeen domain.Thresholds
}

func (s *stubRefresher) Source() string { return "stub" }

func (s *stubRefresher) Run(ctx context.Context, th domain.Thresholds) (*domain.Snapshot, error) {
	s.lastSeen = th
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Snapshot{
		Thresholds: th,
		Summary:    domain.DashboardSummary{ActiveSKUs: 3},
		Inventory: []domain.InventoryMetricRow{
			{SKU: "A", Status: domain.StockHigh},
			{SKU: "B", Status: domain.StockIdeal},
			{SKU: "C", Status: domain.StockHigh},
		},
		Profitability: []domain.ProfitabilitySegment{
			{SKU: "A", Segment: domain.MarginHigh},
			{SKU: "B", Segment: domain.MarginLow},
		},
	}, nil
}

func newTestRouter(ref *stubRefresher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewDashboardService(ref, cache.NewMemoryCache(8, 0), nil, domain.DefaultThresholds())
	return NewRouter(&Services{DashboardService: svc}, nil)
}

func do(t *testing.T, router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestRouter(&stubRefresher{}), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz expected 200, got %d", rec.Code)
	}
}

func TestInventoryStatusFilterAndPaging(t *testing.T) {
	router := newTestRouter(&stubRefresher{})
	rec := do(t, router, http.MethodGet, "/api/v1/dashboard/inventory?status=high&page_size=1&page=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Items []domain.InventoryMetricRow `json:"items"`
		Total int                         `json:"total"`
		Page  int                         `json:"page"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || body.Page != 2 || len(body.Items) != 1 || body.Items[0].SKU != "C" {
		t.Errorf("unexpected page %+v", body)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/dashboard/inventory?status=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status expected 400, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/dashboard/inventory?page=99")
	if rec.Code != http.StatusOK {
		t.Errorf("page past the end should still succeed, got %d", rec.Code)
	}
}

func TestHugePageReturnsEmptyItems(t *testing.T) {
	router := newTestRouter(&stubRefresher{})
	for _, path := range []string{
		"/api/v1/dashboard/inventory?page=9223372036854775807&page_size=500",
		"/api/v1/dashboard/inventory/eoq?page=9223372036854775807",
		"/api/v1/dashboard/profitability?page=4611686018427387904&page_size=2",
	} {
		rec := do(t, router, http.MethodGet, path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s expected 200, got %d: %s", path, rec.Code, rec.Body.String())
			continue
		}
		var body struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Items) != 0 {
			t.Errorf("%s expected no items, got %d", path, len(body.Items))
		}
	}
}

func TestThresholdOverrides(t *testing.T) {
	ref := &stubRefresher{}
	router := newTestRouter(ref)

	rec := do(t, router, http.MethodGet, "/api/v1/dashboard/summary?accuracy_lower=70&cover_high=2&trailing_months=6")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := domain.DefaultThresholds()
	want.AccuracyLower = 70
	want.CoverHigh = 2
	want.TrailingMonths = 6
	if diff := cmp.Diff(want, ref.lastSeen); diff != "" {
		t.Errorf("thresholds mismatch (-want +got):\n%s", diff)
	}

	for _, q := range []string{"accuracy_lower=abc", "accuracy_lower=130", "trailing_months=1.5"} {
		rec := do(t, router, http.MethodGet, "/api/v1/dashboard/summary?"+q)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s expected 400, got %d", q, rec.Code)
		}
	}
}

func TestProfitabilitySegmentFilter(t *testing.T) {
	rec := do(t, newTestRouter(&stubRefresher{}), http.MethodGet, "/api/v1/dashboard/profitability?segment=low")
	var body struct {
		Items []domain.ProfitabilitySegment `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].SKU != "B" {
		t.Errorf("expected only B for segment=low, got %+v", body.Items)
	}
}

func TestSourceUnavailableIs503(t *testing.T) {
	ref := &stubRefresher{err: fmt.Errorf("%w: sheets: timeout", source.ErrSourceUnavailable)}
	rec := do(t, newTestRouter(ref), http.MethodGet, "/api/v1/dashboard/summary")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestRefreshAndRunHistory(t *testing.T) {
	router := newTestRouter(&stubRefresher{})

	rec := do(t, router, http.MethodPost, "/api/v1/dashboard/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/api/v1/dashboard/refresh_runs")
	if rec.Code != http.StatusNotFound {
		t.Errorf("run history without a store expected 404, got %d", rec.Code)
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	if all || len(origins) != 2 {
		t.Errorf("unexpected origins %v all=%v", origins, all)
	}
	if _, all := normalizeAllowedOrigins([]string{"*"}); !all {
		t.Errorf("* should allow all origins")
	}
}
