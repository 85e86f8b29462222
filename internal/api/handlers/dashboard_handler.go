package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/pipeline/forecast"
	"github.com/andresuchdata/invintel/internal/pipeline/stock_health"
	"github.com/andresuchdata/invintel/internal/service"
	"github.com/andresuchdata/invintel/internal/source"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type DashboardHandler struct {
	service *service.DashboardService
}

func NewDashboardHandler(service *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// parseThresholds starts from the configured thresholds and applies any query
// overrides, e.g. ?accuracy_lower=70&cover_high=2.
func (h *DashboardHandler) parseThresholds(c *gin.Context) (domain.Thresholds, error) {
	th := h.service.DefaultThresholds()

	floats := map[string]*float64{
		"accuracy_lower":   &th.AccuracyLower,
		"accuracy_upper":   &th.AccuracyUpper,
		"cover_low":        &th.CoverLow,
		"cover_high":       &th.CoverHigh,
		"margin_medium":    &th.MarginMedium,
		"margin_high":      &th.MarginHigh,
		"season_low":       &th.SeasonLow,
		"season_peak":      &th.SeasonPeak,
		"eoq_order_cost":   &th.EOQOrderCost,
		"eoq_holding_rate": &th.EOQHoldingRate,
	}
	for param, dst := range floats {
		value := strings.TrimSpace(c.Query(param))
		if value == "" {
			continue
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return th, fmt.Errorf("%s must be a number", param)
		}
		*dst = f
	}

	if value := strings.TrimSpace(c.Query("trailing_months")); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return th, fmt.Errorf("trailing_months must be an integer")
		}
		th.TrailingMonths = n
	}

	return th, th.Validate()
}

// snapshot resolves the thresholds and loads the matching snapshot. On
// failure it writes the error response and returns false.
func (h *DashboardHandler) snapshot(c *gin.Context) (*domain.Snapshot, domain.Thresholds, bool) {
	th, err := h.parseThresholds(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thresholds", "details": err.Error()})
		return nil, th, false
	}

	snap, err := h.service.GetSnapshot(c.Request.Context(), th)
	if err != nil {
		writeRefreshError(c, err)
		return nil, th, false
	}
	return snap, th, true
}

func writeRefreshError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, source.ErrSourceUnavailable) {
		status = http.StatusServiceUnavailable
	}
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("dashboard: refresh failed")
	c.JSON(status, gin.H{"error": "failed to load dashboard data", "details": err.Error()})
}

type page struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

func parsePage(c *gin.Context, total int) (page, int, int) {
	p := page{Page: 1, PageSize: defaultPageSize, Total: total}
	if n, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize))); err == nil && n > 0 {
		p.PageSize = min(n, maxPageSize)
	}

	// compare before multiplying so a huge page cannot overflow the offset
	start := total
	if p.Page-1 <= total/p.PageSize {
		start = min((p.Page-1)*p.PageSize, total)
	}
	end := start + min(p.PageSize, total-start)
	return p, start, end
}

func (h *DashboardHandler) GetSummary(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":       snap.RunID,
		"source":       snap.Source,
		"generated_at": snap.GeneratedAt,
		"thresholds":   snap.Thresholds,
		"summary":      snap.Summary,
	})
}

func (h *DashboardHandler) GetMonthlyPerformance(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.MonthlyPerformance)
}

func (h *DashboardHandler) GetRecentPerformance(c *gin.Context) {
	snap, th, ok := h.snapshot(c)
	if !ok {
		return
	}
	if value := strings.TrimSpace(c.Query("months")); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "months must be a positive integer"})
			return
		}
		c.JSON(http.StatusOK, forecast.RecentMonths(snap.MonthlyPerformance, n, th))
		return
	}
	c.JSON(http.StatusOK, snap.RecentPerformance)
}

func (h *DashboardHandler) GetForecastBias(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.ForecastBias)
}

func (h *DashboardHandler) GetBrands(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Brands)
}

func (h *DashboardHandler) GetTiers(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Tiers)
}

func (h *DashboardHandler) GetSalesVsPlan(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.SalesVsPlan)
}

func (h *DashboardHandler) GetInventory(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}

	rows := snap.Inventory
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, known := domain.ParseStockStatus(raw)
		if !known {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status", "details": raw})
			return
		}
		rows = stock_health.FilterByStatus(rows, status)
	}

	p, start, end := parsePage(c, len(rows))
	c.JSON(http.StatusOK, gin.H{
		"items":     rows[start:end],
		"page":      p.Page,
		"page_size": p.PageSize,
		"total":     p.Total,
	})
}

func (h *DashboardHandler) GetInventoryHealth(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.InventoryHealth)
}

func (h *DashboardHandler) GetEOQ(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	p, start, end := parsePage(c, len(snap.EOQ))
	c.JSON(http.StatusOK, gin.H{
		"items":     snap.EOQ[start:end],
		"page":      p.Page,
		"page_size": p.PageSize,
		"total":     p.Total,
	})
}

func (h *DashboardHandler) GetFinancials(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	p, start, end := parsePage(c, len(snap.Financials))
	c.JSON(http.StatusOK, gin.H{
		"summary":   snap.FinancialSummary,
		"items":     snap.Financials[start:end],
		"page":      p.Page,
		"page_size": p.PageSize,
		"total":     p.Total,
	})
}

func (h *DashboardHandler) GetInventoryFinancials(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	p, start, end := parsePage(c, len(snap.InventoryFinancial))
	c.JSON(http.StatusOK, gin.H{
		"valuation": snap.InventoryValuation,
		"items":     snap.InventoryFinancial[start:end],
		"page":      p.Page,
		"page_size": p.PageSize,
		"total":     p.Total,
	})
}

func (h *DashboardHandler) GetSeasonality(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Seasonality)
}

func (h *DashboardHandler) GetProfitability(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}

	rows := snap.Profitability
	if seg := strings.TrimSpace(c.Query("segment")); seg != "" {
		filtered := make([]domain.ProfitabilitySegment, 0, len(rows))
		for _, r := range rows {
			if strings.EqualFold(string(r.Segment), seg) || strings.EqualFold(strings.TrimSuffix(string(r.Segment), " Margin"), seg) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	p, start, end := parsePage(c, len(rows))
	c.JSON(http.StatusOK, gin.H{
		"segments":  snap.Segments,
		"items":     rows[start:end],
		"page":      p.Page,
		"page_size": p.PageSize,
		"total":     p.Total,
	})
}

func (h *DashboardHandler) GetChannels(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Channels)
}

func (h *DashboardHandler) GetFulfillment(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Fulfillment)
}

func (h *DashboardHandler) GetDataQuality(c *gin.Context) {
	snap, _, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.DataQuality)
}

func (h *DashboardHandler) Refresh(c *gin.Context) {
	th, err := h.parseThresholds(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thresholds", "details": err.Error()})
		return
	}

	snap, err := h.service.Refresh(c.Request.Context(), th)
	if err != nil {
		writeRefreshError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":       snap.RunID,
		"generated_at": snap.GeneratedAt,
		"issues":       snap.DataQuality.Issues,
	})
}

func (h *DashboardHandler) GetRefreshRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if errors.Is(err, service.ErrRunHistoryDisabled) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch refresh runs", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *DashboardHandler) GetRefreshRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrRunHistoryDisabled) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch refresh run", "details": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}
