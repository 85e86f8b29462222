package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/invintel/internal/api/handlers"
	"github.com/andresuchdata/invintel/internal/api/middleware"
	"github.com/andresuchdata/invintel/internal/service"
)

type Services struct {
	DashboardService *service.DashboardService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.DashboardService != nil {
		dashboardHandler := handlers.NewDashboardHandler(services.DashboardService)
		dashboardGroup := apiGroup.Group("/dashboard")
		{
			dashboardGroup.GET("/summary", dashboardHandler.GetSummary)
			dashboardGroup.GET("/monthly_performance", dashboardHandler.GetMonthlyPerformance)
			dashboardGroup.GET("/recent_performance", dashboardHandler.GetRecentPerformance)
			dashboardGroup.GET("/forecast_bias", dashboardHandler.GetForecastBias)
			dashboardGroup.GET("/brands", dashboardHandler.GetBrands)
			dashboardGroup.GET("/tiers", dashboardHandler.GetTiers)
			dashboardGroup.GET("/sales_vs_plan", dashboardHandler.GetSalesVsPlan)
			dashboardGroup.GET("/channels", dashboardHandler.GetChannels)

			dashboardGroup.GET("/inventory", dashboardHandler.GetInventory)
			dashboardGroup.GET("/inventory/health", dashboardHandler.GetInventoryHealth)
			dashboardGroup.GET("/inventory/eoq", dashboardHandler.GetEOQ)

			dashboardGroup.GET("/financials", dashboardHandler.GetFinancials)
			dashboardGroup.GET("/financials/inventory", dashboardHandler.GetInventoryFinancials)
			dashboardGroup.GET("/seasonality", dashboardHandler.GetSeasonality)
			dashboardGroup.GET("/profitability", dashboardHandler.GetProfitability)
			dashboardGroup.GET("/fulfillment", dashboardHandler.GetFulfillment)

			dashboardGroup.GET("/data_quality", dashboardHandler.GetDataQuality)
			dashboardGroup.POST("/refresh", dashboardHandler.Refresh)
			dashboardGroup.GET("/refresh_runs", dashboardHandler.GetRefreshRuns)
			dashboardGroup.GET("/refresh_runs/:id", dashboardHandler.GetRefreshRun)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
