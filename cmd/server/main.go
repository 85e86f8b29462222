package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/invintel/internal/api"
	"github.com/andresuchdata/invintel/internal/cache"
	"github.com/andresuchdata/invintel/internal/config"
	"github.com/andresuchdata/invintel/internal/pipeline"
	"github.com/andresuchdata/invintel/internal/repository/postgres"
	"github.com/andresuchdata/invintel/internal/service"
	"github.com/andresuchdata/invintel/internal/source"
	"github.com/andresuchdata/invintel/internal/storage"
	"github.com/andresuchdata/invintel/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.LogLevel)
	if cfg.Server.LogJSON {
		logger.UseJSON(os.Stdout)
	}
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.FromConfig(cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}

	src, err := source.New(cfg.Source, store)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize data source")
	}

	pipelineCfg, err := pipeline.PipelineConfigFrom(cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid pipeline configuration")
	}
	orchestrator := pipeline.NewOrchestrator(src, pipelineCfg)

	snapshotCache, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Snapshot cache unavailable, continuing without cache")
		snapshotCache = cache.NewNoopCache()
	}

	var runs service.RunStore
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnsureSchema(ctx); err != nil {
			cancel()
			logger.Log.Fatal().Err(err).Msg("Failed to prepare database schema")
		}
		repo := pipeline.NewRepository(db.DB)
		if stats, err := repo.GetRunStats(ctx, time.Now().Add(-24*time.Hour)); err == nil {
			logger.Log.Info().Int64("runs", stats.Runs).Int64("failed", stats.Failed).Msg("Refresh runs in the last 24h")
		}
		cancel()
		runs = repo
	}

	dashboardService := service.NewDashboardService(orchestrator, snapshotCache, runs, cfg.Pipeline.Thresholds())
	router := api.NewRouter(&api.Services{DashboardService: dashboardService}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("source", src.Name()).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
