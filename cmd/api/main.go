package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/andresuchdata/invintel/internal/config"
	"github.com/andresuchdata/invintel/internal/source"
	"github.com/andresuchdata/invintel/internal/storage"
	"github.com/andresuchdata/invintel/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.LogLevel)

	store, err := storage.FromConfig(cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}

	src, err := source.New(cfg.Source, store)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize data source")
	}

	r := mux.NewRouter()

	sourceHandler := source.NewHandler(src, source.PolicyFromConfig(cfg.Source))
	sourceHandler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info().Str("addr", addr).Str("source", src.Name()).Msg("Source inspector starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("Source inspector stopped")
	}
}
