package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Handler exposes the raw source tables for inspection.
type Handler struct {
	src    Source
	policy RetryPolicy
}

func NewHandler(src Source, policy RetryPolicy) *Handler {
	return &Handler{src: src, policy: policy}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/source/tables", h.ListTables).Methods("GET")
	router.HandleFunc("/api/source/tables/{name}", h.DownloadTable).Methods("GET")
	router.HandleFunc("/api/source/reconnect", h.Reconnect).Methods("POST")
}

type tableListResponse struct {
	Source string   `json:"source"`
	Tables []string `json:"tables"`
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.src.ListTables(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tableListResponse{Source: h.src.Name(), Tables: tables})
}

func (h *Handler) DownloadTable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	t, err := h.src.FetchTable(r.Context(), name)
	if errors.Is(err, ErrTableNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
	if err := WriteCSV(w, t); err != nil {
		log.Error().Err(err).Str("table", name).Msg("source: write csv failed")
	}
}

func (h *Handler) Reconnect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := ConnectWithRetry(r.Context(), h.src, h.policy); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "connected",
		"source":   h.src.Name(),
		"duration": time.Since(start).String(),
	})
}
