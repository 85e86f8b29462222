package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/invintel/internal/config"
	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/source"
)

// PipelineConfig holds everything one refresh cycle needs besides the source
// and the thresholds.
type PipelineConfig struct {
	Tables              config.TableNames
	Policy              CoercionPolicy
	Retry               source.RetryPolicy
	FetchConcurrency    int // Number of tables fetched at once
	ChannelTopN         int // SKUs listed per channel forecast
	RecentMonths        int // Window of the recent performance report
	MaxCoercionExamples int // Examples kept per table in the quality report
	Now                 func() time.Time
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Tables: config.TableNames{
			ProductMaster:     "Product_Master",
			Sales:             "Sales",
			Rofo:              "Rofo",
			PO:                "PO",
			StockOnhand:       "Stock_Onhand",
			ForecastEcommerce: "Forecast_Ecommerce",
			ForecastReseller:  "Forecast_Reseller",
			FulfillmentCost:   "Fulfillment_Cost",
		},
		Policy:              DefaultZero,
		Retry:               source.DefaultRetryPolicy(),
		FetchConcurrency:    4,
		ChannelTopN:         10,
		RecentMonths:        3,
		MaxCoercionExamples: 5,
		Now:                 time.Now,
	}
}

// PipelineConfigFrom builds the refresh settings from the application config.
func PipelineConfigFrom(cfg *config.Config) (PipelineConfig, error) {
	policy, err := ParseCoercionPolicy(cfg.Pipeline.CoercionPolicy)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("pipeline config: %w", err)
	}

	pc := DefaultPipelineConfig()
	pc.Tables = cfg.Tables
	pc.Policy = policy
	pc.Retry = source.PolicyFromConfig(cfg.Source)
	if cfg.Source.FetchConcurrency > 0 {
		pc.FetchConcurrency = cfg.Source.FetchConcurrency
	}
	if cfg.Pipeline.ChannelTopN > 0 {
		pc.ChannelTopN = cfg.Pipeline.ChannelTopN
	}
	if cfg.Pipeline.RecentMonths > 0 {
		pc.RecentMonths = cfg.Pipeline.RecentMonths
	}
	pc.MaxCoercionExamples = cfg.Pipeline.MaxCoercionExamples
	return pc, nil
}

func (c PipelineConfig) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// RunStatus represents the current state of a refresh run
type RunStatus string

const (
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// RefreshRun tracks a single refresh cycle
type RefreshRun struct {
	ID           string     `db:"id" json:"id"`
	Source       string     `db:"source" json:"source"`
	Status       RunStatus  `db:"status" json:"status"`
	ThresholdKey string     `db:"threshold_key" json:"threshold_key"`
	TablesLoaded int        `db:"tables_loaded" json:"tables_loaded"`
	FailedTables []string   `db:"-" json:"failed_tables"`
	TotalRows    int        `db:"total_rows" json:"total_rows"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
}

// NewRefreshRun starts a run record with a fresh id.
func NewRefreshRun(sourceName string, th domain.Thresholds, now time.Time) *RefreshRun {
	return &RefreshRun{
		ID:           uuid.NewString(),
		Source:       sourceName,
		Status:       StatusProcessing,
		ThresholdKey: th.Key(),
		StartedAt:    now,
	}
}

// Complete marks the run finished from the snapshot's quality report.
func (r *RefreshRun) Complete(snap *domain.Snapshot, now time.Time) {
	r.Status = StatusCompleted
	r.CompletedAt = &now
	r.TablesLoaded = 0
	r.TotalRows = 0
	r.FailedTables = []string{}
	for _, t := range snap.DataQuality.Tables {
		if t.Loaded {
			r.TablesLoaded++
			r.TotalRows += t.Rows
		} else {
			r.FailedTables = append(r.FailedTables, t.Table)
		}
	}
}

// Fail marks the run failed.
func (r *RefreshRun) Fail(err error, now time.Time) {
	r.Status = StatusFailed
	r.CompletedAt = &now
	r.ErrorMessage = err.Error()
}

// RunStats holds refresh history metrics for monitoring
type RunStats struct {
	Runs            int64      `db:"runs" json:"runs"`
	Failed          int64      `db:"failed" json:"failed"`
	LastCompletedAt *time.Time `db:"last_completed_at" json:"last_completed_at,omitempty"`
}
