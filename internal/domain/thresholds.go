package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Thresholds holds every classification boundary used by the metric engines.
type Thresholds struct {
	AccuracyLower float64 `json:"accuracy_lower" validate:"gte=0"`
	AccuracyUpper float64 `json:"accuracy_upper" validate:"gtfield=AccuracyLower"`

	CoverLow      float64 `json:"cover_low" validate:"gte=0"`
	CoverHigh     float64 `json:"cover_high" validate:"gtfield=CoverLow"`
	CoverSentinel float64 `json:"cover_sentinel" validate:"gtfield=CoverHigh"`

	TrailingMonths int `json:"trailing_months" validate:"gte=1,lte=24"`

	MarginMedium float64 `json:"margin_medium" validate:"gte=0"`
	MarginHigh   float64 `json:"margin_high" validate:"gtfield=MarginMedium"`

	SeasonLow  float64 `json:"season_low" validate:"gt=0"`
	SeasonPeak float64 `json:"season_peak" validate:"gtfield=SeasonLow"`

	EOQOrderCost   float64 `json:"eoq_order_cost" validate:"gte=0"`
	EOQHoldingRate float64 `json:"eoq_holding_rate" validate:"gte=0,lte=1"`
}

// DefaultThresholds returns the boundaries used by the dashboard out of the box.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AccuracyLower:  80,
		AccuracyUpper:  120,
		CoverLow:       0.8,
		CoverHigh:      1.5,
		CoverSentinel:  999,
		TrailingMonths: 3,
		MarginMedium:   20,
		MarginHigh:     40,
		SeasonLow:      0.9,
		SeasonPeak:     1.2,
		EOQOrderCost:   50,
		EOQHoldingRate: 0.2,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks that every band is well ordered.
func (t Thresholds) Validate() error {
	if err := Validator().Struct(t); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	return nil
}

// Key renders the thresholds as a stable cache key fragment.
func (t Thresholds) Key() string {
	return fmt.Sprintf("acc=%g-%g|cov=%g-%g-%g|tm=%d|mg=%g-%g|ss=%g-%g|eoq=%g-%g",
		t.AccuracyLower, t.AccuracyUpper,
		t.CoverLow, t.CoverHigh, t.CoverSentinel,
		t.TrailingMonths,
		t.MarginMedium, t.MarginHigh,
		t.SeasonLow, t.SeasonPeak,
		t.EOQOrderCost, t.EOQHoldingRate,
	)
}

// ClassifyAccuracy maps a PO/forecast ratio (percent) to a status. Both band
// edges are inclusive on the accurate side.
func (t Thresholds) ClassifyAccuracy(ratio float64) AccuracyStatus {
	switch {
	case ratio < t.AccuracyLower:
		return AccuracyUnder
	case ratio > t.AccuracyUpper:
		return AccuracyOver
	default:
		return AccuracyAccurate
	}
}

// ClassifyCover maps months of cover to a stock status.
func (t Thresholds) ClassifyCover(cover float64) StockStatus {
	switch {
	case cover < t.CoverLow:
		return StockNeedReplenishment
	case cover > t.CoverHigh:
		return StockHigh
	default:
		return StockIdeal
	}
}

// ClassifySeason maps a seasonal index to a season label.
func (t Thresholds) ClassifySeason(index float64) SeasonStatus {
	switch {
	case index >= t.SeasonPeak:
		return SeasonPeak
	case index >= t.SeasonLow:
		return SeasonNormal
	default:
		return SeasonLow
	}
}

// ClassifyMargin maps a margin percentage to a profitability segment.
func (t Thresholds) ClassifyMargin(marginPct float64) MarginSegment {
	switch {
	case marginPct >= t.MarginHigh:
		return MarginHigh
	case marginPct >= t.MarginMedium:
		return MarginMedium
	case marginPct > 0:
		return MarginLow
	default:
		return MarginNegative
	}
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "_", " ")
}
