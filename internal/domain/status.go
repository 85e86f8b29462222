package domain

// AccuracyStatus classifies a PO/forecast ratio.
type AccuracyStatus string

const (
	AccuracyUnder    AccuracyStatus = "Under"
	AccuracyAccurate AccuracyStatus = "Accurate"
	AccuracyOver     AccuracyStatus = "Over"
)

// StockStatus classifies months of cover.
type StockStatus string

const (
	StockNeedReplenishment StockStatus = "Need Replenishment"
	StockIdeal             StockStatus = "Ideal/Healthy"
	StockHigh              StockStatus = "High Stock"
)

// SeasonStatus classifies a seasonal index.
type SeasonStatus string

const (
	SeasonPeak   SeasonStatus = "Peak Season"
	SeasonNormal SeasonStatus = "Normal Season"
	SeasonLow    SeasonStatus = "Low Season"
)

// MarginSegment classifies a SKU by margin percentage.
type MarginSegment string

const (
	MarginHigh     MarginSegment = "High Margin"
	MarginMedium   MarginSegment = "Medium Margin"
	MarginLow      MarginSegment = "Low Margin"
	MarginNegative MarginSegment = "Negative Margin"
)

// BiasDirection labels the sign of an average forecast bias.
type BiasDirection string

const (
	BiasOverForecast  BiasDirection = "Over-forecasting"
	BiasUnderForecast BiasDirection = "Under-forecasting"
	BiasBalanced      BiasDirection = "Balanced"
)

var stockStatuses = map[string]StockStatus{
	"need replenishment": StockNeedReplenishment,
	"replenish":          StockNeedReplenishment,
	"ideal/healthy":      StockIdeal,
	"ideal":              StockIdeal,
	"healthy":            StockIdeal,
	"high stock":         StockHigh,
	"high":               StockHigh,
}

// ParseStockStatus resolves a status filter value (case-insensitive, short forms allowed).
func ParseStockStatus(label string) (StockStatus, bool) {
	s, ok := stockStatuses[normalizeLabel(label)]
	return s, ok
}

var accuracyStatuses = map[string]AccuracyStatus{
	"under":    AccuracyUnder,
	"accurate": AccuracyAccurate,
	"over":     AccuracyOver,
}

// ParseAccuracyStatus resolves an accuracy status label (case-insensitive).
func ParseAccuracyStatus(label string) (AccuracyStatus, bool) {
	s, ok := accuracyStatuses[normalizeLabel(label)]
	return s, ok
}
