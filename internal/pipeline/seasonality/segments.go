package seasonality

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/invintel/internal/domain"
)

// segmentOrder is the display order of the summary.
var segmentOrder = []domain.MarginSegment{
	domain.MarginHigh,
	domain.MarginMedium,
	domain.MarginLow,
	domain.MarginNegative,
}

// Segment aggregates financial rows per SKU and assigns a margin segment.
// Results are sorted by revenue, highest first.
func Segment(rows []domain.FinancialRow, th domain.Thresholds) []domain.ProfitabilitySegment {
	index := make(map[string]int)
	out := make([]domain.ProfitabilitySegment, 0)
	for _, r := range rows {
		i, ok := index[r.SKU]
		if !ok {
			i = len(out)
			index[r.SKU] = i
			out = append(out, domain.ProfitabilitySegment{SKU: r.SKU, Product: r.Product})
		}
		out[i].Revenue += r.Revenue
		out[i].Cost += r.Cost
		out[i].Margin += r.Margin
		out[i].Quantity += r.Quantity
	}

	for i := range out {
		if out[i].Revenue != 0 {
			out[i].MarginPct = out[i].Margin / out[i].Revenue * 100
		}
		out[i].Segment = th.ClassifyMargin(out[i].MarginPct)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

// SummarizeSegments counts SKUs and totals revenue per segment. Every segment
// is present even when empty.
func SummarizeSegments(segments []domain.ProfitabilitySegment) []domain.SegmentSummary {
	revenue := make(map[domain.MarginSegment]decimal.Decimal, len(segmentOrder))
	margin := make(map[domain.MarginSegment]decimal.Decimal, len(segmentOrder))
	counts := make(map[domain.MarginSegment]int, len(segmentOrder))
	total := decimal.Zero

	for _, s := range segments {
		rev := decimal.NewFromFloat(s.Revenue)
		revenue[s.Segment] = revenue[s.Segment].Add(rev)
		margin[s.Segment] = margin[s.Segment].Add(decimal.NewFromFloat(s.Margin))
		counts[s.Segment]++
		total = total.Add(rev)
	}

	out := make([]domain.SegmentSummary, 0, len(segmentOrder))
	for _, seg := range segmentOrder {
		sum := domain.SegmentSummary{
			Segment:  seg,
			SKUCount: counts[seg],
			Revenue:  revenue[seg].InexactFloat64(),
			Margin:   margin[seg].InexactFloat64(),
		}
		if !total.IsZero() {
			sum.RevenueShare = revenue[seg].Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		out = append(out, sum)
	}
	return out
}
