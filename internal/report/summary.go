package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/pipeline"
)

// WriteSummary prints a plain-text overview of a snapshot for terminal use.
func WriteSummary(w io.Writer, snap *domain.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	s := snap.Summary
	lines := []string{
		fmt.Sprintf("Run\t%s", snap.RunID),
		fmt.Sprintf("Source\t%s", snap.Source),
		fmt.Sprintf("Generated\t%s", snap.GeneratedAt.Format("2006-01-02 15:04:05")),
		"",
		fmt.Sprintf("Active SKUs\t%s", FormatNumber(float64(s.ActiveSKUs), 0)),
		fmt.Sprintf("Latest month\t%s", monthOrDash(snap)),
		fmt.Sprintf("Latest accuracy\t%s", FormatPercent(s.LatestAccuracy)),
		fmt.Sprintf("Recent accuracy\t%s", FormatPercent(s.RecentAccuracy)),
		fmt.Sprintf("Forecast bias\t%s (%s)", FormatPercent(s.AverageBiasPct), snap.ForecastBias.Direction),
		fmt.Sprintf("Health score\t%s", FormatPercent(s.HealthScore)),
		fmt.Sprintf("Need replenishment\t%d", s.NeedReplenishment),
		fmt.Sprintf("High stock\t%d", s.HighStock),
		"",
		fmt.Sprintf("Revenue\t%s", FormatRupiah(s.TotalRevenue)),
		fmt.Sprintf("Margin\t%s (%s)", FormatRupiah(s.TotalMargin), FormatPercent(s.MarginPct)),
		fmt.Sprintf("Inventory at cost\t%s", FormatRupiah(s.InventoryAtCost)),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(tw, line); err != nil {
			return err
		}
	}

	if len(snap.MonthlyPerformance) > 0 {
		fmt.Fprintln(tw, "")
		fmt.Fprintln(tw, "Month\tAccuracy\tUnder\tAccurate\tOver")
		for _, m := range snap.MonthlyPerformance {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n",
				pipeline.FormatMonth(m.Month), FormatPercent(m.AccuracyPct),
				m.Counts.Under, m.Counts.Accurate, m.Counts.Over)
		}
	}

	if len(snap.Segments) > 0 {
		fmt.Fprintln(tw, "")
		fmt.Fprintln(tw, "Segment\tSKUs\tRevenue\tShare")
		for _, seg := range snap.Segments {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
				seg.Segment, seg.SKUCount, FormatRupiah(seg.Revenue), FormatPercent(seg.RevenueShare))
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if issues := snap.DataQuality.Issues; len(issues) > 0 {
		if _, err := fmt.Fprintf(w, "\nData quality issues:\n  - %s\n", strings.Join(issues, "\n  - ")); err != nil {
			return err
		}
	}
	return nil
}

func monthOrDash(snap *domain.Snapshot) string {
	if snap.Summary.LatestMonth.IsZero() {
		return "-"
	}
	return pipeline.FormatMonth(snap.Summary.LatestMonth)
}
