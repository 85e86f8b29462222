package report

import (
	"math"
	"strconv"
	"strings"
)

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// FormatNumber renders v the Indonesian way: dot as thousands separator and
// comma as decimal separator. A zero fraction is omitted, so 1234.5 with two
// decimals gives "1.234,50" and 1000 gives "1.000".
func FormatNumber(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}

	s := strconv.FormatFloat(math.Abs(Round(v, decimals)), 'f', decimals, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if v < 0 && strings.Trim(s, "0.") != "" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if strings.Trim(fracPart, "0") != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}

// FormatRupiah renders a whole-rupiah amount, e.g. "Rp 3.150.000".
func FormatRupiah(v float64) string {
	return "Rp " + FormatNumber(v, 0)
}

// FormatPercent renders a percentage with one decimal, e.g. "85,5%".
func FormatPercent(v float64) string {
	return FormatNumber(v, 1) + "%"
}
