package alphavantage

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseNumber reads the string encoded numbers Alpha Vantage returns,
// including percentages such as "0.1100%". Unparseable input yields 0.
func parseNumber(raw string) float64 {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if raw == "" {
		return 0
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func parseInt(raw string) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return d.IntPart()
}
