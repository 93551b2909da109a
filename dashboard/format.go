package dashboard

import (
	"fmt"
	"strconv"

	humanize "github.com/dustin/go-humanize"
)

// NotAvailable is shown in place of details that have no data.
const NotAvailable = "N/A"

// FormatScore abbreviates a score for axis ticks: millions as "1.2M" and
// thousands as "564.6K".
func FormatScore(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// FormatLatestScore renders a score with thousands separators.
func FormatLatestScore(v float64) string {
	return humanize.Commaf(v)
}

// FormatMetric renders a score with two decimals, as shown in tables.
func FormatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
