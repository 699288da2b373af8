// Package report renders batch results as a text table, a spreadsheet and a
// multi-page PDF of price charts.
package report

import (
	"fmt"
	"os"
	"strings"

	"IvyRanker/internal/model"
)

// TableHeader is the first line of the text report.
const TableHeader = "3 MO\t6 MO\t1 YR\tRS\t50DAY\t200DAY\tBUY\tCHNG\tSYMB\n"

// FormatTable renders one tab-separated row per ranked symbol. Performance
// figures are percentages with one decimal, averages are prices with two.
func FormatTable(res *model.BatchResult) string {
	var b strings.Builder
	b.WriteString(TableHeader)
	for _, r := range res.Ranked {
		p := r.Performance
		for _, v := range []float64{p.ThreeMonth, p.SixMonth, p.OneYear, p.RelativeStrength} {
			fmt.Fprintf(&b, "%.1f\t", v*100.0)
		}
		s := r.Snapshot
		fmt.Fprintf(&b, "%.2f\t%.2f\t", s.FiftyDay, s.TwoHundredDay)
		fmt.Fprintf(&b, "%s\t%s\t%s\n", yesNo(s.FiftyAboveTwoHundred), yesNo(s.CrossedToday), r.Symbol)
	}
	return b.String()
}

// WriteTable writes FormatTable output to path.
func WriteTable(path string, res *model.BatchResult) error {
	if err := os.WriteFile(path, []byte(FormatTable(res)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
