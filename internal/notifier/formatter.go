package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"IvyRanker/internal/model"
)

// telegramLimit is the Bot API cap on message length.
const telegramLimit = 4096

// FormatBody is the plain-text body of the report mail.
func FormatBody(crossings int) string {
	return fmt.Sprintf("Number of moving average crossings today: %d\n\n", crossings)
}

// FormatTelegramReport renders a report as an HTML Telegram message, cutting
// the table when the message would exceed the API limit.
func FormatTelegramReport(r Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", html.EscapeString(r.Subject), time.Now().Format("2006-01-02")))
	b.WriteString(html.EscapeString(r.Body))
	if r.Table == "" {
		return b.String()
	}

	table := html.EscapeString(r.Table)
	room := telegramLimit - b.Len() - len("<pre></pre>\n…")
	if room <= 0 {
		return b.String()
	}
	if len(table) > room {
		cut := strings.LastIndexByte(table[:room], '\n')
		if cut < 0 {
			cut = 0
		}
		table = table[:cut] + "\n…"
	}
	b.WriteString("<pre>" + table + "</pre>")
	return b.String()
}

// FormatCrossAlert announces a 50/200-day crossing found by an incremental update.
func FormatCrossAlert(s model.IndicatorSnapshot) string {
	direction := "below"
	if s.FiftyAboveTwoHundred {
		direction = "above"
	}
	return fmt.Sprintf("⚠️ <b>%s</b> 50-day MA crossed %s the 200-day MA on %s\n50DAY %.2f | 200DAY %.2f",
		html.EscapeString(s.Symbol), direction, s.Date.Format("2006-01-02"), s.FiftyDay, s.TwoHundredDay)
}

// FormatFailures lists symbols skipped by a run, one per line.
func FormatFailures(failures []model.SymbolError) string {
	if len(failures) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Skipped symbols:\n")
	for _, f := range failures {
		b.WriteString(fmt.Sprintf("  %s (%s): %v\n", f.Symbol, f.Kind(), f.Err))
	}
	return b.String()
}
