package notifier

import (
	"fmt"
	"strings"
	"time"
)

// FormatSubject builds the email subject for a run report.
func FormatSubject(p *Payload) string {
	return fmt.Sprintf("Daily value screener results: %d qualifier(s) (%s)",
		len(p.Qualifiers), p.RunTimestamp.Format("2006-01-02"))
}

// FormatBody builds the plain-text email body: the qualifier list with
// metrics, then the run summary.
func FormatBody(p *Payload) string {
	var b strings.Builder

	if len(p.Qualifiers) == 0 {
		b.WriteString("No stocks met the value criteria in this run.\n")
	} else {
		b.WriteString("Stocks meeting value criteria:\n\n")
		for i := range p.Qualifiers {
			d := &p.Qualifiers[i]
			b.WriteString("  " + d.Symbol)
			if r := d.Record; r != nil {
				b.WriteString(fmt.Sprintf("  price=%.2f", r.CurrentPrice))
				if pb, ok := r.PriceToBook(); ok {
					b.WriteString(fmt.Sprintf(" p/b=%.3f", pb))
				}
				if de, ok := r.DebtToEquity(); ok {
					b.WriteString(fmt.Sprintf(" d/e=%.3f", de))
				}
				if pct, ok := r.PctAboveThreeYearLow(); ok {
					b.WriteString(fmt.Sprintf(" above-low=%.0f%%", pct*100))
				}
			}
			b.WriteByte('\n')
		}
	}

	b.WriteString("\nRun summary:\n")
	b.WriteString(fmt.Sprintf("  run:          %s\n", p.RunTimestamp.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("  processed:    %d\n", p.Stats.Processed))
	b.WriteString(fmt.Sprintf("  qualified:    %d\n", p.Stats.Qualified))
	b.WriteString(fmt.Sprintf("  fetch failed: %d\n", p.Stats.FetchFailed))
	b.WriteString(fmt.Sprintf("  duration:     %s\n", p.Stats.Duration.Round(time.Second)))
	return b.String()
}
