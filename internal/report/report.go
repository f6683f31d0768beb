// Package report formats an analytics.Report for people and for machines.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/runnerr0/apachestats/internal/analytics"
)

// Text writes the report sections in fixed order: summary, referrers,
// busiest hours, user locations.
func Text(w io.Writer, r *analytics.Report) error {
	var b strings.Builder

	b.WriteString("SUMMARY:\n")
	fmt.Fprintf(&b, "- distinct days: %d\n", r.DistinctDays)
	fmt.Fprintf(&b, "- first date: %s\n", orDash(r.FirstDate))
	fmt.Fprintf(&b, "- last date: %s\n", orDash(r.LastDate))
	fmt.Fprintf(&b, "- total humans seen: %d\n", r.Humans)
	fmt.Fprintf(&b, "- total robots seen: %d\n", r.Robots)
	fmt.Fprintf(&b, "- average humans/day: %.2f\n", r.MeanHumansPerDay)
	fmt.Fprintf(&b, "- maximum humans/day: %d\n", r.MaxHumansPerDay)

	fmt.Fprintf(&b, "TOP %d REFERERS:\n", r.TopK)
	for _, e := range r.Referrers {
		writeEntry(&b, e.Label, e.Percent)
	}

	fmt.Fprintf(&b, "TOP %d BUSIEST HOURS:\n", r.TopK)
	for _, e := range r.Hours {
		writeEntry(&b, strconv.Itoa(e.Label), e.Percent)
	}

	fmt.Fprintf(&b, "TOP %d USER LOCATION:\n", r.TopK)
	for _, e := range r.Locations {
		writeEntry(&b, e.Label, e.Percent)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeEntry(b *strings.Builder, label string, percent float64) {
	fmt.Fprintf(b, "- %s  %.2f%%\n", label, percent)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *analytics.Report) error {
	b, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
