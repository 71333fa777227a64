package tui

import (
	"fmt"
	"strings"

	"github.com/dmelnik/buildgate/internal/models"
)

// headerHeight is the number of terminal lines the header occupies.
const headerHeight = 5

// renderHeader produces the header string from report data.
func renderHeader(report *models.AggregateReport, sparkline []int, width int) string {
	var b strings.Builder

	// Line 1: title and outcome
	outcomeText := outcomeStyle(report.OutcomeLabel).Render(report.OutcomeLabel)
	b.WriteString(fmt.Sprintf("BuildGate  Outcome: %s", outcomeText))

	if report.Trend != nil {
		indicator := trendIndicator(report.Trend.Direction)
		b.WriteString(fmt.Sprintf("  %s %.1f%%", indicator, report.Trend.ChangePercent))
	}
	b.WriteString("\n")

	// Line 2: targets and totals
	b.WriteString(fmt.Sprintf("Targets: %d  Findings: %d  Reportable: %d",
		len(report.Targets), report.TotalFindings, report.TotalReportable))
	b.WriteString("\n")

	// Line 3: severity breakdown
	sevParts := make([]string, 0, 4)
	for _, sev := range []string{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		count := 0
		for _, target := range report.Targets {
			count += target.BySeverity[sev]
		}
		if count > 0 {
			label := fmt.Sprintf("%s:%d", sev[:1], count)
			sevParts = append(sevParts, severityStyle(sev).Render(label))
		}
	}
	if len(sevParts) > 0 {
		b.WriteString(strings.Join(sevParts, "  "))
	}
	b.WriteString("\n")

	// Line 4: sparkline
	if len(sparkline) > 0 {
		b.WriteString("Trend: ")
		b.WriteString(renderSparkline(sparkline))
	}

	return styleHeader.Width(width).Render(b.String())
}

func trendIndicator(direction string) string {
	switch direction {
	case "improving":
		return "↓"
	case "degrading":
		return "↑"
	default:
		return "→"
	}
}

// renderSparkline converts an int slice to a unicode sparkline string.
func renderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	bars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		if max == min {
			b.WriteRune(bars[len(bars)/2])
		} else {
			normalized := float64(v-min) / float64(max-min)
			idx := int(normalized * float64(len(bars)-1))
			b.WriteRune(bars[idx])
		}
	}

	b.WriteString(fmt.Sprintf(" [%d→%d]", values[0], values[len(values)-1]))
	return b.String()
}
