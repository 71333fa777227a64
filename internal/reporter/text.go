package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmelnik/buildgate/internal/aggregator"
	"github.com/dmelnik/buildgate/internal/models"
)

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
}

// NewTextReporter creates a new text reporter
func NewTextReporter(writer io.Writer) *TextReporter {
	return &TextReporter{
		writer: writer,
	}
}

// Generate creates a text report from the aggregated data
func (r *TextReporter) Generate(report *models.AggregateReport) error {
	r.printHeader()
	r.printf("Timestamp: %s\n", formatTimestamp(report.Timestamp))
	if report.Reference != "" {
		r.printf("Reference: %s (tag %s)\n", report.Reference, report.Tag)
	}
	r.printf("\n")

	r.printOverallSummary(report)
	r.printTargetBreakdown(report)

	if len(report.Remediation) > 0 {
		r.printRemediation(report.Remediation)
	}

	if report.Trend != nil {
		r.printf("\n")
		r.printTrendInfo(report.Trend)
	}

	return nil
}

// printHeader prints the report header
func (r *TextReporter) printHeader() {
	r.printf("╔════════════════════════════════════════════╗\n")
	r.printf("║         BuildGate Scan Report              ║\n")
	r.printf("╚════════════════════════════════════════════╝\n\n")
}

// printOverallSummary prints the overall summary section
func (r *TextReporter) printOverallSummary(report *models.AggregateReport) {
	r.printf("Overall Summary:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Targets Scanned: %d\n", len(report.Targets))
	r.printf("  Total Findings: %d\n", report.TotalFindings)
	r.printf("  Reportable Findings: %d (%s)\n", report.TotalReportable, strings.Join(report.Allowlist, ", "))
	r.printf("  Outcome: %s", report.OutcomeLabel)

	if report.Trend != nil {
		indicator := aggregator.GetTrendIndicator(report.Trend.Direction)
		r.printf(" %s %.1f%% from previous run", indicator, report.Trend.ChangePercent)
	}

	r.printf("\n")

	if len(report.OverThreshold) > 0 {
		r.printf("  Over Threshold: %s\n", strings.Join(report.OverThreshold, ", "))
	}
	r.printf("\n")
}

// printTargetBreakdown prints the per-target severity table
func (r *TextReporter) printTargetBreakdown(report *models.AggregateReport) {
	r.printf("Findings by Target:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  %-14s %9s %5s %7s %5s %8s %6s\n",
		"TARGET", "CRITICAL", "HIGH", "MEDIUM", "LOW", "UNKNOWN", "TOTAL")

	for _, target := range report.Targets {
		r.printf("  %-14s %9d %5d %7d %5d %8d %6d\n",
			target.Target,
			target.BySeverity[models.SeverityCritical],
			target.BySeverity[models.SeverityHigh],
			target.BySeverity[models.SeverityMedium],
			target.BySeverity[models.SeverityLow],
			target.BySeverity[models.SeverityUnknown],
			target.Total)
		if target.Degraded {
			r.printf("  %-14s (scan output missing or unreadable)\n", "")
		}
	}
	r.printf("\n")
}

// printRemediation prints the remediation hints section
func (r *TextReporter) printRemediation(hints []models.RemediationHint) {
	r.printf("Recommended Actions:\n")
	r.printf("--------------------------------------------------\n")

	for i, hint := range hints {
		r.printf("  %d. [%s] %s\n", i+1, strings.ToUpper(hint.Severity), hint.Action)
		r.printf("     Impact: %s\n", hint.Impact)
	}
}

// printTrendInfo prints trend information
func (r *TextReporter) printTrendInfo(trend *models.Trend) {
	r.printf("Trend Analysis:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Direction: %s %s\n", trend.Direction, aggregator.GetTrendIndicator(trend.Direction))
	r.printf("  Change: %d → %d findings (%.1f%%)\n",
		trend.PreviousTotal,
		trend.CurrentTotal,
		trend.ChangePercent)

	if trend.NewFindings > 0 {
		r.printf("  New Findings: %d\n", trend.NewFindings)
	}
	if trend.FixedFindings > 0 {
		r.printf("  Fixed: %d\n", trend.FixedFindings)
	}

	r.printf("  Compared With: %s\n", formatTimestamp(trend.ComparedWith))
}

// printf is a helper to write formatted output
func (r *TextReporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format, args...)
}

// formatTimestamp formats a timestamp for display
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
