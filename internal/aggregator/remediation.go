package aggregator

import (
	"fmt"
	"sort"

	"github.com/dmelnik/buildgate/internal/models"
)

// severityPriority orders remediation hints most-severe first.
var severityPriority = map[string]int{
	models.SeverityCritical: 0,
	models.SeverityHigh:     1,
	models.SeverityMedium:   2,
	models.SeverityLow:      3,
	models.SeverityUnknown:  4,
}

// BuildRemediation derives actionable follow-ups from an aggregate report:
// which targets have fixable findings, which need base-image attention, and
// which produced degraded scan data.
func BuildRemediation(report *models.AggregateReport) []models.RemediationHint {
	var hints []models.RemediationHint

	for _, summary := range report.Targets {
		if summary.Fixable > 0 {
			hints = append(hints, models.RemediationHint{
				Severity: worstSeverity(summary.BySeverity),
				Target:   summary.Target,
				Action:   fmt.Sprintf("Update %d package(s) with known fixed versions", summary.Fixable),
				Impact:   fmt.Sprintf("Removes %d of %d findings for %s", summary.Fixable, summary.Total, summary.Target),
				Count:    summary.Fixable,
			})
		}

		unfixable := summary.Reportable - summary.Fixable
		if unfixable > 0 {
			hints = append(hints, models.RemediationHint{
				Severity: worstSeverity(summary.BySeverity),
				Target:   summary.Target,
				Action:   fmt.Sprintf("Review %d finding(s) without an available fix", unfixable),
				Impact:   "Likely requires a newer base image or a vendor advisory",
				Count:    unfixable,
			})
		}

		if summary.Degraded {
			hints = append(hints, models.RemediationHint{
				Severity: models.SeverityUnknown,
				Target:   summary.Target,
				Action:   "Investigate missing or unreadable scan output",
				Impact:   "Target was counted as zero findings; its real exposure is unknown",
				Count:    1,
			})
		}
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return severityPriority[hints[i].Severity] < severityPriority[hints[j].Severity]
	})

	return hints
}

// worstSeverity returns the most severe level with a nonzero count.
func worstSeverity(bySeverity map[string]int) string {
	for _, sev := range []string{
		models.SeverityCritical,
		models.SeverityHigh,
		models.SeverityMedium,
		models.SeverityLow,
		models.SeverityUnknown,
	} {
		if bySeverity[sev] > 0 {
			return sev
		}
	}
	return models.SeverityUnknown
}
