package aggregator

import (
	"time"

	"github.com/dmelnik/buildgate/internal/models"
)

// Options configure an aggregation pass.
type Options struct {
	// Allowlist holds the severities that count toward the outcome.
	Allowlist []string
	// Policy decides what a nonzero reportable total means:
	// fail-build → FAIL, warn-only → WARN.
	Policy string
	// Reference and Tag annotate the report; they do not affect counting.
	Reference string
	Tag       string
}

// Aggregator maps a set of scan results to a single pass/warn/fail outcome.
// Aggregate is a pure function of its inputs: the same scan results and
// policy always produce the same report.
type Aggregator struct {
	opts      Options
	allowlist map[string]bool
}

// New creates an aggregator for the given options.
func New(opts Options) *Aggregator {
	if len(opts.Allowlist) == 0 {
		opts.Allowlist = []string{models.SeverityHigh, models.SeverityCritical}
	}
	if opts.Policy == "" {
		opts.Policy = models.PolicyFailBuild
	}

	allow := make(map[string]bool, len(opts.Allowlist))
	for _, sev := range opts.Allowlist {
		allow[sev] = true
	}

	return &Aggregator{opts: opts, allowlist: allow}
}

// Aggregate counts allowlisted findings per target, sums them, and maps
// the total to an outcome. Degraded scan results contribute zero findings
// rather than aborting the pass. Severity comparison is case-sensitive
// against the fixed enum; unrecognized severity strings are ignored.
func (a *Aggregator) Aggregate(results []models.ScanResult) *models.AggregateReport {
	report := &models.AggregateReport{
		Timestamp: time.Now(),
		Reference: a.opts.Reference,
		Tag:       a.opts.Tag,
		Findings:  results,
		Allowlist: append([]string(nil), a.opts.Allowlist...),
		Policy:    a.opts.Policy,
	}

	for _, res := range results {
		summary := models.TargetSummary{
			Target:     res.Target,
			ImageRef:   res.ImageRef,
			BySeverity: zeroSeverityCounts(),
			Degraded:   res.Degraded,
		}

		for _, f := range res.Findings {
			if models.IsKnownSeverity(f.Severity) {
				summary.BySeverity[f.Severity]++
				summary.Total++
			}
			if a.allowlist[f.Severity] {
				summary.Reportable++
			}
			if f.Fixable() {
				summary.Fixable++
			}
		}

		report.Targets = append(report.Targets, summary)
		report.TotalFindings += summary.Total
		report.TotalReportable += summary.Reportable

		if summary.Reportable > 0 {
			report.OverThreshold = append(report.OverThreshold, res.Target)
		}
	}

	report.Outcome = a.outcome(report.TotalReportable)
	report.OutcomeLabel = report.Outcome.String()
	report.Remediation = BuildRemediation(report)

	return report
}

// outcome maps the reportable total to the tri-state result.
func (a *Aggregator) outcome(totalReportable int) models.Outcome {
	if totalReportable == 0 {
		return models.OutcomeOK
	}
	if a.opts.Policy == models.PolicyFailBuild {
		return models.OutcomeFail
	}
	return models.OutcomeWarn
}

// zeroSeverityCounts pre-fills the count map so reports always show all
// five severity columns, even when a column is zero.
func zeroSeverityCounts() map[string]int {
	counts := make(map[string]int, len(models.AllSeverities))
	for _, sev := range models.AllSeverities {
		counts[sev] = 0
	}
	return counts
}
