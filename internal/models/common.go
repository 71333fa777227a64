package models

import "time"

// Severity levels as reported by the scanner. Comparison against these
// constants is case-sensitive: a finding with severity "High" does not
// match SeverityHigh and is not counted.
const (
	SeverityUnknown  = "UNKNOWN"
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// AllSeverities lists every recognized severity from least to most severe.
var AllSeverities = []string{
	SeverityUnknown,
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

// IsKnownSeverity reports whether s is one of the recognized severity levels.
func IsKnownSeverity(s string) bool {
	for _, known := range AllSeverities {
		if s == known {
			return true
		}
	}
	return false
}

// Outcome is the tri-state result of a scan-aggregation pass. Stages return
// an Outcome instead of mutating shared pipeline state; outcomes from
// multiple stages merge worst-of.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeWarn
	OutcomeFail
)

// String returns the pipeline status label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeWarn:
		return "UNSTABLE"
	case OutcomeFail:
		return "FAILED"
	default:
		return "SUCCESS"
	}
}

// Merge returns the worse of two outcomes (FAIL > WARN > OK).
func (o Outcome) Merge(other Outcome) Outcome {
	if other > o {
		return other
	}
	return o
}

// Failure policies applied when reportable findings exist.
const (
	PolicyFailBuild = "fail-build"
	PolicyWarnOnly  = "warn-only"
)

// Finding is one vulnerability entry reported by the scanner for an artifact.
type Finding struct {
	ID               string `json:"id"`
	Severity         string `json:"severity"`
	PackageName      string `json:"package_name"`
	InstalledVersion string `json:"installed_version"`
	FixedVersion     string `json:"fixed_version,omitempty"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
}

// Fixable reports whether the finding has a known fixed version.
func (f Finding) Fixable() bool {
	return f.FixedVersion != ""
}

// ScanResult holds the ordered findings for one built target. Immutable
// after creation; recomputed each run.
type ScanResult struct {
	Target   string    `json:"target"`
	ImageRef string    `json:"image_ref"`
	ScanTime time.Time `json:"scan_time"`
	Findings []Finding `json:"findings"`
	// Degraded marks results recovered from a missing or empty scan
	// output file. They contribute zero findings but are flagged so the
	// report shows the scan data was incomplete.
	Degraded bool `json:"degraded,omitempty"`
}

// TargetSummary is the per-target slice of the aggregate report.
type TargetSummary struct {
	Target     string         `json:"target"`
	ImageRef   string         `json:"image_ref"`
	BySeverity map[string]int `json:"by_severity"`
	Total      int            `json:"total"`
	Reportable int            `json:"reportable"`
	Fixable    int            `json:"fixable"`
	Degraded   bool           `json:"degraded,omitempty"`
}

// AggregateReport is derived purely from a set of ScanResults and a policy.
type AggregateReport struct {
	Timestamp       time.Time       `json:"timestamp"`
	Reference       string          `json:"reference,omitempty"`
	Tag             string          `json:"tag,omitempty"`
	Targets         []TargetSummary `json:"targets"`
	Findings        []ScanResult    `json:"findings"`
	TotalReportable int             `json:"total_reportable"`
	TotalFindings   int             `json:"total_findings"`
	Outcome         Outcome         `json:"outcome"`
	OutcomeLabel    string          `json:"outcome_label"`
	Allowlist       []string        `json:"allowlist"`
	Policy          string          `json:"policy"`
	// OverThreshold lists targets with at least one reportable finding,
	// surfaced in the final pipeline summary.
	OverThreshold []string          `json:"over_threshold,omitempty"`
	Remediation   []RemediationHint `json:"remediation,omitempty"`
	Trend         *Trend            `json:"trend,omitempty"`
}

// RemediationHint is an actionable follow-up derived from the findings.
type RemediationHint struct {
	Severity string `json:"severity"`
	Target   string `json:"target"`
	Action   string `json:"action"`
	Impact   string `json:"impact"`
	Count    int    `json:"count"`
}

// Trend represents change between the current and a previous run.
type Trend struct {
	Direction     string    `json:"direction"` // "improving", "degrading", "stable"
	ChangePercent float64   `json:"change_percent"`
	PreviousTotal int       `json:"previous_total"`
	CurrentTotal  int       `json:"current_total"`
	ComparedWith  time.Time `json:"compared_with"`
	NewFindings   int       `json:"new_findings"`
	FixedFindings int       `json:"fixed_findings"`
}

// TrendSummary provides historical analysis across stored runs.
type TrendSummary struct {
	TimeRange        string                  `json:"time_range"`
	RunsAnalyzed     int                     `json:"runs_analyzed"`
	FindingSparkline []int                   `json:"finding_sparkline"`
	ByTarget         map[string]*TargetTrend `json:"by_target"`
}

// TargetTrend represents the trend for a single build target.
type TargetTrend struct {
	Name          string  `json:"name"`
	Current       int     `json:"current"`
	Previous      int     `json:"previous"`
	Change        int     `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}
