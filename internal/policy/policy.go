package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/dmelnik/buildgate/internal/models"
	"gopkg.in/yaml.v3"
)

// Policy defines enforcement rules layered on top of the outcome decision.
type Policy struct {
	Version string `yaml:"version"`
	Rules   Rules  `yaml:"rules"`
}

// Rules contains all configurable policy rules.
type Rules struct {
	MaxReportable      *int     `yaml:"max_reportable,omitempty"`
	MaxCritical        *int     `yaml:"max_critical,omitempty"`
	MaxHigh            *int     `yaml:"max_high,omitempty"`
	ForbidSeverities   []string `yaml:"forbid_severities,omitempty"`
	ForbidDegraded     bool     `yaml:"forbid_degraded,omitempty"`
	RequireAllFixable  bool     `yaml:"require_all_fixable,omitempty"`
	RequiredTargets    []string `yaml:"required_targets,omitempty"`
	MaxFixablePerImage *int     `yaml:"max_fixable_per_image,omitempty"`
}

// Violation is a single policy failure.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the outcome of a policy check.
type Result struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// LoadFromFile reads a policy file. A missing file is not an error; it
// returns a nil policy, which always passes.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	return &p, nil
}

// FindPolicyFile searches for a policy file in the current directory
// and parent directories up to the filesystem root.
func FindPolicyFile() string {
	names := []string{".buildgate-policy.yaml", ".buildgate-policy.yml"}

	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range names {
			path := dir + "/" + name
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := dir[:strings.LastIndex(dir, "/")]
		if parent == dir || parent == "" {
			break
		}
		dir = parent
	}

	return ""
}

// Evaluate checks an aggregate report against the policy rules.
func (p *Policy) Evaluate(report *models.AggregateReport) *Result {
	if p == nil {
		return &Result{Pass: true}
	}

	var violations []Violation

	// max_reportable
	if p.Rules.MaxReportable != nil {
		if report.TotalReportable > *p.Rules.MaxReportable {
			violations = append(violations, Violation{
				Rule:    "max_reportable",
				Message: fmt.Sprintf("reportable findings %d exceeds limit %d", report.TotalReportable, *p.Rules.MaxReportable),
			})
		}
	}

	// max_critical
	if p.Rules.MaxCritical != nil {
		count := countSeverity(report, models.SeverityCritical)
		if count > *p.Rules.MaxCritical {
			violations = append(violations, Violation{
				Rule:    "max_critical",
				Message: fmt.Sprintf("critical findings %d exceeds limit %d", count, *p.Rules.MaxCritical),
			})
		}
	}

	// max_high
	if p.Rules.MaxHigh != nil {
		count := countSeverity(report, models.SeverityHigh)
		if count > *p.Rules.MaxHigh {
			violations = append(violations, Violation{
				Rule:    "max_high",
				Message: fmt.Sprintf("high findings %d exceeds limit %d", count, *p.Rules.MaxHigh),
			})
		}
	}

	// forbid_severities
	if len(p.Rules.ForbidSeverities) > 0 {
		for _, severity := range p.Rules.ForbidSeverities {
			count := countSeverity(report, severity)
			if count > 0 {
				violations = append(violations, Violation{
					Rule:    "forbid_severities",
					Message: fmt.Sprintf("forbidden severity %q has %d findings", severity, count),
				})
			}
		}
	}

	// forbid_degraded
	if p.Rules.ForbidDegraded {
		for _, target := range report.Targets {
			if target.Degraded {
				violations = append(violations, Violation{
					Rule:    "forbid_degraded",
					Message: fmt.Sprintf("target %q produced no usable scan output", target.Target),
				})
			}
		}
	}

	// require_all_fixable
	if p.Rules.RequireAllFixable {
		for _, target := range report.Targets {
			if unfixable := target.Reportable - target.Fixable; unfixable > 0 {
				violations = append(violations, Violation{
					Rule:    "require_all_fixable",
					Message: fmt.Sprintf("target %q has %d reportable finding(s) without a known fix", target.Target, unfixable),
				})
			}
		}
	}

	// required_targets
	if len(p.Rules.RequiredTargets) > 0 {
		scanned := make(map[string]bool, len(report.Targets))
		for _, target := range report.Targets {
			scanned[target.Target] = true
		}
		for _, name := range p.Rules.RequiredTargets {
			if !scanned[name] {
				violations = append(violations, Violation{
					Rule:    "required_targets",
					Message: fmt.Sprintf("required target %q not found in report", name),
				})
			}
		}
	}

	// max_fixable_per_image
	if p.Rules.MaxFixablePerImage != nil {
		for _, target := range report.Targets {
			if target.Fixable > *p.Rules.MaxFixablePerImage {
				violations = append(violations, Violation{
					Rule:    "max_fixable_per_image",
					Message: fmt.Sprintf("target %q has %d fixable finding(s), limit %d", target.Target, target.Fixable, *p.Rules.MaxFixablePerImage),
				})
			}
		}
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}

// countSeverity sums one severity column across all targets.
func countSeverity(report *models.AggregateReport, severity string) int {
	total := 0
	for _, target := range report.Targets {
		total += target.BySeverity[severity]
	}
	return total
}
