package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmelnik/buildgate/internal/catalog"
	"github.com/dmelnik/buildgate/internal/models"
)

// DefaultTimeout is the per-scan execution timeout.
const DefaultTimeout = 5 * time.Minute

// ExecFunc is the signature for running the scanner binary and capturing
// combined output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// InfraError marks a scanner invocation that failed for infrastructure
// reasons (binary missing, network unreachable) rather than because
// vulnerabilities were found. It is fatal to the pipeline.
type InfraError struct {
	Target string
	Err    error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("scanner failed for %s: %v", e.Target, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

// Options control scanner invocations.
type Options struct {
	// Binary is the scanner executable (default "trivy").
	Binary string
	// Severities passed to the scanner's --severity filter.
	Severities []string
	// OutputDir receives one JSON file per scanned target.
	OutputDir string
	// Timeout bounds each scan invocation.
	Timeout time.Duration
}

// Scanner invokes the external vulnerability scanner per built artifact and
// parses its structured output.
type Scanner struct {
	execFn ExecFunc
	opts   Options
}

// New creates a Scanner with the given exec function and options.
func New(execFn ExecFunc, opts Options) *Scanner {
	if opts.Binary == "" {
		opts.Binary = "trivy"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if len(opts.Severities) == 0 {
		opts.Severities = []string{models.SeverityHigh, models.SeverityCritical}
	}
	return &Scanner{execFn: execFn, opts: opts}
}

// OutputPath returns the scan output file for a target. Each target gets a
// distinct path so concurrent stages never share a file.
func (s *Scanner) OutputPath(target string) string {
	return filepath.Join(s.opts.OutputDir, target+"-scan.json")
}

// Scan invokes the scanner for one built artifact and parses the findings
// from the output file.
//
// The scanner's own exit code is not the source of truth: a nonzero exit
// with a parseable output file means findings were detected, and the
// fail/warn decision is derived later from the parsed counts. Only an
// invocation error with no usable output is an infrastructure failure.
// A missing or empty output file after a clean invocation yields a
// degraded zero-finding result, not an error.
func (s *Scanner) Scan(ctx context.Context, target catalog.BuildTarget) (*models.ScanResult, error) {
	if s.opts.OutputDir != "" {
		if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
			return nil, &InfraError{Target: target.Name, Err: err}
		}
	}

	outputPath := s.OutputPath(target.Name)

	scanCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	args := []string{
		"image",
		"--format", "json",
		"--quiet",
		"--no-progress",
		"--severity", strings.Join(s.opts.Severities, ","),
		"--output", outputPath,
		target.ImageRef(),
	}

	_, execErr := s.execFn(scanCtx, s.opts.Binary, args...)

	result, parseErr := ParseFile(outputPath, target)
	if parseErr == nil && !result.Degraded {
		// Usable output: the exit code carried no extra information.
		return result, nil
	}

	if execErr != nil {
		return nil, &InfraError{Target: target.Name, Err: execErr}
	}
	if parseErr != nil {
		return nil, fmt.Errorf("scan output for %s: %w", target.Name, parseErr)
	}
	return result, nil
}

// ParseFile reads a scan output file into a ScanResult. A missing, empty,
// or corrupt file is the explicit degraded-data path: the target
// contributes zero findings with Degraded set, and aggregation proceeds.
func ParseFile(path string, target catalog.BuildTarget) (*models.ScanResult, error) {
	result := &models.ScanResult{
		Target:   target.Name,
		ImageRef: target.ImageRef(),
		ScanTime: time.Now(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			result.Degraded = true
			return result, nil
		}
		return nil, fmt.Errorf("read scan output: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		result.Degraded = true
		return result, nil
	}

	var report models.TrivyReport
	if err := json.Unmarshal(data, &report); err != nil {
		result.Degraded = true
		result.Findings = nil
		return result, nil
	}

	result.Findings = report.Findings()
	return result, nil
}

// ScanAll scans every successfully built target in order. Scanning always
// completes for all targets before any outcome is raised, so the operator
// sees the full picture. Infrastructure failures abort immediately.
func (s *Scanner) ScanAll(ctx context.Context, targets []catalog.BuildTarget) ([]models.ScanResult, error) {
	results := make([]models.ScanResult, 0, len(targets))
	for _, target := range targets {
		res, err := s.Scan(ctx, target)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// SeverityFilter formats the severity list the way the scanner expects.
func SeverityFilter(severities []string) string {
	return strings.Join(severities, ",")
}
