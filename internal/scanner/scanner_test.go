package scanner

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/dmelnik/buildgate/internal/catalog"
	"github.com/dmelnik/buildgate/internal/models"
)

const sampleTrivyJSON = `{
  "SchemaVersion": 2,
  "ArtifactName": "web:release-1.8",
  "Results": [
    {
      "Target": "web:release-1.8 (debian 12.5)",
      "Vulnerabilities": [
        {
          "VulnerabilityID": "CVE-2024-0001",
          "PkgName": "libssl3",
          "InstalledVersion": "3.0.11",
          "FixedVersion": "3.0.13",
          "Severity": "HIGH",
          "Title": "openssl: something bad"
        },
        {
          "VulnerabilityID": "CVE-2024-0002",
          "PkgName": "zlib1g",
          "InstalledVersion": "1.2.13",
          "Severity": "CRITICAL",
          "Title": "zlib: worse"
        }
      ]
    }
  ]
}`

func webTarget() catalog.BuildTarget {
	return catalog.BuildTarget{Name: "web", BuildFile: "docker/web/Dockerfile", Tag: "release-1.8"}
}

// writingExec simulates the scanner by writing payload to the --output path.
func writingExec(t *testing.T, payload string, execErr error) ExecFunc {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		var outputPath string
		for i, arg := range args {
			if arg == "--output" && i+1 < len(args) {
				outputPath = args[i+1]
			}
		}
		if outputPath == "" {
			t.Fatal("invocation missing --output")
		}
		if payload != "" {
			if err := os.WriteFile(outputPath, []byte(payload), 0o600); err != nil {
				t.Fatalf("write scan output: %v", err)
			}
		}
		return nil, execErr
	}
}

func TestScan_Findings(t *testing.T) {
	s := New(writingExec(t, sampleTrivyJSON, nil), Options{OutputDir: t.TempDir()})

	result, err := s.Scan(context.Background(), webTarget())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Target != "web" {
		t.Errorf("expected target web, got %s", result.Target)
	}
	if len(result.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(result.Findings))
	}
	if result.Findings[0].ID != "CVE-2024-0001" || result.Findings[0].Severity != models.SeverityHigh {
		t.Errorf("unexpected first finding: %+v", result.Findings[0])
	}
	if !result.Findings[0].Fixable() {
		t.Error("expected first finding fixable")
	}
	if result.Findings[1].Fixable() {
		t.Error("expected second finding not fixable")
	}
	if result.Degraded {
		t.Error("expected non-degraded result")
	}
}

func TestScan_VulnerabilityExitCodeNotFatal(t *testing.T) {
	// Nonzero exit with a parseable output file means findings were
	// detected — the parsed counts are the source of truth.
	s := New(writingExec(t, sampleTrivyJSON, errors.New("exit status 1")), Options{OutputDir: t.TempDir()})

	result, err := s.Scan(context.Background(), webTarget())
	if err != nil {
		t.Fatalf("vulnerability-detected exit must not abort the scan: %v", err)
	}
	if len(result.Findings) != 2 {
		t.Errorf("expected 2 findings, got %d", len(result.Findings))
	}
}

func TestScan_InfrastructureFailure(t *testing.T) {
	// Invocation error with no output written is an infrastructure failure.
	s := New(writingExec(t, "", errors.New("exec: \"trivy\": executable file not found in $PATH")),
		Options{OutputDir: t.TempDir()})

	_, err := s.Scan(context.Background(), webTarget())
	if err == nil {
		t.Fatal("expected infrastructure error")
	}

	var infraErr *InfraError
	if !errors.As(err, &infraErr) {
		t.Fatalf("expected *InfraError, got %T: %v", err, err)
	}
	if infraErr.Target != "web" {
		t.Errorf("expected target web, got %s", infraErr.Target)
	}
}

func TestScan_MissingOutputDegraded(t *testing.T) {
	// Clean invocation but no output file: zero findings, degraded flag.
	s := New(writingExec(t, "", nil), Options{OutputDir: t.TempDir()})

	result, err := s.Scan(context.Background(), webTarget())
	if err != nil {
		t.Fatalf("missing output must not abort the pipeline: %v", err)
	}
	if !result.Degraded {
		t.Error("expected degraded result")
	}
	if len(result.Findings) != 0 {
		t.Errorf("expected 0 findings, got %d", len(result.Findings))
	}
}

func TestScan_EmptyOutputDegraded(t *testing.T) {
	s := New(writingExec(t, "  \n", nil), Options{OutputDir: t.TempDir()})

	result, err := s.Scan(context.Background(), webTarget())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Degraded {
		t.Error("expected degraded result for empty output")
	}
}

func TestScan_CorruptOutputDegraded(t *testing.T) {
	s := New(writingExec(t, "{not json", nil), Options{OutputDir: t.TempDir()})

	result, err := s.Scan(context.Background(), webTarget())
	if err != nil {
		t.Fatalf("corrupt output must not abort aggregation: %v", err)
	}
	if !result.Degraded {
		t.Error("expected degraded result for corrupt output")
	}
	if len(result.Findings) != 0 {
		t.Errorf("expected 0 findings, got %d", len(result.Findings))
	}
}

func TestScan_InvocationShape(t *testing.T) {
	var captured []string
	exec := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		captured = append([]string{name}, args...)
		// Write minimal valid output so the scan succeeds.
		for i, arg := range args {
			if arg == "--output" {
				_ = os.WriteFile(args[i+1], []byte(`{"Results":[]}`), 0o600)
			}
		}
		return nil, nil
	}

	s := New(exec, Options{
		OutputDir:  t.TempDir(),
		Severities: []string{models.SeverityMedium, models.SeverityHigh, models.SeverityCritical},
	})

	if _, err := s.Scan(context.Background(), webTarget()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := strings.Join(captured, " ")
	for _, want := range []string{
		"trivy image",
		"--format json",
		"--severity MEDIUM,HIGH,CRITICAL",
		"web:release-1.8",
	} {
		if !strings.Contains(call, want) {
			t.Errorf("invocation missing %q: %s", want, call)
		}
	}
}

func TestScanAll(t *testing.T) {
	s := New(writingExec(t, sampleTrivyJSON, nil), Options{OutputDir: t.TempDir()})

	targets := []catalog.BuildTarget{
		{Name: "web", Tag: "v1"},
		{Name: "nginx", Tag: "v1"},
	}

	results, err := s.ScanAll(context.Background(), targets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestOutputPath_Distinct(t *testing.T) {
	s := New(nil, Options{OutputDir: "/tmp/scans"})

	if s.OutputPath("web") == s.OutputPath("nginx") {
		t.Error("each target must get a distinct output path")
	}
}

func TestSeverityFilter(t *testing.T) {
	got := SeverityFilter([]string{models.SeverityHigh, models.SeverityCritical})
	if got != "HIGH,CRITICAL" {
		t.Errorf("expected HIGH,CRITICAL, got %s", got)
	}
}
