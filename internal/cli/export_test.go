package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dmelnik/buildgate/internal/models"
)

func exportSampleReport() *models.AggregateReport {
	return &models.AggregateReport{
		Timestamp: time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
		Findings: []models.ScanResult{
			{
				Target:   "web",
				ImageRef: "web:1.4.0",
				Findings: []models.Finding{
					{
						ID:               "CVE-2024-1111",
						Severity:         models.SeverityHigh,
						PackageName:      "openssl",
						InstalledVersion: "3.0.1",
						FixedVersion:     "3.0.9",
						Title:            "openssl overflow",
					},
					{
						ID:          "CVE-2024-2222",
						Severity:    models.SeverityLow,
						PackageName: "zlib",
						Title:       "zlib issue",
					},
				},
			},
		},
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := exportCSV(&buf, exportSampleReport()); err != nil {
		t.Fatalf("exportCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parsing csv output: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 findings", len(rows))
	}
	if rows[0][0] != "target" || rows[0][3] != "severity" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][2] != "CVE-2024-1111" || rows[1][6] != "3.0.9" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[2][6] != "" {
		t.Errorf("finding without fix should have empty fixed_version, got %q", rows[2][6])
	}
}

func TestExportSARIF(t *testing.T) {
	var buf bytes.Buffer
	if err := exportSARIF(&buf, exportSampleReport()); err != nil {
		t.Fatalf("exportSARIF() error = %v", err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("parsing sarif output: %v", err)
	}

	if log.Version != "2.1.0" {
		t.Errorf("Version = %s, want 2.1.0", log.Version)
	}
	if len(log.Runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(log.Runs))
	}

	run := log.Runs[0]
	if run.Tool.Driver.Name != "buildgate" {
		t.Errorf("driver name = %s, want buildgate", run.Tool.Driver.Name)
	}
	if len(run.Tool.Driver.Rules) != 2 {
		t.Errorf("got %d rules, want 2", len(run.Tool.Driver.Rules))
	}
	if len(run.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(run.Results))
	}

	first := run.Results[0]
	if first.RuleID != "CVE-2024-1111" {
		t.Errorf("RuleID = %s", first.RuleID)
	}
	if first.Level != "error" {
		t.Errorf("Level = %s, want error for HIGH", first.Level)
	}
	if !strings.Contains(first.Message.Text, "fixed in 3.0.9") {
		t.Errorf("message missing fix info: %s", first.Message.Text)
	}
	if first.Locations[0].PhysicalLocation.ArtifactLocation.URI != "web:1.4.0" {
		t.Errorf("location = %s", first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	}
}

func TestExportSARIFDeduplicatesRules(t *testing.T) {
	report := exportSampleReport()
	// Same CVE on a second target must not produce a duplicate rule.
	report.Findings = append(report.Findings, models.ScanResult{
		Target:   "nginx",
		ImageRef: "nginx:1.4.0",
		Findings: []models.Finding{
			{ID: "CVE-2024-1111", Severity: models.SeverityHigh, PackageName: "openssl"},
		},
	})

	var buf bytes.Buffer
	if err := exportSARIF(&buf, report); err != nil {
		t.Fatalf("exportSARIF() error = %v", err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("parsing sarif output: %v", err)
	}

	if got := len(log.Runs[0].Tool.Driver.Rules); got != 2 {
		t.Errorf("got %d rules, want 2", got)
	}
	if got := len(log.Runs[0].Results); got != 3 {
		t.Errorf("got %d results, want 3", got)
	}
}

func TestSarifLevel(t *testing.T) {
	tests := []struct {
		severity string
		want     string
	}{
		{models.SeverityCritical, "error"},
		{models.SeverityHigh, "error"},
		{models.SeverityMedium, "warning"},
		{models.SeverityLow, "note"},
		{models.SeverityUnknown, "note"},
		{"high", "note"},
	}

	for _, tt := range tests {
		if got := sarifLevel(tt.severity); got != tt.want {
			t.Errorf("sarifLevel(%q) = %s, want %s", tt.severity, got, tt.want)
		}
	}
}
