package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmelnik/buildgate/internal/models"
)

func sampleReport(ts time.Time) *models.AggregateReport {
	return &models.AggregateReport{
		Timestamp: ts,
		Targets: []models.TargetSummary{
			{
				Target:     "web",
				ImageRef:   "web:v1.0.0",
				BySeverity: map[string]int{models.SeverityHigh: 2},
				Total:      2,
				Reportable: 2,
			},
		},
		TotalReportable: 2,
		TotalFindings:   2,
		Outcome:         models.OutcomeFail,
		OutcomeLabel:    "FAILED",
		Allowlist:       []string{models.SeverityHigh, models.SeverityCritical},
		Policy:          models.PolicyFailBuild,
	}
}

func TestNewLocal(t *testing.T) {
	s := NewLocal("/tmp/test")
	if s.baseDir != "/tmp/test" {
		t.Errorf("expected baseDir=/tmp/test, got %s", s.baseDir)
	}
}

func TestGetStoragePath(t *testing.T) {
	s := NewLocal("/tmp/buildgate")
	if s.GetStoragePath() != "/tmp/buildgate" {
		t.Errorf("expected /tmp/buildgate, got %s", s.GetStoragePath())
	}
}

func TestEnsureDirectoryExists(t *testing.T) {
	dir := t.TempDir()
	baseDir := filepath.Join(dir, "nested", "buildgate")
	s := NewLocal(baseDir)

	if err := s.EnsureDirectoryExists(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runsDir := filepath.Join(baseDir, "runs")
	if _, err := os.Stat(runsDir); err != nil {
		t.Fatalf("expected runs directory to exist: %v", err)
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	ts := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	report := sampleReport(ts)

	if err := s.SaveReport(report); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	expectedFile := filepath.Join(dir, "runs", "2026-03-10T14-30-00-report.json")
	if _, err := os.Stat(expectedFile); err != nil {
		t.Fatalf("expected report file: %v", err)
	}

	loaded, err := s.LoadReport(ts)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if loaded.TotalReportable != 2 {
		t.Errorf("expected 2 reportable, got %d", loaded.TotalReportable)
	}
	if loaded.OutcomeLabel != "FAILED" {
		t.Errorf("expected FAILED, got %s", loaded.OutcomeLabel)
	}
	if len(loaded.Targets) != 1 || loaded.Targets[0].Target != "web" {
		t.Errorf("unexpected targets: %+v", loaded.Targets)
	}
}

func TestLoadReportNotFound(t *testing.T) {
	s := NewLocal(t.TempDir())

	_, err := s.LoadReport(time.Now())
	if err == nil {
		t.Fatal("expected error for missing report")
	}
}

func TestListRunsEmpty(t *testing.T) {
	s := NewLocal(t.TempDir())

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestListRunsSorted(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	timestamps := []time.Time{
		time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
	}
	for _, ts := range timestamps {
		if err := s.SaveReport(sampleReport(ts)); err != nil {
			t.Fatalf("unexpected save error: %v", err)
		}
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].Before(runs[i-1]) {
			t.Errorf("runs not chronological: %v", runs)
		}
	}
}

func TestListRunsIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	if err := s.EnsureDirectoryExists(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runsDir := filepath.Join(dir, "runs")
	for _, name := range []string{"notes.txt", "garbage-report.json", "web-scan.json"} {
		if err := os.WriteFile(filepath.Join(runsDir, name), []byte("{}"), 0644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected unrelated files to be skipped, got %d runs", len(runs))
	}
}

func TestGetLatestRun(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	older := sampleReport(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	newer := sampleReport(time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC))
	newer.TotalReportable = 5

	for _, report := range []*models.AggregateReport{older, newer} {
		if err := s.SaveReport(report); err != nil {
			t.Fatalf("unexpected save error: %v", err)
		}
	}

	latest, err := s.GetLatestRun()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.TotalReportable != 5 {
		t.Errorf("expected latest run, got reportable=%d", latest.TotalReportable)
	}
}

func TestGetLatestRunEmpty(t *testing.T) {
	s := NewLocal(t.TempDir())

	if _, err := s.GetLatestRun(); err == nil {
		t.Fatal("expected error for empty storage")
	}
}

func TestGetLastNRuns(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	for day := 10; day <= 14; day++ {
		report := sampleReport(time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC))
		report.TotalReportable = day
		if err := s.SaveReport(report); err != nil {
			t.Fatalf("unexpected save error: %v", err)
		}
	}

	runs, err := s.GetLastNRuns(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].TotalReportable != 12 || runs[2].TotalReportable != 14 {
		t.Errorf("expected the most recent 3 runs in order, got %d..%d",
			runs[0].TotalReportable, runs[2].TotalReportable)
	}
}

func TestGetLastNRunsMoreThanAvailable(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	if err := s.SaveReport(sampleReport(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	runs, err := s.GetLastNRuns(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}
