package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmelnik/buildgate/internal/models"
)

const sampleTrivyJSON = `{
  "SchemaVersion": 2,
  "ArtifactName": "web:v1.0.0",
  "Results": [
    {
      "Target": "web:v1.0.0 (debian 12)",
      "Type": "debian",
      "Vulnerabilities": [
        {
          "VulnerabilityID": "CVE-2024-1111",
          "PkgName": "openssl",
          "InstalledVersion": "3.0.1",
          "FixedVersion": "3.0.9",
          "Severity": "HIGH",
          "Title": "buffer overflow"
        },
        {
          "VulnerabilityID": "CVE-2024-2222",
          "PkgName": "zlib",
          "InstalledVersion": "1.2.11",
          "Severity": "CRITICAL",
          "Title": "heap corruption"
        }
      ]
    }
  ]
}`

func writeScanFile(t *testing.T, dir, target, content string) string {
	t.Helper()
	path := filepath.Join(dir, target+"-scan.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestParseScanFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScanFile(t, dir, "web", sampleTrivyJSON)

	result, err := ParseScanFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Target != "web" {
		t.Errorf("expected target web, got %s", result.Target)
	}
	if result.ImageRef != "web:v1.0.0" {
		t.Errorf("expected image ref from artifact name, got %s", result.ImageRef)
	}
	if len(result.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(result.Findings))
	}
	if result.Findings[0].ID != "CVE-2024-1111" || result.Findings[0].Severity != models.SeverityHigh {
		t.Errorf("unexpected first finding: %+v", result.Findings[0])
	}
	if result.Degraded {
		t.Error("expected non-degraded result")
	}
}

func TestParseScanFileEmpty(t *testing.T) {
	dir := t.TempDir()
	path := writeScanFile(t, dir, "nginx", "")

	result, err := ParseScanFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Degraded {
		t.Error("expected degraded result for empty file")
	}
	if len(result.Findings) != 0 {
		t.Errorf("expected no findings, got %d", len(result.Findings))
	}
}

func TestParseScanFileCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := writeScanFile(t, dir, "worker-app", "{not json")

	result, err := ParseScanFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Degraded {
		t.Error("expected degraded result for corrupt file")
	}
}

func TestParseScanFileMissing(t *testing.T) {
	if _, err := ParseScanFile(filepath.Join(t.TempDir(), "ghost-scan.json")); err == nil {
		t.Fatal("expected error for unreadable file")
	}
}

func TestTargetFromFilename(t *testing.T) {
	tests := map[string]string{
		"/tmp/runs/web-scan.json": "web",
		"worker-mail-scan.json":   "worker-mail",
		"/a/b/nginx-scan.json":    "nginx",
	}
	for path, want := range tests {
		if got := TargetFromFilename(path); got != want {
			t.Errorf("TargetFromFilename(%s) = %s, want %s", path, got, want)
		}
	}
}

func TestCollectFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeScanFile(t, dir, "web", sampleTrivyJSON)
	writeScanFile(t, dir, "nginx", "")
	writeScanFile(t, dir, "worker-app", `{"SchemaVersion": 2, "ArtifactName": "worker-app:v1.0.0", "Results": []}`)

	c := New(Config{})
	results, err := c.CollectFromDirectory(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Sorted by target name.
	wantOrder := []string{"nginx", "web", "worker-app"}
	for i, want := range wantOrder {
		if results[i].Target != want {
			t.Errorf("result[%d] = %s, want %s", i, results[i].Target, want)
		}
	}
}

func TestCollectFromDirectoryIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeScanFile(t, dir, "web", sampleTrivyJSON)
	if err := os.WriteFile(filepath.Join(dir, "report.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := New(Config{})
	results, err := c.CollectFromDirectory(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected only scan files collected, got %d results", len(results))
	}
}

func TestCollectFromDirectoryEmpty(t *testing.T) {
	c := New(Config{})
	if _, err := c.CollectFromDirectory(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without scan files")
	}
}

func TestCollectFromDirectoryNested(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "runs", "2026-03-10")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	writeScanFile(t, nested, "web", sampleTrivyJSON)

	c := New(Config{})
	results, err := c.CollectFromDirectory(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Target != "web" {
		t.Errorf("expected nested scan file collected, got %+v", results)
	}
}

func TestCollectFilesCancelledContext(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i := 0; i < 50; i++ {
		files = append(files, writeScanFile(t, dir, fmt.Sprintf("svc-%02d", i), sampleTrivyJSON))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Config{MaxConcurrency: 2})

	// A cancelled context must stop the feeder instead of spinning
	// through the remaining files; the call has to return promptly.
	done := make(chan struct{})
	var results []models.ScanResult
	go func() {
		defer close(done)
		results, _ = c.collectFiles(ctx, files)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("collectFiles did not return after context cancellation")
	}

	if len(results) > len(files) {
		t.Errorf("got %d results for %d files", len(results), len(files))
	}
}
