package collector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmelnik/buildgate/internal/models"
)

// TargetFromFilename derives the build target name from a scan output
// filename. web-scan.json → web.
func TargetFromFilename(path string) string {
	return strings.TrimSuffix(filepath.Base(path), "-scan.json")
}

// ParseScanFile reads one scanner output file into a scan result. An empty
// or unparseable file yields a degraded result with zero findings rather
// than an error; the target still appears in the report.
func ParseScanFile(path string) (*models.ScanResult, error) {
	target := TargetFromFilename(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	info, err := os.Stat(path)
	scanTime := time.Now()
	if err == nil {
		scanTime = info.ModTime()
	}

	result := &models.ScanResult{
		Target:   target,
		ScanTime: scanTime,
	}

	if len(data) == 0 {
		result.Degraded = true
		return result, nil
	}

	var report models.TrivyReport
	if err := json.Unmarshal(data, &report); err != nil {
		result.Degraded = true
		return result, nil
	}

	result.ImageRef = report.ArtifactName
	result.Findings = report.Findings()
	return result, nil
}
