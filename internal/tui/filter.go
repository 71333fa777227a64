package tui

import (
	"sort"
	"strings"

	"github.com/dmelnik/buildgate/internal/models"
)

// findingRow is one browsable row: a finding plus the target it came from.
type findingRow struct {
	Target  string
	Finding models.Finding
}

// filterState holds current active filters.
type filterState struct {
	Target     string
	Severity   string
	SearchText string
}

// sortField enumerates columns that can be sorted.
type sortField int

const (
	sortBySeverity sortField = iota
	sortByTarget
	sortByID
	sortByPackage
)

// sortFieldCount is the total number of sortable columns.
const sortFieldCount = 4

var severityPriority = map[string]int{
	models.SeverityCritical: 0,
	models.SeverityHigh:     1,
	models.SeverityMedium:   2,
	models.SeverityLow:      3,
	models.SeverityUnknown:  4,
}

// flattenFindings turns per-target scan results into browsable rows.
func flattenFindings(results []models.ScanResult) []findingRow {
	var rows []findingRow
	for _, result := range results {
		for _, finding := range result.Findings {
			rows = append(rows, findingRow{
				Target:  result.Target,
				Finding: finding,
			})
		}
	}
	return rows
}

// applyFilters returns rows matching all active filters.
func applyFilters(rows []findingRow, f filterState) []findingRow {
	result := make([]findingRow, 0, len(rows))
	searchLower := strings.ToLower(f.SearchText)

	for _, row := range rows {
		if f.Target != "" && row.Target != f.Target {
			continue
		}
		if f.Severity != "" && row.Finding.Severity != f.Severity {
			continue
		}
		if searchLower != "" && !matchesSearch(row, searchLower) {
			continue
		}
		result = append(result, row)
	}
	return result
}

func matchesSearch(row findingRow, searchLower string) bool {
	return strings.Contains(strings.ToLower(row.Target), searchLower) ||
		strings.Contains(strings.ToLower(row.Finding.ID), searchLower) ||
		strings.Contains(strings.ToLower(row.Finding.Severity), searchLower) ||
		strings.Contains(strings.ToLower(row.Finding.PackageName), searchLower) ||
		strings.Contains(strings.ToLower(row.Finding.Title), searchLower)
}

// sortRows sorts a slice of rows in place by the given field.
func sortRows(rows []findingRow, field sortField) {
	sort.SliceStable(rows, func(i, j int) bool {
		switch field {
		case sortBySeverity:
			return severityPriority[rows[i].Finding.Severity] < severityPriority[rows[j].Finding.Severity]
		case sortByTarget:
			return rows[i].Target < rows[j].Target
		case sortByID:
			return rows[i].Finding.ID < rows[j].Finding.ID
		case sortByPackage:
			return rows[i].Finding.PackageName < rows[j].Finding.PackageName
		default:
			return false
		}
	})
}

// uniqueTargets returns deduplicated, sorted target names from rows.
func uniqueTargets(rows []findingRow) []string {
	seen := make(map[string]bool)
	var targets []string
	for _, row := range rows {
		if !seen[row.Target] {
			seen[row.Target] = true
			targets = append(targets, row.Target)
		}
	}
	sort.Strings(targets)
	return targets
}

// sortFieldName returns a human-readable name for the sort field.
func sortFieldName(f sortField) string {
	switch f {
	case sortBySeverity:
		return "severity"
	case sortByTarget:
		return "target"
	case sortByID:
		return "id"
	case sortByPackage:
		return "package"
	default:
		return "unknown"
	}
}
