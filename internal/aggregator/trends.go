package aggregator

import (
	"fmt"

	"github.com/dmelnik/buildgate/internal/models"
)

// TrendAnalyzer analyzes trends across multiple stored runs
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a new trend analyzer
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// CalculateTrend compares the current report with a previous one
func (t *TrendAnalyzer) CalculateTrend(current, previous *models.AggregateReport) *models.Trend {
	if previous == nil {
		return nil
	}

	trend := &models.Trend{
		PreviousTotal: previous.TotalReportable,
		CurrentTotal:  current.TotalReportable,
		ComparedWith:  previous.Timestamp,
	}

	change := current.TotalReportable - previous.TotalReportable

	if previous.TotalReportable > 0 {
		trend.ChangePercent = float64(change) / float64(previous.TotalReportable) * 100.0
	}

	if change < 0 {
		trend.Direction = "improving"
		trend.FixedFindings = -change
	} else if change > 0 {
		trend.Direction = "degrading"
		trend.NewFindings = change
	} else {
		trend.Direction = "stable"
	}

	return trend
}

// AnalyzeLastNRuns analyzes trends across the last N stored runs
func (t *TrendAnalyzer) AnalyzeLastNRuns(runs []*models.AggregateReport) *models.TrendSummary {
	if len(runs) == 0 {
		return nil
	}

	summary := &models.TrendSummary{
		RunsAnalyzed: len(runs),
		ByTarget:     make(map[string]*models.TargetTrend),
	}

	if len(runs) > 1 {
		earliest := runs[0].Timestamp
		latest := runs[len(runs)-1].Timestamp
		days := int(latest.Sub(earliest).Hours() / 24)
		summary.TimeRange = fmt.Sprintf("Last %d days", days)
	} else {
		summary.TimeRange = "Single run"
	}

	// Sparkline of reportable totals over time
	for _, run := range runs {
		summary.FindingSparkline = append(summary.FindingSparkline, run.TotalReportable)
	}

	// Per-target trend from the last two runs
	latest := runs[len(runs)-1]
	var previous *models.AggregateReport
	if len(runs) > 1 {
		previous = runs[len(runs)-2]
	}

	previousCounts := make(map[string]int)
	if previous != nil {
		for _, target := range previous.Targets {
			previousCounts[target.Target] = target.Reportable
		}
	}

	for _, target := range latest.Targets {
		trend := &models.TargetTrend{
			Name:     target.Target,
			Current:  target.Reportable,
			Previous: previousCounts[target.Target],
		}
		trend.Change = trend.Current - trend.Previous
		if trend.Previous > 0 {
			trend.ChangePercent = float64(trend.Change) / float64(trend.Previous) * 100.0
		}
		summary.ByTarget[target.Target] = trend
	}

	return summary
}

// GetTrendIndicator returns a directional arrow for a trend direction
func GetTrendIndicator(direction string) string {
	switch direction {
	case "improving":
		return "↓"
	case "degrading":
		return "↑"
	default:
		return "→"
	}
}
