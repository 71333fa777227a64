package reporter

import (
	"encoding/json"
	"io"

	"github.com/dmelnik/buildgate/internal/models"
)

// JSONReporter generates machine-readable JSON reports
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(writer io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		pretty: pretty,
	}
}

// Generate creates a JSON report from the aggregated data
func (r *JSONReporter) Generate(report *models.AggregateReport) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}

	if err != nil {
		return err
	}

	_, err = r.writer.Write(data)
	if err != nil {
		return err
	}

	// Add trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}

// GenerateSummaryOnly creates a compact JSON summary without per-finding detail
func (r *JSONReporter) GenerateSummaryOnly(report *models.AggregateReport) error {
	summary := struct {
		Timestamp       string                 `json:"timestamp"`
		Reference       string                 `json:"reference,omitempty"`
		Outcome         string                 `json:"outcome"`
		TotalReportable int                    `json:"total_reportable"`
		TotalFindings   int                    `json:"total_findings"`
		OverThreshold   []string               `json:"over_threshold"`
		Targets         []models.TargetSummary `json:"targets"`
		Trend           *models.Trend          `json:"trend,omitempty"`
	}{
		Timestamp:       report.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Reference:       report.Reference,
		Outcome:         report.OutcomeLabel,
		TotalReportable: report.TotalReportable,
		TotalFindings:   report.TotalFindings,
		OverThreshold:   report.OverThreshold,
		Targets:         report.Targets,
		Trend:           report.Trend,
	}

	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(summary, "", "  ")
	} else {
		data, err = json.Marshal(summary)
	}

	if err != nil {
		return err
	}

	_, err = r.writer.Write(data)
	if err != nil {
		return err
	}

	_, err = r.writer.Write([]byte("\n"))
	return err
}
