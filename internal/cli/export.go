package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmelnik/buildgate/internal/models"
	"github.com/dmelnik/buildgate/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	exportInput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run in a machine-readable format",
	Long: `Export converts a stored run (the latest, or a report file given
with --input) to csv, json, or sarif for downstream tooling.

The sarif output follows SARIF 2.1.0 and imports cleanly into code
scanning dashboards.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json",
		"export format: csv, json, or sarif")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write output to file (default stdout)")
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "",
		"report file to export (default: latest stored run)")
}

func runExport(cmd *cobra.Command, args []string) error {
	report, err := loadExportReport()
	if err != nil {
		return err
	}

	out := os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "csv":
		return exportCSV(out, report)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "sarif":
		return exportSARIF(out, report)
	default:
		return &ValidationError{
			Message: fmt.Sprintf("unknown export format %q (use csv, json, or sarif)", exportFormat),
		}
	}
}

func loadExportReport() (*models.AggregateReport, error) {
	if exportInput != "" {
		return loadReportFile(exportInput)
	}

	storagePath, err := getStoragePath(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	report, err := storage.NewLocal(storagePath).GetLatestRun()
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	if report == nil {
		return nil, &ValidationError{Message: "no stored runs found; run a scan with --store first"}
	}
	return report, nil
}

func exportCSV(w io.Writer, report *models.AggregateReport) error {
	cw := csv.NewWriter(w)
	header := []string{"target", "image_ref", "id", "severity", "package", "installed_version", "fixed_version", "title"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, result := range report.Findings {
		for _, f := range result.Findings {
			row := []string{
				result.Target, result.ImageRef,
				f.ID, f.Severity, f.PackageName, f.InstalledVersion, f.FixedVersion, f.Title,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// SARIF 2.1.0 envelope, reduced to the fields scanners actually consume.
type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifText         `json:"shortDescription"`
	Help             sarifText         `json:"help,omitempty"`
	Properties       map[string]string `json:"properties,omitempty"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifText       `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

func exportSARIF(w io.Writer, report *models.AggregateReport) error {
	ruleIndex := make(map[string]bool)
	var rules []sarifRule
	var results []sarifResult

	for _, result := range report.Findings {
		for _, f := range result.Findings {
			if !ruleIndex[f.ID] {
				ruleIndex[f.ID] = true
				rules = append(rules, sarifRule{
					ID:               f.ID,
					ShortDescription: sarifText{Text: f.Title},
					Help:             sarifText{Text: f.Description},
					Properties:       map[string]string{"severity": f.Severity},
				})
			}
			results = append(results, sarifResult{
				RuleID:  f.ID,
				Level:   sarifLevel(f.Severity),
				Message: sarifText{Text: sarifMessage(result.Target, f)},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysical{
						ArtifactLocation: sarifArtifact{URI: result.ImageRef},
					},
				}},
			})
		}
	}

	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:  "buildgate",
				Rules: rules,
			}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

// sarifLevel maps scanner severities onto the SARIF level vocabulary.
func sarifLevel(severity string) string {
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func sarifMessage(target string, f models.Finding) string {
	var sb strings.Builder
	sb.WriteString(f.ID)
	sb.WriteString(" in ")
	sb.WriteString(f.PackageName)
	sb.WriteString(" ")
	sb.WriteString(f.InstalledVersion)
	sb.WriteString(" (target ")
	sb.WriteString(target)
	sb.WriteString(")")
	if f.FixedVersion != "" {
		sb.WriteString(", fixed in ")
		sb.WriteString(f.FixedVersion)
	}
	return sb.String()
}
