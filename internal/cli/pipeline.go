package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmelnik/buildgate/internal/aggregator"
	"github.com/dmelnik/buildgate/internal/models"
	"github.com/dmelnik/buildgate/internal/policy"
	"github.com/dmelnik/buildgate/internal/reporter"
	"github.com/dmelnik/buildgate/internal/storage"
)

// PipelineConfig holds options for the shared aggregation pipeline.
type PipelineConfig struct {
	Format     string
	Output     string
	Store      bool
	StorageDir string
	ReportDir  string
	Reference  string
	Tag        string
	Policy     string
	Allowlist  []string
}

// RunPipeline executes the aggregation pipeline on a set of scan results.
// This is the shared logic between the run and report commands:
// aggregate → trend → store → output → policy check → outcome.
// The returned report is always non-nil on success paths so callers can
// inspect the outcome even when the error signals a failing gate.
func RunPipeline(results []models.ScanResult, pcfg PipelineConfig) (*models.AggregateReport, error) {
	// Step 1: Aggregate scan results
	agg := aggregator.New(aggregator.Options{
		Allowlist: pcfg.Allowlist,
		Policy:    pcfg.Policy,
		Reference: pcfg.Reference,
		Tag:       pcfg.Tag,
	})
	report := agg.Aggregate(results)

	logVerbose("Aggregated %d findings (%d reportable) across %d targets",
		report.TotalFindings, report.TotalReportable, len(report.Targets))

	// Step 2: Add trend analysis if storage is enabled and previous runs exist
	if pcfg.Store {
		storagePath, err := getStoragePath(pcfg.StorageDir)
		if err != nil {
			logError("Failed to get storage path: %v", err)
			return nil, err
		}

		store := storage.NewLocal(storagePath)

		if previousReport, err := store.GetLatestRun(); err == nil {
			logVerbose("Found previous run from %s", previousReport.Timestamp)
			analyzer := aggregator.NewTrendAnalyzer()
			report.Trend = analyzer.CalculateTrend(report, previousReport)
		} else {
			logDebug("No previous run found: %v", err)
		}
	}

	// Step 3: Store if enabled
	if pcfg.Store {
		storagePath, err := getStoragePath(pcfg.StorageDir)
		if err != nil {
			logError("Failed to get storage path: %v", err)
			return nil, err
		}

		store := storage.NewLocal(storagePath)

		if err := store.EnsureDirectoryExists(); err != nil {
			logError("Failed to create storage directory: %v", err)
			return nil, err
		}

		if err := store.SaveReport(report); err != nil {
			logError("Failed to store report: %v", err)
			return nil, err
		}

		logVerbose("Stored report in: %s", storagePath)
	}

	// Step 4: Generate output
	if err := generateOutput(report, pcfg); err != nil {
		logError("Failed to generate output: %v", err)
		return nil, err
	}

	// Step 5: Policy enforcement (if .buildgate-policy.yaml exists)
	if policyPath := policy.FindPolicyFile(); policyPath != "" {
		logVerbose("Found policy file: %s", policyPath)

		pol, err := policy.LoadFromFile(policyPath)
		if err != nil {
			logError("Failed to load policy: %v", err)
			return nil, err
		}

		if pol != nil {
			result := pol.Evaluate(report)
			if !result.Pass {
				for _, v := range result.Violations {
					logError("Policy violation [%s]: %s", v.Rule, v.Message)
				}
				report.Outcome = report.Outcome.Merge(models.OutcomeFail)
				report.OutcomeLabel = report.Outcome.String()
				return report, &ThresholdExceededError{
					ReportableCount: report.TotalReportable,
					Policy:          pcfg.Policy,
				}
			}
			logVerbose("Policy check passed")
		}
	}

	// Step 6: Raise the outcome
	switch report.Outcome {
	case models.OutcomeFail:
		logError("Build marked FAILED: %d reportable finding(s)", report.TotalReportable)
		return report, &ThresholdExceededError{
			ReportableCount: report.TotalReportable,
			Policy:          pcfg.Policy,
		}
	case models.OutcomeWarn:
		logError("Build marked UNSTABLE: %d reportable finding(s) under %s policy",
			report.TotalReportable, report.Policy)
	}

	return report, nil
}

// generateOutput generates the output in the specified format(s).
func generateOutput(report *models.AggregateReport, pcfg PipelineConfig) error {
	switch pcfg.Format {
	case "text":
		writer, cleanup, err := openOutput(pcfg.Output)
		if err != nil {
			return err
		}
		defer cleanup()
		return reporter.NewTextReporter(writer).Generate(report)

	case "json":
		writer, cleanup, err := openOutput(pcfg.Output)
		if err != nil {
			return err
		}
		defer cleanup()
		return reporter.NewJSONReporter(writer, true).Generate(report)

	case "html":
		path := pcfg.Output
		if path == "" {
			if err := os.MkdirAll(pcfg.ReportDir, 0755); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
			path = filepath.Join(pcfg.ReportDir, "scan-report.html")
		}
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = file.Close() }()
		if err := reporter.NewHTMLReporter(file).Generate(report); err != nil {
			return err
		}
		fmt.Printf("HTML report written to %s\n", path)
		return nil

	case "both":
		// Text to stdout, HTML to the report directory.
		if err := reporter.NewTextReporter(os.Stdout).Generate(report); err != nil {
			return err
		}
		if err := os.MkdirAll(pcfg.ReportDir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		path := filepath.Join(pcfg.ReportDir, "scan-report.html")
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create HTML file: %w", err)
		}
		defer func() { _ = file.Close() }()
		if err := reporter.NewHTMLReporter(file).Generate(report); err != nil {
			return err
		}
		fmt.Printf("HTML report written to %s\n", path)
		return nil

	default:
		return fmt.Errorf("unsupported format: %s (use text, json, html, or both)", pcfg.Format)
	}
}

// openOutput returns a writer for the given path, defaulting to stdout.
func openOutput(outputPath string) (*os.File, func(), error) {
	if outputPath == "" {
		return os.Stdout, func() {}, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}

// getStoragePath resolves the storage path, expanding ~ and converting to absolute.
func getStoragePath(storageDir string) (string, error) {
	if len(storageDir) >= 2 && storageDir[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		storageDir = filepath.Join(home, storageDir[2:])
	}

	absPath, err := filepath.Abs(storageDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}
