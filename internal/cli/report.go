package cli

import (
	"fmt"

	"github.com/dmelnik/buildgate/internal/collector"
	"github.com/spf13/cobra"
)

var (
	reportDir    string
	reportFormat string
	reportOutput string
	reportRef    string
	reportStore  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate existing scan output files into a report",
	Long: `Report collects <target>-scan.json files from a directory — typically
produced by an earlier scan on another machine or CI stage — and
runs the same aggregation and outcome gate as a live scan.

Unreadable or empty scan files mark their target as degraded rather
than failing the whole report.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportDir, "dir", "d", "",
		"directory containing <target>-scan.json files (default: report dir)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text",
		"output format: text, json, html, or both")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "",
		"write output to file")
	reportCmd.Flags().StringVar(&reportRef, "ref", "",
		"release reference to record on the report")
	reportCmd.Flags().BoolVar(&reportStore, "store", true,
		"persist results for trend analysis")
}

func runReport(cmd *cobra.Command, args []string) error {
	reportPath, err := cfg.GetReportPath()
	if err != nil {
		return err
	}

	dir := reportDir
	if dir == "" {
		dir = reportPath
	}

	c := collector.New(collector.Config{Verbose: cfg.Verbose})

	logVerbose("collecting scan files from %s...", dir)
	results, err := c.CollectFromDirectory(dir)
	if err != nil {
		return fmt.Errorf("collect scan files: %w", err)
	}
	if len(results) == 0 {
		return &ValidationError{Message: fmt.Sprintf("no scan files found in %s", dir)}
	}
	logVerbose("collected %d scan result(s)", len(results))

	_, pipeErr := RunPipeline(results, PipelineConfig{
		Format:     reportFormat,
		Output:     reportOutput,
		Store:      reportStore,
		StorageDir: cfg.StorageDir,
		ReportDir:  reportPath,
		Reference:  reportRef,
		Policy:     cfg.Policy,
		Allowlist:  cfg.Allowlist,
	})
	return pipeErr
}
