package cli

import (
	"fmt"
	"os"

	"github.com/dmelnik/buildgate/internal/aggregator"
	"github.com/dmelnik/buildgate/internal/models"
	"github.com/dmelnik/buildgate/internal/storage"
	"github.com/dmelnik/buildgate/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var findingsInput string

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Browse findings interactively",
	Long: `Findings opens an interactive terminal browser over the latest
stored run (or a report file given with --input). Search with /,
filter by target with t, cycle sort order with s, and copy the
selected finding with c.`,
	RunE: runFindings,
}

func init() {
	findingsCmd.Flags().StringVarP(&findingsInput, "input", "i", "",
		"report file to browse (default: latest stored run)")
}

func runFindings(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return &ValidationError{
			Message: "findings needs an interactive terminal; use 'report' or 'export' in pipelines",
		}
	}

	var report *models.AggregateReport
	var trend *models.TrendSummary

	if findingsInput != "" {
		var err error
		report, err = loadReportFile(findingsInput)
		if err != nil {
			return err
		}
	} else {
		storagePath, err := getStoragePath(cfg.StorageDir)
		if err != nil {
			return err
		}
		store := storage.NewLocal(storagePath)

		report, err = store.GetLatestRun()
		if err != nil {
			return fmt.Errorf("load latest run: %w", err)
		}
		if report == nil {
			return &ValidationError{Message: "no stored runs found; run a scan with --store first"}
		}

		if runs, err := store.GetLastNRuns(10); err == nil && len(runs) > 1 {
			trend = aggregator.NewTrendAnalyzer().AnalyzeLastNRuns(runs)
		}
	}

	return tui.Run(report, trend)
}
