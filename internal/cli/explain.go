package cli

import (
	"fmt"
	"strings"

	"github.com/dmelnik/buildgate/internal/models"
	"github.com/dmelnik/buildgate/internal/storage"
	"github.com/spf13/cobra"
)

var explainInput string

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain how a run's outcome was decided",
	Long: `Explain walks through the outcome decision for a run step by step:
which severities counted as reportable, how each target contributed,
and why the run ended SUCCESS, UNSTABLE, or FAILED.`,
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVarP(&explainInput, "input", "i", "",
		"report file to explain (default: latest stored run)")
}

func runExplain(cmd *cobra.Command, args []string) error {
	var report *models.AggregateReport
	var err error

	if explainInput != "" {
		report, err = loadReportFile(explainInput)
	} else {
		var storagePath string
		storagePath, err = getStoragePath(cfg.StorageDir)
		if err != nil {
			return err
		}
		report, err = storage.NewLocal(storagePath).GetLatestRun()
		if err == nil && report == nil {
			err = &ValidationError{Message: "no stored runs found; run a scan with --store first"}
		}
	}
	if err != nil {
		return err
	}

	explainReport(report)
	return nil
}

func explainReport(report *models.AggregateReport) {
	fmt.Printf("Run: %s", report.Timestamp.Format("2006-01-02 15:04:05"))
	if report.Reference != "" {
		fmt.Printf("  (ref %s)", report.Reference)
	}
	fmt.Println()
	fmt.Println()

	fmt.Println("Step 1 — Reportable severities")
	fmt.Printf("  A finding counts against the gate when its severity is one of: %s.\n",
		strings.Join(report.Allowlist, ", "))
	fmt.Println("  Severity matching is exact; lowercase or unrecognized values never count.")
	fmt.Println()

	fmt.Println("Step 2 — Per-target contribution")
	for _, target := range report.Targets {
		if target.Degraded {
			fmt.Printf("  %-14s degraded scan — contributed 0 findings (not a pass)\n", target.Target)
			continue
		}
		fmt.Printf("  %-14s %d finding(s), %d reportable\n",
			target.Target, target.Total, target.Reportable)
	}
	fmt.Println()

	fmt.Println("Step 3 — Totals")
	fmt.Printf("  Total findings:    %d\n", report.TotalFindings)
	fmt.Printf("  Total reportable:  %d\n", report.TotalReportable)
	if len(report.OverThreshold) > 0 {
		fmt.Printf("  Over threshold:    %s\n", strings.Join(report.OverThreshold, ", "))
	}
	fmt.Println()

	fmt.Println("Step 4 — Policy")
	switch {
	case report.TotalReportable == 0:
		fmt.Println("  No reportable findings, so the policy never engages.")
	case report.Policy == models.PolicyWarnOnly:
		fmt.Printf("  %d reportable finding(s) under the %s policy mark the run\n",
			report.TotalReportable, report.Policy)
		fmt.Println("  UNSTABLE without failing it.")
	default:
		fmt.Printf("  %d reportable finding(s) under the %s policy fail the run.\n",
			report.TotalReportable, report.Policy)
	}
	fmt.Println()

	fmt.Printf("Outcome: %s\n", report.OutcomeLabel)
	switch report.Outcome {
	case models.OutcomeFail:
		fmt.Println("  The pipeline exits 1; images are not pushed.")
	case models.OutcomeWarn:
		fmt.Println("  The pipeline exits 0 but the run is marked unstable.")
	default:
		fmt.Println("  The pipeline exits 0.")
	}
}
