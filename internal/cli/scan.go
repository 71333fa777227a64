package cli

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/dmelnik/buildgate/internal/scanner"
	"github.com/spf13/cobra"
)

var (
	scanRef     string
	scanTargets string
	scanFormat  string
	scanOutput  string
	scanStore   bool
	scanStrict  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan already-built images and gate on the findings",
	Long: `Scan runs the vulnerability scanner against images that were built
earlier (for example by 'buildgate build') and applies the same
aggregation and outcome gate as a full run.

Every image is scanned even when an earlier scan finds
vulnerabilities; the outcome is decided from the complete set.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanRef, "ref", "",
		"release reference used to derive the image tag, required")
	scanCmd.Flags().StringVarP(&scanTargets, "targets", "t", "",
		"comma-separated target names, or 'all' (default from config)")
	scanCmd.Flags().StringVar(&scanFormat, "format", "text",
		"output format: text, json, html, or both")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "",
		"write output to file")
	scanCmd.Flags().BoolVar(&scanStore, "store", true,
		"persist results for trend analysis")
	scanCmd.Flags().BoolVar(&scanStrict, "strict", false,
		"fail on unknown target names instead of dropping them")
}

func runScan(cmd *cobra.Command, args []string) error {
	runRef = scanRef
	runTargets = scanTargets
	runStrict = scanStrict

	targets, tag, err := resolveTargets()
	if err != nil {
		return err
	}

	reportPath, err := cfg.GetReportPath()
	if err != nil {
		return err
	}

	execFn := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		c := exec.CommandContext(ctx, name, args...)
		return c.CombinedOutput()
	}

	s := scanner.New(execFn, scanner.Options{
		Severities: cfg.Allowlist,
		OutputDir:  reportPath,
	})

	logVerbose("scanning %d image(s)...", len(targets))
	results, err := s.ScanAll(context.Background(), targets)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	for _, res := range results {
		if res.Degraded {
			logError("  △ %s produced no usable scan output", res.ImageRef)
		} else {
			logVerbose("  ✓ %s: %d finding(s)", res.ImageRef, len(res.Findings))
		}
	}

	_, pipeErr := RunPipeline(results, PipelineConfig{
		Format:     scanFormat,
		Output:     scanOutput,
		Store:      scanStore,
		StorageDir: cfg.StorageDir,
		ReportDir:  reportPath,
		Reference:  scanRef,
		Tag:        tag,
		Policy:     cfg.Policy,
		Allowlist:  cfg.Allowlist,
	})
	return pipeErr
}
