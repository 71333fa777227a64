package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/dmelnik/buildgate/internal/builder"
	"github.com/dmelnik/buildgate/internal/catalog"
	"github.com/dmelnik/buildgate/internal/models"
	"github.com/dmelnik/buildgate/internal/registry"
	"github.com/dmelnik/buildgate/internal/scanner"
	"github.com/spf13/cobra"
)

var (
	runRef      string
	runTargets  string
	runFormat   string
	runOutput   string
	runParallel bool
	runNoCache  bool
	runPush     bool
	runStore    bool
	runDryRun   bool
	runStrict   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build, scan, and gate the selected targets in one step",
	Long: `Run performs a full pipeline cycle:

  1. Resolve — pick build targets from the catalog
  2. Build   — build each image (serial or parallel)
  3. Scan    — scan every built image for vulnerabilities
  4. Gate    — aggregate findings and decide the outcome
  5. Push    — push images to the registry (with --push, non-failing outcome only)

Use --dry-run to see the resolved plan without building anything.

Exit codes:
  0  SUCCESS — no reportable findings
  1  FAILED — reportable findings under fail-build policy
  2  Invalid reference or target selection
  3  Build, scan, or push failure`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runRef, "ref", "",
		"release reference to build, required (e.g. v1.4.0 or release/1.8)")
	runCmd.Flags().StringVarP(&runTargets, "targets", "t", "",
		"comma-separated target names, or 'all' (default from config)")
	runCmd.Flags().StringVar(&runFormat, "format", "both",
		"output format: text, json, html, or both")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "",
		"write output to file")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false,
		"build all targets concurrently")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false,
		"build without the layer cache")
	runCmd.Flags().BoolVar(&runPush, "push", false,
		"push images to the registry after a non-failing outcome")
	runCmd.Flags().BoolVar(&runStore, "store", true,
		"persist results for trend analysis")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false,
		"show the resolved plan without building")
	runCmd.Flags().BoolVar(&runStrict, "strict", false,
		"fail on unknown target names instead of dropping them")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Step 1: Resolve targets
	targets, tag, err := resolveTargets()
	if err != nil {
		return err
	}

	if runDryRun {
		fmt.Printf("Dry run — would build %d target(s) with tag %s:\n\n", len(targets), tag)
		for _, target := range targets {
			fmt.Printf("  %-14s %s (%s)\n", target.Name, target.ImageRef(), target.BuildFile)
		}
		return nil
	}

	execFn := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		c := exec.CommandContext(ctx, name, args...)
		return c.CombinedOutput()
	}

	// Step 2: Build
	parallel := runParallel || cfg.Parallel
	cache := cfg.Cache && !runNoCache

	b := builder.New(execFn, builder.Options{
		Parallel: parallel,
		Cache:    cache,
		Timeout:  cfg.Timeout,
	})

	logVerbose("building %d target(s) (parallel=%v cache=%v)...", len(targets), parallel, cache)
	buildResults, err := b.Build(context.Background(), targets)
	for _, res := range buildResults {
		switch {
		case res.Success:
			logVerbose("  ✓ %s (%s)", res.ImageRef, res.Duration)
		case res.Skipped:
			logError("  - %s skipped", res.ImageRef)
		default:
			logError("  ✗ %s: %s", res.ImageRef, res.Error)
		}
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	// Step 3: Scan every built image. All scans complete before the
	// outcome is decided.
	reportPath, err := cfg.GetReportPath()
	if err != nil {
		return err
	}

	s := scanner.New(execFn, scanner.Options{
		Severities: cfg.Allowlist,
		OutputDir:  reportPath,
	})

	logVerbose("scanning %d image(s)...", len(targets))
	scanResults, err := s.ScanAll(context.Background(), targets)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	for _, res := range scanResults {
		if res.Degraded {
			logError("  △ %s produced no usable scan output", res.ImageRef)
		} else {
			logVerbose("  ✓ %s: %d finding(s)", res.ImageRef, len(res.Findings))
		}
	}

	// Step 4: Gate through the shared pipeline
	report, pipeErr := RunPipeline(scanResults, PipelineConfig{
		Format:     runFormat,
		Output:     runOutput,
		Store:      runStore,
		StorageDir: cfg.StorageDir,
		ReportDir:  reportPath,
		Reference:  runRef,
		Tag:        tag,
		Policy:     cfg.Policy,
		Allowlist:  cfg.Allowlist,
	})

	// Step 5: Push unless the outcome failed
	if runPush || cfg.Push {
		if report != nil && report.Outcome == models.OutcomeFail {
			logError("skipping push: outcome is FAILED")
		} else {
			if err := pushTargets(targets); err != nil {
				return err
			}
		}
	}

	return pipeErr
}

// resolveTargets loads the catalog and resolves the selection and tag.
func resolveTargets() ([]catalog.BuildTarget, string, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, "", err
	}

	selection := runTargets
	if selection == "" {
		selection = cfg.Targets
	}

	strict := runStrict || cfg.Strict
	resolution, err := cat.Resolve(selection, strict)
	if err != nil {
		return nil, "", &ValidationError{Message: err.Error()}
	}
	for _, name := range resolution.Unknown {
		logError("unknown target %q dropped from selection", name)
	}

	// The reference gates image tags; a missing one must fail here as a
	// configuration error, never downstream as a malformed build.
	if err := catalog.ValidateReference(runRef); err != nil {
		return nil, "", &ValidationError{Message: err.Error()}
	}
	tag := catalog.DeriveTag(runRef)

	targets := resolution.WithTag(tag)
	logVerbose("resolved %d target(s), tag %q", len(targets), tag)
	return targets, tag, nil
}

// loadCatalog returns the external catalog when configured, the built-in
// catalog otherwise.
func loadCatalog() (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFromFile(cfg.CatalogFile)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("catalog file: %v", err)}
	}
	return cat, nil
}

// pushTargets publishes the images for the given targets.
func pushTargets(targets []catalog.BuildTarget) error {
	creds, err := registry.CredentialsFromEnv(os.Getenv)
	if err != nil {
		return fmt.Errorf("push aborted: %w", err)
	}

	refs := make([]string, 0, len(targets))
	for _, target := range targets {
		refs = append(refs, target.ImageRef())
	}

	p := registry.New(creds, registry.Options{LogFunc: logVerbose}, nil)

	logVerbose("pushing %d image(s) to %s...", len(refs), creds.Registry)
	results, err := p.Publish(context.Background(), refs)
	for _, res := range results {
		if res.Success {
			logVerbose("  ✓ %s (%d attempt(s))", res.ImageRef, res.Attempts)
		} else {
			logError("  ✗ %s: %s", res.ImageRef, res.Error)
		}
	}
	return err
}
