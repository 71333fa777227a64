package cli

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/dmelnik/buildgate/internal/builder"
	"github.com/spf13/cobra"
)

var (
	buildRef      string
	buildTargets  string
	buildParallel bool
	buildNoCache  bool
	buildStrict   bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the selected targets without scanning",
	Long: `Build resolves the target selection against the catalog and builds
each image, without the scan and gate steps. Useful for verifying
that all build files are healthy before a release run.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildRef, "ref", "",
		"release reference used to derive the image tag, required")
	buildCmd.Flags().StringVarP(&buildTargets, "targets", "t", "",
		"comma-separated target names, or 'all' (default from config)")
	buildCmd.Flags().BoolVar(&buildParallel, "parallel", false,
		"build all targets concurrently")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false,
		"build without the layer cache")
	buildCmd.Flags().BoolVar(&buildStrict, "strict", false,
		"fail on unknown target names instead of dropping them")
}

func runBuild(cmd *cobra.Command, args []string) error {
	runRef = buildRef
	runTargets = buildTargets
	runStrict = buildStrict

	targets, tag, err := resolveTargets()
	if err != nil {
		return err
	}

	execFn := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		c := exec.CommandContext(ctx, name, args...)
		return c.CombinedOutput()
	}

	b := builder.New(execFn, builder.Options{
		Parallel: buildParallel || cfg.Parallel,
		Cache:    cfg.Cache && !buildNoCache,
		Timeout:  cfg.Timeout,
	})

	if tag != "" {
		logVerbose("building %d target(s) with tag %s...", len(targets), tag)
	} else {
		logVerbose("building %d target(s)...", len(targets))
	}

	results, err := b.Build(context.Background(), targets)
	for _, res := range results {
		switch {
		case res.Success:
			fmt.Printf("  ✓ %s (%s)\n", res.ImageRef, res.Duration)
		case res.Skipped:
			fmt.Printf("  - %s skipped\n", res.ImageRef)
		default:
			fmt.Printf("  ✗ %s: %s\n", res.ImageRef, res.Error)
		}
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("\nBuilt %d image(s).\n", len(builder.Succeeded(results)))
	return nil
}
