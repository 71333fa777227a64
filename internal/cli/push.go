package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmelnik/buildgate/internal/registry"
	"github.com/spf13/cobra"
)

var (
	pushRef         string
	pushTargetsFlag string
	pushStrict      bool
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push built images to the configured registry",
	Long: `Push publishes the images for the selected targets to the registry
named by BUILDGATE_REGISTRY, authenticating with
BUILDGATE_REGISTRY_USER and BUILDGATE_REGISTRY_PASSWORD.

Login happens once before the first push; each push is retried
twice before being counted as failed. A failed push does not stop
the remaining images.`,
	RunE: runPushCmd,
}

func init() {
	pushCmd.Flags().StringVar(&pushRef, "ref", "",
		"release reference used to derive the image tag, required")
	pushCmd.Flags().StringVarP(&pushTargetsFlag, "targets", "t", "",
		"comma-separated target names, or 'all' (default from config)")
	pushCmd.Flags().BoolVar(&pushStrict, "strict", false,
		"fail on unknown target names instead of dropping them")
}

func runPushCmd(cmd *cobra.Command, args []string) error {
	runRef = pushRef
	runTargets = pushTargetsFlag
	runStrict = pushStrict

	targets, _, err := resolveTargets()
	if err != nil {
		return err
	}

	creds, err := registry.CredentialsFromEnv(os.Getenv)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	refs := make([]string, 0, len(targets))
	for _, target := range targets {
		refs = append(refs, target.ImageRef())
	}

	p := registry.New(creds, registry.Options{LogFunc: logVerbose}, nil)

	fmt.Printf("Pushing %d image(s) to %s...\n", len(refs), creds.Registry)
	results, err := p.Publish(context.Background(), refs)
	for _, res := range results {
		if res.Success {
			fmt.Printf("  ✓ %s (%d attempt(s), %s)\n", res.ImageRef, res.Attempts, res.Duration)
		} else {
			fmt.Printf("  ✗ %s: %s\n", res.ImageRef, res.Error)
		}
	}
	return err
}
