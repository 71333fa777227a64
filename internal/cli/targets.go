package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	targetsFormat  string
	targetsResolve string
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the build targets in the catalog",
	Long: `Targets prints every buildable target from the active catalog —
the built-in one, or the file named by the catalog setting. With
--resolve it shows what a selection string maps to instead.`,
	RunE: runTargetsCmd,
}

func init() {
	targetsCmd.Flags().StringVar(&targetsFormat, "format", "text",
		"output format: text or json")
	targetsCmd.Flags().StringVar(&targetsResolve, "resolve", "",
		"show what this selection resolves to (e.g. 'web,nginx' or 'all')")
}

func runTargetsCmd(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	targets := cat.Targets()
	if targetsResolve != "" {
		resolution, err := cat.Resolve(targetsResolve, false)
		if err != nil {
			return &ValidationError{Message: err.Error()}
		}
		for _, name := range resolution.Unknown {
			logError("unknown target %q dropped from selection", name)
		}
		targets = resolution.Targets
	}

	if targetsFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(targets)
	}

	if targetsResolve != "" {
		fmt.Printf("Selection %q resolves to %d target(s):\n\n", targetsResolve, len(targets))
	} else {
		fmt.Printf("Catalog targets (%d):\n\n", len(targets))
	}
	for _, t := range targets {
		fmt.Printf("  %-14s %s\n", t.Name, t.BuildFile)
	}
	return nil
}
