package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dmelnik/buildgate/internal/discovery"
	"github.com/dmelnik/buildgate/internal/storage"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the environment is ready for a pipeline run",
	Long: `Doctor probes the local environment: required tools on PATH,
registry credentials, the catalog, and storage writability. Run it
once on a fresh CI runner before trusting it with a release.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("BuildGate environment check")
	fmt.Println()

	healthy := checkTools()
	healthy = checkCatalog() && healthy
	healthy = checkStorage() && healthy

	fmt.Println()
	if healthy {
		fmt.Println("✓ Environment is ready.")
		return nil
	}
	fmt.Println("✗ Environment has problems; fix the items above.")
	return &ValidationError{Message: "environment check failed"}
}

func checkTools() bool {
	plan := discovery.New(exec.LookPath, os.Getenv).Discover()

	fmt.Println("Tools")
	for _, tool := range plan.Tools {
		switch {
		case tool.Ready:
			fmt.Printf("  ✓ %-10s %s\n", tool.Name, tool.BinaryPath)
		case tool.Available:
			fmt.Printf("  △ %-10s found but not configured\n", tool.Name)
		default:
			fmt.Printf("  ✗ %-10s not found", tool.Name)
			if info, ok := discovery.Registry[tool.Name]; ok && info.InstallHint != "" {
				fmt.Printf(" — install: %s", info.InstallHint)
			}
			fmt.Println()
		}
		for _, env := range tool.EnvVars {
			mark := "✗"
			if env.Set {
				mark = "✓"
			}
			fmt.Printf("      %s %s\n", mark, env.Name)
		}
	}

	if !plan.PushReady() {
		fmt.Println("  △ push disabled: registry credentials incomplete")
	}
	return plan.PipelineReady()
}

func checkCatalog() bool {
	fmt.Println("\nCatalog")
	cat, err := loadCatalog()
	if err != nil {
		fmt.Printf("  ✗ %v\n", err)
		return false
	}
	source := "built-in"
	if cfg.CatalogFile != "" {
		source = cfg.CatalogFile
	}
	fmt.Printf("  ✓ %d target(s) from %s\n", cat.Len(), source)
	return true
}

func checkStorage() bool {
	fmt.Println("\nStorage")

	storagePath, err := getStoragePath(cfg.StorageDir)
	if err != nil {
		fmt.Printf("  ✗ %v\n", err)
		return false
	}

	store := storage.NewLocal(storagePath)
	if err := store.EnsureDirectoryExists(); err != nil {
		fmt.Printf("  ✗ %s not writable: %v\n", storagePath, err)
		return false
	}

	probe := filepath.Join(store.GetStoragePath(), ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		fmt.Printf("  ✗ %s not writable: %v\n", storagePath, err)
		return false
	}
	os.Remove(probe)

	runs, err := store.ListRuns()
	if err != nil {
		fmt.Printf("  △ %s writable, run listing failed: %v\n", storagePath, err)
		return true
	}
	fmt.Printf("  ✓ %s writable, %d stored run(s)\n", storagePath, len(runs))
	return true
}
