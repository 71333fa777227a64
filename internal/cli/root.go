package cli

import (
	"fmt"
	"os"

	"github.com/dmelnik/buildgate/internal/config"
	"github.com/spf13/cobra"
)

const (
	ExitOK           = 0 // Success
	ExitPolicyFail   = 1 // Reportable findings under fail-build policy
	ExitInvalidInput = 2 // Bad reference, selection, or config
	ExitRuntimeError = 3 // Build, scan, push, or I/O failure
)

var (
	// Global config instance
	cfg *config.Config

	// Global flags
	configFile string
	verbose    bool
	debug      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "buildgate",
	Short: "BuildGate - Build, scan, and gate container images",
	Long: `BuildGate orchestrates the container image pipeline for a release:
build the images in the target catalog, scan each one for vulnerabilities,
aggregate the findings, and decide whether the release passes.

It provides:
- Catalog-driven image builds (serial or parallel)
- Vulnerability scanning with severity-based gating
- HTML, text, and JSON reports with trend history
- Registry pushes gated on the scan outcome
- CI/CD integration with exit codes

Quick start:
  buildgate doctor
  buildgate run --ref v1.4.0
  buildgate run --ref release/1.8 --push

Other commands:
  buildgate targets
  buildgate report --dir ./reports
  buildgate diff --fail-new
  buildgate export --format sarif`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags if provided
		if verbose {
			cfg.Verbose = true
		}
		if debug {
			cfg.Debug = true
		}

		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		os.Exit(HandleError(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./buildgate.yaml or ~/buildgate.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"debug mode (very verbose)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(findingsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(versionCmd)
}

var version = "dev"

// SetVersion sets the version string shown by the version command.
func SetVersion(v string) {
	version = v
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("BuildGate %s\n", version)
		fmt.Println("Build, scan, and gate container images")
	},
}

// HandleError determines the appropriate exit code for an error
func HandleError(err error) int {
	if err == nil {
		return ExitOK
	}

	switch err.(type) {
	case *ValidationError:
		return ExitInvalidInput
	case *ThresholdExceededError:
		return ExitPolicyFail
	default:
		return ExitRuntimeError
	}
}

// ValidationError represents invalid user input: a bad reference,
// an empty target selection, or a broken config.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ThresholdExceededError represents a failing scan outcome under the
// fail-build policy, or a policy file violation.
type ThresholdExceededError struct {
	ReportableCount int
	Policy          string
}

func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("%d reportable finding(s) under %s policy", e.ReportableCount, e.Policy)
}

// logVerbose prints a message if verbose mode is enabled
func logVerbose(format string, args ...interface{}) {
	if cfg != nil && cfg.Verbose {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

// logDebug prints a message if debug mode is enabled
func logDebug(format string, args ...interface{}) {
	if cfg != nil && cfg.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// logError prints an error message
func logError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
}
