package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/dmelnik/buildgate/internal/models"
	"github.com/dmelnik/buildgate/internal/storage"
	"github.com/spf13/cobra"
)

var (
	diffFormat  string
	diffFailNew bool
)

var diffCmd = &cobra.Command{
	Use:   "diff [baseline.json current.json]",
	Short: "Compare two runs and show new and fixed findings",
	Long: `Diff compares two aggregate reports finding by finding. With no
arguments it compares the two most recent stored runs; with two
arguments it compares the given report files.

A finding is matched across runs by target, vulnerability ID, and
package name. Use --fail-new to exit non-zero when the current run
introduces findings absent from the baseline — a cheap regression
gate between releases.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffFormat, "format", "text",
		"output format: text or json")
	diffCmd.Flags().BoolVar(&diffFailNew, "fail-new", false,
		"exit with a failure when new findings are introduced")
}

// findingDiff pairs a finding with the target it belongs to.
type findingDiff struct {
	Target  string         `json:"target"`
	Finding models.Finding `json:"finding"`
}

// diffSummary is the full comparison between two runs.
type diffSummary struct {
	BaselineTime string        `json:"baseline_time"`
	CurrentTime  string        `json:"current_time"`
	New          []findingDiff `json:"new"`
	Fixed        []findingDiff `json:"fixed"`
	Unchanged    int           `json:"unchanged"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	baseline, current, err := loadDiffPair(args)
	if err != nil {
		return err
	}

	summary := diffReports(baseline, current)

	if diffFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		printDiff(summary)
	}

	if diffFailNew && len(summary.New) > 0 {
		return &ThresholdExceededError{
			ReportableCount: len(summary.New),
			Policy:          "fail-new",
		}
	}
	return nil
}

// loadDiffPair returns (baseline, current) from file arguments or from the
// two most recent stored runs.
func loadDiffPair(args []string) (*models.AggregateReport, *models.AggregateReport, error) {
	if len(args) == 1 {
		return nil, nil, &ValidationError{Message: "diff needs zero or two report files"}
	}

	if len(args) == 2 {
		baseline, err := loadReportFile(args[0])
		if err != nil {
			return nil, nil, err
		}
		current, err := loadReportFile(args[1])
		if err != nil {
			return nil, nil, err
		}
		return baseline, current, nil
	}

	storagePath, err := getStoragePath(cfg.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	runs, err := storage.NewLocal(storagePath).GetLastNRuns(2)
	if err != nil {
		return nil, nil, fmt.Errorf("load stored runs: %w", err)
	}
	if len(runs) < 2 {
		return nil, nil, &ValidationError{
			Message: fmt.Sprintf("need at least 2 stored runs to diff, found %d", len(runs)),
		}
	}
	return runs[0], runs[1], nil
}

func loadReportFile(path string) (*models.AggregateReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("read report: %v", err)}
	}
	var report models.AggregateReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("parse report %s: %v", path, err)}
	}
	return &report, nil
}

// diffKey identifies a finding across runs.
func diffKey(target string, f models.Finding) string {
	return target + "|" + f.ID + "|" + f.PackageName
}

func diffReports(baseline, current *models.AggregateReport) *diffSummary {
	baseSet := make(map[string]findingDiff)
	for _, result := range baseline.Findings {
		for _, f := range result.Findings {
			baseSet[diffKey(result.Target, f)] = findingDiff{Target: result.Target, Finding: f}
		}
	}

	summary := &diffSummary{
		BaselineTime: baseline.Timestamp.Format("2006-01-02 15:04:05"),
		CurrentTime:  current.Timestamp.Format("2006-01-02 15:04:05"),
	}

	seen := make(map[string]bool)
	for _, result := range current.Findings {
		for _, f := range result.Findings {
			key := diffKey(result.Target, f)
			seen[key] = true
			if _, ok := baseSet[key]; ok {
				summary.Unchanged++
			} else {
				summary.New = append(summary.New, findingDiff{Target: result.Target, Finding: f})
			}
		}
	}
	for key, fd := range baseSet {
		if !seen[key] {
			summary.Fixed = append(summary.Fixed, fd)
		}
	}

	sortDiffs(summary.New)
	sortDiffs(summary.Fixed)
	return summary
}

func sortDiffs(diffs []findingDiff) {
	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Target != diffs[j].Target {
			return diffs[i].Target < diffs[j].Target
		}
		return diffs[i].Finding.ID < diffs[j].Finding.ID
	})
}

func printDiff(summary *diffSummary) {
	fmt.Printf("Comparing %s → %s\n\n", summary.BaselineTime, summary.CurrentTime)

	if len(summary.New) == 0 && len(summary.Fixed) == 0 {
		fmt.Printf("No changes. %d finding(s) unchanged.\n", summary.Unchanged)
		return
	}

	if len(summary.New) > 0 {
		fmt.Printf("New findings (%d):\n", len(summary.New))
		for _, fd := range summary.New {
			fmt.Printf("  + [%s] %s %s (%s)\n",
				fd.Finding.Severity, fd.Target, fd.Finding.ID, fd.Finding.PackageName)
		}
		fmt.Println()
	}

	if len(summary.Fixed) > 0 {
		fmt.Printf("Fixed findings (%d):\n", len(summary.Fixed))
		for _, fd := range summary.Fixed {
			fmt.Printf("  - [%s] %s %s (%s)\n",
				fd.Finding.Severity, fd.Target, fd.Finding.ID, fd.Finding.PackageName)
		}
		fmt.Println()
	}

	fmt.Printf("%d new, %d fixed, %d unchanged\n",
		len(summary.New), len(summary.Fixed), summary.Unchanged)
}
