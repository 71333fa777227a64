package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dmelnik/buildgate/internal/aggregator"
	"github.com/dmelnik/buildgate/internal/models"
	"github.com/dmelnik/buildgate/internal/storage"
	"github.com/spf13/cobra"
)

var (
	summarizeRuns   int
	summarizeFormat string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize finding trends across stored runs",
	Long: `Summarize loads the most recent stored runs and reports how the
reportable finding count has moved over time, overall and per
target.`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().IntVarP(&summarizeRuns, "runs", "n", 10,
		"number of recent runs to analyze")
	summarizeCmd.Flags().StringVar(&summarizeFormat, "format", "text",
		"output format: text or json")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	storagePath, err := getStoragePath(cfg.StorageDir)
	if err != nil {
		return err
	}

	store := storage.NewLocal(storagePath)
	runs, err := store.GetLastNRuns(summarizeRuns)
	if err != nil {
		return fmt.Errorf("load stored runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs found. Run a scan with --store first.")
		return nil
	}

	analyzer := aggregator.NewTrendAnalyzer()
	summary := analyzer.AnalyzeLastNRuns(runs)

	if summarizeFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	printTrendSummary(summary, runs)
	return nil
}

func printTrendSummary(summary *models.TrendSummary, runs []*models.AggregateReport) {
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║       BuildGate Trend Summary        ║")
	fmt.Println("╚══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Time Range:    %s\n", summary.TimeRange)
	fmt.Printf("Runs Analyzed: %d\n", summary.RunsAnalyzed)

	if len(summary.FindingSparkline) > 0 {
		first := summary.FindingSparkline[0]
		last := summary.FindingSparkline[len(summary.FindingSparkline)-1]
		fmt.Printf("Reportable:    %s  [%d → %d]\n", sparkline(summary.FindingSparkline), first, last)
	}
	fmt.Println()

	if len(summary.ByTarget) > 0 {
		fmt.Println("Per Target")
		fmt.Println(strings.Repeat("─", 52))
		fmt.Printf("  %-16s %8s %9s %8s\n", "TARGET", "CURRENT", "PREVIOUS", "CHANGE")
		for _, name := range sortedTargetNames(summary.ByTarget) {
			t := summary.ByTarget[name]
			fmt.Printf("  %-16s %8d %9d %+7d%%\n", t.Name, t.Current, t.Previous, int(t.ChangePercent))
		}
		fmt.Println()
	}

	latest := runs[len(runs)-1]
	fmt.Printf("Latest outcome: %s (%s)\n", latest.Outcome.String(), latest.Timestamp.Format("2006-01-02 15:04"))
}

func sortedTargetNames(byTarget map[string]*models.TargetTrend) []string {
	names := make([]string, 0, len(byTarget))
	for name := range byTarget {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// sparkline renders counts as a compact unicode bar series.
func sparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}
	max := 0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	var sb strings.Builder
	for _, v := range values {
		idx := 0
		if max > 0 {
			idx = v * (len(sparkChars) - 1) / max
		}
		sb.WriteRune(sparkChars[idx])
	}
	return sb.String()
}
