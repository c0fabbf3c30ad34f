package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"conform/internal/report"
	"conform/internal/scorer"
)

var reportExportFlag string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the last persisted health report and its trend",
	Long: `Display the state saved by the most recent check: per-candidate scores,
overall health, and the run history trend. Reads persisted state only; use
'conform check' to produce a fresh report.`,
	Run: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportExportFlag, "export", "", "Write a compressed report bundle to this path")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()

	state, err := report.LoadState(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading state: %v\n", err)
		os.Exit(1)
	}
	if state.LastAlignment == nil {
		fmt.Fprintln(os.Stderr, "No health check has run yet; run 'conform check' first")
		os.Exit(1)
	}

	if reportExportFlag != "" {
		if err := report.Export(reportExportFlag, state, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported report bundle to %s\n", reportExportFlag)
		return
	}

	if formatFlag == "json" {
		out, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	printState(state)
}

// printState renders persisted scores plus a sparkline-style history trend.
func printState(state *report.AlignmentState) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Printf("\n%s Last check: %s\n", cyan("▶"), state.LastAlignment.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Overall health: %d/100\n\n", state.OverallHealth)

	names := make([]string, 0, len(state.FeatureScores))
	for name := range state.FeatureScores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := state.FeatureScores[name]
		mark := green("✓")
		switch s.Status {
		case scorer.StatusWarning:
			mark = yellow("!")
		case scorer.StatusCritical:
			mark = red("✗")
		}
		fmt.Printf("  %s %-40s %3d/%d\n", mark, name, s.Score, scorer.MaxScore)
	}

	if len(state.AlignmentHistory) > 1 {
		fmt.Printf("\n%s Trend (%d runs)\n\n", cyan("▶"), len(state.AlignmentHistory))
		for _, entry := range state.AlignmentHistory {
			bar := strings.Repeat("█", entry.OverallHealth/5)
			tint := green
			if entry.CriticalIssues > 0 {
				tint = red
			} else if entry.Warnings > 0 {
				tint = yellow
			}
			fmt.Printf("  %s %3d %s\n",
				entry.Timestamp.Format("2006-01-02 15:04"), entry.OverallHealth, tint(bar))
		}
	}
	fmt.Println()
}
