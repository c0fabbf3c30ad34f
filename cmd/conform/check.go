package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"conform/internal/conflict"
	"conform/internal/report"
	"conform/internal/scorer"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a full health check",
	Long: `Discover orchestrators and agents, score each one's integration, detect
conflicts, and print the aggregated report. Exits 0 when overall health meets
the configured threshold and no critical issues remain, 1 otherwise.`,
	Run: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	logger := newLogger()
	repoRoot := mustGetRepoRoot()

	engine, cfg, cleanup, err := buildEngine(repoRoot, logger, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	rep, _, err := engine.Run(newContext())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running health check: %v\n", err)
		os.Exit(1)
	}

	if formatFlag == "json" {
		out, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	} else {
		printReport(rep)
	}

	if !rep.Passes(cfg.Report.HealthThreshold) {
		os.Exit(1)
	}
}

// printReport renders the human view: per-candidate scores sorted worst
// first, then conflicts, then the overall verdict.
func printReport(rep *report.AlignmentReport) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	names := make([]string, 0, len(rep.Scores))
	for name := range rep.Scores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		si, sj := rep.Scores[names[i]], rep.Scores[names[j]]
		if si.Score != sj.Score {
			return si.Score < sj.Score
		}
		return names[i] < names[j]
	})

	fmt.Printf("\n%s Integration scores (%d candidates)\n\n", cyan("▶"), len(names))
	for _, name := range names {
		s := rep.Scores[name]
		mark := green("✓")
		switch s.Status {
		case scorer.StatusWarning:
			mark = yellow("!")
		case scorer.StatusCritical:
			mark = red("✗")
		}
		fmt.Printf("  %s %-40s %3d/%d [%s]\n", mark, name, s.Score, scorer.MaxScore, s.Status)
		for _, issue := range s.Issues {
			fmt.Printf("      - %s\n", issue)
		}
	}

	if len(rep.Conflicts) > 0 {
		fmt.Printf("\n%s Conflicts (%d)\n\n", cyan("▶"), len(rep.Conflicts))
		for _, c := range rep.Conflicts {
			mark := yellow("!")
			if c.Severity == conflict.SeverityCritical {
				mark = red("✗")
			}
			fix := ""
			if c.AutoFixable {
				fix = " (auto-fixable)"
			}
			fmt.Printf("  %s [%s] %s%s\n", mark, c.Type, c.Title, fix)
			for _, p := range c.AffectedPaths {
				fmt.Printf("      %s\n", p)
			}
		}
	}

	fmt.Println()
	verdict := green("healthy")
	if rep.CriticalIssues > 0 {
		verdict = red("critical")
	} else if rep.Warnings > 0 {
		verdict = yellow("warning")
	}
	fmt.Printf("Overall health: %d/100 (%s) — %d critical, %d warnings\n",
		rep.OverallHealth, verdict, rep.CriticalIssues, rep.Warnings)
}
