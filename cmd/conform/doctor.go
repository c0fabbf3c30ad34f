package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"conform/internal/config"
	"conform/internal/parse"
	"conform/internal/routing"
	"conform/internal/vcs"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose conform environment issues",
	Long: `Check that everything a health run depends on is in place: structural
parsing support, git availability, configuration validity, and the
convention files (routing, entrypoint, coverage summary).`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorCheck struct {
	name   string
	ok     bool
	detail string
}

func runDoctor(cmd *cobra.Command, args []string) {
	logger := newLogger()
	repoRoot := mustGetRepoRoot()
	cfg := loadConfig(repoRoot, logger)

	var checks []doctorCheck

	checks = append(checks, doctorCheck{
		name:   "structural parsing",
		ok:     parse.IsAvailable(),
		detail: "built without cgo; scores will miss declaration metadata",
	})

	git := vcs.NewGit(repoRoot, 10*time.Second, logger)
	checks = append(checks, doctorCheck{
		name:   "git repository",
		ok:     git.IsRepository(),
		detail: "fix batches need a git checkpoint; run git init",
	})

	cfgErr := cfg.Validate()
	detail := ""
	if cfgErr != nil {
		detail = cfgErr.Error()
	}
	checks = append(checks, doctorCheck{name: "configuration", ok: cfgErr == nil, detail: detail})

	routingPath := filepath.Join(repoRoot, cfg.Convention.RoutingFile)
	_, routingErr := routing.Load(routingPath)
	checks = append(checks, doctorCheck{
		name:   "routing file",
		ok:     routingErr == nil,
		detail: fmt.Sprintf("%s missing or unreadable; orchestrators will score as unwired", cfg.Convention.RoutingFile),
	})

	for _, name := range []string{cfg.Convention.EntrypointFile, cfg.Convention.CoverageSummary} {
		_, err := os.Stat(filepath.Join(repoRoot, name))
		checks = append(checks, doctorCheck{
			name:   name,
			ok:     err == nil,
			detail: "file not found; related checks will score false",
		})
	}

	_, statErr := os.Stat(filepath.Join(repoRoot, config.ConformDir))
	checks = append(checks, doctorCheck{
		name:   "initialized",
		ok:     statErr == nil,
		detail: "run conform init",
	})

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	healthy := true
	fmt.Println()
	for _, c := range checks {
		if c.ok {
			fmt.Printf("  %s %s\n", green("✓"), c.name)
			continue
		}
		healthy = false
		fmt.Printf("  %s %s: %s\n", yellow("!"), c.name, c.detail)
	}
	fmt.Println()

	if !healthy {
		os.Exit(1)
	}
}
