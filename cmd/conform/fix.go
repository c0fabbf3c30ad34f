package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"conform/internal/remedy"
)

var (
	fixYesFlag      bool
	fixRollbackFlag bool
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Plan and apply fixes for detected conflicts",
	Long: `Run a health check, then walk through the generated fix templates one by
one: each fix is previewed with its exact commands, applied only after
confirmation, and the whole batch runs under a git checkpoint commit so it
can be rolled back as a unit.`,
	Run: runFix,
}

func init() {
	fixCmd.Flags().BoolVarP(&fixYesFlag, "yes", "y", false, "Apply every fix without prompting")
	fixCmd.Flags().BoolVar(&fixRollbackFlag, "rollback-on-failure", false, "Roll the batch back if any fix fails")
	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) {
	logger := newLogger()
	repoRoot := mustGetRepoRoot()

	engine, _, cleanup, err := buildEngine(repoRoot, logger, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	ctx := newContext()
	before, _, err := engine.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running health check: %v\n", err)
		os.Exit(1)
	}

	if len(before.FixTemplates) == 0 {
		fmt.Printf("%s Nothing to fix: no conflicts with a plannable remediation\n", green("✓"))
		return
	}

	fmt.Printf("\n%s %d fix template(s) planned (health %d/100)\n\n",
		cyan("▶"), len(before.FixTemplates), before.OverallHealth)

	confirmer := stdinConfirmer(fixYesFlag)
	batch, err := engine.Remedy().RunBatch(ctx, before.FixTemplates, confirmer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running fix batch: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nBatch %s: %s applied, %s failed, %d declined\n",
		batch.ID, green(len(batch.Applied)), red(len(batch.Failed)), len(batch.Declined))

	if len(batch.Failed) > 0 && fixRollbackFlag && batch.HasCheckpoint() {
		fmt.Printf("%s Rolling back to checkpoint %s\n", yellow("!"), batch.CheckpointRev)
		if err := engine.Remedy().Rollback(batch); err != nil {
			fmt.Fprintf(os.Stderr, "Error rolling back: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Working tree restored\n", green("✓"))
		return
	}

	if len(batch.Applied) > 0 {
		after, improved, err := engine.ConfirmImprovement(ctx, before)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error re-checking after fixes: %v\n", err)
			os.Exit(1)
		}
		if improved {
			fmt.Printf("%s Health %d → %d\n", green("✓"), before.OverallHealth, after.OverallHealth)
		} else {
			fmt.Printf("%s Health %d → %d; inspect the applied fixes\n", yellow("!"), before.OverallHealth, after.OverallHealth)
			if batch.HasCheckpoint() {
				fmt.Printf("  roll back with: git reset --hard %s\n", batch.CheckpointRev)
			}
		}
	}

	if len(batch.Failed) > 0 {
		os.Exit(1)
	}
}

// stdinConfirmer prompts on the terminal for each previewed fix. With
// assumeYes it approves everything without prompting, preview still shown.
func stdinConfirmer(assumeYes bool) remedy.Confirmer {
	reader := bufio.NewReader(os.Stdin)
	return remedy.ConfirmFunc(func(fix *remedy.FixTemplate, preview string) (bool, error) {
		fmt.Print(preview)
		if assumeYes {
			fmt.Println("  -> applying (--yes)")
			return true, nil
		}
		fmt.Print("Apply this fix? [y/N] ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	})
}
