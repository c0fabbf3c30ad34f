package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"conform/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize conform configuration",
	Long:  "Creates a .conform/ directory with default configuration in the repository root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes existing .conform directory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	repoRoot := mustGetRepoRoot()

	conformDir := filepath.Join(repoRoot, config.ConformDir)
	if _, statErr := os.Stat(conformDir); statErr == nil {
		if !initForce {
			// Idempotent behavior: already initialized is success (CI-friendly)
			fmt.Println("conform already initialized.")
			fmt.Printf("Configuration at: %s\n", filepath.Join(conformDir, "config.json"))
			fmt.Println("\nRun 'conform init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(conformDir); removeErr != nil {
			return fmt.Errorf("failed to remove existing %s directory: %w", config.ConformDir, removeErr)
		}
	}

	cfg := config.DefaultConfig()
	cfg.RepoRoot = repoRoot
	if err := cfg.Save(repoRoot); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	fmt.Println("conform initialized.")
	fmt.Printf("Configuration at: %s\n", filepath.Join(conformDir, "config.json"))
	fmt.Println("\nNext: run 'conform check' to score the tree.")
	return nil
}
