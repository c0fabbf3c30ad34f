package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"conform/internal/align"
	"conform/internal/cache"
	"conform/internal/config"
	"conform/internal/conflict"
	"conform/internal/coverage"
	"conform/internal/logging"
	"conform/internal/remedy"
	"conform/internal/scanner"
	"conform/internal/vcs"
	"conform/internal/version"
)

var (
	repoFlag     string
	formatFlag   string
	logLevelFlag string
	noCacheFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "conform",
	Short: "Conform - convention-based codebase health",
	Long: `Conform discovers orchestrators and agents by naming convention, scores how
completely each one is integrated (imported, instantiated, documented, tested,
wired, benchmarked), detects structural conflicts, and plans fixes that run
under a git checkpoint so any batch can be rolled back.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("conform version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format (json, human)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noCacheFlag, "no-cache", false, "Bypass the score cache for this run")
}

// newLogger builds the command logger from the persistent flags.
func newLogger() *logging.Logger {
	format := logging.HumanFormat
	if formatFlag == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(logLevelFlag),
	})
}

// mustGetRepoRoot resolves the repository root from --repo or the working
// directory, exiting on error.
func mustGetRepoRoot() string {
	if repoFlag != "" {
		return repoFlag
	}
	root, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// loadConfig reads the repository config, falling back to defaults when the
// file is absent or unreadable.
func loadConfig(repoRoot string, logger *logging.Logger) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
		cfg.RepoRoot = repoRoot
	}
	return cfg
}

// buildEngine assembles the pipeline for one command invocation. Every
// collaborator is constructed here and passed down explicitly; nothing is
// shared through package state. The returned cleanup closes the cache
// database when one was opened.
func buildEngine(repoRoot string, logger *logging.Logger, withRemedy bool) (*align.Engine, *config.Config, func(), error) {
	cfg := loadConfig(repoRoot, logger)

	var cacheLayer *cache.Cache
	cleanup := func() {}
	if cfg.Cache.Enabled && !noCacheFlag {
		db, err := cache.Open(repoRoot, logger)
		if err != nil {
			logger.Warn("Cache unavailable, running without it", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			cacheLayer = cache.New(db, logger)
			cleanup = func() { db.Close() }
		}
	}

	sc := scanner.NewScanner(cfg, logger)
	det := conflict.NewDetector(cfg, logger, sc)
	cov := coverage.NewFileProvider(cfg.CoveragePath())

	var rem *remedy.Engine
	if withRemedy {
		timeout := time.Duration(cfg.Remedy.CommandTimeoutMs) * time.Millisecond
		git := vcs.NewGit(repoRoot, timeout, logger)
		if !git.IsRepository() {
			cleanup()
			return nil, nil, nil, fmt.Errorf("%s is not a git repository; fixes require a checkpointable working tree", repoRoot)
		}
		rem = remedy.NewEngine(cfg, logger, git)
	} else {
		// Templates are still planned for the report; they just cannot apply.
		rem = remedy.NewEngine(cfg, logger, nil)
	}

	engine := align.NewEngine(cfg, logger, sc, det, cacheLayer, cov, rem)
	return engine, cfg, cleanup, nil
}

// newContext creates the context for command execution.
func newContext() context.Context {
	return context.Background()
}
