package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ConformDir is the per-repository directory holding config, cache, lock,
// and persisted state.
const ConformDir = ".conform"

// Config represents the complete conform configuration (v2 schema)
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Scan       ScanConfig       `json:"scan" mapstructure:"scan"`
	Convention ConventionConfig `json:"convention" mapstructure:"convention"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`
	Probe      ProbeConfig      `json:"probe" mapstructure:"probe"`
	Remedy     RemedyConfig     `json:"remedy" mapstructure:"remedy"`
	Report     ReportConfig     `json:"report" mapstructure:"report"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// ScanConfig controls the source tree walk
type ScanConfig struct {
	Roots            []string `json:"roots" mapstructure:"roots"`
	Ignore           []string `json:"ignore" mapstructure:"ignore"`
	Workers          int      `json:"workers" mapstructure:"workers"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// ConventionConfig describes where convention-following artifacts live
type ConventionConfig struct {
	RoutingFile       string              `json:"routingFile" mapstructure:"routingFile"`
	EntrypointFile    string              `json:"entrypointFile" mapstructure:"entrypointFile"`
	DocsRoot          string              `json:"docsRoot" mapstructure:"docsRoot"`
	TestsRoot         string              `json:"testsRoot" mapstructure:"testsRoot"`
	BenchRoot         string              `json:"benchRoot" mapstructure:"benchRoot"`
	ContractsRoot     string              `json:"contractsRoot" mapstructure:"contractsRoot"`
	CoverageSummary   string              `json:"coverageSummary" mapstructure:"coverageSummary"`
	CoverageThreshold float64             `json:"coverageThreshold" mapstructure:"coverageThreshold"`
	MinGuideBytes     int                 `json:"minGuideBytes" mapstructure:"minGuideBytes"`
	ExpectedDirs      map[string][]string `json:"expectedDirs" mapstructure:"expectedDirs"`
}

// CacheConfig controls the dependency-fingerprinted score cache
type CacheConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	TTLSeconds int  `json:"ttlSeconds" mapstructure:"ttlSeconds"` // 0 disables time expiry
}

// ProbeConfig bounds the scorer's structural probes
type ProbeConfig struct {
	TimeoutMs int `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// RemedyConfig controls fix application
type RemedyConfig struct {
	CommandTimeoutMs int `json:"commandTimeoutMs" mapstructure:"commandTimeoutMs"`
}

// ReportConfig controls report thresholds and history
type ReportConfig struct {
	HealthThreshold int `json:"healthThreshold" mapstructure:"healthThreshold"`
	HistoryLimit    int `json:"historyLimit" mapstructure:"historyLimit"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  2,
		RepoRoot: ".",
		Scan: ScanConfig{
			Roots:            []string{"."},
			Ignore:           []string{"node_modules", "vendor", "build", "dist", "__pycache__"},
			Workers:          8,
			MaxFileSizeBytes: 1000000,
		},
		Convention: ConventionConfig{
			RoutingFile:       ".conform/routing.yaml",
			EntrypointFile:    "src/entrypoints.ts",
			DocsRoot:          "docs/guides",
			TestsRoot:         "tests",
			BenchRoot:         "perf",
			ContractsRoot:     "contracts",
			CoverageSummary:   "coverage/coverage-summary.json",
			CoverageThreshold: 70,
			MinGuideBytes:     500,
			ExpectedDirs: map[string][]string{
				"orchestrator": {"src/orchestrators", "orchestrators"},
				"agent":        {"src/agents", "agents"},
			},
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 0,
		},
		Probe: ProbeConfig{
			TimeoutMs: 5000,
		},
		Remedy: RemedyConfig{
			CommandTimeoutMs: 30000,
		},
		Report: ReportConfig{
			HealthThreshold: 70,
			HistoryLimit:    50,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <repoRoot>/.conform/config.json.
// A missing file yields the default configuration, not an error.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 2)
	v.SetDefault("repoRoot", repoRoot)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ConformDir))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.RepoRoot = repoRoot
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.RepoRoot == "" || cfg.RepoRoot == "." {
		cfg.RepoRoot = repoRoot
	}

	return cfg, nil
}

// Save writes the configuration to <repoRoot>/.conform/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ConformDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// CoveragePath returns the absolute path of the coverage summary file.
func (c *Config) CoveragePath() string {
	return filepath.Join(c.RepoRoot, c.Convention.CoverageSummary)
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Version != 2 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Scan.Workers < 1 {
		return &ConfigError{Field: "scan.workers", Message: "must be at least 1"}
	}
	if c.Convention.CoverageThreshold < 0 || c.Convention.CoverageThreshold > 100 {
		return &ConfigError{Field: "convention.coverageThreshold", Message: "must be between 0 and 100"}
	}
	if c.Report.HistoryLimit < 1 {
		return &ConfigError{Field: "report.historyLimit", Message: "must be at least 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
