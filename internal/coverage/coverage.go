// Package coverage defines the external test-coverage collaborator the
// scorer consults for the tested check.
package coverage

import (
	"context"
	"encoding/json"
	"os"
	"strings"
)

// Provider reports measured coverage for a candidate, as a percentage.
type Provider interface {
	GetCoverage(ctx context.Context, candidateName, kind string) (float64, error)
}

// summaryEntry mirrors the per-file block of an istanbul coverage summary.
type summaryEntry struct {
	Lines struct {
		Pct float64 `json:"pct"`
	} `json:"lines"`
}

// FileProvider reads coverage from a coverage-summary.json produced by the
// project's own test tooling. A missing or unreadable summary yields zero
// coverage rather than an error; the scorer turns that into a failed check.
type FileProvider struct {
	summaryPath string
}

// NewFileProvider creates a provider over a coverage summary file.
func NewFileProvider(summaryPath string) *FileProvider {
	return &FileProvider{summaryPath: summaryPath}
}

// GetCoverage returns the line coverage of the first summary entry whose
// path mentions the candidate's canonical identifier.
func (p *FileProvider) GetCoverage(ctx context.Context, candidateName, kind string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(p.summaryPath)
	if err != nil {
		return 0, nil
	}

	var summary map[string]summaryEntry
	if err := json.Unmarshal(data, &summary); err != nil {
		return 0, nil
	}

	for path, entry := range summary {
		if path == "total" {
			continue
		}
		if strings.Contains(path, candidateName) {
			return entry.Lines.Pct, nil
		}
	}
	return 0, nil
}

// StaticProvider returns fixed coverage values, keyed by candidate name.
// Used in tests and as a null collaborator.
type StaticProvider map[string]float64

// GetCoverage returns the configured value for the candidate, or zero.
func (p StaticProvider) GetCoverage(ctx context.Context, candidateName, kind string) (float64, error) {
	return p[candidateName], nil
}
