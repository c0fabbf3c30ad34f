package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"conform/internal/config"
	"conform/internal/errors"
	"conform/internal/scorer"
)

// HistoryEntry is one run's summary in the rolling history.
type HistoryEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	OverallHealth  int       `json:"overallHealth"`
	TotalFeatures  int       `json:"totalFeatures"`
	CriticalIssues int       `json:"criticalIssues"`
	Warnings       int       `json:"warnings"`
}

// AlignmentState is the persisted engine state: read once at startup to
// seed trend reporting, rewritten once at the end of every successful run.
type AlignmentState struct {
	LastAlignment    *time.Time                         `json:"lastAlignment"`
	FeatureScores    map[string]scorer.IntegrationScore `json:"featureScores"`
	OverallHealth    int                                `json:"overallHealth"`
	AlignmentHistory []HistoryEntry                     `json:"alignmentHistory"`
}

// statePath returns <repoRoot>/.conform/state.json.
func statePath(repoRoot string) string {
	return filepath.Join(repoRoot, config.ConformDir, "state.json")
}

// LoadState reads persisted state. A missing file yields a fresh empty
// state; a corrupt file surfaces as StateCorrupt so the operator can decide
// whether to delete it.
func LoadState(repoRoot string) (*AlignmentState, error) {
	data, err := os.ReadFile(statePath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return &AlignmentState{FeatureScores: map[string]scorer.IntegrationScore{}}, nil
		}
		return nil, err
	}

	var state AlignmentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(errors.StateCorrupt, "persisted state is not valid JSON", err).
			WithSubject(statePath(repoRoot)).
			WithAction(errors.SuggestedAction{
				Description: "delete the state file to start fresh history",
				Command:     "rm " + statePath(repoRoot),
				Safe:        false,
			})
	}
	if state.FeatureScores == nil {
		state.FeatureScores = map[string]scorer.IntegrationScore{}
	}
	return &state, nil
}

// Record folds a finished report into the state, capping history at the
// configured limit (most recent entries win).
func (s *AlignmentState) Record(rep *AlignmentReport, historyLimit int) {
	now := rep.GeneratedAt
	s.LastAlignment = &now
	s.FeatureScores = rep.Scores
	s.OverallHealth = rep.OverallHealth

	s.AlignmentHistory = append(s.AlignmentHistory, HistoryEntry{
		Timestamp:      rep.GeneratedAt,
		OverallHealth:  rep.OverallHealth,
		TotalFeatures:  len(rep.Scores),
		CriticalIssues: rep.CriticalIssues,
		Warnings:       rep.Warnings,
	})
	if historyLimit > 0 && len(s.AlignmentHistory) > historyLimit {
		s.AlignmentHistory = s.AlignmentHistory[len(s.AlignmentHistory)-historyLimit:]
	}
}

// Save writes the state atomically: temp file in the same directory, fsync,
// then rename, so a crashed run never leaves a torn state file behind.
func (s *AlignmentState) Save(repoRoot string) error {
	path := statePath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data, 0644)
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		_ = tmp.Close()
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file into place: %w", err)
	}
	cleanup = false
	return nil
}
