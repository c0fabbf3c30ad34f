// Package report aggregates scorer and detector output into one health
// report and maintains the engine's only durable state: the rolling
// alignment history.
package report

import (
	"time"

	"github.com/google/uuid"

	"conform/internal/conflict"
	"conform/internal/remedy"
	"conform/internal/scorer"
)

// AlignmentReport is the aggregate result of one health-check run.
type AlignmentReport struct {
	RunID          string                             `json:"runId"`
	GeneratedAt    time.Time                          `json:"generatedAt"`
	OverallHealth  int                                `json:"overallHealth"` // 0-100
	CriticalIssues int                                `json:"criticalIssues"`
	Warnings       int                                `json:"warnings"`
	Scores         map[string]scorer.IntegrationScore `json:"scores"`
	Conflicts      []conflict.Conflict                `json:"conflicts"`
	FixTemplates   []*remedy.FixTemplate              `json:"fixTemplates,omitempty"`
}

// Build combines per-candidate scores and detected conflicts into a report.
//
// Health is the mean of per-candidate scores capped at 100, minus 5 per
// critical conflict and 2 per warning, clamped to [0,100]. An empty tree
// with no conflicts is healthy by definition; an empty tree with conflicts
// is scored on penalties alone.
func Build(scores map[string]scorer.IntegrationScore, conflicts []conflict.Conflict, fixes []*remedy.FixTemplate) *AlignmentReport {
	rep := &AlignmentReport{
		RunID:        uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		Scores:       scores,
		Conflicts:    conflicts,
		FixTemplates: fixes,
	}

	for _, c := range conflicts {
		switch c.Severity {
		case conflict.SeverityCritical:
			rep.CriticalIssues++
		case conflict.SeverityWarning:
			rep.Warnings++
		}
	}

	base := 100
	if len(scores) > 0 {
		total := 0
		for _, s := range scores {
			capped := s.Score
			if capped > 100 {
				capped = 100
			}
			total += capped
		}
		base = total / len(scores)
	}

	health := base - 5*rep.CriticalIssues - 2*rep.Warnings
	if health < 0 {
		health = 0
	}
	if health > 100 {
		health = 100
	}
	rep.OverallHealth = health
	return rep
}

// Passes reports whether the run meets the exit-code contract: health at or
// above the threshold with no critical issues.
func (r *AlignmentReport) Passes(threshold int) bool {
	return r.OverallHealth >= threshold && r.CriticalIssues == 0
}
