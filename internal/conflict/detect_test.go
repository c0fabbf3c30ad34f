package conflict

import (
	"os"
	"path/filepath"
	"testing"

	"conform/internal/config"
	"conform/internal/logging"
	"conform/internal/parse"
	"conform/internal/scanner"
)

func newTestDetector(t *testing.T) (*Detector, *config.Config) {
	t.Helper()
	dir, err := os.MkdirTemp("", "conform-conflict-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := config.DefaultConfig()
	cfg.RepoRoot = dir
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
	return NewDetector(cfg, logger, scanner.NewScanner(cfg, logger)), cfg
}

func writeRepoFile(t *testing.T, cfg *config.Config, rel, content string) {
	t.Helper()
	path := filepath.Join(cfg.RepoRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDuplicateEntities(t *testing.T) {
	det, _ := newTestDetector(t)

	infos := []*parse.FileInfo{
		{Path: "src/orchestrators/foo.ts", Entities: []parse.Entity{{Name: "FooOrchestrator", Line: 1}}},
		{Path: "src/legacy/foo.ts", Entities: []parse.Entity{{Name: "FooOrchestrator", Line: 4}}},
		{Path: "src/orchestrators/bar.ts", Entities: []parse.Entity{{Name: "BarOrchestrator", Line: 1}}},
	}

	conflicts := det.duplicateEntities(infos)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Type != TypeDuplicateEntity || c.Severity != SeverityWarning {
		t.Errorf("unexpected type/severity: %s/%s", c.Type, c.Severity)
	}
	if c.AutoFixable {
		t.Error("duplicate resolution must stay manual")
	}
	if len(c.AffectedPaths) != 2 {
		t.Errorf("AffectedPaths = %v", c.AffectedPaths)
	}
	// Paths are sorted for deterministic output.
	if c.AffectedPaths[0] != "src/legacy/foo.ts" {
		t.Errorf("paths not sorted: %v", c.AffectedPaths)
	}
}

func TestOrphanedReferences(t *testing.T) {
	det, cfg := newTestDetector(t)

	writeRepoFile(t, cfg, cfg.Convention.RoutingFile, `
triggers:
  - trigger: "plan ado"
    target: PlanAdoOrchestrator
  - trigger: "triage"
    target: TriageOrchestrator
`)

	// Only the triage orchestrator is declared.
	infos := []*parse.FileInfo{
		{Path: "src/orchestrators/triage.ts", Entities: []parse.Entity{{Name: "TriageOrchestrator", Line: 1}}},
	}

	conflicts := det.orphanedReferences(infos)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 orphan, got %d: %+v", len(conflicts), conflicts)
	}

	c := conflicts[0]
	if c.Type != TypeOrphanedReference || c.Severity != SeverityCritical {
		t.Errorf("unexpected type/severity: %s/%s", c.Type, c.Severity)
	}
	if !c.AutoFixable {
		t.Error("orphans are scaffoldable, should be auto-fixable")
	}
	if c.Trigger != "plan ado" {
		t.Errorf("Trigger = %q, want %q", c.Trigger, "plan ado")
	}
}

// A trigger whose phrase normalizes to a declared entity is wired even
// without an exact target match.
func TestOrphanedReferencesNormalizedMatch(t *testing.T) {
	det, cfg := newTestDetector(t)

	writeRepoFile(t, cfg, cfg.Convention.RoutingFile, `
triggers:
  - trigger: "plan ado"
    target: handlers.planAdo
`)

	infos := []*parse.FileInfo{
		{Path: "src/orchestrators/plan-ado.ts", Entities: []parse.Entity{{Name: "PlanAdoOrchestrator", Line: 1}}},
	}

	if conflicts := det.orphanedReferences(infos); len(conflicts) != 0 {
		t.Errorf("normalized trigger should not be orphaned: %+v", conflicts)
	}
}

func TestOrphanedReferencesNoRoutingFile(t *testing.T) {
	det, _ := newTestDetector(t)

	infos := []*parse.FileInfo{
		{Path: "src/orchestrators/plan.ts", Entities: []parse.Entity{{Name: "PlanOrchestrator", Line: 1}}},
	}
	if conflicts := det.orphanedReferences(infos); conflicts != nil {
		t.Errorf("missing routing file should skip orphan analysis, got %+v", conflicts)
	}
}

func TestDirectoryDrift(t *testing.T) {
	det, _ := newTestDetector(t)

	infos := []*parse.FileInfo{
		{Path: "src/orchestrators/good.ts", Entities: []parse.Entity{{Name: "GoodOrchestrator", Line: 1}}},
		{Path: "src/utils/stray.ts", Entities: []parse.Entity{{Name: "StrayOrchestrator", Line: 1}}},
		{Path: "agents/fine.ts", Entities: []parse.Entity{{Name: "FineAgent", Line: 1}}},
	}

	conflicts := det.directoryDrift(infos)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 drift, got %d: %+v", len(conflicts), conflicts)
	}

	c := conflicts[0]
	if c.Type != TypeDirectoryDrift || c.Severity != SeverityWarning {
		t.Errorf("unexpected type/severity: %s/%s", c.Type, c.Severity)
	}
	if !c.AutoFixable {
		t.Error("drift is a file move, should be auto-fixable")
	}
	if c.EntityKind != "orchestrator" {
		t.Errorf("EntityKind = %q", c.EntityKind)
	}
	if c.AffectedPaths[0] != "src/utils/stray.ts" {
		t.Errorf("AffectedPaths = %v", c.AffectedPaths)
	}
}

func TestUnresolvedDependencies(t *testing.T) {
	det, cfg := newTestDetector(t)

	writeRepoFile(t, cfg, "src/shared/util.ts", "export const x = 1")

	infos := []*parse.FileInfo{
		{
			Path:     "src/orchestrators/plan.ts",
			Language: parse.LangTypeScript,
			Imports: []parse.Import{
				{Spec: "../shared/util", Line: 1},
				{Spec: "../shared/missing", Line: 2},
				{Spec: "react", Line: 3},
			},
		},
	}

	conflicts := det.unresolvedDependencies(infos)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 unresolved import, got %d: %+v", len(conflicts), conflicts)
	}
	c := conflicts[0]
	if c.Type != TypeUnresolvedDependency || c.Severity != SeverityCritical {
		t.Errorf("unexpected type/severity: %s/%s", c.Type, c.Severity)
	}
	if c.AutoFixable {
		t.Error("dangling imports must stay manual")
	}
}

// Analyze output is sorted by severity, then title, then paths, so equal
// inputs always produce byte-identical reports.
func TestAnalyzeOrdering(t *testing.T) {
	det, cfg := newTestDetector(t)

	writeRepoFile(t, cfg, cfg.Convention.RoutingFile, `
triggers:
  - trigger: "ghost"
    target: GhostOrchestrator
`)

	infos := []*parse.FileInfo{
		{Path: "src/utils/stray.ts", Entities: []parse.Entity{{Name: "StrayOrchestrator", Line: 1}}},
		{
			Path:     "src/orchestrators/plan.ts",
			Language: parse.LangTypeScript,
			Entities: []parse.Entity{{Name: "PlanOrchestrator", Line: 1}},
			Imports:  []parse.Import{{Spec: "./missing", Line: 1}},
		},
	}

	first := det.Analyze(infos)
	second := det.Analyze(infos)

	if len(first) != 3 {
		t.Fatalf("expected 3 conflicts, got %d", len(first))
	}
	for i := range first {
		if first[i].Title != second[i].Title {
			t.Errorf("ordering not stable at %d: %q vs %q", i, first[i].Title, second[i].Title)
		}
	}
	// Criticals first.
	if first[0].Severity != SeverityCritical || first[1].Severity != SeverityCritical {
		t.Errorf("criticals should sort first: %+v", first)
	}
	if first[2].Severity != SeverityWarning {
		t.Errorf("warning should sort last: %+v", first[2])
	}
}
