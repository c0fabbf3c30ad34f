package remedy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"conform/internal/config"
	"conform/internal/conflict"
	"conform/internal/logging"
	"conform/internal/routing"
	"conform/internal/scanner"
)

// fakeVCS records checkpoint and rollback calls without touching git.
type fakeVCS struct {
	commits   []string
	resets    []string
	commitErr error
	nextRev   int
}

func (f *fakeVCS) Status() (bool, error) { return true, nil }

func (f *fakeVCS) CommitAll(message string) (string, error) {
	if f.commitErr != nil {
		return "", f.commitErr
	}
	f.nextRev++
	f.commits = append(f.commits, message)
	return fmt.Sprintf("rev-%d", f.nextRev), nil
}

func (f *fakeVCS) ResetHard(revision string) error {
	f.resets = append(f.resets, revision)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeVCS, *config.Config) {
	t.Helper()
	dir, err := os.MkdirTemp("", "conform-remedy-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := config.DefaultConfig()
	cfg.RepoRoot = dir
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
	v := &fakeVCS{}
	return NewEngine(cfg, logger, v), v, cfg
}

func approveAll() Confirmer {
	return ConfirmFunc(func(fix *FixTemplate, preview string) (bool, error) {
		return true, nil
	})
}

func declineAll() Confirmer {
	return ConfirmFunc(func(fix *FixTemplate, preview string) (bool, error) {
		return false, nil
	})
}

func scaffoldFix(e *Engine) *FixTemplate {
	return e.GenerateTemplate(conflict.Conflict{
		Type:          conflict.TypeOrphanedReference,
		Severity:      conflict.SeverityCritical,
		Title:         `Orphaned trigger "plan ado"`,
		AffectedPaths: []string{".conform/routing.yaml"},
		AutoFixable:   true,
		Trigger:       "plan ado",
	})
}

func TestPreviewMovesIdleToPreviewed(t *testing.T) {
	e, _, _ := newTestEngine(t)
	fix := scaffoldFix(e)

	if fix.State != StateIdle {
		t.Fatalf("new fix state = %q", fix.State)
	}
	preview := e.Preview(fix)
	if fix.State != StatePreviewed {
		t.Errorf("state after preview = %q, want %q", fix.State, StatePreviewed)
	}
	if !strings.Contains(preview, "plan ado") || !strings.Contains(preview, "commands:") {
		t.Errorf("preview missing detail:\n%s", preview)
	}
}

func TestApplyRequiresConfirmation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	fix := scaffoldFix(e)
	batch := e.NewBatch()
	batch.CheckpointRev = "rev-0"

	if err := e.Apply(context.Background(), batch, fix); err == nil {
		t.Error("apply without confirmation should fail")
	}
}

func TestApplyRequiresCheckpoint(t *testing.T) {
	e, _, _ := newTestEngine(t)
	fix := scaffoldFix(e)
	fix.State = StateConfirmed

	if err := e.Apply(context.Background(), e.NewBatch(), fix); err == nil {
		t.Error("apply without checkpoint should fail")
	}
}

func TestCheckpointIdempotent(t *testing.T) {
	e, v, _ := newTestEngine(t)
	batch := e.NewBatch()

	if err := e.CreateCheckpoint(batch); err != nil {
		t.Fatal(err)
	}
	first := batch.CheckpointRev
	if err := e.CreateCheckpoint(batch); err != nil {
		t.Fatal(err)
	}

	if batch.CheckpointRev != first {
		t.Error("second checkpoint should be a no-op")
	}
	if len(v.commits) != 1 {
		t.Errorf("expected 1 commit, got %d", len(v.commits))
	}
	if !strings.Contains(v.commits[0], batch.ID) {
		t.Errorf("checkpoint message should name the batch: %q", v.commits[0])
	}
}

func TestRunBatchAppliesScaffold(t *testing.T) {
	e, v, cfg := newTestEngine(t)
	fix := scaffoldFix(e)

	batch, err := e.RunBatch(context.Background(), []*FixTemplate{fix}, approveAll())
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}

	if len(batch.Applied) != 1 || len(batch.Failed) != 0 || len(batch.Declined) != 0 {
		t.Fatalf("batch outcome: %d applied, %d failed, %d declined", len(batch.Applied), len(batch.Failed), len(batch.Declined))
	}
	if fix.State != StateApplied {
		t.Errorf("fix state = %q", fix.State)
	}
	if !batch.HasCheckpoint() || len(v.commits) != 1 {
		t.Error("a real apply must checkpoint first")
	}

	stub := filepath.Join(cfg.RepoRoot, "src", "orchestrators", "plan-ado.ts")
	data, err := os.ReadFile(stub)
	if err != nil {
		t.Fatalf("scaffold not written: %v", err)
	}
	if !strings.Contains(string(data), "PlanAdoOrchestrator") {
		t.Errorf("stub content missing entity name:\n%s", data)
	}
}

func TestRunBatchDeclineLeavesIdle(t *testing.T) {
	e, v, _ := newTestEngine(t)
	fix := scaffoldFix(e)

	batch, err := e.RunBatch(context.Background(), []*FixTemplate{fix}, declineAll())
	if err != nil {
		t.Fatal(err)
	}

	if len(batch.Declined) != 1 || len(batch.Applied) != 0 {
		t.Fatalf("batch outcome: %+v", batch)
	}
	if fix.State != StateIdle {
		t.Errorf("declined fix state = %q, want %q", fix.State, StateIdle)
	}
	if batch.HasCheckpoint() || len(v.commits) != 0 {
		t.Error("a batch with nothing applied must not checkpoint")
	}
}

// Manual-review fixes carry no commands and must not trigger a checkpoint.
func TestRunBatchManualFixSkipsCheckpoint(t *testing.T) {
	e, v, _ := newTestEngine(t)
	manual := e.GenerateTemplate(conflict.Conflict{
		Type:          conflict.TypeDuplicateEntity,
		Severity:      conflict.SeverityWarning,
		Title:         "Duplicate entity FooOrchestrator",
		AffectedPaths: []string{"a/foo.ts", "b/foo.ts"},
	})
	if len(manual.Commands) != 0 {
		t.Fatalf("duplicate fix should be manual, has %d commands", len(manual.Commands))
	}

	batch, err := e.RunBatch(context.Background(), []*FixTemplate{manual}, approveAll())
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Applied) != 1 {
		t.Fatalf("batch outcome: %+v", batch)
	}
	if batch.HasCheckpoint() || len(v.commits) != 0 {
		t.Error("manual fixes must not checkpoint")
	}
}

func TestRunBatchContinuesAfterFailure(t *testing.T) {
	e, _, _ := newTestEngine(t)

	failing := &FixTemplate{
		ID:      "failing",
		FixKind: FixKindMove,
		Commands: []Command{
			{Kind: CommandExec, Argv: []string{"false"}},
		},
		State: StateIdle,
	}
	good := scaffoldFix(e)

	batch, err := e.RunBatch(context.Background(), []*FixTemplate{failing, good}, approveAll())
	if err != nil {
		t.Fatal(err)
	}

	if len(batch.Failed) != 1 || len(batch.Applied) != 1 {
		t.Fatalf("batch outcome: %d failed, %d applied", len(batch.Failed), len(batch.Applied))
	}
	if failing.State != StateFailed {
		t.Errorf("failing fix state = %q", failing.State)
	}
	if failing.FailedAt == "" {
		t.Error("failed fix should record the failing command")
	}
	if good.State != StateApplied {
		t.Errorf("good fix state = %q", good.State)
	}
}

func TestRollback(t *testing.T) {
	e, v, _ := newTestEngine(t)
	fix := scaffoldFix(e)

	batch, err := e.RunBatch(context.Background(), []*FixTemplate{fix}, approveAll())
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Rollback(batch); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if len(v.resets) != 1 || v.resets[0] != batch.CheckpointRev {
		t.Errorf("resets = %v, want [%s]", v.resets, batch.CheckpointRev)
	}
	if fix.State != StateRolledBack {
		t.Errorf("fix state = %q, want %q", fix.State, StateRolledBack)
	}
}

func TestRunBatchStopsWhenCheckpointFails(t *testing.T) {
	e, v, _ := newTestEngine(t)
	v.commitErr = fmt.Errorf("index locked")
	fix := scaffoldFix(e)

	batch, err := e.RunBatch(context.Background(), []*FixTemplate{fix}, approveAll())
	if err == nil {
		t.Fatal("expected RunBatch to surface the checkpoint failure")
	}
	if len(batch.Applied) != 0 {
		t.Error("nothing may apply without a checkpoint")
	}
	if fix.State == StateApplied {
		t.Error("fix must not reach applied state")
	}
}

func TestRollbackWithoutCheckpoint(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Rollback(e.NewBatch()); err == nil {
		t.Error("rollback without checkpoint should fail")
	}
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	e, _, cfg := newTestEngine(t)
	fix := scaffoldFix(e)

	existing := filepath.Join(cfg.RepoRoot, "src", "orchestrators", "plan-ado.ts")
	if err := os.MkdirAll(filepath.Dir(existing), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("real code"), 0644); err != nil {
		t.Fatal(err)
	}

	batch, err := e.RunBatch(context.Background(), []*FixTemplate{fix}, approveAll())
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Failed) != 1 {
		t.Fatalf("expected overwrite refusal, batch: %+v", batch)
	}

	data, _ := os.ReadFile(existing)
	if string(data) != "real code" {
		t.Error("existing file was clobbered")
	}
}

func TestGenerateWiringFix(t *testing.T) {
	e, _, cfg := newTestEngine(t)

	c := scanner.Candidate{
		Name:               "plan-ado",
		Kind:               scanner.KindOrchestrator,
		FilePath:           "src/orchestrators/plan-ado.ts",
		DeclaredEntityName: "PlanAdoOrchestrator",
	}

	fix := e.GenerateWiringFix(c)
	if fix == nil {
		t.Fatal("expected a wiring fix for an unwired orchestrator")
	}
	if len(fix.Commands) != 1 || fix.Commands[0].Kind != CommandAppendTrigger {
		t.Fatalf("unexpected commands: %+v", fix.Commands)
	}
	if fix.Commands[0].Trigger.Trigger != "plan ado" || fix.Commands[0].Trigger.Target != "PlanAdoOrchestrator" {
		t.Errorf("unexpected trigger: %+v", fix.Commands[0].Trigger)
	}

	agent := scanner.Candidate{Name: "triage", Kind: scanner.KindAgent, DeclaredEntityName: "TriageAgent"}
	if e.GenerateWiringFix(agent) != nil {
		t.Error("agents are not routed; no wiring fix expected")
	}

	// Applying the fix lands the trigger in the routing file.
	batch, err := e.RunBatch(context.Background(), []*FixTemplate{fix}, approveAll())
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Applied) != 1 {
		t.Fatalf("batch outcome: %+v", batch)
	}

	table, err := routing.Load(filepath.Join(cfg.RepoRoot, cfg.Convention.RoutingFile))
	if err != nil {
		t.Fatalf("routing file not created: %v", err)
	}
	if !table.TargetsEntity("PlanAdoOrchestrator") {
		t.Errorf("trigger not appended: %+v", table.Triggers)
	}
}

func TestGenerateTemplateDrift(t *testing.T) {
	e, _, _ := newTestEngine(t)

	fix := e.GenerateTemplate(conflict.Conflict{
		Type:          conflict.TypeDirectoryDrift,
		Severity:      conflict.SeverityWarning,
		Title:         "Misplaced orchestrator StrayOrchestrator",
		AffectedPaths: []string{"src/utils/stray.ts"},
		AutoFixable:   true,
		EntityKind:    "orchestrator",
	})

	if fix == nil || fix.FixKind != FixKindMove {
		t.Fatalf("unexpected fix: %+v", fix)
	}
	if len(fix.Commands) != 2 {
		t.Fatalf("expected mkdir + git mv, got %+v", fix.Commands)
	}
	mv := fix.Commands[1]
	if mv.Argv[0] != "git" || mv.Argv[1] != "mv" || mv.Argv[3] != "src/orchestrators/stray.ts" {
		t.Errorf("unexpected move command: %v", mv.Argv)
	}
}

func TestGenerateTemplateUnknownType(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if fix := e.GenerateTemplate(conflict.Conflict{Type: "mystery"}); fix != nil {
		t.Errorf("unknown conflict type should yield no template, got %+v", fix)
	}
}
