// Package remedy turns conflicts into fix templates and drives the
// confirm/apply loop under a version-control checkpoint. Fixes are
// independent units; the checkpoint is the single all-or-nothing undo point
// for a whole batch, not a per-fix transaction.
package remedy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"conform/internal/config"
	"conform/internal/errors"
	"conform/internal/logging"
	"conform/internal/routing"
	"conform/internal/vcs"
)

// Confirmer is the blocking approval collaborator. The CLI supplies a
// stdin prompt; tests supply a canned answer.
type Confirmer interface {
	Confirm(fix *FixTemplate, preview string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(fix *FixTemplate, preview string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(fix *FixTemplate, preview string) (bool, error) {
	return f(fix, preview)
}

// Batch tracks one remediation run: its checkpoint and per-fix outcomes.
type Batch struct {
	ID            string
	CheckpointRev string
	Applied       []*FixTemplate
	Failed        []*FixTemplate
	Declined      []*FixTemplate
}

// HasCheckpoint reports whether a checkpoint revision was recorded.
func (b *Batch) HasCheckpoint() bool {
	return b.CheckpointRev != ""
}

// Engine applies fixes. All VCS-mutating operations are serialized behind
// one mutex: a remediation batch must never run concurrently with another
// batch or with anything else mutating the working tree.
type Engine struct {
	cfg    *config.Config
	logger *logging.Logger
	vcs    vcs.VCS

	mu sync.Mutex
}

// NewEngine creates a remediation engine over an injected VCS collaborator.
func NewEngine(cfg *config.Config, logger *logging.Logger, v vcs.VCS) *Engine {
	return &Engine{cfg: cfg, logger: logger, vcs: v}
}

// NewBatch starts an empty batch.
func (e *Engine) NewBatch() *Batch {
	return &Batch{ID: uuid.NewString()}
}

// Preview renders the template's before/after state, risk level, and exact
// command list. It must be shown before any state change; calling it moves
// the fix from Idle to Previewed.
func (e *Engine) Preview(fix *FixTemplate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fix: %s [%s, risk %s]\n", fix.Conflict.Title, fix.FixKind, fix.RiskLevel)
	fmt.Fprintf(&b, "  before: %s\n", fix.BeforeState)
	fmt.Fprintf(&b, "  after:  %s\n", fix.AfterState)
	if !fix.Reversible {
		b.WriteString("  NOT reversible\n")
	}
	if len(fix.Commands) == 0 {
		b.WriteString("  commands: none (manual review)\n")
	} else {
		b.WriteString("  commands:\n")
		for i, cmd := range fix.Commands {
			fmt.Fprintf(&b, "    %d. %s\n", i+1, cmd.String())
		}
	}
	if fix.State == StateIdle {
		fix.State = StatePreviewed
	}
	return b.String()
}

// CreateCheckpoint commits all current working-tree changes and records the
// resulting revision on the batch. Idempotent: a batch checkpoints at most
// once, and a batch that never applies a fix never checkpoints.
func (e *Engine) CreateCheckpoint(batch *Batch) error {
	if batch.HasCheckpoint() {
		return nil
	}
	rev, err := e.vcs.CommitAll(fmt.Sprintf("conform: checkpoint before fix batch %s", batch.ID))
	if err != nil {
		return errors.Wrap(errors.VCSFailure, "checkpoint failed", err).
			WithSubject("batch " + batch.ID).
			WithAction(errors.SuggestedAction{
				Description: "resolve the repository state, then rerun conform fix",
				Command:     "git status",
				Safe:        true,
			})
	}
	batch.CheckpointRev = rev
	e.logger.Info("Checkpoint created", map[string]interface{}{
		"batch":    batch.ID,
		"revision": rev,
	})
	return nil
}

// Apply executes a confirmed fix's commands in order. The first failing
// command stops this fix and records Failed; it does not roll back the
// batch -- the caller decides whether to continue or invoke Rollback.
func (e *Engine) Apply(ctx context.Context, batch *Batch, fix *FixTemplate) error {
	if fix.State != StateConfirmed {
		return errors.New(errors.InternalError, "fix must be confirmed before apply").WithSubject(fix.ID)
	}
	if !batch.HasCheckpoint() {
		return errors.New(errors.InternalError, "batch has no checkpoint").WithSubject(batch.ID)
	}

	fix.State = StateApplying
	for _, cmd := range fix.Commands {
		if err := e.execute(ctx, cmd); err != nil {
			fix.State = StateFailed
			fix.FailedAt = cmd.String()
			batch.Failed = append(batch.Failed, fix)
			return errors.Wrap(errors.VCSFailure, "fix command failed", err).
				WithSubject(cmd.String()).
				WithAction(errors.SuggestedAction{
					Description: "continue with remaining fixes or roll back the batch",
					Safe:        true,
				})
		}
	}

	fix.State = StateApplied
	batch.Applied = append(batch.Applied, fix)
	e.logger.Info("Fix applied", map[string]interface{}{
		"fix":   fix.ID,
		"kind":  string(fix.FixKind),
		"title": fix.Conflict.Title,
	})
	return nil
}

// Rollback hard-resets the working tree to the batch checkpoint. Valid only
// when a checkpoint exists, and always available once it does, no matter
// how many fixes were applied or failed afterwards.
func (e *Engine) Rollback(batch *Batch) error {
	if !batch.HasCheckpoint() {
		return errors.New(errors.VCSFailure, "no checkpoint to roll back to").WithSubject("batch " + batch.ID)
	}
	if err := e.vcs.ResetHard(batch.CheckpointRev); err != nil {
		return errors.Wrap(errors.VCSFailure, "rollback failed", err).WithSubject(batch.CheckpointRev)
	}
	for _, fix := range append(batch.Applied, batch.Failed...) {
		fix.State = StateRolledBack
	}
	e.logger.Info("Batch rolled back", map[string]interface{}{
		"batch":    batch.ID,
		"revision": batch.CheckpointRev,
	})
	return nil
}

// RunBatch drives the interactive loop over a set of templates: preview,
// confirm, checkpoint before the first applied fix, apply. Declining a fix
// returns it to Idle with no changes made. Apply failures are recorded and
// the loop continues; the caller inspects the batch and may roll back.
func (e *Engine) RunBatch(ctx context.Context, fixes []*FixTemplate, confirmer Confirmer) (*Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	batch := e.NewBatch()
	for _, fix := range fixes {
		preview := e.Preview(fix)

		ok, err := confirmer.Confirm(fix, preview)
		if err != nil {
			return batch, err
		}
		if !ok {
			fix.State = StateIdle
			batch.Declined = append(batch.Declined, fix)
			continue
		}
		fix.State = StateConfirmed

		if len(fix.Commands) == 0 {
			// Manual-review templates have nothing to execute.
			fix.State = StateApplied
			batch.Applied = append(batch.Applied, fix)
			continue
		}

		if err := e.CreateCheckpoint(batch); err != nil {
			return batch, err
		}
		if err := e.Apply(ctx, batch, fix); err != nil {
			e.logger.Error("Fix failed", map[string]interface{}{
				"fix":   fix.ID,
				"error": err.Error(),
			})
		}
	}
	return batch, nil
}

// execute runs one command with the configured timeout.
func (e *Engine) execute(ctx context.Context, cmd Command) error {
	timeout := time.Duration(e.cfg.Remedy.CommandTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch cmd.Kind {
	case CommandExec:
		if len(cmd.Argv) == 0 {
			return fmt.Errorf("empty command")
		}
		c := exec.CommandContext(cctx, cmd.Argv[0], cmd.Argv[1:]...)
		c.Dir = e.cfg.RepoRoot
		if out, err := c.CombinedOutput(); err != nil {
			return fmt.Errorf("%s: %w (output: %s)", cmd.String(), err, strings.TrimSpace(string(out)))
		}
		return nil

	case CommandWriteFile:
		dest := filepath.Join(e.cfg.RepoRoot, filepath.FromSlash(cmd.Path))
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("refusing to overwrite existing file %s", cmd.Path)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		return os.WriteFile(dest, []byte(cmd.Content), 0644)

	case CommandAppendTrigger:
		dest := filepath.Join(e.cfg.RepoRoot, filepath.FromSlash(cmd.Path))
		return routing.AppendTrigger(dest, cmd.Trigger)
	}

	return fmt.Errorf("unknown command kind %q", cmd.Kind)
}
