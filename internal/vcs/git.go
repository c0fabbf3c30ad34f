package vcs

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"conform/internal/errors"
	"conform/internal/logging"
)

// DefaultCommandTimeout bounds every git invocation.
const DefaultCommandTimeout = 30 * time.Second

// Git implements VCS by shelling out to the git CLI in a repository root.
type Git struct {
	repoRoot string
	timeout  time.Duration
	logger   *logging.Logger
}

// NewGit creates a git-backed VCS. timeout zero uses the default.
func NewGit(repoRoot string, timeout time.Duration, logger *logging.Logger) *Git {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Git{repoRoot: repoRoot, timeout: timeout, logger: logger}
}

// IsRepository reports whether the root is inside a git work tree.
func (g *Git) IsRepository() bool {
	out, err := g.run("rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// Status reports whether the working tree is dirty (any staged, unstaged,
// or untracked change).
func (g *Git) Status() (bool, error) {
	out, err := g.run("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CommitAll stages everything and commits, returning the head revision.
// With a clean tree the commit is skipped and the current head is returned,
// which keeps checkpoint creation idempotent.
func (g *Git) CommitAll(message string) (string, error) {
	if _, err := g.run("add", "-A"); err != nil {
		return "", err
	}

	dirty, err := g.hasStagedChanges()
	if err != nil {
		return "", err
	}
	if dirty {
		if _, err := g.run("commit", "-m", message); err != nil {
			return "", err
		}
	}

	rev, err := g.run("rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(rev), nil
}

// ResetHard restores the tree to the revision and removes untracked files
// and directories, so the result is byte-identical to the checkpoint.
func (g *Git) ResetHard(revision string) error {
	if _, err := g.run("reset", "--hard", revision); err != nil {
		return err
	}
	if _, err := g.run("clean", "-fd"); err != nil {
		return err
	}
	return nil
}

func (g *Git) hasStagedChanges() (bool, error) {
	// diff --cached --quiet exits 1 when there are staged changes.
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "diff", "--cached", "--quiet")
	cmd.Dir = g.repoRoot
	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, errors.Wrap(errors.VCSFailure, "git diff --cached failed", err)
}

// run executes one git command and returns stdout. Failures surface the
// exact command and stderr; silent continuation after a VCS failure risks
// an inconsistent working tree.
func (g *Git) run(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.logger.Debug("Executing git command", map[string]interface{}{
		"args": strings.Join(args, " "),
	})

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.Wrap(errors.VCSFailure, "git command timed out", err).
				WithSubject("git " + strings.Join(args, " "))
		}
		return "", errors.Wrap(errors.VCSFailure, strings.TrimSpace(stderr.String()), err).
			WithSubject("git " + strings.Join(args, " ")).
			WithAction(errors.SuggestedAction{
				Description: "inspect the repository state before retrying",
				Command:     "git status",
				Safe:        true,
			})
	}
	return stdout.String(), nil
}
