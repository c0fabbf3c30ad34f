//go:build !windows

// Package runlock serializes health-check runs per repository. The state
// file is read-modify-write, so two concurrent runs would clobber each
// other's history; the lock turns that into a clear error instead.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"conform/internal/config"
	"conform/internal/errors"
)

const lockFile = "run.lock"

// Lock represents an exclusive lock on the repository's conform state.
type Lock struct {
	path string
	file *os.File
}

// Acquire attempts to take the run lock, failing fast when another process
// holds it.
func Acquire(repoRoot string) (*Lock, error) {
	dir := filepath.Join(repoRoot, config.ConformDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s directory: %w", config.ConformDir, err)
	}

	path := filepath.Join(dir, lockFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()

		holder := ""
		if content, readErr := os.ReadFile(path); readErr == nil {
			holder = strings.TrimSpace(string(content))
		}
		lockErr := errors.New(errors.LockHeld, "another conform run is in progress").WithSubject(path)
		if holder != "" {
			lockErr.Message = fmt.Sprintf("another conform run is in progress (PID %s)", holder)
		}
		return nil, lockErr.WithAction(errors.SuggestedAction{
			Description: "wait for the other run to finish, or remove a stale lock",
			Command:     "rm " + path,
			Safe:        false,
		})
	}

	if err := file.Truncate(0); err == nil {
		if _, err := file.Seek(0, 0); err == nil {
			_, _ = file.WriteString(strconv.Itoa(os.Getpid()))
		}
	}

	return &Lock{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
	l.file = nil
}
