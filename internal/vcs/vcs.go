// Package vcs defines the version-control collaborator the remediation
// engine needs: working-tree status, checkpoint commits, and hard resets.
// Nothing else about the underlying VCS is modeled.
package vcs

// VCS is the minimal surface the remediation engine depends on.
type VCS interface {
	// Status reports whether the working tree has uncommitted changes.
	Status() (dirty bool, err error)

	// CommitAll stages and commits every working-tree change and returns
	// the resulting revision identifier. A clean tree commits nothing and
	// returns the current head revision.
	CommitAll(message string) (revision string, err error)

	// ResetHard restores the working tree byte-identically to the given
	// revision, removing files created since.
	ResetHard(revision string) error
}
