package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *AlignError
		want []string
	}{
		{
			"code and message",
			New(ConfigMissing, "routing configuration not found"),
			[]string{"[CONFIG_MISSING]", "routing configuration not found"},
		},
		{
			"with subject",
			New(VCSFailure, "checkpoint failed").WithSubject("batch abc"),
			[]string{"[VCS_FAILURE]", "checkpoint failed", "batch abc"},
		},
		{
			"with cause",
			Wrap(CacheFailure, "cache lookup failed", stderrors.New("disk full")),
			[]string{"[CACHE_FAILURE]", "disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, frag := range tt.want {
				if !strings.Contains(msg, frag) {
					t.Errorf("Error() = %q, missing %q", msg, frag)
				}
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(StateCorrupt, "state unreadable", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should see through the wrapper")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(LockHeld, "held")); got != LockHeld {
		t.Errorf("CodeOf = %s, want %s", got, LockHeld)
	}
	if got := CodeOf(stderrors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain) = %s, want %s", got, InternalError)
	}
}

func TestWithActionAccumulates(t *testing.T) {
	err := New(LockHeld, "held").
		WithAction(SuggestedAction{Description: "wait"}).
		WithAction(SuggestedAction{Description: "remove", Command: "rm lock", Safe: false})

	if len(err.Suggested) != 2 {
		t.Fatalf("Suggested = %d actions, want 2", len(err.Suggested))
	}
	if err.Suggested[1].Command != "rm lock" {
		t.Errorf("second action = %+v", err.Suggested[1])
	}
}
