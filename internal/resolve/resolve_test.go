package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"conform/internal/parse"
)

func writeTree(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestIsInternal(t *testing.T) {
	tests := []struct {
		spec string
		lang parse.Language
		want bool
	}{
		{"./util", parse.LangTypeScript, true},
		{"../shared/util", parse.LangTypeScript, true},
		{"react", parse.LangTypeScript, false},
		{"@scope/pkg", parse.LangJavaScript, false},
		{".models", parse.LangPython, true},
		{"..models", parse.LangPython, true},
		{"os", parse.LangPython, false},
		{"fmt", parse.LangGo, false},
		{"./anything", parse.LangGo, false}, // Go resolution is out of scope
	}

	for _, tt := range tests {
		if got := IsInternal(tt.spec, tt.lang); got != tt.want {
			t.Errorf("IsInternal(%q, %s) = %v, want %v", tt.spec, tt.lang, got, tt.want)
		}
	}
}

func TestResolveJS(t *testing.T) {
	root, err := os.MkdirTemp("", "conform-resolve-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)

	writeTree(t, root,
		"src/orchestrators/plan.ts",
		"src/shared/util.ts",
		"src/shared/legacy.js",
		"src/agents/index.ts",
	)

	from := "src/orchestrators/plan.ts"

	tests := []struct {
		name string
		spec string
		want string
		ok   bool
	}{
		{"extensionless ts", "../shared/util", "src/shared/util.ts", true},
		{"explicit extension", "../shared/legacy.js", "src/shared/legacy.js", true},
		{"directory index", "../agents", "src/agents/index.ts", true},
		{"missing", "../shared/nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(root, from, tt.spec, parse.LangTypeScript)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.spec, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResolvePython(t *testing.T) {
	root, err := os.MkdirTemp("", "conform-resolve-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)

	writeTree(t, root,
		"pkg/agents/triage.py",
		"pkg/agents/helpers.py",
		"pkg/models/__init__.py",
	)

	from := "pkg/agents/triage.py"

	tests := []struct {
		name string
		spec string
		want string
		ok   bool
	}{
		{"sibling module", ".helpers", "pkg/agents/helpers.py", true},
		{"parent package", "..models", "pkg/models", true},
		{"missing", ".nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(root, from, tt.spec, parse.LangPython)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.spec, got, ok, tt.want, tt.ok)
			}
		})
	}
}
