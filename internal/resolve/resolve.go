// Package resolve maps internal import specifiers to files on disk. Only
// structural resolvability is checked; semantic correctness of an import is
// out of scope for the engine.
package resolve

import (
	"os"
	"path/filepath"
	"strings"

	"conform/internal/parse"
)

// IsInternal reports whether an import specifier refers to a file inside
// the repository rather than an external package. Go imports are skipped
// entirely: module-path resolution needs the module context the engine
// deliberately does not model.
func IsInternal(spec string, lang parse.Language) bool {
	switch lang {
	case parse.LangJavaScript, parse.LangTypeScript, parse.LangTSX:
		return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
	case parse.LangPython:
		return strings.HasPrefix(spec, ".")
	default:
		return false
	}
}

// jsExtensions are tried in order when a ts/js import omits the extension.
var jsExtensions = []string{"", ".ts", ".tsx", ".js", ".mjs", ".cjs", ".d.ts"}

// Resolve attempts to resolve an internal import from the given file to an
// existing file or package directory. fromFile is repo-relative; the return
// value is the resolved repo-relative path.
func Resolve(repoRoot, fromFile, spec string, lang parse.Language) (string, bool) {
	fromDir := filepath.Dir(filepath.Join(repoRoot, filepath.FromSlash(fromFile)))

	switch lang {
	case parse.LangJavaScript, parse.LangTypeScript, parse.LangTSX:
		return resolveJS(repoRoot, fromDir, spec)
	case parse.LangPython:
		return resolvePython(repoRoot, fromDir, spec)
	default:
		return "", false
	}
}

func resolveJS(repoRoot, fromDir, spec string) (string, bool) {
	base := filepath.Join(fromDir, filepath.FromSlash(spec))

	for _, ext := range jsExtensions {
		if isFile(base + ext) {
			return rel(repoRoot, base+ext), true
		}
	}
	// Directory import resolves through an index module.
	if isDir(base) {
		for _, index := range []string{"index.ts", "index.tsx", "index.js"} {
			candidate := filepath.Join(base, index)
			if isFile(candidate) {
				return rel(repoRoot, candidate), true
			}
		}
	}
	return "", false
}

func resolvePython(repoRoot, fromDir, spec string) (string, bool) {
	// Leading dots climb the package tree: ".mod" is a sibling, "..mod" is
	// one level up.
	rest := spec
	levels := 0
	for strings.HasPrefix(rest, ".") {
		rest = rest[1:]
		levels++
	}
	dir := fromDir
	for i := 1; i < levels; i++ {
		dir = filepath.Dir(dir)
	}

	base := dir
	if rest != "" {
		base = filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(rest, ".", "/")))
	}

	if isFile(base + ".py") {
		return rel(repoRoot, base+".py"), true
	}
	if isDir(base) && isFile(filepath.Join(base, "__init__.py")) {
		return rel(repoRoot, base), true
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func rel(repoRoot, path string) string {
	if r, err := filepath.Rel(repoRoot, path); err == nil {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(path)
}
