// Package parse provides the tree-sitter front end for the discovery and
// conflict analysis passes. It reduces a source file to the structural facts
// the engine cares about: declared entities, their doc comments and
// constructor shapes, and import statements.
package parse

// Language identifies a supported source language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
)

// Entity is a named type declaration found in a source file.
type Entity struct {
	Name          string // declared identifier, e.g. "PlanAdoOrchestrator"
	Line          int    // 1-indexed start line
	HasDocComment bool   // a doc comment or docstring is attached
	Exported      bool   // exported/public per the language's convention
	// RequiredCtorArgs is the minimum number of arguments needed to
	// construct the entity: 0 means a no-argument construction exists,
	// -1 means no constructor was found.
	RequiredCtorArgs int
}

// Import is an import statement found in a source file. Spec is the raw
// import path as written in the source.
type Import struct {
	Spec string
	Line int
}

// FileInfo is the structural summary of one parsed source file.
type FileInfo struct {
	Path     string
	Language Language
	Entities []Entity
	Imports  []Import
}

// LanguageFromExtension maps a lowercase file extension (with dot) to a
// supported language.
func LanguageFromExtension(ext string) (Language, bool) {
	switch ext {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".ts", ".mts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py":
		return LangPython, true
	default:
		return "", false
	}
}
