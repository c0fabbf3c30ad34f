//go:build cgo

package parse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parser wraps tree-sitter for multi-language structural parsing.
// A Parser is not safe for concurrent use; create one per worker.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new tree-sitter parser.
func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// IsAvailable reports whether structural parsing is available in this build.
func IsAvailable() bool {
	return true
}

// ParseFile reads and parses a single source file. Unsupported extensions
// return (nil, nil) so callers can skip them without special-casing.
func (p *Parser) ParseFile(ctx context.Context, path string) (*FileInfo, error) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := LanguageFromExtension(ext)
	if !ok {
		return nil, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return p.ParseSource(ctx, path, source, lang)
}

// ParseSource parses source bytes and extracts the structural summary.
func (p *Parser) ParseSource(ctx context.Context, path string, source []byte, lang Language) (*FileInfo, error) {
	tsLang, err := sitterLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parse produced no tree")
	}

	info := &FileInfo{Path: path, Language: lang}
	info.Entities = extractEntities(root, source, lang)
	info.Imports = extractImports(root, source, lang)
	return info, nil
}

func sitterLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walk visits every node in the tree, depth first.
func walk(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), visit)
	}
}

func extractEntities(root *sitter.Node, source []byte, lang Language) []Entity {
	var entities []Entity

	switch lang {
	case LangGo:
		walk(root, func(n *sitter.Node) {
			if n.Type() != "type_declaration" {
				return
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				spec := n.Child(i)
				if spec == nil || spec.Type() != "type_spec" {
					continue
				}
				name := nodeText(spec.ChildByFieldName("name"), source)
				if name == "" {
					continue
				}
				entities = append(entities, Entity{
					Name:             name,
					Line:             int(n.StartPoint().Row) + 1,
					HasDocComment:    hasLeadingComment(n),
					Exported:         isUpper(name),
					RequiredCtorArgs: goCtorArity(root, source, name),
				})
			}
		})

	case LangJavaScript, LangTypeScript, LangTSX:
		walk(root, func(n *sitter.Node) {
			t := n.Type()
			if t != "class_declaration" && t != "abstract_class_declaration" {
				return
			}
			name := nodeText(n.ChildByFieldName("name"), source)
			if name == "" {
				return
			}
			entities = append(entities, Entity{
				Name:             name,
				Line:             int(n.StartPoint().Row) + 1,
				HasDocComment:    hasLeadingComment(n),
				Exported:         n.Parent() != nil && n.Parent().Type() == "export_statement",
				RequiredCtorArgs: classCtorArity(n, source),
			})
		})

	case LangPython:
		walk(root, func(n *sitter.Node) {
			if n.Type() != "class_definition" {
				return
			}
			name := nodeText(n.ChildByFieldName("name"), source)
			if name == "" {
				return
			}
			entities = append(entities, Entity{
				Name:             name,
				Line:             int(n.StartPoint().Row) + 1,
				HasDocComment:    hasDocstring(n, source),
				Exported:         !strings.HasPrefix(name, "_"),
				RequiredCtorArgs: pythonCtorArity(n, source),
			})
		})
	}

	return entities
}

// hasLeadingComment reports whether a comment node immediately precedes the
// declaration. Exported TS/JS classes are wrapped in an export_statement, so
// the comment attaches to the wrapper.
func hasLeadingComment(n *sitter.Node) bool {
	decl := n
	if p := n.Parent(); p != nil && p.Type() == "export_statement" {
		decl = p
	}
	prev := decl.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" {
		return false
	}
	// Attached means no blank line between comment and declaration.
	return decl.StartPoint().Row-prev.EndPoint().Row <= 1
}

// hasDocstring reports whether the first statement of a Python class body is
// a string literal.
func hasDocstring(classNode *sitter.Node, source []byte) bool {
	body := classNode.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return false
	}
	first := body.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" {
		return false
	}
	return first.NamedChildCount() > 0 && first.NamedChild(0).Type() == "string"
}

// classCtorArity returns the minimum argument count of a TS/JS class
// constructor, or -1 when the class declares none.
func classCtorArity(classNode *sitter.Node, source []byte) int {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return -1
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member == nil || member.Type() != "method_definition" {
			continue
		}
		if nodeText(member.ChildByFieldName("name"), source) != "constructor" {
			continue
		}
		params := member.ChildByFieldName("parameters")
		if params == nil {
			return 0
		}
		required := 0
		for j := 0; j < int(params.NamedChildCount()); j++ {
			param := params.NamedChild(j)
			switch param.Type() {
			case "identifier":
				required++ // plain JS parameter, no default
			case "required_parameter":
				if param.ChildByFieldName("value") == nil {
					required++
				}
			}
		}
		return required
	}
	return -1
}

// pythonCtorArity returns the minimum argument count of __init__ excluding
// self, or -1 when the class declares no __init__.
func pythonCtorArity(classNode *sitter.Node, source []byte) int {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return -1
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member == nil || member.Type() != "function_definition" {
			continue
		}
		if nodeText(member.ChildByFieldName("name"), source) != "__init__" {
			continue
		}
		params := member.ChildByFieldName("parameters")
		if params == nil {
			return 0
		}
		required := 0
		for j := 0; j < int(params.NamedChildCount()); j++ {
			param := params.NamedChild(j)
			switch param.Type() {
			case "identifier", "typed_parameter":
				if nodeText(param, source) == "self" {
					continue
				}
				required++
			}
		}
		return required
	}
	return -1
}

// goCtorArity looks for a conventional NewXxx constructor at top level and
// returns its parameter count, or -1 when none exists.
func goCtorArity(root *sitter.Node, source []byte, typeName string) int {
	want := "New" + typeName
	arity := -1
	walk(root, func(n *sitter.Node) {
		if arity >= 0 || n.Type() != "function_declaration" {
			return
		}
		if nodeText(n.ChildByFieldName("name"), source) != want {
			return
		}
		params := n.ChildByFieldName("parameters")
		if params == nil {
			arity = 0
			return
		}
		count := 0
		for i := 0; i < int(params.NamedChildCount()); i++ {
			count++
		}
		arity = count
	})
	return arity
}

func extractImports(root *sitter.Node, source []byte, lang Language) []Import {
	var imports []Import

	add := func(spec string, n *sitter.Node) {
		spec = strings.Trim(spec, `"'`)
		if spec == "" {
			return
		}
		imports = append(imports, Import{Spec: spec, Line: int(n.StartPoint().Row) + 1})
	}

	switch lang {
	case LangGo:
		walk(root, func(n *sitter.Node) {
			if n.Type() != "import_spec" {
				return
			}
			add(nodeText(n.ChildByFieldName("path"), source), n)
		})

	case LangJavaScript, LangTypeScript, LangTSX:
		walk(root, func(n *sitter.Node) {
			if n.Type() != "import_statement" {
				return
			}
			add(nodeText(n.ChildByFieldName("source"), source), n)
		})

	case LangPython:
		walk(root, func(n *sitter.Node) {
			switch n.Type() {
			case "import_statement":
				for i := 0; i < int(n.NamedChildCount()); i++ {
					child := n.NamedChild(i)
					if child.Type() == "dotted_name" || child.Type() == "aliased_import" {
						name := child
						if child.Type() == "aliased_import" {
							name = child.ChildByFieldName("name")
						}
						add(nodeText(name, source), n)
					}
				}
			case "import_from_statement":
				add(nodeText(n.ChildByFieldName("module_name"), source), n)
			}
		})
	}

	return imports
}

func isUpper(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}
