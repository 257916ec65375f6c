package ast

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// Adapter parses source text into the normalized tree the engine consumes.
type Adapter struct {
	lang     *sitter.Language
	langName string
}

// NewAdapter creates an adapter for a language tag ("c" or "cpp").
func NewAdapter(lang string) (*Adapter, error) {
	switch lang {
	case "c":
		return &Adapter{lang: c.GetLanguage(), langName: "c"}, nil
	case "cpp":
		return &Adapter{lang: cpp.GetLanguage(), langName: "cpp"}, nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// LanguageForPath maps a filename extension to a language tag.
func LanguageForPath(path string) (string, bool) {
	switch {
	case strings.HasSuffix(path, ".c"), strings.HasSuffix(path, ".h"):
		return "c", true
	case strings.HasSuffix(path, ".cpp"), strings.HasSuffix(path, ".cc"),
		strings.HasSuffix(path, ".hpp"), strings.HasSuffix(path, ".cxx"):
		return "cpp", true
	default:
		return "", false
	}
}

// ParseFile reads and normalizes a single source file.
func (a *Adapter) ParseFile(ctx context.Context, path string) (*File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return a.Parse(ctx, path, source)
}

// Parse normalizes source text. A nil or non-translation-unit root is the
// one hard failure the engine contract allows.
func (a *Adapter) Parse(ctx context.Context, path string, source []byte) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(a.lang)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	root := tree.RootNode()
	if root == nil || root.Type() != "translation_unit" {
		return nil, fmt.Errorf("malformed syntax tree for %s", path)
	}

	return &File{
		Path:     path,
		Language: a.langName,
		Root:     convert(root, "", source),
	}, nil
}

// convert maps a tree-sitter node into the normalized shape. Named children
// are kept; anonymous tokens are kept only when they carry a field name
// (e.g. the "operator" of a pointer_expression) or lead a preprocessor
// directive, where the token distinguishes #ifdef from #ifndef.
func convert(n *sitter.Node, field string, source []byte) *Node {
	out := &Node{
		Kind:  n.Type(),
		Field: field,
		Text:  n.Content(source),
		Span: Span{
			StartLine:   int(n.StartPoint().Row) + 1,
			StartColumn: int(n.StartPoint().Column),
			EndLine:     int(n.EndPoint().Row) + 1,
			EndColumn:   int(n.EndPoint().Column),
		},
	}

	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		childField := n.FieldNameForChild(i)
		if child.Type() == "comment" {
			continue
		}
		if !child.IsNamed() && childField == "" {
			if i == 0 && strings.HasPrefix(child.Type(), "#") {
				// Directive token: "#ifdef" vs "#ifndef" etc.
				out.Children = append(out.Children, convert(child, "directive", source))
			}
			continue
		}
		out.Children = append(out.Children, convert(child, childField, source))
	}

	return out
}
