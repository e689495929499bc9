//go:build cgo

package symbols

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"stackresolve/internal/stacktrace"
)

// Locator finds the innermost function or type declaration around a line.
// A new tree-sitter parser is created per call, so a Locator is safe for
// concurrent use.
type Locator struct{}

// NewLocator creates a locator.
func NewLocator() *Locator {
	return &Locator{}
}

// IsAvailable returns whether symbol lookup is available.
func IsAvailable() bool {
	return true
}

// getLanguage returns the tree-sitter Language for a grammar.
func getLanguage(g Grammar) (*sitter.Language, error) {
	switch g {
	case GrammarGo:
		return golang.GetLanguage(), nil
	case GrammarJavaScript:
		return javascript.GetLanguage(), nil
	case GrammarTypeScript:
		return typescript.GetLanguage(), nil
	case GrammarTSX:
		return tsx.GetLanguage(), nil
	case GrammarPython:
		return python.GetLanguage(), nil
	case GrammarRuby:
		return ruby.GetLanguage(), nil
	case GrammarPHP:
		return php.GetLanguage(), nil
	case GrammarJava:
		return java.GetLanguage(), nil
	case GrammarKotlin:
		return kotlin.GetLanguage(), nil
	case GrammarCSharp:
		return csharp.GetLanguage(), nil
	case GrammarRust:
		return rust.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported grammar: %s", g)
	}
}

// Enclosing returns the innermost declaration of path's source containing
// the 1-based line, or nil when the line is outside every declaration or
// the file type has no grammar.
func (l *Locator) Enclosing(ctx context.Context, path, source string, line int) (*stacktrace.Symbol, error) {
	g, ok := GrammarForPath(path)
	if !ok || line < 1 {
		return nil, nil
	}
	tsLang, err := getLanguage(g)
	if err != nil {
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsLang)

	src := []byte(source)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	return enclosing(tree.RootNode(), src, g, uint32(line-1)), nil
}

// enclosing descends from root along the nodes spanning row.
func enclosing(root *sitter.Node, src []byte, g Grammar, row uint32) *stacktrace.Symbol {
	var fn, typ *sitter.Node

	for node := root; node != nil; {
		t := node.Type()
		switch {
		case contains(functionNodeTypes(g), t):
			fn = node
		case contains(typeNodeTypes(g), t) && fn == nil:
			typ = node
		}
		node = childSpanning(node, row)
	}

	switch {
	case fn != nil:
		name := functionName(fn, src, g)
		container := ""
		if typ != nil {
			container = typeName(typ, src, g)
		}
		if g == GrammarGo && fn.Type() == "method_declaration" {
			container = goReceiverType(fn, src)
		}
		kind := "function"
		if container != "" || contains(methodNodeTypes, fn.Type()) {
			kind = "method"
		}
		return newSymbol(fn, name, kind, container)
	case typ != nil:
		return newSymbol(typ, typeName(typ, src, g), typeKind(typ), "")
	default:
		return nil
	}
}

func newSymbol(node *sitter.Node, name, kind, container string) *stacktrace.Symbol {
	if name == "" {
		return nil
	}
	return &stacktrace.Symbol{
		Name:      name,
		Kind:      kind,
		Container: container,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
}

func childSpanning(node *sitter.Node, row uint32) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		if child.StartPoint().Row <= row && row <= child.EndPoint().Row {
			return child
		}
	}
	return nil
}

var methodNodeTypes = []string{"method_declaration", "method_definition", "method", "singleton_method", "constructor_declaration"}

// functionNodeTypes returns node types for functions and methods.
func functionNodeTypes(g Grammar) []string {
	switch g {
	case GrammarGo:
		return []string{"function_declaration", "method_declaration", "func_literal"}
	case GrammarJavaScript, GrammarTypeScript, GrammarTSX:
		return []string{"function_declaration", "function", "function_expression", "arrow_function", "method_definition", "generator_function_declaration"}
	case GrammarPython:
		return []string{"function_definition"}
	case GrammarRuby:
		return []string{"method", "singleton_method"}
	case GrammarPHP:
		return []string{"function_definition", "method_declaration"}
	case GrammarJava:
		return []string{"method_declaration", "constructor_declaration"}
	case GrammarKotlin:
		return []string{"function_declaration"}
	case GrammarCSharp:
		return []string{"method_declaration", "constructor_declaration", "local_function_statement"}
	case GrammarRust:
		return []string{"function_item"}
	default:
		return nil
	}
}

// typeNodeTypes returns node types for classes, modules and other type
// declarations that can contain functions.
func typeNodeTypes(g Grammar) []string {
	switch g {
	case GrammarGo:
		return []string{"type_declaration"}
	case GrammarJavaScript, GrammarTypeScript, GrammarTSX:
		return []string{"class_declaration", "class", "interface_declaration"}
	case GrammarPython:
		return []string{"class_definition"}
	case GrammarRuby:
		return []string{"class", "module"}
	case GrammarPHP:
		return []string{"class_declaration", "interface_declaration", "trait_declaration"}
	case GrammarJava:
		return []string{"class_declaration", "interface_declaration", "enum_declaration"}
	case GrammarKotlin:
		return []string{"class_declaration", "object_declaration"}
	case GrammarCSharp:
		return []string{"class_declaration", "struct_declaration", "interface_declaration"}
	case GrammarRust:
		return []string{"impl_item", "struct_item", "trait_item"}
	default:
		return nil
	}
}

// functionName extracts the function name from a node.
func functionName(node *sitter.Node, src []byte, g Grammar) string {
	var nameNode *sitter.Node

	switch g {
	case GrammarKotlin:
		nameNode = firstChildOfType(node, "simple_identifier")
	default:
		nameNode = node.ChildByFieldName("name")
	}
	if nameNode != nil {
		return nameNode.Content(src)
	}

	// Anonymous functions take the name they are assigned to.
	if parent := node.Parent(); parent != nil {
		switch parent.Type() {
		case "variable_declarator", "pair", "assignment_expression":
			for _, field := range []string{"name", "key", "left"} {
				if n := parent.ChildByFieldName(field); n != nil {
					return n.Content(src)
				}
			}
		}
	}
	return stacktrace.UnknownFunction
}

// typeName extracts the class/type name from a node.
func typeName(node *sitter.Node, src []byte, g Grammar) string {
	var nameNode *sitter.Node

	switch g {
	case GrammarGo:
		// type_declaration has type_spec child which has the name
		if spec := firstChildOfType(node, "type_spec"); spec != nil {
			nameNode = spec.ChildByFieldName("name")
		}
	case GrammarRust:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil && node.Type() == "impl_item" {
			nameNode = node.ChildByFieldName("type")
		}
	case GrammarKotlin:
		nameNode = firstChildOfType(node, "type_identifier")
		if nameNode == nil {
			nameNode = firstChildOfType(node, "simple_identifier")
		}
	default:
		nameNode = node.ChildByFieldName("name")
	}

	if nameNode != nil {
		return nameNode.Content(src)
	}
	return ""
}

// typeKind determines the kind of class/type node.
func typeKind(node *sitter.Node) string {
	switch node.Type() {
	case "interface_declaration", "trait_item", "trait_declaration":
		return "interface"
	case "module":
		return "module"
	case "type_declaration", "struct_item", "impl_item", "struct_declaration", "enum_declaration":
		return "type"
	default:
		return "class"
	}
}

// goReceiverType returns T for a method declared as func (r *T) M().
func goReceiverType(fn *sitter.Node, src []byte) string {
	recv := fn.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	var found string
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil || found != "" {
			return
		}
		if n.Type() == "type_identifier" {
			found = n.Content(src)
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(recv)
	return found
}

func firstChildOfType(node *sitter.Node, t string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == t {
			return child
		}
	}
	return nil
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
