// Package symbols finds the declaration enclosing a source position with
// tree-sitter. Builds without cgo get a locator that finds nothing.
package symbols

import (
	"github.com/go-enry/go-enry/v2"
)

// Grammar names a tree-sitter grammar.
type Grammar string

const (
	GrammarGo         Grammar = "go"
	GrammarJavaScript Grammar = "javascript"
	GrammarTypeScript Grammar = "typescript"
	GrammarTSX        Grammar = "tsx"
	GrammarPython     Grammar = "python"
	GrammarRuby       Grammar = "ruby"
	GrammarPHP        Grammar = "php"
	GrammarJava       Grammar = "java"
	GrammarKotlin     Grammar = "kotlin"
	GrammarCSharp     Grammar = "csharp"
	GrammarRust       Grammar = "rust"
)

// enryGrammars maps linguist language names to grammars.
var enryGrammars = map[string]Grammar{
	"Go":         GrammarGo,
	"JavaScript": GrammarJavaScript,
	"TypeScript": GrammarTypeScript,
	"TSX":        GrammarTSX,
	"Python":     GrammarPython,
	"Ruby":       GrammarRuby,
	"PHP":        GrammarPHP,
	"Java":       GrammarJava,
	"Kotlin":     GrammarKotlin,
	"C#":         GrammarCSharp,
	"Rust":       GrammarRust,
}

// GrammarForPath picks a grammar from the file name. Extensions shared
// by several languages (".ts", ".php") resolve to the first candidate that
// has a grammar.
func GrammarForPath(path string) (Grammar, bool) {
	candidates := enry.GetLanguagesByExtension(path, nil, nil)
	if len(candidates) == 0 {
		candidates = enry.GetLanguagesByFilename(path, nil, nil)
	}
	for _, name := range candidates {
		if g, ok := enryGrammars[name]; ok {
			return g, true
		}
	}
	return "", false
}
