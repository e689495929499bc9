// Package language identifies which stack trace grammar a raw trace was
// written in.
package language

import (
	"fmt"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Language is one of the stack trace grammars stackresolve understands.
type Language int

const (
	Unknown Language = iota
	JavaScript
	Ruby
	PHP
	Python
	CSharp
	Java
	Go
)

// All lists the supported languages in fallback order.
var All = []Language{JavaScript, Ruby, PHP, Python, CSharp, Java, Go}

func (l Language) String() string {
	switch l {
	case JavaScript:
		return "javascript"
	case Ruby:
		return "ruby"
	case PHP:
		return "php"
	case Python:
		return "python"
	case CSharp:
		return "csharp"
	case Java:
		return "java"
	case Go:
		return "go"
	default:
		return "unknown"
	}
}

// MarshalText renders the language name in JSON, YAML and TOML output.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts anything ParseLanguage accepts, plus "unknown" and
// the empty string for Unknown.
func (l *Language) UnmarshalText(b []byte) error {
	name := strings.TrimSpace(string(b))
	if name == "" || strings.EqualFold(name, Unknown.String()) {
		*l = Unknown
		return nil
	}
	parsed, err := ParseLanguage(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// enryNames maps linguist language names onto trace grammars. Languages that
// compile to JavaScript share its stack format.
var enryNames = map[string]Language{
	"JavaScript":   JavaScript,
	"TypeScript":   JavaScript,
	"TSX":          JavaScript,
	"Vue":          JavaScript,
	"CoffeeScript": JavaScript,
	"Ruby":         Ruby,
	"PHP":          PHP,
	"Python":       Python,
	"C#":           CSharp,
	"Java":         Java,
	"Kotlin":       Java,
	"Scala":        Java,
	"Groovy":       Java,
	"Go":           Go,
}

// ParseLanguage resolves a language name or alias ("node", "c#", "golang").
func ParseLanguage(name string) (Language, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Unknown, fmt.Errorf("empty language name")
	}
	for _, l := range All {
		if strings.EqualFold(trimmed, l.String()) {
			return l, nil
		}
	}
	if canonical, ok := enry.GetLanguageByAlias(trimmed); ok {
		if l, ok := enryNames[canonical]; ok {
			return l, nil
		}
		return Unknown, fmt.Errorf("language %q has no stack trace grammar", canonical)
	}
	return Unknown, fmt.Errorf("unknown language %q", name)
}
