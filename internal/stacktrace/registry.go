package stacktrace

import (
	"fmt"
	"strings"

	"stackresolve/internal/language"
	"stackresolve/internal/logging"
)

// Parser turns the raw text of one language's stack traces into frames.
// Implementations hold no mutable state and are safe for concurrent use.
type Parser interface {
	Language() language.Language
	Parse(raw string) (*ParsedStackTrace, error)
}

// Registry picks a parser for a trace and runs it.
type Registry struct {
	detector *language.Detector
	logger   *logging.Logger
}

// NewRegistry creates a registry. A nil detector uses the default mappings.
func NewRegistry(detector *language.Detector, logger *logging.Logger) *Registry {
	if detector == nil {
		detector = language.NewDetector()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Registry{detector: detector, logger: logger}
}

// ParserFor returns the grammar for l, or nil for Unknown.
func ParserFor(l language.Language) Parser {
	switch l {
	case language.JavaScript:
		return JavaScriptParser{}
	case language.Ruby:
		return RubyParser{}
	case language.PHP:
		return PHPParser{}
	case language.Python:
		return PythonParser{}
	case language.CSharp:
		return CSharpParser{}
	case language.Java:
		return JavaParser{}
	case language.Go:
		return GoParser{}
	case language.Unknown:
		return nil
	default:
		return nil
	}
}

// Parse detects the trace's language and parses it. When detection fails
// every grammar is tried in language.All order and the first one that
// neither errors nor panics wins, even with zero frames. The result always
// has a non-nil Lines slice; ParseError is set when it is empty.
func (r *Registry) Parse(raw string) *ParsedStackTrace {
	lang, ok := r.detector.Guess(splitLines(raw))

	var result *ParsedStackTrace
	if ok {
		res, err := safeParse(ParserFor(lang), raw)
		if err != nil {
			r.logger.Warn("Stack trace parser failed", map[string]interface{}{
				"language": lang.String(),
				"error":    err.Error(),
			})
			res = &ParsedStackTrace{Language: lang}
		}
		result = res
	} else {
		for _, l := range language.All {
			res, err := safeParse(ParserFor(l), raw)
			if err != nil {
				r.logger.Debug("Stack trace parser rejected input", map[string]interface{}{
					"language": l.String(),
					"error":    err.Error(),
				})
				continue
			}
			result = res
			break
		}
		if result == nil {
			result = &ParsedStackTrace{}
		}
	}

	if result.Lines == nil {
		result.Lines = []Frame{}
	}
	if len(result.Lines) == 0 {
		result.ParseError = UnableToParse
		if strings.TrimSpace(raw) != "" {
			r.logger.Warn("Could not parse stack trace", map[string]interface{}{
				"language": result.Language.String(),
				"detected": ok,
			})
		}
	}
	return result
}

func safeParse(p Parser, raw string) (res *ParsedStackTrace, err error) {
	if p == nil {
		return nil, fmt.Errorf("no parser registered")
	}
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = fmt.Errorf("%s parser panicked: %v", p.Language(), rec)
		}
	}()
	res, err = p.Parse(raw)
	if err == nil && res == nil {
		err = fmt.Errorf("%s parser returned no result", p.Language())
	}
	return res, err
}
