package stacktrace

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"stackresolve/internal/language"
)

// goFrameLine is one "method (file:line)" line as printed by error
// reporting agents.
type goFrameLine struct {
	Method   []string `parser:"@Word+"`
	Location string   `parser:"@Location"`
}

var (
	goFrameLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Location", Pattern: `\([^()\s]+\)$`},
		{Name: "Word", Pattern: `\S+`},
		{Name: "Whitespace", Pattern: `\s+`},
	})
	goFrameParser = participle.MustBuild[goFrameLine](
		participle.Lexer(goFrameLexer),
		participle.Elide("Whitespace"),
	)

	goHeaderRe = regexp.MustCompile(`^(?:panic|fatal error): (.*)$`)
	// Runtime tracebacks print the position on an indented line below the call.
	goRuntimeLocationRe = regexp.MustCompile(`^\t(\S+\.go):(\d+)(?: \+0x[0-9a-fA-F]+)?\s*$`)
	goCallArgsRe        = regexp.MustCompile(`\([^()]*\)$`)
)

// GoParser accepts both the single-line "method (file:line)" form and the
// runtime panic traceback.
type GoParser struct{}

func (GoParser) Language() language.Language { return language.Go }

func (GoParser) Parse(raw string) (*ParsedStackTrace, error) {
	info := &ParsedStackTrace{Language: language.Go, Text: ptr(raw), Lines: []Frame{}}
	if strings.TrimSpace(raw) == "" {
		return info, nil
	}

	header, errMsg, lines := splitHeader(splitLines(raw), func(line string) (string, bool) {
		m := goHeaderRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || m[1] == "" {
			return "", false
		}
		return m[1], true
	})
	info.Header, info.Error = header, errMsg

	for i := 0; i < len(lines); i++ {
		if i+1 < len(lines) {
			if loc := goRuntimeLocationRe.FindStringSubmatch(lines[i+1]); loc != nil {
				fn := strings.TrimSpace(lines[i])
				if fn != "" && !strings.HasPrefix(fn, "goroutine ") {
					info.Lines = append(info.Lines, Frame{
						Method:       ptr(goCallArgsRe.ReplaceAllString(fn, "")),
						FileFullPath: ptr(loc[1]),
						Line:         atoiPtr(loc[2]),
					})
					i++
					continue
				}
			}
		}
		if f, ok := parseGoFrameLine(lines[i]); ok {
			info.Lines = append(info.Lines, f)
		}
	}
	return info, nil
}

func parseGoFrameLine(line string) (Frame, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Frame{}, false
	}
	parsed, err := goFrameParser.ParseString("", line)
	if err != nil {
		return Frame{}, false
	}

	loc := strings.TrimSuffix(strings.TrimPrefix(parsed.Location, "("), ")")
	f := Frame{Method: ptr(strings.Join(parsed.Method, " "))}
	file := loc
	if i := strings.LastIndex(loc, ":"); i > 0 {
		if n, err := strconv.Atoi(loc[i+1:]); err == nil {
			file = loc[:i]
			f.Line = &n
		}
	}
	f.FileFullPath = ptr(file)
	return f, true
}
