package stacktrace

import (
	"regexp"
	"strings"

	"stackresolve/internal/language"
)

var (
	csharpHeaderRe = regexp.MustCompile(`Exception: (.*)$`)
	// Groups: 1 type, 2 method, 3 arguments, 4 file, 6 line.
	csharpFrameRe = regexp.MustCompile(`^[ \t]*\w+[ \t]+(\S+)\.(\S+?)[ \t]*\((.+)?\)(?:[ \t]+\w+[ \t]+(([a-zA-Z]:|/).+?):\w+[ \t]+(\d+))?\s*$`)
)

// CSharpParser handles .NET exception traces in any UI language, since the
// "at" and "in" keywords are matched as words.
type CSharpParser struct{}

func (CSharpParser) Language() language.Language { return language.CSharp }

func (CSharpParser) Parse(raw string) (*ParsedStackTrace, error) {
	info := &ParsedStackTrace{Language: language.CSharp, Lines: []Frame{}}
	if raw == "" {
		return info, nil
	}

	header, errMsg, rest := splitHeader(splitLines(raw), func(line string) (string, bool) {
		m := csharpHeaderRe.FindStringSubmatch(line)
		if m == nil || m[1] == "" {
			return "", false
		}
		return m[1], true
	})
	info.Header, info.Error = header, errMsg

	for _, line := range rest {
		m := csharpFrameRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		f := Frame{Method: ptr(m[2])}
		if m[3] != "" {
			args := strings.Split(m[3], ",")
			for i := range args {
				args[i] = strings.TrimLeft(args[i], " \t")
			}
			f.Arguments = args
		}
		if m[4] != "" {
			f.FileFullPath = ptr(m[4])
			f.Line = atoiPtr(m[6])
		}
		info.Lines = append(info.Lines, f)
	}
	return info, nil
}
