package stacktrace

import (
	"regexp"
	"strings"

	"stackresolve/internal/language"
)

const pythonTracebackMarker = "traceback (most recent call last):"

var (
	pythonFrameRe     = regexp.MustCompile(`File "(.+)", line (\d+), in (.+)`)
	pythonExceptionRe = regexp.MustCompile(`^([A-Za-z_][\w.]*): (.*)$`)
)

// PythonParser handles CPython tracebacks.
type PythonParser struct{}

func (PythonParser) Language() language.Language { return language.Python }

func (PythonParser) Parse(raw string) (*ParsedStackTrace, error) {
	info := &ParsedStackTrace{Language: language.Python, Text: ptr(raw), Lines: []Frame{}}
	if raw == "" {
		return info, nil
	}

	lines := splitLines(raw)
	if strings.Contains(strings.ToLower(lines[0]), pythonTracebackMarker) {
		lines = lines[1:]
	}

	for _, m := range pythonFrameRe.FindAllStringSubmatch(strings.Join(lines, "\n"), -1) {
		info.Lines = append(info.Lines, Frame{
			Method:       ptr(strings.TrimSpace(m[3])),
			FileFullPath: ptr(m[1]),
			Line:         atoiPtr(m[2]),
		})
	}

	// The exception itself is printed after the frames.
	for i := len(lines) - 1; i >= 0; i-- {
		last := strings.TrimSpace(lines[i])
		if last == "" {
			continue
		}
		if m := pythonExceptionRe.FindStringSubmatch(last); m != nil && !pythonFrameRe.MatchString(last) {
			info.Header = ptr(last)
			info.Error = ptr(m[2])
		}
		break
	}
	return info, nil
}
