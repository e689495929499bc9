package stacktrace

import (
	"regexp"
	"strings"

	"stackresolve/internal/language"
)

// Matches debug_print_backtrace style lines:
//
//	in Foo\Bar::baz called at /app/src/Bar.php (12)
var phpFrameRe = regexp.MustCompile(`^in (?:([\w\\]+)::)?([\w\\{}]+) called at (\?|[\w/]+\.php) \((\?|\d*)\)$`)

// PHPParser emits one frame per non-blank input line. Lines that do not
// parse carry CouldNotParseLine so positions stay aligned with the input.
type PHPParser struct{}

func (PHPParser) Language() language.Language { return language.PHP }

func (PHPParser) Parse(raw string) (*ParsedStackTrace, error) {
	info := &ParsedStackTrace{Language: language.PHP, Lines: []Frame{}}
	if strings.TrimSpace(raw) == "" {
		return info, nil
	}

	for _, line := range splitLines(strings.TrimSpace(raw)) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := phpFrameRe.FindStringSubmatch(line)
		if m == nil {
			info.Lines = append(info.Lines, ErrorFrame(CouldNotParseLine))
			continue
		}
		method := m[2]
		if m[1] != "" {
			method = m[1] + "::" + m[2]
		}
		info.Lines = append(info.Lines, Frame{
			Method:       ptr(method),
			FileFullPath: ptr(m[3]),
			Line:         atoiPtr(m[4]),
		})
	}
	return info, nil
}
