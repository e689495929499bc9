package stacktrace

import (
	"regexp"
	"strings"

	"stackresolve/internal/language"
)

var (
	rubyHeaderRe = regexp.MustCompile(`^.*?: (.*)$`)
	rubyFrameRe  = regexp.MustCompile("^\\s*(.+?\\.rb):\\s*(\\d+):in\\s+[`'](.+)'\\s*$")
)

// RubyParser handles MRI backtraces, including the quote style of Ruby 3.4.
type RubyParser struct{}

func (RubyParser) Language() language.Language { return language.Ruby }

func (RubyParser) Parse(raw string) (*ParsedStackTrace, error) {
	info := &ParsedStackTrace{Language: language.Ruby, Lines: []Frame{}}
	if strings.TrimSpace(raw) == "" {
		return info, nil
	}

	header, errMsg, rest := splitHeader(splitLines(raw), func(line string) (string, bool) {
		m := rubyHeaderRe.FindStringSubmatch(line)
		if m == nil || m[1] == "" || rubyFrameRe.MatchString(line) {
			return "", false
		}
		return m[1], true
	})
	info.Header, info.Error = header, errMsg

	for _, line := range rest {
		m := rubyFrameRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		info.Lines = append(info.Lines, Frame{
			Method:       ptr(m[3]),
			FileFullPath: ptr(m[1]),
			Line:         atoiPtr(m[2]),
		})
	}
	return info, nil
}
