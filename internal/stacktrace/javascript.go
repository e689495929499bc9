package stacktrace

import (
	"regexp"
	"strings"

	"stackresolve/internal/language"
)

// The frame patterns cover V8, WinJS, SpiderMonkey, Node and JavaScriptCore
// output and are tried in that order.
var (
	jsHeaderRe = regexp.MustCompile(`Error:\s*(.*)$`)

	chromeRe     = regexp.MustCompile(`(?i)^\s*at (.*?) ?\(((?:file|https?|blob|chrome-extension|native|eval|webpack|rsc|<anonymous>|/|[a-z]:\\|\\\\).*?)(?::(\d+))?(?::(\d+))?\)?\s*$`)
	chromeEvalRe = regexp.MustCompile(`\((\S*)(?::(\d+))(?::(\d+))\)`)
	winjsRe      = regexp.MustCompile(`(?i)^\s*at (?:((?:\[object object\])?.+) )?\(?((?:file|ms-appx|https?|webpack|rsc|blob):.*?):(\d+)(?::(\d+))?\)?\s*$`)
	geckoRe      = regexp.MustCompile(`(?i)^\s*(.*?)(?:\((.*?)\))?(?:^|@)((?:file|https?|blob|chrome|webpack|rsc|resource|\[native).*?|[^@]*bundle)(?::(\d+))?(?::(\d+))?\s*$`)
	geckoEvalRe  = regexp.MustCompile(`(?i)(\S+) line (\d+)(?: > eval line \d+)* > eval`)
	nodeRe       = regexp.MustCompile(`(?i)^\s*at (?:((?:\[object object\])?[^\\/]+(?: \[as \S+\])?) )?\(?(.*?):(\d+)(?::(\d+))?\)?\s*$`)
	jscRe        = regexp.MustCompile(`(?i)^\s*(?:([^@]*)(?:\((.*?)\))?@)?(\S.*?):(\d+)(?::(\d+))?\s*$`)
)

// JavaScriptParser handles browser and Node.js traces.
type JavaScriptParser struct{}

func (JavaScriptParser) Language() language.Language { return language.JavaScript }

func (JavaScriptParser) Parse(raw string) (*ParsedStackTrace, error) {
	info := &ParsedStackTrace{Language: language.JavaScript, Text: ptr(raw), Lines: []Frame{}}
	if strings.TrimSpace(raw) == "" {
		return info, nil
	}

	header, errMsg, rest := splitHeader(splitLines(raw), func(line string) (string, bool) {
		m := jsHeaderRe.FindStringSubmatch(line)
		if m == nil || strings.TrimSpace(m[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	})
	info.Header, info.Error = header, errMsg

	for _, line := range rest {
		if f, ok := parseJSLine(line); ok {
			info.Lines = append(info.Lines, f)
		}
	}
	return info, nil
}

func parseJSLine(line string) (Frame, bool) {
	for _, parse := range []func(string) (Frame, bool){parseChrome, parseWinJS, parseGecko, parseNode, parseJSC} {
		if f, ok := parse(line); ok {
			return f, true
		}
	}
	return Frame{}, false
}

func parseChrome(line string) (Frame, bool) {
	m := chromeRe.FindStringSubmatch(line)
	if m == nil {
		return Frame{}, false
	}
	file, lineNo, col := m[2], m[3], m[4]
	isNative := strings.HasPrefix(file, "native")
	if strings.HasPrefix(file, "eval") {
		if sub := chromeEvalRe.FindStringSubmatch(file); sub != nil {
			file, lineNo, col = sub[1], sub[2], sub[3]
		}
	}

	f := Frame{Method: jsMethod(m[1]), Arguments: []string{}}
	if isNative {
		f.Arguments = []string{m[2]}
	} else {
		f.FileFullPath = ptr(cleanJSPath(file))
	}
	f.Line = atoiPtr(lineNo)
	f.Column = atoiPtr(col)
	return f, true
}

func parseWinJS(line string) (Frame, bool) {
	m := winjsRe.FindStringSubmatch(line)
	if m == nil {
		return Frame{}, false
	}
	return Frame{
		Method:       jsMethod(m[1]),
		FileFullPath: ptr(cleanJSPath(m[2])),
		Line:         atoiPtr(m[3]),
		Column:       atoiPtr(m[4]),
		Arguments:    []string{},
	}, true
}

func parseGecko(line string) (Frame, bool) {
	m := geckoRe.FindStringSubmatch(line)
	if m == nil {
		return Frame{}, false
	}
	file, lineNo, col := m[3], m[4], m[5]
	if strings.Contains(file, " > eval") {
		if sub := geckoEvalRe.FindStringSubmatch(file); sub != nil {
			file, lineNo, col = sub[1], sub[2], ""
		}
	}
	args := []string{}
	if m[2] != "" {
		args = strings.Split(m[2], ",")
	}
	f := Frame{
		Method:    jsMethod(m[1]),
		Line:      atoiPtr(lineNo),
		Column:    atoiPtr(col),
		Arguments: args,
	}
	if file != "" {
		f.FileFullPath = ptr(cleanJSPath(file))
	}
	return f, true
}

func parseNode(line string) (Frame, bool) {
	m := nodeRe.FindStringSubmatch(line)
	if m == nil {
		return Frame{}, false
	}
	return Frame{
		Method:       jsMethod(m[1]),
		FileFullPath: ptr(cleanJSPath(m[2])),
		Line:         atoiPtr(m[3]),
		Column:       atoiPtr(m[4]),
		Arguments:    []string{},
	}, true
}

func parseJSC(line string) (Frame, bool) {
	m := jscRe.FindStringSubmatch(line)
	if m == nil {
		return Frame{}, false
	}
	return Frame{
		Method:       jsMethod(m[1]),
		FileFullPath: ptr(cleanJSPath(m[3])),
		Line:         atoiPtr(m[4]),
		Column:       atoiPtr(m[5]),
		Arguments:    []string{},
	}, true
}

func jsMethod(name string) *string {
	if name == "" {
		return ptr(UnknownFunction)
	}
	return ptr(name)
}

// cleanJSPath strips bundler and URL decoration from a frame path.
func cleanJSPath(p string) string {
	if p == "<anonymous>" {
		return p
	}
	switch {
	case strings.HasPrefix(p, "webpack:"):
		p = strings.TrimPrefix(p, "webpack:")
		p = strings.TrimLeft(p, "/")
		p = strings.TrimPrefix(p, "./")
		p = "/" + p
	case strings.HasPrefix(p, "file://"):
		p = strings.TrimPrefix(p, "file://")
	}
	if i := strings.Index(p, "?"); i >= 0 {
		p = p[:i]
	}
	return p
}
