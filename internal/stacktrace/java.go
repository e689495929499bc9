package stacktrace

import (
	"regexp"
	"strings"

	"stackresolve/internal/language"
)

var (
	javaFrameRe = regexp.MustCompile(`^\s*(?:at\s+)?(\S+)\((.*)\)\s*$`)
	// Optional class loader and module prefixes ("app//", "java.base/"),
	// then package.Class.method.
	javaQualifiedRe = regexp.MustCompile(`^(?:[\w$.@-]*/)*[\w$]+(?:\.[\w$<>]+)+$`)
	javaLocationRe  = regexp.MustCompile(`^([\w$-]+\.\w+):(\d+)$`)
	javaHeaderRe    = regexp.MustCompile(`^(?:Exception in thread "[^"]*" )?([\w$.]+): (.*)$`)
)

// JavaParser handles JVM stack traces, with or without the "at" keyword.
// Frames whose location is "Unknown Source" or "Native Method" keep their
// method but have no file.
type JavaParser struct{}

func (JavaParser) Language() language.Language { return language.Java }

func (JavaParser) Parse(raw string) (*ParsedStackTrace, error) {
	info := &ParsedStackTrace{Language: language.Java, Text: ptr(raw), Lines: []Frame{}}
	if strings.TrimSpace(raw) == "" {
		return info, nil
	}

	header, errMsg, rest := splitHeader(splitLines(raw), func(line string) (string, bool) {
		if javaFrameRe.MatchString(line) {
			return "", false
		}
		m := javaHeaderRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || m[2] == "" {
			return "", false
		}
		return m[2], true
	})
	info.Header, info.Error = header, errMsg

	for _, line := range rest {
		if f, ok := parseJavaLine(line); ok {
			info.Lines = append(info.Lines, f)
		}
	}
	return info, nil
}

func parseJavaLine(line string) (Frame, bool) {
	m := javaFrameRe.FindStringSubmatch(line)
	if m == nil || !javaQualifiedRe.MatchString(m[1]) {
		return Frame{}, false
	}
	qualified := m[1]
	f := Frame{Method: ptr(qualified)}

	loc := javaLocationRe.FindStringSubmatch(strings.TrimSpace(m[2]))
	if loc == nil {
		return f, true
	}
	f.FileFullPath = ptr(javaSourcePath(qualified, loc[1]))
	f.Line = atoiPtr(loc[2])
	return f, true
}

// javaSourcePath derives the repository-style path of file from the
// package of a qualified method name: "com.acme.Foo$Bar.run" in
// "Foo.java" becomes "com/acme/Foo.java".
func javaSourcePath(qualified, file string) string {
	if i := strings.LastIndex(qualified, "/"); i >= 0 {
		qualified = qualified[i+1:]
	}
	parts := strings.Split(qualified, ".")
	// The last two parts are the class and the method.
	if len(parts) <= 2 {
		return file
	}
	return strings.Join(parts[:len(parts)-2], "/") + "/" + file
}
