package stacktrace

import (
	"strconv"
	"strings"

	"stackresolve/internal/language"
)

// CouldNotParseLine is the per-frame error emitted for unparsable lines by
// grammars that keep one frame per input line.
const CouldNotParseLine = "could not parse line"

// UnableToParse is set on ParsedStackTrace.ParseError when no frames were found.
const UnableToParse = "unable to parse stack trace"

// UnknownFunction is the method name used when a frame has none.
const UnknownFunction = "<unknown>"

// Symbol is the enclosing declaration of a resolved position.
type Symbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Container string `json:"container,omitempty"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// Frame is one entry of a stack trace. Lines and columns are 1-based.
// A frame with Error set carries no usable position.
type Frame struct {
	Method           *string  `json:"method,omitempty"`
	FileFullPath     *string  `json:"fileFullPath,omitempty"`
	FileRelativePath *string  `json:"fileRelativePath,omitempty"`
	Line             *int     `json:"line,omitempty"`
	Column           *int     `json:"column,omitempty"`
	Arguments        []string `json:"arguments,omitempty"`
	Error            *string  `json:"error,omitempty"`
	Symbol           *Symbol  `json:"symbol,omitempty"`
}

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	c := Frame{
		Method:           clonePtr(f.Method),
		FileFullPath:     clonePtr(f.FileFullPath),
		FileRelativePath: clonePtr(f.FileRelativePath),
		Line:             clonePtr(f.Line),
		Column:           clonePtr(f.Column),
		Error:            clonePtr(f.Error),
		Symbol:           clonePtr(f.Symbol),
	}
	if f.Arguments != nil {
		c.Arguments = append([]string{}, f.Arguments...)
	}
	return c
}

// ErrorFrame returns a frame carrying only msg.
func ErrorFrame(msg string) Frame {
	return Frame{Error: &msg}
}

// ParsedStackTrace is the structured form of a raw trace.
type ParsedStackTrace struct {
	Header     *string           `json:"header,omitempty"`
	Error      *string           `json:"error,omitempty"`
	Text       *string           `json:"text,omitempty"`
	Language   language.Language `json:"language"`
	Lines      []Frame           `json:"lines"`
	ParseError string            `json:"parseError,omitempty"`
}

// Resolvable reports whether any frame is free of errors.
func (p *ParsedStackTrace) Resolvable() bool {
	if p == nil || p.ParseError != "" {
		return false
	}
	for _, f := range p.Lines {
		if f.Error == nil {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// atoiPtr parses s as a decimal number, returning nil when it is not one.
func atoiPtr(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// splitLines splits on newlines after normalizing CRLF.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.Split(raw, "\n")
}

// splitHeader detaches the first line as a header when match accepts it.
func splitHeader(lines []string, match func(string) (string, bool)) (header, errMsg *string, rest []string) {
	if len(lines) == 0 {
		return nil, nil, lines
	}
	msg, ok := match(lines[0])
	if !ok {
		return nil, nil, lines
	}
	h := lines[0]
	return &h, &msg, lines[1:]
}
