package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ContextLines is the number of unchanged lines kept around each change.
const ContextLines = 3

// NormalizeText converts CRLF and lone CR line endings to LF.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// SplitLines splits normalized text into lines. A trailing newline does not
// start another line.
func SplitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// Lines diffs oldText against newText. Both are normalized first. It returns
// nil when the texts have the same lines.
func Lines(oldText, newText string) *UnifiedDiff {
	a := SplitLines(NormalizeText(oldText))
	b := SplitLines(NormalizeText(newText))
	if equalLines(a, b) {
		return nil
	}

	d := &UnifiedDiff{NewLineCount: len(b)}
	matcher := difflib.NewMatcher(a, b)
	for _, group := range matcher.GetGroupedOpCodes(ContextLines) {
		if h, ok := hunkFromOpCodes(group, a, b); ok {
			d.Hunks = append(d.Hunks, h)
		}
	}
	return d
}

func hunkFromOpCodes(group []difflib.OpCode, a, b []string) (Hunk, bool) {
	changed := false
	for _, op := range group {
		if op.Tag != 'e' {
			changed = true
			break
		}
	}
	if !changed || len(group) == 0 {
		return Hunk{}, false
	}

	first, last := group[0], group[len(group)-1]
	h := Hunk{
		OldStart: first.I1 + 1,
		OldLines: last.I2 - first.I1,
		NewStart: first.J1 + 1,
		NewLines: last.J2 - first.J1,
	}
	if h.OldLines == 0 {
		h.OldStart--
	}
	if h.NewLines == 0 {
		h.NewStart--
	}

	for _, op := range group {
		switch op.Tag {
		case 'e':
			for _, s := range a[op.I1:op.I2] {
				h.Lines = append(h.Lines, Line{Kind: Context, Text: s})
			}
		case 'd':
			for _, s := range a[op.I1:op.I2] {
				h.Lines = append(h.Lines, Line{Kind: Deleted, Text: s})
			}
		case 'i':
			for _, s := range b[op.J1:op.J2] {
				h.Lines = append(h.Lines, Line{Kind: Added, Text: s})
			}
		case 'r':
			for _, s := range a[op.I1:op.I2] {
				h.Lines = append(h.Lines, Line{Kind: Deleted, Text: s})
			}
			for _, s := range b[op.J1:op.J2] {
				h.Lines = append(h.Lines, Line{Kind: Added, Text: s})
			}
		}
	}
	return h, true
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
