// Package location moves a position in one revision of a file to the
// matching position in another revision, given the diff between them.
package location

import (
	"sort"

	"stackresolve/internal/diff"
)

// MaxRangeValue as a column means "end of line": the original column could
// not be carried over.
const MaxRangeValue = 2147483647

// Anchor is a range in a text. Lines and columns are 0-based.
type Anchor struct {
	LineStart int `json:"lineStart"`
	ColStart  int `json:"colStart"`
	LineEnd   int `json:"lineEnd"`
	ColEnd    int `json:"colEnd"`
}

// Point returns a single-line anchor running to the end of the line.
func Point(line, col int) Anchor {
	return Anchor{LineStart: line, ColStart: col, LineEnd: line, ColEnd: MaxRangeValue}
}

// Translate maps a through d. A nil or empty diff returns a unchanged.
func Translate(a Anchor, d *diff.UnifiedDiff) Anchor {
	if d.Empty() {
		return a
	}

	hunks := make([]diff.Hunk, len(d.Hunks))
	copy(hunks, d.Hunks)
	sort.SliceStable(hunks, func(i, j int) bool {
		return hunks[i].OldStart < hunks[j].OldStart
	})

	out := Anchor{}
	out.LineStart, out.ColStart = translateLine(a.LineStart, a.ColStart, hunks, d.NewLineCount)
	out.LineEnd, out.ColEnd = translateLine(a.LineEnd, a.ColEnd, hunks, d.NewLineCount)
	if out.LineEnd < out.LineStart {
		out.LineEnd, out.ColEnd = out.LineStart, MaxRangeValue
	}
	return out
}

// translateLine maps a 0-based line; hunks must be sorted by OldStart.
func translateLine(line, col int, hunks []diff.Hunk, newLineCount int) (int, int) {
	l := line + 1
	delta := 0

	for _, h := range hunks {
		if before(h, l) {
			delta += h.NewLines - h.OldLines
			continue
		}
		if h.OldStart > l || (h.OldLines == 0 && h.OldStart >= l) {
			break
		}
		nl, nc := walkHunk(h, l, col)
		return clamp(nl, nc, newLineCount)
	}

	return clamp(l+delta, col, newLineCount)
}

// before reports whether h ends above old line l. A pure insertion is
// before l when it is placed after a line above l.
func before(h diff.Hunk, l int) bool {
	if h.OldLines == 0 {
		return h.OldStart < l
	}
	return h.OldStart+h.OldLines <= l
}

// walkHunk follows the body of a hunk that contains old line l.
func walkHunk(h diff.Hunk, l, col int) (int, int) {
	oldLine, newLine := h.OldStart, h.NewStart
	lastNew := h.NewStart + h.NewLines - 1
	if h.NewLines == 0 {
		lastNew = h.NewStart
	}

	for _, ln := range h.Lines {
		switch ln.Kind {
		case diff.Context:
			if oldLine == l {
				return newLine, col
			}
			oldLine++
			newLine++
		case diff.Deleted:
			if oldLine == l {
				if newLine > lastNew {
					newLine = lastNew
				}
				return newLine, MaxRangeValue
			}
			oldLine++
		case diff.Added:
			newLine++
		}
	}

	// The body did not cover l; place it proportionally inside the hunk.
	target := h.NewStart + (l - h.OldStart)
	if target > lastNew {
		target = lastNew
	}
	return target, MaxRangeValue
}

// clamp keeps a 1-based line inside the new text and converts it back to
// 0-based.
func clamp(l, col, newLineCount int) (int, int) {
	if newLineCount > 0 && l > newLineCount {
		l, col = newLineCount, MaxRangeValue
	}
	if l < 1 {
		l = 1
	}
	return l - 1, col
}
