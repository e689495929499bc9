package diff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

// ParseGitDiff parses git output for a single file. It returns nil when the
// output contains no file diff. A file removed on the new side is reported
// through FileDeleted.
func ParseGitDiff(diffContent string) (*UnifiedDiff, error) {
	if strings.TrimSpace(diffContent) == "" {
		return nil, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}
	if len(fileDiffs) == 0 {
		return nil, nil
	}

	fd := fileDiffs[0]
	d := &UnifiedDiff{
		Hunks:       make([]Hunk, 0, len(fd.Hunks)),
		FileDeleted: fd.NewName == devNull,
	}
	for _, h := range fd.Hunks {
		d.Hunks = append(d.Hunks, parseHunk(h))
	}
	return d, nil
}

// parseHunk converts a go-diff hunk, keeping its body lines in order.
func parseHunk(hunk *godiff.Hunk) Hunk {
	h := Hunk{
		OldStart: int(hunk.OrigStartLine),
		OldLines: int(hunk.OrigLines),
		NewStart: int(hunk.NewStartLine),
		NewLines: int(hunk.NewLines),
	}

	body := strings.TrimSuffix(string(hunk.Body), "\n")
	if body == "" {
		return h
	}
	for _, line := range strings.Split(body, "\n") {
		if len(line) == 0 {
			// Some tools strip the single space of blank context lines.
			h.Lines = append(h.Lines, Line{Kind: Context})
			continue
		}
		switch line[0] {
		case '+':
			h.Lines = append(h.Lines, Line{Kind: Added, Text: line[1:]})
		case '-':
			h.Lines = append(h.Lines, Line{Kind: Deleted, Text: line[1:]})
		case ' ':
			h.Lines = append(h.Lines, Line{Kind: Context, Text: line[1:]})
		case '\\':
			// "\ No newline at end of file"
		}
	}
	return h
}
