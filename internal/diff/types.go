// Package diff models line-level differences between two revisions of a
// file. Diffs come either from git (ParseGitDiff) or from comparing two
// texts in memory (Lines).
package diff

// LineKind classifies a line inside a hunk.
type LineKind int

const (
	// Context lines are present on both sides.
	Context LineKind = iota
	// Added lines exist only on the new side.
	Added
	// Deleted lines exist only on the old side.
	Deleted
)

func (k LineKind) String() string {
	switch k {
	case Added:
		return "add"
	case Deleted:
		return "delete"
	default:
		return "context"
	}
}

// Line is one body line of a hunk, without its diff prefix.
type Line struct {
	Kind LineKind `json:"kind"`
	Text string   `json:"text"`
}

// Hunk is one contiguous block of a unified diff. Starts are 1-based; when
// a side's count is zero its start is the line before the change.
type Hunk struct {
	OldStart int    `json:"oldStart"`
	OldLines int    `json:"oldLines"`
	NewStart int    `json:"newStart"`
	NewLines int    `json:"newLines"`
	Lines    []Line `json:"lines"`
}

// UnifiedDiff is the set of hunks for a single file.
type UnifiedDiff struct {
	Hunks []Hunk `json:"hunks"`
	// NewLineCount is the number of lines of the new text, or 0 if unknown.
	NewLineCount int `json:"newLineCount,omitempty"`
	// FileDeleted is set when the file no longer exists on the new side.
	FileDeleted bool `json:"fileDeleted,omitempty"`
}

// Empty reports whether d has no hunks.
func (d *UnifiedDiff) Empty() bool {
	return d == nil || len(d.Hunks) == 0
}
