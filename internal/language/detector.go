package language

import (
	"fmt"
	"regexp"
	"strings"
)

// Mapping ties a file extension (with its leading dot) to a language.
type Mapping struct {
	Extension string
	Language  Language
}

// DefaultMappings is scanned in order; ties in Guess go to the earlier entry.
var DefaultMappings = []Mapping{
	{".js", JavaScript},
	{".jsx", JavaScript},
	{".mjs", JavaScript},
	{".cjs", JavaScript},
	{".ts", JavaScript},
	{".tsx", JavaScript},
	{".vue", JavaScript},
	{".rb", Ruby},
	{".php", PHP},
	{".py", Python},
	{".cs", CSharp},
	{".cshtml", CSharp},
	{".java", Java},
	{".go", Go},
}

type extensionPattern struct {
	language Language
	re       *regexp.Regexp
}

// Detector guesses a trace's language from the file extensions it mentions.
// It is immutable after construction and safe for concurrent use.
type Detector struct {
	patterns []extensionPattern
}

// NewDetector builds a detector over DefaultMappings followed by extra.
func NewDetector(extra ...Mapping) *Detector {
	mappings := make([]Mapping, 0, len(DefaultMappings)+len(extra))
	mappings = append(mappings, DefaultMappings...)
	mappings = append(mappings, extra...)

	d := &Detector{}
	for _, m := range mappings {
		ext := strings.TrimPrefix(strings.ToLower(m.Extension), ".")
		if ext == "" || m.Language == Unknown {
			continue
		}
		// A path-like token ending in the extension, not followed by more of
		// an identifier or another extension (".js" must not match ".json").
		re := regexp.MustCompile(`(?i)[\w~@$%+\-./\\]\.` + regexp.QuoteMeta(ext) + `(?:[^\w.]|$)`)
		d.patterns = append(d.patterns, extensionPattern{language: m.Language, re: re})
	}
	return d
}

// ParseMapping converts a configured extension and language name.
func ParseMapping(ext, name string) (Mapping, error) {
	l, err := ParseLanguage(name)
	if err != nil {
		return Mapping{}, fmt.Errorf("extension %s: %w", ext, err)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return Mapping{Extension: ext, Language: l}, nil
}

// Guess returns the language whose extensions appear on the most lines.
// Counts are accumulated per language in mapping order and a language only
// replaces the current best when its count is strictly greater, so the first
// language to reach the winning count keeps it.
func (d *Detector) Guess(lines []string) (Language, bool) {
	counts := make(map[Language]int)
	best, bestCount := Unknown, 0

	for _, p := range d.patterns {
		for _, line := range lines {
			if p.re.MatchString(line) {
				counts[p.language]++
			}
		}
		if counts[p.language] > bestCount {
			best, bestCount = p.language, counts[p.language]
		}
	}

	return best, bestCount > 0
}
