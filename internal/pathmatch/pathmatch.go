// Package pathmatch finds the local file a stack frame path refers to by
// comparing path segments from the filename backwards.
package pathmatch

import "strings"

// Score returns how many trailing segments of suffix and candidate agree.
func Score(suffix, candidate string) int {
	a := segments(suffix)
	b := segments(candidate)
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}

// BestMatch returns the candidate sharing the longest run of trailing
// segments with suffix. At least the filename has to match. Ties go to the
// candidate with fewer segments, then to the earliest one.
func BestMatch(suffix string, candidates []string) (string, bool) {
	if len(segments(suffix)) == 0 {
		return "", false
	}

	best, bestScore, bestLen := "", 0, 0
	for _, c := range candidates {
		score := Score(suffix, c)
		if score == 0 {
			continue
		}
		length := len(segments(c))
		if score > bestScore || (score == bestScore && length < bestLen) {
			best, bestScore, bestLen = c, score, length
		}
	}
	return best, bestScore > 0
}

func segments(p string) []string {
	p = strings.ReplaceAll(p, `\`, "/")
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}
	return out
}
