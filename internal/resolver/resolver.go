// Package resolver turns an unordered, possibly-overlapping set of scanner
// matches into the deterministic, non-overlapping, left-to-right emission
// list a redactor walks to build tokenized output.
package resolver

import (
	"sort"

	"github.com/pii-redactor/sidecar/internal/entity"
	"github.com/pii-redactor/sidecar/internal/scanner"
)

// Resolve filters matches by skipTypes and allowList, then greedily selects
// a non-overlapping, left-to-right subset: sorted by (start, -length,
// -score), each span is kept only if it starts at or after the previously
// kept span's end. This makes the outermost, longest, highest-scored
// detection win whenever two spans overlap — e.g. an email address nested
// inside a URL-with-secret keeps the URL match and drops the email.
func Resolve(matches []scanner.Match, skipTypes map[entity.Type]bool, allowList map[string]bool) []scanner.Match {
	filtered := make([]scanner.Match, 0, len(matches))
	for _, m := range matches {
		if skipTypes != nil && skipTypes[m.Type] {
			continue
		}
		if allowList != nil && allowList[m.Text] {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) == 0 {
		return nil
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		lenA, lenB := a.End-a.Start, b.End-b.Start
		if lenA != lenB {
			return lenA > lenB
		}
		return a.Score > b.Score
	})

	resolved := make([]scanner.Match, 0, len(filtered))
	lastEnd := -1
	for _, m := range filtered {
		if m.Start < lastEnd {
			continue
		}
		resolved = append(resolved, m)
		lastEnd = m.End
	}
	return resolved
}
