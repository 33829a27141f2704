// Package regexscan implements the zero-dependency regex detection layer:
// a fixed, ordered catalogue of patterns for well-formed PII. It has no
// external dependencies and must keep working with the NER layer disabled.
package regexscan

import (
	"context"
	"regexp"
	"strings"

	"github.com/pii-redactor/sidecar/internal/entity"
	"github.com/pii-redactor/sidecar/internal/scanner"
)

const source = "regex"

type pattern struct {
	typ   entity.Type
	re    *regexp.Regexp
	score float64
	// accept, if set, runs after the regex match and can reject a
	// structurally-matching but semantically-invalid candidate (e.g. a
	// credit-card-shaped digit run that fails Luhn).
	accept func(text string) bool
}

// Scanner is the regex detection layer. It holds no mutable state after
// construction and is safe for concurrent use.
type Scanner struct {
	patterns []pattern
}

// New builds the regex scanner with the fixed pattern catalogue.
func New() *Scanner {
	return &Scanner{patterns: catalogue()}
}

func catalogue() []pattern {
	return []pattern{
		{
			typ:   entity.Email,
			re:    regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
			score: 1.0,
		},
		{
			typ: entity.Phone,
			re: regexp.MustCompile(
				`(?:\+\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}`,
			),
			score: 1.0,
		},
		{
			typ:   entity.CreditCard,
			re:    regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`),
			score: 1.0,
			accept: func(text string) bool {
				digits := strings.Map(func(r rune) rune {
					if r == ' ' || r == '-' {
						return -1
					}
					return r
				}, text)
				if len(digits) < 13 || len(digits) > 19 {
					return false
				}
				return luhnValid(digits)
			},
		},
		{
			typ:   entity.SSN,
			re:    regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			score: 1.0,
		},
		{
			typ: entity.IPAddress,
			re: regexp.MustCompile(
				`\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\b`,
			),
			score: 1.0,
		},
		{
			typ:   entity.DateOfBirth,
			re:    regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
			score: 1.0,
		},
		{
			typ:   entity.AUTFN,
			re:    regexp.MustCompile(`\b\d{3} \d{3} \d{3}\b`),
			score: 1.0,
		},
		{
			typ:   entity.AUMedicare,
			re:    regexp.MustCompile(`\b\d{4} \d{5} \d\b`),
			score: 1.0,
		},
		{
			typ: entity.URLWithSecret,
			re: regexp.MustCompile(
				`(?i)https?://[^\s"'<>]+[?&](?:key|token|secret|apikey)=[^\s&"'<>]+`,
			),
			score: 1.0,
		},
		{
			typ: entity.APIKey,
			re: regexp.MustCompile(
				`(?i)(?:api[_-]?key|token|secret)\s*[=:]\s*[A-Za-z0-9_\-]{16,}`,
			),
			score: 1.0,
		},
	}
}

// Scan implements scanner.Scanner. Offsets are rune offsets, per the
// scanner contract, even though the underlying regexp operates on byte
// offsets internally.
func (s *Scanner) Scan(_ context.Context, text string) ([]scanner.Match, error) {
	if text == "" {
		return nil, nil
	}
	byteToRune := newOffsetIndex(text)

	var matches []scanner.Match
	for _, p := range s.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			raw := text[loc[0]:loc[1]]
			if p.accept != nil && !p.accept(raw) {
				continue
			}
			matches = append(matches, scanner.Match{
				Type:   p.typ,
				Text:   raw,
				Start:  byteToRune.rune(loc[0]),
				End:    byteToRune.rune(loc[1]),
				Score:  p.score,
				Source: source,
			})
		}
	}
	return matches, nil
}

// offsetIndex maps a byte offset within a string to its rune offset, built
// once per scanned text so a multi-pattern sweep doesn't re-walk the string
// for every match.
type offsetIndex struct {
	runeAt []int // byte offset of the i-th rune
}

func newOffsetIndex(s string) *offsetIndex {
	idx := &offsetIndex{runeAt: make([]int, 0, len(s)+1)}
	for b := range s {
		idx.runeAt = append(idx.runeAt, b)
	}
	idx.runeAt = append(idx.runeAt, len(s))
	return idx
}

func (idx *offsetIndex) rune(byteOffset int) int {
	// Binary search over the precomputed rune->byte table; loc[0]/loc[1]
	// from FindAllStringIndex always land on rune boundaries.
	lo, hi := 0, len(idx.runeAt)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if idx.runeAt[mid] < byteOffset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
