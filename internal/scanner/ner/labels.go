package ner

import (
	"sort"
	"strings"

	"github.com/pii-redactor/sidecar/internal/entity"
)

// normalizeLabel maps a raw model label (without its B-/I- prefix) to the
// canonical entity.Type vocabulary. Labels the model produces that have no
// canonical mapping pass through unchanged as a custom entity.Type.
func normalizeLabel(raw string) entity.Type {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ORG":
		return entity.Organization
	case "LOC", "GPE":
		return entity.Location
	case "NORP":
		return entity.NRP
	case "DATE":
		return entity.DateTime
	case "PER", "PERSON":
		return entity.Person
	default:
		return entity.Type(strings.ToUpper(strings.TrimSpace(raw)))
	}
}

// splitLabel splits a BIO-tagged label like "B-PER" into its prefix ("B")
// and bare tag ("PER"). Labels with no "-" (e.g. "O") return ("", label).
func splitLabel(lbl string) (prefix, tag string) {
	lbl = strings.TrimSpace(lbl)
	if lbl == "" {
		return "", ""
	}
	parts := strings.SplitN(lbl, "-", 2)
	if len(parts) == 1 {
		return "", lbl
	}
	return parts[0], parts[1]
}

type rawSpan struct {
	typ        entity.Type
	start      int
	end        int
	scoreSum   float64
	scoreCount int
}

func (s rawSpan) score() float64 {
	if s.scoreCount == 0 {
		return 0
	}
	return s.scoreSum / float64(s.scoreCount)
}

// entitiesFromTokenLabels merges a per-token BIO label sequence into
// contiguous entity spans. A "B-" tag always starts a new span; an "I-" tag
// extends the current span only if its type matches; any "O" or type
// mismatch closes the current span. Tokens with no character offset
// (special tokens, padding) are skipped. scores holds, per token, the
// model's predicted probability for that token's chosen label; a span's
// score is the mean over its constituent tokens.
func entitiesFromTokenLabels(labels []string, scores []float64, offsets []tokenOffset) []rawSpan {
	if len(labels) == 0 || len(offsets) == 0 {
		return nil
	}
	var spans []rawSpan
	var cur *rawSpan

	for i, lbl := range labels {
		if i >= len(offsets) {
			break
		}
		off := offsets[i]
		if off.Start < 0 || off.End <= off.Start {
			continue
		}
		var tokScore float64
		if i < len(scores) {
			tokScore = scores[i]
		}
		prefix, tag := splitLabel(lbl)
		if tag == "" || strings.EqualFold(tag, "O") {
			if cur != nil {
				spans = append(spans, *cur)
				cur = nil
			}
			continue
		}
		typ := normalizeLabel(tag)
		if prefix == "B" || cur == nil || cur.typ != typ {
			if cur != nil {
				spans = append(spans, *cur)
			}
			cur = &rawSpan{typ: typ, start: off.Start, end: off.End, scoreSum: tokScore, scoreCount: 1}
			continue
		}
		// "I-" continuing the same type.
		if off.End > cur.end {
			cur.end = off.End
		}
		cur.scoreSum += tokScore
		cur.scoreCount++
	}
	if cur != nil {
		spans = append(spans, *cur)
	}
	return mergeAdjacentSpans(spans)
}

// mergeAdjacentSpans coalesces overlapping or touching same-type spans that
// can arise from subword pieces whose offsets abut across a merge boundary.
func mergeAdjacentSpans(in []rawSpan) []rawSpan {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].start == in[j].start {
			return in[i].end < in[j].end
		}
		return in[i].start < in[j].start
	})
	out := make([]rawSpan, 0, len(in))
	cur := in[0]
	for _, s := range in[1:] {
		if s.start <= cur.end && s.typ == cur.typ {
			if s.end > cur.end {
				cur.end = s.end
			}
			cur.scoreSum += s.scoreSum
			cur.scoreCount += s.scoreCount
			continue
		}
		out = append(out, cur)
		cur = s
	}
	out = append(out, cur)
	return out
}
