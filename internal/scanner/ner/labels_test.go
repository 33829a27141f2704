package ner

import (
	"testing"

	"github.com/pii-redactor/sidecar/internal/entity"
)

func TestNormalizeLabelMapsKnownTags(t *testing.T) {
	cases := map[string]entity.Type{
		"ORG":    entity.Organization,
		"org":    entity.Organization,
		"LOC":    entity.Location,
		"GPE":    entity.Location,
		"NORP":   entity.NRP,
		"DATE":   entity.DateTime,
		"PER":    entity.Person,
		"PERSON": entity.Person,
	}
	for in, want := range cases {
		if got := normalizeLabel(in); got != want {
			t.Errorf("normalizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeLabelPassesThroughUnknownTags(t *testing.T) {
	if got := normalizeLabel("widget"); got != entity.Type("WIDGET") {
		t.Errorf("normalizeLabel(widget) = %q, want WIDGET", got)
	}
}

func TestSplitLabel(t *testing.T) {
	cases := []struct {
		in, prefix, tag string
	}{
		{"B-PER", "B", "PER"},
		{"I-ORG", "I", "ORG"},
		{"O", "", "O"},
		{"", "", ""},
	}
	for _, c := range cases {
		p, tag := splitLabel(c.in)
		if p != c.prefix || tag != c.tag {
			t.Errorf("splitLabel(%q) = (%q, %q), want (%q, %q)", c.in, p, tag, c.prefix, c.tag)
		}
	}
}

func TestEntitiesFromTokenLabelsMergesBIOSpan(t *testing.T) {
	labels := []string{"", "O", "B-PER", "I-PER", "O", "B-ORG", ""}
	scores := []float64{0, 0.9, 0.95, 0.85, 0.9, 0.7, 0}
	offsets := []tokenOffset{
		{Start: -1, End: -1},
		{Start: 0, End: 4},
		{Start: 5, End: 8},
		{Start: 9, End: 13},
		{Start: 14, End: 16},
		{Start: 17, End: 22},
		{Start: -1, End: -1},
	}

	spans := entitiesFromTokenLabels(labels, scores, offsets)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	if spans[0].typ != entity.Person || spans[0].start != 5 || spans[0].end != 13 {
		t.Errorf("span 0 = %+v, want PERSON [5,13)", spans[0])
	}
	if spans[1].typ != entity.Organization || spans[1].start != 17 || spans[1].end != 22 {
		t.Errorf("span 1 = %+v, want ORGANIZATION [17,22)", spans[1])
	}
	wantScore := (0.95 + 0.85) / 2
	if got := spans[0].score(); got < wantScore-0.0001 || got > wantScore+0.0001 {
		t.Errorf("span 0 score = %f, want %f", got, wantScore)
	}
}

func TestEntitiesFromTokenLabelsNewBBreaksRun(t *testing.T) {
	labels := []string{"B-PER", "B-PER"}
	scores := []float64{0.9, 0.9}
	offsets := []tokenOffset{{Start: 0, End: 4}, {Start: 5, End: 9}}

	spans := entitiesFromTokenLabels(labels, scores, offsets)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2 (B- always starts new span): %+v", len(spans), spans)
	}
}

func TestEntitiesFromTokenLabelsSkipsSpecialTokens(t *testing.T) {
	labels := []string{"B-PER"}
	scores := []float64{0.9}
	offsets := []tokenOffset{{Start: -1, End: -1}}

	spans := entitiesFromTokenLabels(labels, scores, offsets)
	if len(spans) != 0 {
		t.Fatalf("expected no spans for a token with no character offset, got %+v", spans)
	}
}

func TestEntitiesFromTokenLabelsEmptyInput(t *testing.T) {
	if spans := entitiesFromTokenLabels(nil, nil, nil); spans != nil {
		t.Fatalf("expected nil for empty input, got %+v", spans)
	}
}
