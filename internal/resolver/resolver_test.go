package resolver

import (
	"testing"

	"github.com/pii-redactor/sidecar/internal/entity"
	"github.com/pii-redactor/sidecar/internal/scanner"
)

func TestResolveDropsSkippedTypes(t *testing.T) {
	matches := []scanner.Match{
		{Type: entity.Email, Start: 0, End: 5, Score: 1, Text: "a@b.co"},
		{Type: entity.Phone, Start: 10, End: 20, Score: 1, Text: "555-5555"},
	}
	got := Resolve(matches, map[entity.Type]bool{entity.Email: true}, nil)
	if len(got) != 1 || got[0].Type != entity.Phone {
		t.Fatalf("Resolve with skipTypes = %+v, want only PHONE", got)
	}
}

func TestResolveDropsAllowListedText(t *testing.T) {
	matches := []scanner.Match{
		{Type: entity.Email, Start: 0, End: 6, Score: 1, Text: "a@b.co"},
	}
	got := Resolve(matches, nil, map[string]bool{"a@b.co": true})
	if len(got) != 0 {
		t.Fatalf("Resolve with allowList = %+v, want none", got)
	}
}

func TestResolvePrefersLongerSpanAtSameStart(t *testing.T) {
	matches := []scanner.Match{
		{Type: entity.Email, Start: 0, End: 5, Score: 1, Text: "short"},
		{Type: entity.URLWithSecret, Start: 0, End: 20, Score: 1, Text: "longer span wins"},
	}
	got := Resolve(matches, nil, nil)
	if len(got) != 1 || got[0].Type != entity.URLWithSecret {
		t.Fatalf("Resolve should prefer the longer span at the same start, got %+v", got)
	}
}

func TestResolvePrefersHigherScoreAtSameStartAndLength(t *testing.T) {
	matches := []scanner.Match{
		{Type: entity.Person, Start: 0, End: 5, Score: 0.4},
		{Type: entity.Organization, Start: 0, End: 5, Score: 0.9},
	}
	got := Resolve(matches, nil, nil)
	if len(got) != 1 || got[0].Type != entity.Organization {
		t.Fatalf("Resolve should prefer the higher-scored span, got %+v", got)
	}
}

func TestResolveGreedySweepDropsOverlap(t *testing.T) {
	matches := []scanner.Match{
		{Type: entity.Email, Start: 0, End: 10, Score: 1},
		{Type: entity.Phone, Start: 5, End: 15, Score: 1},
		{Type: entity.SSN, Start: 10, End: 20, Score: 1},
	}
	got := Resolve(matches, nil, nil)
	if len(got) != 2 {
		t.Fatalf("Resolve should emit 2 non-overlapping spans, got %d: %+v", len(got), got)
	}
	if got[0].Type != entity.Email || got[1].Type != entity.SSN {
		t.Fatalf("Resolve = %+v, want EMAIL then SSN (touching at boundary 10 is allowed)", got)
	}
}

func TestResolveOrdersLeftToRight(t *testing.T) {
	matches := []scanner.Match{
		{Type: entity.SSN, Start: 30, End: 40, Score: 1},
		{Type: entity.Email, Start: 0, End: 5, Score: 1},
		{Type: entity.Phone, Start: 10, End: 15, Score: 1},
	}
	got := Resolve(matches, nil, nil)
	if len(got) != 3 {
		t.Fatalf("got %d spans, want 3: %+v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].Start {
			t.Fatalf("Resolve result is not left-to-right ordered: %+v", got)
		}
	}
}

func TestResolveEmptyInput(t *testing.T) {
	if got := Resolve(nil, nil, nil); got != nil {
		t.Fatalf("Resolve(nil) = %+v, want nil", got)
	}
}
