package redactor

import (
	"context"
	"testing"

	"github.com/pii-redactor/sidecar/internal/entity"
	"github.com/pii-redactor/sidecar/internal/registry"
	"github.com/pii-redactor/sidecar/internal/scanner"
	"github.com/pii-redactor/sidecar/internal/vault"
)

type stubScanner struct {
	matches []scanner.Match
}

func (s *stubScanner) Scan(context.Context, string) ([]scanner.Match, error) {
	return s.matches, nil
}

func TestRedactReplacesSpanWithAllocatedToken(t *testing.T) {
	text := "contact john@acme.com for details"
	s := &stubScanner{matches: []scanner.Match{
		{Type: entity.Email, Text: "john@acme.com", Start: 8, End: 21, Score: 1, Source: "regex"},
	}}
	r := New(registry.New([]scanner.Scanner{s}), vault.NewMemory(), Config{})

	got, err := r.Redact(context.Background(), "s1", text)
	if err != nil {
		t.Fatalf("Redact: %v", err)
	}
	want := "contact «EMAIL_001» for details"
	if got.Text != want {
		t.Fatalf("Redact text = %q, want %q", got.Text, want)
	}
	if got.TokenMap["«EMAIL_001»"] != "john@acme.com" {
		t.Fatalf("TokenMap = %+v, missing john@acme.com", got.TokenMap)
	}
}

func TestRedactWithNoMatchesReturnsTextUnchanged(t *testing.T) {
	s := &stubScanner{}
	r := New(registry.New([]scanner.Scanner{s}), vault.NewMemory(), Config{})

	got, err := r.Redact(context.Background(), "s1", "nothing to see here")
	if err != nil {
		t.Fatalf("Redact: %v", err)
	}
	if got.Text != "nothing to see here" || len(got.Entities) != 0 {
		t.Fatalf("Redact with no matches = %+v, want unchanged passthrough", got)
	}
}

func TestRedactSameValueReusesTokenAcrossCalls(t *testing.T) {
	s := &stubScanner{matches: []scanner.Match{
		{Type: entity.Email, Text: "john@acme.com", Start: 0, End: 13, Score: 1, Source: "regex"},
	}}
	r := New(registry.New([]scanner.Scanner{s}), vault.NewMemory(), Config{})
	ctx := context.Background()

	first, _ := r.Redact(ctx, "s1", "john@acme.com")
	second, _ := r.Redact(ctx, "s1", "john@acme.com")
	if first.Text != second.Text {
		t.Fatalf("repeated redaction of the same value produced different tokens: %q vs %q", first.Text, second.Text)
	}
}

func TestRedactHonorsSkipTypesAndAllowList(t *testing.T) {
	s := &stubScanner{matches: []scanner.Match{
		{Type: entity.Email, Text: "john@acme.com", Start: 0, End: 13, Score: 1, Source: "regex"},
		{Type: entity.Phone, Text: "555-1234", Start: 18, End: 26, Score: 1, Source: "regex"},
	}}
	cfg := Config{
		SkipTypes: map[entity.Type]bool{entity.Phone: true},
		AllowList: map[string]bool{"john@acme.com": true},
	}
	r := New(registry.New([]scanner.Scanner{s}), vault.NewMemory(), cfg)

	text := "john@acme.com or call 555-1234"
	got, err := r.Redact(context.Background(), "s1", text)
	if err != nil {
		t.Fatalf("Redact: %v", err)
	}
	if got.Text != text {
		t.Fatalf("Redact with allow-listed+skipped types = %q, want unchanged %q", got.Text, text)
	}
}

func TestRedactMessagesOnlyScansUserAndToolRoles(t *testing.T) {
	s := &stubScanner{matches: []scanner.Match{
		{Type: entity.Email, Text: "john@acme.com", Start: 0, End: 13, Score: 1, Source: "regex"},
	}}
	r := New(registry.New([]scanner.Scanner{s}), vault.NewMemory(), Config{})

	messages := []Message{
		{Role: "system", Content: "john@acme.com"},
		{Role: "user", Content: "john@acme.com"},
		{Role: "assistant", Content: "john@acme.com"},
		{Role: "tool", Content: "john@acme.com", Extra: map[string]any{"tool_call_id": "abc"}},
	}

	got, err := r.RedactMessages(context.Background(), "s1", messages)
	if err != nil {
		t.Fatalf("RedactMessages: %v", err)
	}
	if got[0].Content != "john@acme.com" {
		t.Fatalf("system message was redacted: %q", got[0].Content)
	}
	if got[1].Content != "«EMAIL_001»" {
		t.Fatalf("user message not redacted: %q", got[1].Content)
	}
	if got[2].Content != "john@acme.com" {
		t.Fatalf("assistant message was redacted: %q", got[2].Content)
	}
	if got[3].Content != "«EMAIL_001»" {
		t.Fatalf("tool message not redacted: %q", got[3].Content)
	}
	if got[3].Extra["tool_call_id"] != "abc" {
		t.Fatalf("tool message lost its Extra fields: %+v", got[3])
	}
}

func TestRedactMessagesPreservesMessageCountAndOrder(t *testing.T) {
	r := New(registry.New(nil), vault.NewMemory(), Config{})
	messages := []Message{
		{Role: "system", Content: "hello"},
		{Role: "user", Content: ""},
	}
	got, err := r.RedactMessages(context.Background(), "s1", messages)
	if err != nil {
		t.Fatalf("RedactMessages: %v", err)
	}
	if len(got) != 2 || got[0].Role != "system" || got[1].Role != "user" {
		t.Fatalf("RedactMessages reordered or dropped messages: %+v", got)
	}
}
