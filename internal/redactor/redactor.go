// Package redactor wires the scanner registry, span resolver, and vault
// into the single operation the rest of the sidecar cares about: turn text
// (or a chat message list) containing PII into text containing tokens.
package redactor

import (
	"context"
	"strings"

	"github.com/pii-redactor/sidecar/internal/entity"
	"github.com/pii-redactor/sidecar/internal/registry"
	"github.com/pii-redactor/sidecar/internal/resolver"
	"github.com/pii-redactor/sidecar/internal/scanner"
	"github.com/pii-redactor/sidecar/internal/vault"
)

// Config controls filtering applied after every scanner has run.
type Config struct {
	// SkipTypes are entity types never redacted, regardless of which layer
	// detected them.
	SkipTypes map[entity.Type]bool
	// AllowList holds exact matched text that's never redacted even if a
	// scanner flags it.
	AllowList map[string]bool
}

// Result is the outcome of redacting one piece of text.
type Result struct {
	Text     string
	Entities []scanner.Match
	TokenMap map[string]string // token -> original value
}

// Redactor is the layered PII redactor: every registered scanner runs
// concurrently via the registry, matches are resolved to a non-overlapping
// set, and each surviving span is replaced with a token allocated from the
// vault.
type Redactor struct {
	registry *registry.Registry
	vault    vault.Vault
	cfg      Config
}

// New builds a Redactor over reg (already holding every enabled scanner)
// and v (the shared, session-scoped token vault).
func New(reg *registry.Registry, v vault.Vault, cfg Config) *Redactor {
	return &Redactor{registry: reg, vault: v, cfg: cfg}
}

// Redact detects and tokenizes every PII span in text, allocating tokens in
// session. Detection order across layers doesn't matter — resolver.Resolve
// is what decides which overlapping spans survive.
func (r *Redactor) Redact(ctx context.Context, session, text string) (Result, error) {
	matches := r.registry.Invoke(ctx, text)
	resolved := resolver.Resolve(matches, r.cfg.SkipTypes, r.cfg.AllowList)
	if len(resolved) == 0 {
		return Result{Text: text}, nil
	}

	runes := []rune(text)
	var sb strings.Builder
	tokenMap := make(map[string]string, len(resolved))
	cursor := 0
	for _, m := range resolved {
		sb.WriteString(string(runes[cursor:m.Start]))
		tok, err := r.vault.GetOrCreateToken(ctx, session, m.Type, m.Text)
		if err != nil {
			return Result{}, err
		}
		tokenMap[tok] = m.Text
		sb.WriteString(tok)
		cursor = m.End
	}
	sb.WriteString(string(runes[cursor:]))

	return Result{Text: sb.String(), Entities: resolved, TokenMap: tokenMap}, nil
}

// RedactMessages redacts a chat message list in place of its originals.
// Only "user" and "tool" roles are scanned; "system" and "assistant"
// messages pass through unmodified, since assistant output is either
// already token-free (the response path rehydrates before the user sees
// it) or a system prompt the gateway controls, not user-supplied content.
func (r *Redactor) RedactMessages(ctx context.Context, session string, messages []Message) ([]Message, error) {
	out := make([]Message, len(messages))
	for i, msg := range messages {
		if (msg.Role == "user" || msg.Role == "tool") && msg.Content != "" {
			res, err := r.Redact(ctx, session, msg.Content)
			if err != nil {
				return nil, err
			}
			msg.Content = res.Text
		}
		out[i] = msg
	}
	return out, nil
}
