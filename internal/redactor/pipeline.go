package redactor

import (
	"context"

	"github.com/pii-redactor/sidecar/internal/vault"
)

// Stats summarizes a session's vault contents, as exposed over the HTTP
// service boundary's /sessions and /dump routes.
type Stats struct {
	VaultSize int
	Mappings  []vault.Entry
}

// Pipeline is the convenience wrapper a gateway sits behind: redact
// outbound messages before they reach a provider, rehydrate the response
// before it reaches the user.
type Pipeline struct {
	redactor *Redactor
	vault    vault.Vault
}

// NewPipeline builds a Pipeline over an already-constructed Redactor and
// the vault it shares with that Redactor.
func NewPipeline(r *Redactor, v vault.Vault) *Pipeline {
	return &Pipeline{redactor: r, vault: v}
}

// PreSend redacts PII from outbound messages before they leave the
// process.
func (p *Pipeline) PreSend(ctx context.Context, session string, messages []Message) ([]Message, error) {
	return p.redactor.RedactMessages(ctx, session, messages)
}

// PostReceive rehydrates tokens in a provider's response before it reaches
// the caller.
func (p *Pipeline) PostReceive(ctx context.Context, session, text string) (string, error) {
	return p.vault.Rehydrate(ctx, session, text)
}

// RedactText redacts a single string. Convenience for callers that don't
// have a message list.
func (p *Pipeline) RedactText(ctx context.Context, session, text string) (string, error) {
	res, err := p.redactor.Redact(ctx, session, text)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// RedactWithDetail redacts a single string and also returns the resolved
// entity matches, for /redact-text's response shape.
func (p *Pipeline) RedactWithDetail(ctx context.Context, session, text string) (Result, error) {
	return p.redactor.Redact(ctx, session, text)
}

// RehydrateText is an alias for PostReceive.
func (p *Pipeline) RehydrateText(ctx context.Context, session, text string) (string, error) {
	return p.PostReceive(ctx, session, text)
}

// SessionStats returns the current vault contents for session.
func (p *Pipeline) SessionStats(ctx context.Context, session string) (Stats, error) {
	entries, err := p.vault.Dump(ctx, session)
	if err != nil {
		return Stats{}, err
	}
	return Stats{VaultSize: len(entries), Mappings: entries}, nil
}
