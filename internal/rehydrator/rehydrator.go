// Package rehydrator implements the token-boundary-safe streaming
// rehydrator: a state machine that buffers just enough of a response
// stream to never split a token across two Feed calls, while forwarding
// everything else immediately.
package rehydrator

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pii-redactor/sidecar/internal/entity"
	"github.com/pii-redactor/sidecar/internal/vault"
)

// defaultMaxTokenLen bounds how long an unterminated "«..." prefix is held
// before it's given up on and emitted verbatim. Large enough for any real
// token (type names top out well under 40 runes) with room for a vault
// session that's allocated past a four-digit counter.
const defaultMaxTokenLen = 256

// Rehydrator buffers one stream's worth of chunks and rehydrates tokens as
// soon as they complete, without ever emitting a token split across two
// Feed calls. It is not safe for concurrent use — callers stream one
// response through one Rehydrator.
type Rehydrator struct {
	vault       vault.Vault
	session     string
	buffer      string
	maxTokenLen int
}

// New builds a Rehydrator over v, scoped to session.
func New(v vault.Vault, session string) *Rehydrator {
	return &Rehydrator{vault: v, session: session, maxTokenLen: defaultMaxTokenLen}
}

// Feed appends chunk to the internal buffer and returns everything that's
// now definitively resolved: plain text, and any token that completed and
// was looked up. A partial token prefix stays buffered until a later Feed
// or Flush resolves it.
func (r *Rehydrator) Feed(ctx context.Context, chunk string) (string, error) {
	r.buffer += chunk
	return r.drain(ctx)
}

// Flush finalizes the stream. Any residual buffered prefix was never a
// complete token, so it's emitted verbatim (subject to a final rehydrate
// pass, since a non-token residual can't contain a token by construction).
func (r *Rehydrator) Flush(ctx context.Context) (string, error) {
	out := r.buffer
	r.buffer = ""
	if out == "" {
		return "", nil
	}
	return r.vault.Rehydrate(ctx, r.session, out)
}

func (r *Rehydrator) drain(ctx context.Context) (string, error) {
	var sb strings.Builder
	for len(r.buffer) > 0 {
		idx := strings.IndexRune(r.buffer, '«')
		if idx == -1 {
			rehydrated, err := r.vault.Rehydrate(ctx, r.session, r.buffer)
			if err != nil {
				return "", err
			}
			sb.WriteString(rehydrated)
			r.buffer = ""
			break
		}
		if idx > 0 {
			rehydrated, err := r.vault.Rehydrate(ctx, r.session, r.buffer[:idx])
			if err != nil {
				return "", err
			}
			sb.WriteString(rehydrated)
			r.buffer = r.buffer[idx:]
		}

		// r.buffer now starts exactly at a «.
		if loc := entity.TokenPattern.FindStringIndex(r.buffer); loc != nil && loc[0] == 0 {
			token := r.buffer[:loc[1]]
			orig, ok, err := r.vault.LookupToken(ctx, r.session, token)
			if err != nil {
				return "", err
			}
			if ok {
				sb.WriteString(orig)
			} else {
				sb.WriteString(token)
			}
			r.buffer = r.buffer[loc[1]:]
			continue
		}

		closeIdx := strings.IndexRune(r.buffer, '»')
		if closeIdx != -1 {
			end := closeIdx + len("»")
			sb.WriteString(r.buffer[:end])
			r.buffer = r.buffer[end:]
			continue
		}

		if utf8.RuneCountInString(r.buffer) > r.maxTokenLen {
			_, size := utf8.DecodeRuneInString(r.buffer)
			sb.WriteString(r.buffer[:size])
			r.buffer = r.buffer[size:]
			continue
		}

		// Still a plausible token prefix with no closing guillemet yet —
		// wait for more input.
		break
	}
	return sb.String(), nil
}
