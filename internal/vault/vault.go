// Package vault implements the session-scoped, bidirectional PII ↔ token
// store. Two backends share this package's interface: an in-memory map
// that's lost on process exit, and a durable SQLite-backed store.
package vault

import (
	"context"
	"errors"
	"time"

	"github.com/pii-redactor/sidecar/internal/entity"
)

// ErrUnavailable is returned by every operation once a durable backend has
// failed. The vault does not fall back to in-memory behavior on its own —
// doing so silently would let a redaction proceed with a token a restarted
// vault could never rehydrate, breaking the rehydration contract.
var ErrUnavailable = errors.New("vault unavailable")

// Entry is one token allocation, as returned by Dump.
type Entry struct {
	Type      entity.Type
	Token     string
	Original  string
	CreatedAt time.Time
}

// Vault is the bidirectional PII↔token store, scoped per session.
// Implementations must serialize concurrent allocations for the same
// session so that two goroutines racing to tokenize a previously-unseen
// value observe the same token rather than surrendering a number.
type Vault interface {
	// GetOrCreateToken returns the existing token for (session, typ, value)
	// or allocates and returns a new one. Idempotent.
	GetOrCreateToken(ctx context.Context, session string, typ entity.Type, value string) (string, error)

	// Rehydrate replaces every well-formed token in text with its original
	// value, for tokens this vault recognizes in session. Unrecognized
	// tokens (wrong session, or never allocated) pass through verbatim.
	Rehydrate(ctx context.Context, session, text string) (string, error)

	// Dump returns every entry allocated for session, in no particular
	// order.
	Dump(ctx context.Context, session string) ([]Entry, error)

	// ListSessions returns every session ID with at least one allocation.
	ListSessions(ctx context.Context) ([]string, error)

	// DeleteSession removes every entry and counter for session. A session
	// ID reused after deletion starts its counters over from 1.
	DeleteSession(ctx context.Context, session string) error

	// LookupToken returns the original value for an already-allocated
	// token, without creating anything.
	LookupToken(ctx context.Context, session, token string) (string, bool, error)

	// LookupOriginal returns the already-allocated token for (session,
	// typ, value), without creating anything.
	LookupOriginal(ctx context.Context, session string, typ entity.Type, value string) (string, bool, error)

	// Close releases any resources (open files, connections) held by the
	// vault. Safe to call on a vault that never opened any.
	Close() error
}
