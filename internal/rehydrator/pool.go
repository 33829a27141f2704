package rehydrator

import (
	"sync"

	"github.com/pii-redactor/sidecar/internal/vault"
)

// Pool holds one Rehydrator per session, so a caller that proxies a
// streaming response through repeated Feed calls (one per chunk it
// receives from upstream) keeps a token-boundary-safe buffer across calls
// without the HTTP layer having to manage that state itself.
type Pool struct {
	vault vault.Vault

	mu    sync.Mutex
	byKey map[string]*Rehydrator
}

// NewPool builds a Pool backed by v.
func NewPool(v vault.Vault) *Pool {
	return &Pool{vault: v, byKey: make(map[string]*Rehydrator)}
}

// Get returns the Rehydrator for session, creating one on first use.
func (p *Pool) Get(session string) *Rehydrator {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.byKey[session]
	if !ok {
		r = New(p.vault, session)
		p.byKey[session] = r
	}
	return r
}

// Drop discards session's buffered state, if any. Called when a session is
// cleared so a stale pending prefix never leaks into a reused session ID.
func (p *Pool) Drop(session string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byKey, session)
}
