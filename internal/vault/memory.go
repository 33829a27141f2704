package vault

import (
	"context"
	"sync"
	"time"

	"github.com/pii-redactor/sidecar/internal/entity"
)

// Memory is the in-memory Vault backend. State is lost on process exit.
type Memory struct {
	mu       sync.Mutex // guards the sessions map itself, not its contents
	sessions map[string]*memSession
}

type memSession struct {
	mu       sync.Mutex
	byValue  map[string]string // "TYPE::value" -> token
	byToken  map[string]Entry  // token -> entry
	counters map[entity.Type]int
}

func newMemSession() *memSession {
	return &memSession{
		byValue:  make(map[string]string),
		byToken:  make(map[string]Entry),
		counters: make(map[entity.Type]int),
	}
}

// NewMemory builds an empty in-memory vault.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*memSession)}
}

func (m *Memory) session(id string) *memSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = newMemSession()
		m.sessions[id] = s
	}
	return s
}

func (m *Memory) GetOrCreateToken(_ context.Context, session string, typ entity.Type, value string) (string, error) {
	s := m.session(session)
	s.mu.Lock()
	defer s.mu.Unlock()

	key := valueKey(typ, value)
	if tok, ok := s.byValue[key]; ok {
		return tok, nil
	}

	s.counters[typ]++
	tok := entity.FormatToken(typ, s.counters[typ])
	s.byValue[key] = tok
	s.byToken[tok] = Entry{Type: typ, Token: tok, Original: value, CreatedAt: time.Now()}
	return tok, nil
}

func (m *Memory) Rehydrate(_ context.Context, session, text string) (string, error) {
	s := m.session(session)
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.byToken) == 0 {
		return text, nil
	}
	return entity.TokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		if e, ok := s.byToken[tok]; ok {
			return e.Original
		}
		return tok
	}), nil
}

func (m *Memory) Dump(_ context.Context, session string) ([]Entry, error) {
	s := m.session(session)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.byToken))
	for _, e := range s.byToken {
		out = append(out, e)
	}
	return out, nil
}

func (m *Memory) ListSessions(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out, nil
}

func (m *Memory) DeleteSession(_ context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, session)
	return nil
}

func (m *Memory) LookupToken(_ context.Context, session, token string) (string, bool, error) {
	s := m.session(session)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byToken[token]
	if !ok {
		return "", false, nil
	}
	return e.Original, true, nil
}

func (m *Memory) LookupOriginal(_ context.Context, session string, typ entity.Type, value string) (string, bool, error) {
	s := m.session(session)
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byValue[valueKey(typ, value)]
	return tok, ok, nil
}

func (m *Memory) Close() error { return nil }

func valueKey(typ entity.Type, value string) string {
	return string(typ) + "::" + value
}
