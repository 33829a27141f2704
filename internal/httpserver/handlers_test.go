package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pii-redactor/sidecar/internal/config"
	"github.com/pii-redactor/sidecar/internal/redactor"
	"github.com/pii-redactor/sidecar/internal/registry"
	"github.com/pii-redactor/sidecar/internal/scanner"
	"github.com/pii-redactor/sidecar/internal/scanner/regexscan"
	"github.com/pii-redactor/sidecar/internal/vault"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	v := vault.NewMemory()
	reg := registry.New([]scanner.Scanner{regexscan.New()})
	r := redactor.New(reg, v, redactor.Config{})
	p := redactor.NewPipeline(r, v)
	cfg := &config.Config{}
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Redactor.Vault.Backend = "memory"
	return New(cfg, v, p, nil, nil)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleRedactTokenizesUserMessage(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/redact", map[string]any{
		"session_id": "s1",
		"messages": []map[string]any{
			{"role": "user", "content": "email me at john@acme.com"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp redactResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(resp.Messages))
	}
	if resp.Messages[0].Content == "email me at john@acme.com" {
		t.Fatalf("message content was not redacted: %q", resp.Messages[0].Content)
	}
}

func TestHandleRedactRejectsMissingMessages(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/redact", map[string]any{"session_id": "s1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRedactTextReturnsEntitiesAndTokenCount(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/redact-text", map[string]any{
		"session_id": "s1",
		"text":       "Email john@acme.com, SSN 123-45-6789",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp redactTextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TokenCount != 2 {
		t.Fatalf("token_count = %d, want 2", resp.TokenCount)
	}
	if len(resp.Entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(resp.Entities))
	}
}

func TestRedactThenRehydrateRoundTrips(t *testing.T) {
	srv := newTestServer(t)
	original := "Email john@acme.com, SSN 123-45-6789"

	redactRec := doJSON(t, srv, http.MethodPost, "/redact-text", map[string]any{
		"session_id": "s1",
		"text":       original,
	})
	var redacted redactTextResponse
	if err := json.Unmarshal(redactRec.Body.Bytes(), &redacted); err != nil {
		t.Fatalf("decode redact-text response: %v", err)
	}

	rehydrateRec := doJSON(t, srv, http.MethodPost, "/rehydrate", map[string]any{
		"session_id": "s1",
		"text":       redacted.Text,
	})
	var rehydrated rehydrateResponse
	if err := json.Unmarshal(rehydrateRec.Body.Bytes(), &rehydrated); err != nil {
		t.Fatalf("decode rehydrate response: %v", err)
	}
	if rehydrated.Text != original {
		t.Fatalf("rehydrate round trip = %q, want %q", rehydrated.Text, original)
	}
}

func TestHandleRehydrateBuffersATokenSplitAcrossTwoCalls(t *testing.T) {
	srv := newTestServer(t)
	redactRec := doJSON(t, srv, http.MethodPost, "/redact-text", map[string]any{
		"session_id": "s1",
		"text":       "Email john@acme.com",
	})
	var redacted redactTextResponse
	if err := json.Unmarshal(redactRec.Body.Bytes(), &redacted); err != nil {
		t.Fatalf("decode redact-text response: %v", err)
	}

	split := len(redacted.Text) - 3
	first := doJSON(t, srv, http.MethodPost, "/rehydrate", map[string]any{
		"session_id": "s1",
		"text":       redacted.Text[:split],
	})
	var firstResp rehydrateResponse
	if err := json.Unmarshal(first.Body.Bytes(), &firstResp); err != nil {
		t.Fatalf("decode first chunk response: %v", err)
	}

	second := doJSON(t, srv, http.MethodPost, "/rehydrate", map[string]any{
		"session_id": "s1",
		"text":       redacted.Text[split:],
	})
	var secondResp rehydrateResponse
	if err := json.Unmarshal(second.Body.Bytes(), &secondResp); err != nil {
		t.Fatalf("decode second chunk response: %v", err)
	}

	if got := firstResp.Text + secondResp.Text; got != "Email john@acme.com" {
		t.Fatalf("concatenated chunked rehydrate = %q, want %q", got, "Email john@acme.com")
	}
}

func TestHandleRehydrateEmptyTextFlushesPendingBuffer(t *testing.T) {
	srv := newTestServer(t)
	redactRec := doJSON(t, srv, http.MethodPost, "/redact-text", map[string]any{
		"session_id": "s1",
		"text":       "Email john@acme.com",
	})
	var redacted redactTextResponse
	if err := json.Unmarshal(redactRec.Body.Bytes(), &redacted); err != nil {
		t.Fatalf("decode redact-text response: %v", err)
	}

	doJSON(t, srv, http.MethodPost, "/rehydrate", map[string]any{
		"session_id": "s1",
		"text":       redacted.Text[:len(redacted.Text)-3],
	})

	flush := doJSON(t, srv, http.MethodPost, "/rehydrate", map[string]any{
		"session_id": "s1",
		"text":       "",
	})
	var flushResp rehydrateResponse
	if err := json.Unmarshal(flush.Body.Bytes(), &flushResp); err != nil {
		t.Fatalf("decode flush response: %v", err)
	}
	if flushResp.Text == "" {
		t.Fatalf("flush with empty text returned nothing, want the pending buffer surrendered verbatim")
	}
}

func TestHandleClearRemovesSessionMappings(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/redact-text", map[string]any{
		"session_id": "s1",
		"text":       "Email john@acme.com",
	})

	rec := doJSON(t, srv, http.MethodPost, "/clear", map[string]any{"session_id": "s1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp clearResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "cleared" {
		t.Fatalf("status field = %q, want cleared", resp.Status)
	}

	sessionsRec := doJSON(t, srv, http.MethodGet, "/sessions", nil)
	var sessions sessionsResponse
	if err := json.Unmarshal(sessionsRec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode sessions response: %v", err)
	}
	for _, s := range sessions.Sessions {
		if s == "s1" {
			t.Fatalf("session s1 still listed after clear: %v", sessions.Sessions)
		}
	}
}

func TestHandleHealthReportsBackendAndPresidioState(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("status = %q, want ok", resp.Status)
	}
	if resp.Presidio {
		t.Fatalf("presidio = true, want false when no NER scanner is wired")
	}
	if resp.Backend != "memory" {
		t.Fatalf("backend = %q, want memory", resp.Backend)
	}
}

func TestHandleSessionsListsAllocatedSessions(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/redact-text", map[string]any{
		"session_id": "s1",
		"text":       "Email john@acme.com",
	})

	rec := doJSON(t, srv, http.MethodGet, "/sessions", nil)
	var resp sessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	found := false
	for _, s := range resp.Sessions {
		if s == "s1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sessions = %v, missing s1", resp.Sessions)
	}
}

func TestHandleRedactRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/redact", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRejectsWrongMethod(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/redact", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
