package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pii-redactor/sidecar/internal/redactor"
	"github.com/pii-redactor/sidecar/internal/scanner"
	"github.com/pii-redactor/sidecar/internal/vault"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// statusForErr maps a pipeline error onto the status codes §6 requires:
// vault unavailability is always 503, everything else unexpected is 500.
func statusForErr(err error) int {
	if errors.Is(err, vault.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func sessionOrDefault(id string) string {
	if id == "" {
		return "default"
	}
	return id
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type redactRequest struct {
	SessionID string             `json:"session_id"`
	Messages  []redactor.Message `json:"messages"`
}

type redactResponse struct {
	Messages []redactor.Message `json:"messages"`
}

func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req redactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Messages == nil {
		writeJSONError(w, http.StatusBadRequest, "messages is required")
		return
	}

	session := sessionOrDefault(req.SessionID)
	out, err := s.pipeline.PreSend(r.Context(), session, req.Messages)
	if err != nil {
		s.loggerFor(r.Context()).Error("redact failed", "session_id", session, "error", err)
		writeJSONError(w, statusForErr(err), "redact failed")
		return
	}

	writeJSON(w, redactResponse{Messages: out})
}

type redactTextRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type redactTextResponse struct {
	Text       string          `json:"text"`
	Entities   []scanner.Match `json:"entities"`
	TokenCount int             `json:"token_count"`
}

func (s *Server) handleRedactText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req redactTextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	session := sessionOrDefault(req.SessionID)
	res, err := s.pipeline.RedactWithDetail(r.Context(), session, req.Text)
	if err != nil {
		s.loggerFor(r.Context()).Error("redact-text failed", "session_id", session, "error", err)
		writeJSONError(w, statusForErr(err), "redact-text failed")
		return
	}

	entities := res.Entities
	if entities == nil {
		entities = []scanner.Match{}
	}
	writeJSON(w, redactTextResponse{
		Text:       res.Text,
		Entities:   entities,
		TokenCount: len(res.Entities),
	})
}

type rehydrateRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type rehydrateResponse struct {
	Text string `json:"text"`
}

func (s *Server) handleRehydrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req rehydrateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	session := sessionOrDefault(req.SessionID)
	stream := s.pool.Get(session)

	// An empty text body is the end-of-stream signal: flush whatever
	// token-boundary-pending prefix this session's Rehydrator is holding
	// instead of feeding more (empty) input into it.
	var text string
	var err error
	if req.Text == "" {
		text, err = stream.Flush(r.Context())
	} else {
		text, err = stream.Feed(r.Context(), req.Text)
	}
	if err != nil {
		s.loggerFor(r.Context()).Error("rehydrate failed", "session_id", session, "error", err)
		writeJSONError(w, statusForErr(err), "rehydrate failed")
		return
	}

	writeJSON(w, rehydrateResponse{Text: text})
}

type clearRequest struct {
	SessionID string `json:"session_id"`
}

type clearResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req clearRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	session := sessionOrDefault(req.SessionID)
	if err := s.vault.DeleteSession(r.Context(), session); err != nil {
		s.loggerFor(r.Context()).Error("clear failed", "session_id", session, "error", err)
		writeJSONError(w, statusForErr(err), "clear failed")
		return
	}

	s.pool.Drop(session)

	writeJSON(w, clearResponse{Status: "cleared"})
}

type healthResponse struct {
	Status   string `json:"status"`
	Presidio bool   `json:"presidio"`
	Backend  string `json:"backend"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, healthResponse{
		Status:   "ok",
		Presidio: s.ner != nil && s.ner.Available(),
		Backend:  s.cfg.Redactor.Vault.Backend,
	})
}

type sessionsResponse struct {
	Sessions []string `json:"sessions"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessions, err := s.vault.ListSessions(r.Context())
	if err != nil {
		s.loggerFor(r.Context()).Error("sessions failed", "error", err)
		writeJSONError(w, statusForErr(err), "sessions failed")
		return
	}
	if sessions == nil {
		sessions = []string{}
	}

	writeJSON(w, sessionsResponse{Sessions: sessions})
}
