package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// withRequestID assigns every inbound request a UUID, echoed back on the
// response and available to handlers via requestIDFromContext, so a log
// line from deep inside the redaction pipeline can be correlated back to
// the HTTP request that triggered it.
func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next(w, r.WithContext(ctx))
	}
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// loggerFor returns s.logger annotated with the request ID from ctx, so
// every log line a handler emits can be correlated back to the HTTP request
// that triggered it.
func (s *Server) loggerFor(ctx context.Context) *slog.Logger {
	return s.logger.With("request_id", requestIDFromContext(ctx))
}
