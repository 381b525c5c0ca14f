package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// RequestLogger assigns a request id, attaches a request scoped logger to the
// context and logs one line when the request completes.
func RequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.New().String()
			}
			start := time.Now()
			w.Header().Set("X-Request-ID", reqID)

			logger := base.With().Str("req_id", reqID).Logger()
			ctx := context.WithValue(r.Context(), RequestIDKey, reqID)
			ctx = logger.WithContext(ctx)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			var evt *zerolog.Event
			switch {
			case rw.status >= 500:
				evt = logger.Error()
			case rw.status == http.StatusUnauthorized || rw.status == http.StatusForbidden:
				evt = logger.Warn()
			default:
				evt = logger.Info()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", rw.status).
				Int("bytes", rw.bytes).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
