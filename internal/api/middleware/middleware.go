package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/idtoken/internal/api/presenter"
	"github.com/darmiel/idtoken/internal/correlation"
)

// LoggingMiddleware attaches a request logger to the context and logs every
// handled request. Successful health checks are not logged.
// Request bodies and the Authorization header carry tokens and are never logged.
func LoggingMiddleware(healthPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			l := log.With().
				Str("correlation_id", correlation.FromContext(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Logger()

			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

			if r.URL.Path == healthPath && ww.statusCode < 400 {
				return
			}

			event := l.Info()
			if ww.statusCode >= 500 {
				event = l.Error()
			}
			event.
				Int("status", ww.statusCode).
				Int("bytes", ww.written).
				Str("user_agent", r.UserAgent()).
				Dur("duration", time.Since(start)).
				Msg("request.handled")
		})
	}
}

// RecoverMiddleware turns panics into a 500 error response. It must run inside
// CorrelationIDMiddleware for the response to carry the correlation id.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Ctx(r.Context()).Error().
					Interface("panic", err).
					Bytes("stack", debug.Stack()).
					Msg("panic.recovered")

				presenter.Error(w, r, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}
