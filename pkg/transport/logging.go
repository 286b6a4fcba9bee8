package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/ecotrade/pkg/auth"
)

// Logging returns middleware that emits one structured log entry per
// request with request ID, method, path, status, and duration. The caller's
// email is added for authenticated requests, so Logging must run inside the
// authentication middleware. Client errors log at warn, server errors at
// error.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			}
			if id := auth.IdentityFromContext(r.Context()); id.Authenticated() {
				attrs = append(attrs, slog.String("user_email", id.Email))
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "request completed", attrs...)
		})
	}
}
