package transport

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/rhuss/ecotrade/pkg/api"
)

// Recovery returns middleware that catches panics in the handler, logs
// them with a stack trace, and answers 500. If the handler already started
// its response, the panic is only logged. The server continues to accept
// new requests after a panic is recovered.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.Error("panic recovered",
					"request_id", RequestIDFromContext(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", v,
					"response_started", rec.wroteHeader,
					"stack", string(debug.Stack()),
				)
				if rec.wroteHeader {
					return
				}
				WriteAPIError(w, api.NewServerError("internal server error"))
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
