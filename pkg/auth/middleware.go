package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/ecotrade/pkg/debug"
	"github.com/rhuss/ecotrade/pkg/observability"
)

// Middleware creates HTTP middleware that runs authn once per request and
// stores the verified identity in the request context.
//
// The middleware always forwards the request. A missing credential leaves
// the request anonymous; an invalid one is logged and also leaves it
// anonymous. Requests to bypass endpoints are forwarded without running
// authn at all.
func Middleware(authn Authenticator, logger *slog.Logger, bypassEndpoints []string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := authn.Authenticate(r.Context(), r)

			switch {
			case result.Decision == Yes && result.Identity.Authenticated():
				logger.Debug("authentication succeeded",
					"email", result.Identity.Email,
					"path", r.URL.Path,
				)
				observability.AuthAttemptsTotal.WithLabelValues("authenticated").Inc()
				next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), result.Identity)))
				return

			case result.Decision == Yes:
				// A Yes without an email is a broken authenticator, not a caller.
				logger.Error("authenticator returned identity without email", "path", r.URL.Path)
				observability.AuthAttemptsTotal.WithLabelValues("invalid").Inc()

			case result.Decision == No:
				reason := FailureReason(result.Err)
				logger.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"reason", reason,
					"error", result.Err,
				)
				observability.AuthAttemptsTotal.WithLabelValues(reason).Inc()

			default:
				debug.Log("auth", "no credential presented", "path", r.URL.Path)
				observability.AuthAttemptsTotal.WithLabelValues("anonymous").Inc()
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BypassEndpoints lists the endpoints that skip authentication: the health
// probes and the metrics endpoint at metricsPath.
func BypassEndpoints(metricsPath string) []string {
	return []string{"/healthz", "/readyz", metricsPath}
}
