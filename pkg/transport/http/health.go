package http

import (
	"context"
	"net/http"
	"time"

	"github.com/rhuss/ecotrade/pkg/transport"
)

// readinessTimeout bounds the store ping behind /readyz.
const readinessTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
}

// healthz handles GET /healthz. The process is alive if it can answer.
func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// readyz handles GET /readyz by pinging the store.
func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.readiness.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			transport.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	transport.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
