package httptransport

import (
	"context"
	"net/http"
	"time"

	"wrapregistry/pkg/platform/httputil"
)

const healthTimeout = 3 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth pings every registered dependency. Any failing probe
// turns the whole report 503 so orchestrators stop routing here.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	if len(h.health) > 0 {
		resp.Checks = make(map[string]string, len(h.health))
	}

	status := http.StatusOK
	for _, probe := range h.health {
		if err := probe.Check(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed",
				"check", probe.Name,
				"error", err.Error(),
			)
			resp.Checks[probe.Name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[probe.Name] = "ok"
	}

	httputil.WriteJSON(w, status, resp)
}
