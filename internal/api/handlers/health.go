package handlers

import (
	"net/http"

	"coldchain-dispatch-service/internal/ports"
)

// HealthHandler is the liveness check. When the task queue supports depth
// reporting the waiting-task count is included.
type HealthHandler struct {
	Queue ports.TaskQueue
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{"status": "ok"}
	if q, ok := h.Queue.(ports.QueueDepth); ok {
		if depth, err := q.Depth(r.Context()); err == nil {
			res["queue_depth"] = depth
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}
