package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// StatusSnapshot is the daemon's self-reported state, rendered at
// GET /api/status. Grounded on original_source/daemon.py's periodic
// status line (cursor, universe size, last scan timestamp).
type StatusSnapshot struct {
	Mode             string `json:"mode"`
	UniverseSize     int    `json:"universe_size"`
	Cursor           int    `json:"cursor"`
	LastIterationTs  int64  `json:"last_iteration_ts"`
	LastOpportunity  int64  `json:"last_opportunity_ts"`
	ConsecutiveFails int    `json:"consecutive_fails"`
	ControlEnabled   bool   `json:"control_enabled"`
	ControlMode      string `json:"control_mode"`
}

// StatusProvider is implemented by the daemon's loop state; the HTTP layer
// reads it on every request rather than caching.
type StatusProvider interface {
	Status() StatusSnapshot
}

// StatusHandler serves the daemon's current loop state as JSON.
type StatusHandler struct {
	provider StatusProvider
	logger   *zap.Logger
}

// NewStatusHandler creates a status handler bound to a status provider.
func NewStatusHandler(provider StatusProvider, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{provider: provider, logger: logger}
}

// HandleStatus handles GET /api/status.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Status()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("failed-to-encode-status-response", zap.Error(err))
	}
}
