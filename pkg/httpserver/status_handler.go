package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// StatusHandler serves the engine status snapshot.
type StatusHandler struct {
	source StatusSource
	logger *zap.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(source StatusSource, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		source: source,
		logger: logger,
	}
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(h.source.StatusSnapshot())
	if err != nil {
		h.logger.Error("failed-to-encode-status", zap.Error(err))
	}
}
