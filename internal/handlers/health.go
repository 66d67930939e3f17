package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

type HealthHandler struct {
	logger  *slog.Logger
	started time.Time
}

func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		started: time.Now(),
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "zenrelay",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
	if err != nil {
		h.logger.Error("Failed to write health check response", "error", err)
	}
}
