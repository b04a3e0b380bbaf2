package handlers

import (
	"context"
	"net/http"
	"time"

	"skypath/pkg/config"
	"skypath/pkg/logger"
)

// Константы
const (
	statusHealthy  = "HEALTHY"
	statusNotReady = "NOT_READY"
	readyTimeout   = 2 * time.Second
)

// HealthHandler обработчики liveness и readiness
type HealthHandler struct {
	cfg       *config.Config
	ready     ReadinessChecker
	startedAt time.Time
}

// NewHealthHandler создаёт обработчик
func NewHealthHandler(cfg *config.Config, ready ReadinessChecker, startedAt time.Time) *HealthHandler {
	return &HealthHandler{cfg: cfg, ready: ready, startedAt: startedAt}
}

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type readyResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Health - liveness проба
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        statusHealthy,
		Service:       h.cfg.App.Name,
		Version:       h.cfg.App.Version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}

// Ready - readiness проба, проверяет хранилище
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		writeJSON(w, http.StatusOK, readyResponse{Ready: true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.ready.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("Readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, readyResponse{Ready: false, Error: statusNotReady})
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Ready: true})
}
