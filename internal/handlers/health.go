package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mgoffin/authgate/internal/store"
)

type providerChecker interface {
	Ready(ctx context.Context) error
}

type HealthHandler struct {
	store     store.Store
	provider  providerChecker
	logger    *slog.Logger
	startTime time.Time
}

func NewHealthHandler(st store.Store, provider providerChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:     st,
		provider:  provider,
		logger:    logger,
		startTime: time.Now(),
	}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Store    string `json:"store"`
	Provider string `json:"provider"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:   "healthy",
		Uptime:   time.Since(h.startTime).String(),
		Store:    "connected",
		Provider: "connected",
	}

	if err := h.store.Set(ctx, "health:check", []byte("ok"), 1*time.Minute); err != nil {
		h.logger.Warn("health check store write failed", "error", err)
		response.Store = "error"
		response.Status = "degraded"
	}

	if err := h.provider.Ready(ctx); err != nil {
		h.logger.Warn("health check provider discovery failed", "error", err)
		response.Provider = "unreachable"
		response.Status = "degraded"
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
