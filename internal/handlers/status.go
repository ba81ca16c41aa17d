package handlers

import (
	"log/slog"
	"net/http"

	"github.com/mgoffin/authgate/internal/auth"
	"github.com/mgoffin/authgate/internal/middleware"
)

// StatusHandler serves /auth/me: the session's phase, the user when
// authenticated, and the lazily minted CSRF token. Never tokens.
type StatusHandler struct {
	flow   *auth.Flow
	logger *slog.Logger
}

func NewStatusHandler(flow *auth.Flow, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{flow: flow, logger: logger}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	status, err := h.flow.Status(r.Context(), session)
	if err != nil {
		h.logger.Error("failed to read session status", "session_id", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	writeJSON(w, http.StatusOK, status)
}
