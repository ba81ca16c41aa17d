package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mgoffin/authgate/internal/auth"
	"github.com/mgoffin/authgate/internal/middleware"
)

// SilentFailureRedirect tells the frontend a prompt=none attempt was
// declined so it can stop retrying and show a manual sign-in control.
const SilentFailureRedirect = "/?sso_failed=true"

type CallbackHandler struct {
	flow   *auth.Flow
	logger *slog.Logger
}

func NewCallbackHandler(flow *auth.Flow, logger *slog.Logger) *CallbackHandler {
	return &CallbackHandler{flow: flow, logger: logger}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	err := h.flow.Callback(r.Context(), session, r.URL.Query())
	if err == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	var flowErr *auth.FlowError
	switch {
	case errors.As(err, &flowErr) && flowErr.Silent:
		// Declined silent attempts are expected, never an error body.
		http.Redirect(w, r, SilentFailureRedirect, http.StatusFound)
	case errors.Is(err, auth.ErrStateMismatch):
		writeError(w, http.StatusBadRequest, "state_mismatch", "callback state did not match this session")
	case errors.Is(err, auth.ErrProviderUnavailable):
		writeError(w, http.StatusInternalServerError, "provider_unavailable", "could not reach the identity provider")
	case errors.As(err, &flowErr):
		writeError(w, http.StatusBadRequest, flowErr.Code, flowErr.Description)
	default:
		h.logger.Error("callback failed", "session_id", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
