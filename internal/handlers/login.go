package handlers

import (
	"log/slog"
	"net/http"

	"github.com/mgoffin/authgate/internal/auth"
	"github.com/mgoffin/authgate/internal/middleware"
)

// LoginHandler serves both flow initiations: /auth/sso redirects with
// prompt=none, /auth/login starts an interactive sign-in.
type LoginHandler struct {
	flow   *auth.Flow
	logger *slog.Logger
}

func NewLoginHandler(flow *auth.Flow, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{flow: flow, logger: logger}
}

func (h *LoginHandler) Initiate(mode auth.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := middleware.GetSession(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal_error", "")
			return
		}

		authURL, err := h.flow.Initiate(r.Context(), session, mode)
		if err != nil {
			h.logger.Error("failed to initiate login flow", "mode", string(mode), "error", err)
			writeError(w, http.StatusInternalServerError, "provider_unavailable", "could not reach the identity provider")
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}
