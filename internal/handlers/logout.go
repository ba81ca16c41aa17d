package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mgoffin/authgate/internal/auth"
	"github.com/mgoffin/authgate/internal/config"
	"github.com/mgoffin/authgate/internal/middleware"
	"github.com/mgoffin/authgate/pkg/security"
)

type LogoutHandler struct {
	flow   *auth.Flow
	cfg    *config.Config
	logger *slog.Logger
}

func NewLogoutHandler(flow *auth.Flow, cfg *config.Config, logger *slog.Logger) *LogoutHandler {
	return &LogoutHandler{flow: flow, cfg: cfg, logger: logger}
}

type logoutResponse struct {
	LogoutURL string `json:"logoutUrl"`
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	logoutURL, err := h.flow.Logout(r.Context(), session, presentedCSRFToken(r))
	if err != nil {
		if errors.Is(err, auth.ErrCSRFInvalid) {
			h.logger.Warn("logout rejected, csrf token mismatch", "session_id", session.ID)
			writeError(w, http.StatusForbidden, "invalid_csrf_token", "")
			return
		}
		h.logger.Error("logout failed", "session_id", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	http.SetCookie(w, security.ClearSessionCookie(h.cfg.Server.CookieName, h.cfg.CookieSecure()))
	writeJSON(w, http.StatusOK, logoutResponse{LogoutURL: logoutURL})
}

// presentedCSRFToken accepts the token from the X-CSRF-Token header or a
// JSON body {"csrfToken": "..."}.
func presentedCSRFToken(r *http.Request) string {
	if token := r.Header.Get("X-CSRF-Token"); token != "" {
		return token
	}
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
		return body.CSRFToken
	}
	return ""
}
