package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mgoffin/authgate/internal/auth"
	"github.com/mgoffin/authgate/internal/config"
	"github.com/mgoffin/authgate/pkg/security"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionMiddleware resolves the session referenced by the request
// cookie, creating and persisting a fresh anonymous session (and setting
// the cookie) when none exists or the cookie fails verification.
type SessionMiddleware struct {
	cfg      config.ServerConfig
	secret   []byte
	secure   bool
	sessions *auth.Sessions
	logger   *slog.Logger
}

func NewSessionMiddleware(cfg *config.Config, sessions *auth.Sessions, logger *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		cfg:      cfg.Server,
		secret:   []byte(cfg.SessionSecret),
		secure:   cfg.CookieSecure(),
		sessions: sessions,
		logger:   logger,
	}
}

func (sm *SessionMiddleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, created, err := sm.resolve(r)
		if err != nil {
			sm.logger.Error("failed to establish session", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if created {
			cookie := security.CreateSessionCookie(sm.cfg.CookieName, sm.secret, session.ID, sm.secure, sm.cfg.SessionTTL)
			http.SetCookie(w, cookie)
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (sm *SessionMiddleware) resolve(r *http.Request) (*auth.Session, bool, error) {
	if id := security.SessionIDFromRequest(r, sm.cfg.CookieName, sm.secret); id != "" {
		session, err := sm.sessions.Get(r.Context(), id)
		if err == nil {
			return session, false, nil
		}
		if !errors.Is(err, auth.ErrSessionNotFound) {
			return nil, false, err
		}
		sm.logger.Debug("session cookie references expired session", "session_id", id)
	}

	session := auth.NewSession()
	if err := sm.sessions.Save(r.Context(), session); err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// GetSession returns the session placed in the request context by
// WithSession.
func GetSession(ctx context.Context) (*auth.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*auth.Session)
	return session, ok
}
