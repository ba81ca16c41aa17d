package server

import (
	"net/http"

	"github.com/mgoffin/authgate/internal/auth"
	"github.com/mgoffin/authgate/internal/handlers"
	"github.com/mgoffin/authgate/internal/middleware"
)

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	sessions := auth.NewSessions(s.store, s.cfg.Server.SessionTTL)
	flow := auth.NewFlow(s.provider, sessions, s.cfg.Server.BaseURL, s.logger)
	sessionMW := middleware.NewSessionMiddleware(s.cfg, sessions, s.logger)

	loginHandler := handlers.NewLoginHandler(flow, s.logger)
	callbackHandler := handlers.NewCallbackHandler(flow, s.logger)
	statusHandler := handlers.NewStatusHandler(flow, s.logger)
	logoutHandler := handlers.NewLogoutHandler(flow, s.cfg, s.logger)
	healthHandler := handlers.NewHealthHandler(s.store, s.provider, s.logger)

	mux.Handle("/auth/sso", sessionMW.WithSession(loginHandler.Initiate(auth.ModeSilent)))
	mux.Handle("/auth/login", sessionMW.WithSession(loginHandler.Initiate(auth.ModeInteractive)))
	mux.Handle("/auth/callback", sessionMW.WithSession(callbackHandler))
	mux.Handle("/auth/me", sessionMW.WithSession(statusHandler))
	mux.Handle("/auth/logout", sessionMW.WithSession(logoutHandler))

	mux.Handle("/health", healthHandler)

	if s.cfg.Server.StaticDir != "" {
		mux.Handle("/", NewSPAHandler(s.cfg.Server.StaticDir))
	}

	return middleware.Recovery(s.logger)(
		middleware.Logging(s.logger)(
			addSecurityHeaders(mux),
		),
	)
}

func addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
