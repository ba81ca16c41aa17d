package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/url"

	"github.com/mgoffin/authgate/pkg/security"
)

type Mode string

const (
	// ModeSilent asks the provider for prompt=none: succeed only on an
	// existing provider session, never show UI.
	ModeSilent Mode = "silent"

	ModeInteractive Mode = "interactive"
)

// Flow is the authentication state machine. Each HTTP request is one
// transition; the session store carries the state between them.
type Flow struct {
	provider Provider
	sessions *Sessions
	rootURL  string
	logger   *slog.Logger
}

func NewFlow(provider Provider, sessions *Sessions, rootURL string, logger *slog.Logger) *Flow {
	return &Flow{
		provider: provider,
		sessions: sessions,
		rootURL:  rootURL,
		logger:   logger,
	}
}

// Initiate generates fresh flow artifacts, persists them on the session
// (awaited; a lost write fails the request), and returns the provider
// authorization URL to redirect to. Any prior in-flight attempt on the
// session is overwritten and thereby invalidated.
func (f *Flow) Initiate(ctx context.Context, session *Session, mode Mode) (string, error) {
	verifier, err := security.GenerateCodeVerifier()
	if err != nil {
		return "", err
	}
	state, err := security.GenerateToken()
	if err != nil {
		return "", err
	}
	nonce, err := security.GenerateToken()
	if err != nil {
		return "", err
	}

	session.BeginFlow(&FlowAttempt{
		Verifier: verifier,
		State:    state,
		Nonce:    nonce,
		Silent:   mode == ModeSilent,
	})
	if err := f.sessions.Save(ctx, session); err != nil {
		return "", err
	}

	params := AuthParams{
		State:     state,
		Nonce:     nonce,
		Challenge: security.CodeChallenge(verifier),
	}
	if mode == ModeSilent {
		params.Prompt = "none"
	}

	authURL, err := f.provider.AuthCodeURL(ctx, params)
	if err != nil {
		return "", err
	}

	f.logger.Info("login flow initiated", "session_id", session.ID, "mode", string(mode))
	return authURL, nil
}

// Callback processes the provider redirect. On success the session is
// authenticated with identity and tokens set and transients cleared in
// one persisted transition; on any failure the transients are cleared
// and nothing else changes. Returned errors are ErrStateMismatch or a
// *FlowError wrapping the taxonomy sentinels.
func (f *Flow) Callback(ctx context.Context, session *Session, query url.Values) error {
	attempt := session.Flow
	if attempt == nil {
		// No in-flight flow: fail closed as a state mismatch no
		// matter what the query carries, and leave the session as it
		// was.
		f.logger.Warn("callback with no in-flight flow", "session_id", session.ID)
		return ErrStateMismatch
	}
	silent := attempt.Silent

	if errCode := query.Get("error"); errCode != "" {
		if err := f.abandon(ctx, session); err != nil {
			return err
		}
		flowErr := &FlowError{
			Code:        errCode,
			Description: query.Get("error_description"),
			Silent:      silent,
		}
		if silent {
			flowErr.Err = ErrSilentSSODeclined
			f.logger.Info("silent sign-on declined", "session_id", session.ID, "error", errCode)
		} else {
			f.logger.Warn("provider returned error on callback",
				"session_id", session.ID,
				"error", errCode,
				"description", flowErr.Description,
			)
		}
		return flowErr
	}

	state := query.Get("state")
	if state == "" || state != attempt.State {
		if err := f.abandon(ctx, session); err != nil {
			return err
		}
		f.logger.Warn("callback state mismatch, possible csrf or session loss", "session_id", session.ID)
		return ErrStateMismatch
	}

	identity, err := f.provider.Exchange(ctx, query.Get("code"), attempt.Verifier, attempt.Nonce)
	if err != nil {
		if aerr := f.abandon(ctx, session); aerr != nil {
			return aerr
		}
		f.logger.Warn("code exchange failed", "session_id", session.ID, "error", err)
		return &FlowError{
			Code:        "exchange_failed",
			Description: "token exchange or validation failed",
			Silent:      silent,
			Err:         err,
		}
	}

	session.CompleteFlow(&identity.User, &identity.Tokens)
	if err := f.sessions.Save(ctx, session); err != nil {
		return err
	}

	f.logger.Info("authentication successful", "session_id", session.ID, "subject", identity.User.Subject)
	return nil
}

// abandon clears the transient flow fields and persists the cleanup.
// With no flow in progress there is nothing to clear and no write to
// make.
func (f *Flow) abandon(ctx context.Context, session *Session) error {
	if session.Flow == nil {
		return nil
	}
	session.FailFlow()
	return f.sessions.Save(ctx, session)
}

type Status struct {
	Authenticated bool   `json:"authenticated"`
	User          *User  `json:"user,omitempty"`
	CSRFToken     string `json:"csrfToken,omitempty"`
}

// Status reports the session's phase. For an authenticated session it
// lazily mints the CSRF token, persisting the session only when the
// token was just created. Tokens are never included.
func (f *Flow) Status(ctx context.Context, session *Session) (*Status, error) {
	if session == nil || !session.Authenticated {
		return &Status{}, nil
	}

	minted, err := session.EnsureCSRFToken()
	if err != nil {
		return nil, err
	}
	if minted {
		if err := f.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
	}

	return &Status{
		Authenticated: true,
		User:          session.User,
		CSRFToken:     session.CSRFToken,
	}, nil
}

// Logout destroys the session after an exact CSRF comparison and
// returns the provider logout URL, carrying an id_token_hint when a
// token is available. A session that never minted a CSRF token rejects.
func (f *Flow) Logout(ctx context.Context, session *Session, presentedToken string) (string, error) {
	if session == nil || session.CSRFToken == "" || presentedToken == "" {
		return "", ErrCSRFInvalid
	}
	if subtle.ConstantTimeCompare([]byte(presentedToken), []byte(session.CSRFToken)) != 1 {
		return "", ErrCSRFInvalid
	}

	var idTokenHint string
	if session.Tokens != nil {
		idTokenHint = session.Tokens.IDToken
	}

	if err := f.sessions.Delete(ctx, session.ID); err != nil {
		return "", err
	}

	logoutURL, err := f.provider.EndSessionURL(ctx, idTokenHint, f.rootURL)
	if err != nil || logoutURL == "" {
		if err != nil {
			f.logger.Warn("provider logout url unavailable", "error", err)
		}
		logoutURL = f.rootURL
	}

	f.logger.Info("session destroyed", "session_id", session.ID)
	return logoutURL, nil
}
