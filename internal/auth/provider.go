package auth

import "context"

// AuthParams are the per-flow values baked into an authorization URL.
type AuthParams struct {
	State     string
	Nonce     string
	Challenge string
	Prompt    string
}

// Identity is the verified outcome of a code exchange.
type Identity struct {
	User   User
	Tokens Tokens
}

// Provider abstracts the identity provider: discovery-backed URL
// construction, the code-for-token exchange with all ID-token checks,
// and the RP-initiated logout URL.
type Provider interface {
	AuthCodeURL(ctx context.Context, params AuthParams) (string, error)
	Exchange(ctx context.Context, code, verifier, expectedNonce string) (*Identity, error)
	EndSessionURL(ctx context.Context, idTokenHint, postLogoutRedirectURL string) (string, error)
}
