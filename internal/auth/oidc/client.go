package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/mgoffin/authgate/internal/auth"
	"github.com/mgoffin/authgate/internal/config"
)

// Client talks to a single fixed issuer. Discovery runs lazily on first
// use and the result is cached for the process lifetime; a failed
// discovery is not cached and is retried on the next call.
type Client struct {
	cfg         config.OIDCConfig
	redirectURL string
	httpClient  *http.Client

	mu       sync.Mutex
	metadata *metadata
}

type metadata struct {
	oauth2Config       oauth2.Config
	verifier           *gooidc.IDTokenVerifier
	endSessionEndpoint string
}

func NewClient(cfg config.OIDCConfig, redirectURL string) *Client {
	return &Client{
		cfg:         cfg,
		redirectURL: redirectURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// discover returns the cached provider metadata, performing discovery
// under the lock on first use so concurrent first calls serialize and
// all receive a complete result or an error, never partial state.
func (c *Client) discover(ctx context.Context) (*metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metadata != nil {
		return c.metadata, nil
	}

	ctx = gooidc.ClientContext(ctx, c.httpClient)
	provider, err := gooidc.NewProvider(ctx, c.cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discovery for %s failed: %w: %w", c.cfg.Issuer, auth.ErrProviderUnavailable, err)
	}

	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, fmt.Errorf("failed to parse provider metadata: %w: %w", auth.ErrProviderUnavailable, err)
	}

	c.metadata = &metadata{
		oauth2Config: oauth2.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  c.redirectURL,
			Scopes:       c.cfg.Scopes,
		},
		verifier: provider.Verifier(&gooidc.Config{
			ClientID: c.cfg.ClientID,
		}),
		endSessionEndpoint: extra.EndSessionEndpoint,
	}
	return c.metadata, nil
}

func (c *Client) AuthCodeURL(ctx context.Context, params auth.AuthParams) (string, error) {
	md, err := c.discover(ctx)
	if err != nil {
		return "", err
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", params.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("nonce", params.Nonce),
	}
	if params.Prompt != "" {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", params.Prompt))
	}

	return md.oauth2Config.AuthCodeURL(params.State, opts...), nil
}

// Exchange redeems the authorization code with the stored PKCE verifier
// and verifies the returned ID token: signature, issuer, audience and
// expiry through the discovered key set, and the nonce claim against
// the value stored at initiation.
func (c *Client) Exchange(ctx context.Context, code, verifier, expectedNonce string) (*auth.Identity, error) {
	md, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := md.oauth2Config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("code exchange rejected (%s): %w", retrieveErr.ErrorCode, auth.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("code exchange failed: %w: %w", auth.ErrProviderUnavailable, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response: %w", auth.ErrTokenInvalid)
	}

	idToken, err := md.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("id token verification failed: %w: %w", auth.ErrTokenInvalid, err)
	}
	if idToken.Nonce != expectedNonce {
		return nil, fmt.Errorf("nonce mismatch: %w", auth.ErrTokenInvalid)
	}

	var claims struct {
		Name              string `json:"name"`
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
		ObjectID          string `json:"oid"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token claims: %w: %w", auth.ErrTokenInvalid, err)
	}

	email := claims.Email
	if email == "" {
		email = claims.PreferredUsername
	}

	return &auth.Identity{
		User: auth.User{
			DisplayName: claims.Name,
			Email:       email,
			Subject:     idToken.Subject,
			ObjectID:    claims.ObjectID,
		},
		Tokens: auth.Tokens{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			IDToken:      rawIDToken,
			ExpiresAt:    token.Expiry,
		},
	}, nil
}

// EndSessionURL builds the RP-initiated logout URL. Providers without
// an end_session_endpoint yield an empty URL and no error; the caller
// falls back to the application root.
func (c *Client) EndSessionURL(ctx context.Context, idTokenHint, postLogoutRedirectURL string) (string, error) {
	md, err := c.discover(ctx)
	if err != nil {
		return "", err
	}
	if md.endSessionEndpoint == "" {
		return "", nil
	}

	u, err := url.Parse(md.endSessionEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid end_session_endpoint: %w", err)
	}
	q := u.Query()
	q.Set("post_logout_redirect_uri", postLogoutRedirectURL)
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Ready forces discovery; used by health reporting.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.discover(ctx)
	return err
}
