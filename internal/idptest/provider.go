// Package idptest runs an in-process OpenID Connect provider for tests:
// discovery, JWKS, and a token endpoint that enforces the expected
// authorization code and PKCE challenge, minting RS256-signed ID tokens.
package idptest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Provider struct {
	t          *testing.T
	httpServer *httptest.Server
	privKey    *rsa.PrivateKey
	keyID      string

	mu                sync.Mutex
	clientID          string
	clientSecret      string
	expectedCode      string
	expectedNonce     string
	expectedChallenge string
	subject           string
	customClaims      map[string]any
	omitEndSession    bool
}

func Start(t *testing.T) *Provider {
	t.Helper()

	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate signing key: %v", err)
	}

	p := &Provider{
		t:            t,
		privKey:      privKey,
		keyID:        "idptest-key-1",
		subject:      "test-subject",
		customClaims: map[string]any{},
	}
	p.httpServer = httptest.NewServer(p)
	t.Cleanup(p.httpServer.Close)

	return p
}

// Issuer is the provider's base URL, also the iss claim of every minted
// ID token.
func (p *Provider) Issuer() string { return p.httpServer.URL }

func (p *Provider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode makes the token endpoint reject any other code
// with invalid_grant.
func (p *Provider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedCode = code
}

// SetExpectedAuthNonce sets the nonce claim placed into minted ID
// tokens.
func (p *Provider) SetExpectedAuthNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedNonce = nonce
}

// SetExpectedPKCEVerifier makes the token endpoint re-derive the S256
// challenge from the presented code_verifier and reject a mismatch.
func (p *Provider) SetExpectedPKCEVerifier(verifier string) {
	hash := sha256.Sum256([]byte(verifier))
	p.SetExpectedPKCEChallenge(base64.RawURLEncoding.EncodeToString(hash[:]))
}

// SetExpectedPKCEChallenge is the same check when the test only saw the
// challenge from an authorization URL, not the verifier behind it.
func (p *Provider) SetExpectedPKCEChallenge(challenge string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedChallenge = challenge
}

func (p *Provider) SetSubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subject = sub
}

// SetCustomClaims merges extra claims (name, email, oid, ...) into
// minted ID tokens.
func (p *Provider) SetCustomClaims(claims map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = claims
}

// OmitEndSessionEndpoint drops end_session_endpoint from discovery.
func (p *Provider) OmitEndSessionEndpoint() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitEndSession = true
}

func (p *Provider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		p.serveDiscovery(w)
	case "/jwks":
		p.serveJWKS(w)
	case "/token":
		p.serveToken(w, req)
	default:
		http.NotFound(w, req)
	}
}

func (p *Provider) serveDiscovery(w http.ResponseWriter) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := map[string]any{
		"issuer":                                p.httpServer.URL,
		"authorization_endpoint":                p.httpServer.URL + "/authorize",
		"token_endpoint":                        p.httpServer.URL + "/token",
		"jwks_uri":                              p.httpServer.URL + "/jwks",
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
	}
	if !p.omitEndSession {
		doc["end_session_endpoint"] = p.httpServer.URL + "/logout"
	}
	writeJSON(w, http.StatusOK, doc)
}

func (p *Provider) serveJWKS(w http.ResponseWriter) {
	pub := p.privKey.PublicKey
	jwks := map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": p.keyID,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	writeJSON(w, http.StatusOK, jwks)
}

func (p *Provider) serveToken(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := req.ParseForm(); err != nil {
		writeTokenError(w, "invalid_request", "malformed form body")
		return
	}
	if grantType := req.FormValue("grant_type"); grantType != "authorization_code" {
		writeTokenError(w, "unsupported_grant_type", grantType)
		return
	}
	if p.expectedCode != "" && req.FormValue("code") != p.expectedCode {
		writeTokenError(w, "invalid_grant", "unexpected authorization code")
		return
	}
	if p.expectedChallenge != "" {
		hash := sha256.Sum256([]byte(req.FormValue("code_verifier")))
		if base64.RawURLEncoding.EncodeToString(hash[:]) != p.expectedChallenge {
			writeTokenError(w, "invalid_grant", "pkce verification failed")
			return
		}
	}

	idToken, err := p.mintIDToken()
	if err != nil {
		p.t.Errorf("idptest: failed to mint id token: %v", err)
		writeTokenError(w, "server_error", "signing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  "idptest-access-token",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": "idptest-refresh-token",
		"id_token":      idToken,
	})
}

func (p *Provider) mintIDToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": p.httpServer.URL,
		"aud": p.clientID,
		"sub": p.subject,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if p.expectedNonce != "" {
		claims["nonce"] = p.expectedNonce
	}
	for k, v := range p.customClaims {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = p.keyID
	return token.SignedString(p.privKey)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeTokenError(w http.ResponseWriter, code, description string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
