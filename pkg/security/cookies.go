package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

var ErrBadCookieSignature = errors.New("invalid cookie signature")

// SignValue appends a keyed HMAC-SHA256 to a session identifier so a
// tampered cookie is rejected without a store lookup.
func SignValue(secret []byte, value string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(value))
	return value + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func VerifyValue(secret []byte, signed string) (string, error) {
	i := strings.LastIndexByte(signed, '.')
	if i < 0 {
		return "", ErrBadCookieSignature
	}
	value, sig := signed[:i], signed[i+1:]

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(value))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", ErrBadCookieSignature
	}
	return value, nil
}

func CreateSessionCookie(name string, secret []byte, sessionID string, secure bool, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    SignValue(secret, sessionID),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func ClearSessionCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionIDFromRequest extracts and authenticates the session identifier
// carried by the request cookie. A missing or tampered cookie yields an
// empty identifier, which callers treat as no session.
func SessionIDFromRequest(req *http.Request, name string, secret []byte) string {
	cookie, err := req.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	id, err := VerifyValue(secret, cookie.Value)
	if err != nil {
		return ""
	}
	return id
}
