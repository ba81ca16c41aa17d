package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-session-secret")

func TestSignAndVerifyValue(t *testing.T) {
	signed := SignValue(testSecret, "session-id-123")

	value, err := VerifyValue(testSecret, signed)
	require.NoError(t, err)
	assert.Equal(t, "session-id-123", value)
}

func TestVerifyValueTampered(t *testing.T) {
	signed := SignValue(testSecret, "session-id-123")

	_, err := VerifyValue(testSecret, "other-id"+signed[len("session-id-123"):])
	assert.ErrorIs(t, err, ErrBadCookieSignature)

	_, err = VerifyValue(testSecret, "no-signature-here")
	assert.Error(t, err)

	_, err = VerifyValue([]byte("different-secret"), signed)
	assert.ErrorIs(t, err, ErrBadCookieSignature)
}

func TestCreateSessionCookie(t *testing.T) {
	cookie := CreateSessionCookie("authgate-session", testSecret, "abc", true, 24*time.Hour)

	assert.Equal(t, "authgate-session", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)

	value, err := VerifyValue(testSecret, cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "abc", value)
}

func TestClearSessionCookie(t *testing.T) {
	cookie := ClearSessionCookie("authgate-session", false)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.Empty(t, cookie.Value)
}

func TestSessionIDFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(CreateSessionCookie("authgate-session", testSecret, "abc", false, time.Hour))

	assert.Equal(t, "abc", SessionIDFromRequest(req, "authgate-session", testSecret))
}

func TestSessionIDFromRequestRejectsTampering(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "authgate-session", Value: "abc.forged-signature"})

	assert.Empty(t, SessionIDFromRequest(req, "authgate-session", testSecret))
}

func TestSessionIDFromRequestMissingCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	assert.Empty(t, SessionIDFromRequest(req, "authgate-session", testSecret))
}
