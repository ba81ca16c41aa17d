package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable covers discovery and network failures
	// against the identity provider; retryable on a later request.
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrStateMismatch marks a callback whose state does not exactly
	// match the stored value, including a session with no in-flight
	// flow. Possible CSRF or cookie loss; the attempt is abandoned.
	ErrStateMismatch = errors.New("state parameter mismatch")

	// ErrTokenInvalid covers every ID-token check: signature, issuer,
	// audience, expiry and nonce, plus a rejected code exchange.
	ErrTokenInvalid = errors.New("token validation failed")

	// ErrSilentSSODeclined is the provider answering a prompt=none
	// attempt with an error; expected, surfaced as a soft failure.
	ErrSilentSSODeclined = errors.New("silent sign-on declined")

	ErrCSRFInvalid = errors.New("invalid csrf token")
)

// FlowError is a failed callback with the provider-facing error code and
// description, plus whether the attempt was silent so the boundary can
// pick between a soft redirect and an error response.
type FlowError struct {
	Code        string
	Description string
	Silent      bool
	Err         error
}

func (e *FlowError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authentication failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authentication failed: %s", e.Code)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}
