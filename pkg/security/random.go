package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateToken returns 32 bytes of cryptographic randomness encoded as
// unpadded base64url. Used for state, nonce and CSRF tokens.
func GenerateToken() (string, error) {
	return GenerateRandomString(32)
}

func GenerateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random string: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func GenerateCodeVerifier() (string, error) {
	verifier, err := GenerateRandomString(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return verifier, nil
}

// CodeChallenge derives the S256 PKCE challenge for a verifier.
func CodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
