package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/mgoffin/authgate/pkg/security"
)

type User struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	ObjectID    string `json:"object_id,omitempty"`
}

// Tokens never leave the backend; they are persisted in the session
// store and omitted from every HTTP response.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// FlowAttempt is the transient state of one in-flight login; at most one
// exists per session, a new initiation overwrites it.
type FlowAttempt struct {
	Verifier string `json:"verifier"`
	State    string `json:"state"`
	Nonce    string `json:"nonce"`
	Silent   bool   `json:"silent"`
}

// Session moves between three phases: anonymous, flow-in-progress, and
// authenticated. Flow and the Authenticated/User/Tokens group are
// mutually exclusive; all mutation goes through the transition methods
// below so the exclusion holds structurally.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Authenticated bool    `json:"authenticated"`
	User          *User   `json:"user,omitempty"`
	Tokens        *Tokens `json:"tokens,omitempty"`
	CSRFToken     string  `json:"csrf_token,omitempty"`

	Flow *FlowAttempt `json:"flow,omitempty"`
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
}

// BeginFlow enters the flow-in-progress phase, dropping any prior
// authenticated state and any earlier in-flight attempt.
func (s *Session) BeginFlow(flow *FlowAttempt) {
	s.Authenticated = false
	s.User = nil
	s.Tokens = nil
	s.Flow = flow
}

// CompleteFlow enters the authenticated phase and clears the transient
// flow fields in the same transition.
func (s *Session) CompleteFlow(user *User, tokens *Tokens) {
	s.Flow = nil
	s.Authenticated = true
	s.User = user
	s.Tokens = tokens
}

// FailFlow clears only the transient flow fields. Failure cleanup
// never touches the rest of the session; whatever phase it was in
// stays intact.
func (s *Session) FailFlow() {
	s.Flow = nil
}

// EnsureCSRFToken lazily mints the session's CSRF token. It reports
// whether the session was modified and needs persisting.
func (s *Session) EnsureCSRFToken() (bool, error) {
	if s.CSRFToken != "" {
		return false, nil
	}
	token, err := security.GenerateToken()
	if err != nil {
		return false, err
	}
	s.CSRFToken = token
	return true, nil
}
