package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mgoffin/authgate/internal/store"
)

const sessionKeyPrefix = "session:"

var ErrSessionNotFound = errors.New("session not found")

// Sessions persists session records as JSON in the backing store. Every
// write is acknowledged by the store before returning; security-relevant
// state is never persisted fire-and-forget.
type Sessions struct {
	store store.Store
	ttl   time.Duration
}

func NewSessions(st store.Store, ttl time.Duration) *Sessions {
	return &Sessions{store: st, ttl: ttl}
}

func (s *Sessions) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.store.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *Sessions) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.store.Set(ctx, sessionKeyPrefix+session.ID, data, s.ttl); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, sessionKeyPrefix+id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Sessions) TTL() time.Duration {
	return s.ttl
}
