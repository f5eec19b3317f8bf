package session

import (
	"context"
	"fmt"
	"time"

	"orbit/api/internal/auth"
	"orbit/api/internal/util"
)

// Service mints and validates anonymous sessions. With no Redis store
// configured it degrades to stateless signed tokens: still verifiable, not
// revocable.
type Service struct {
	store  *RedisStore
	secret []byte
	ttl    time.Duration
}

func NewService(store *RedisStore, secret string, ttl time.Duration) *Service {
	return &Service{store: store, secret: []byte(secret), ttl: ttl}
}

// SignInAnonymously establishes the service's own anonymous session before
// the collection subscription opens. This is the Authenticating step of the
// sync lifecycle; a failure here keeps the projection offline.
func (s *Service) SignInAnonymously(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("anonymous sign-in: %w", err)
	}
	sess := Session{ID: util.NewID("svc"), CreatedAt: time.Now()}
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("anonymous sign-in: %w", err)
	}
	return nil
}

// IssueAnonymous creates a fresh anonymous session and returns its signed
// token.
func (s *Service) IssueAnonymous(ctx context.Context) (string, error) {
	sess := Session{ID: util.NewID("anon"), CreatedAt: time.Now()}
	if s.store != nil {
		if err := s.store.Save(ctx, sess); err != nil {
			return "", err
		}
	}
	token, err := auth.IssueToken(s.secret, auth.Claims{
		Sub:       sess.ID,
		Anonymous: true,
		JTI:       util.NewID(""),
		Exp:       time.Now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	return token, nil
}

// Validate verifies a token and, when a store is configured, that its
// session has not been revoked.
func (s *Service) Validate(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken(s.secret, token)
	if err != nil {
		return Session{}, err
	}
	if s.store == nil {
		return Session{ID: claims.Sub}, nil
	}
	return s.store.Lookup(ctx, claims.Sub)
}

// Revoke ends a session by ID.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	if s.store == nil {
		return nil
	}
	return s.store.Revoke(ctx, sessionID)
}
