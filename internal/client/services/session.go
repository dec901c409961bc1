// Package services contains application services for the sortedstorage
// client. This file defines the session service: login, registration,
// logout, and housekeeping of the persisted auth token.
package services

import (
	"context"
	"fmt"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/api"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/repositories/metadata"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/store"
	"github.com/sortedstorage/sortedstorage-cli/internal/logging"
)

// tokenKey is the metadata key holding the persisted bearer token. Owned
// exclusively by the session service.
const tokenKey = "auth_token"

// Session authenticates against the auth API and owns the persisted token.
// It implements identity.TokenSource, so the REST client and the identity
// provider both read the token through it.
type Session struct {
	auth api.AuthAPI
	meta metadata.Repository
	log  logging.Logger

	user *store.Store[*models.User]
}

func NewSession(auth api.AuthAPI, meta metadata.Repository, log logging.Logger) *Session {
	if log == nil {
		log = logging.Nop()
	}
	return &Session{
		auth: auth,
		meta: meta,
		log:  log,
		user: store.New[*models.User](nil),
	}
}

// User is the signed-in account, nil when logged out.
func (s *Session) User() *store.Store[*models.User] { return s.user }

// Token returns the persisted bearer token, or "" when logged out.
func (s *Session) Token(ctx context.Context) (string, error) {
	value, err := s.meta.Get(ctx, tokenKey)
	if err != nil {
		return "", fmt.Errorf("reading auth token: %w", err)
	}
	return string(value), nil
}

// Login authenticates, persists the returned token, and publishes the user.
func (s *Session) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	if err := s.meta.Set(ctx, tokenKey, []byte(token)); err != nil {
		return nil, fmt.Errorf("persisting auth token: %w", err)
	}
	s.user.Set(user)
	return user, nil
}

// Register creates an account and signs in with the returned token.
func (s *Session) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	user, token, err := s.auth.Register(ctx, name, email, password)
	if err != nil {
		return nil, fmt.Errorf("register error: %w", err)
	}
	if err := s.meta.Set(ctx, tokenKey, []byte(token)); err != nil {
		return nil, fmt.Errorf("persisting auth token: %w", err)
	}
	s.user.Set(user)
	return user, nil
}

// Logout tells the server best-effort, then drops the local token. The local
// session ends even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.auth.Logout(ctx); err != nil {
		s.log.Warn(ctx, "server logout failed", "error", err.Error())
	}
	if err := s.meta.Delete(ctx, tokenKey); err != nil {
		return fmt.Errorf("clearing auth token: %w", err)
	}
	s.user.Set(nil)
	return nil
}

// Restore validates a persisted token against the server and publishes the
// account it belongs to. Used at startup to resume a previous session.
func (s *Session) Restore(ctx context.Context) (*models.User, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	user, err := s.auth.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	s.user.Set(user)
	return user, nil
}
