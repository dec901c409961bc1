// Package identity resolves the locally signed-in user. Collaboration and
// storage components receive a Provider instead of reading persisted auth
// state themselves, so tests can substitute a fixed identity.
package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sortedstorage/sortedstorage-cli/internal/common"
)

// Identity is the minimal local-user view needed by the client stores.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// Provider returns the current local identity. Implementations return
// common.ErrNotLoggedIn when no user is signed in.
type Provider interface {
	Current(ctx context.Context) (*Identity, error)
}

// TokenSource supplies the persisted bearer token, or "" when absent.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenProvider derives the identity from the persisted auth token's JWT
// claims. The token is decoded without signature verification; verification
// is the server's job, this is only a local reflection of who we claim to be.
type TokenProvider struct {
	source TokenSource
	parser *jwt.Parser
}

func NewTokenProvider(source TokenSource) *TokenProvider {
	return &TokenProvider{source: source, parser: jwt.NewParser()}
}

func (p *TokenProvider) Current(ctx context.Context) (*Identity, error) {
	token, err := p.source.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading auth token: %w", err)
	}
	if token == "" {
		return nil, common.ErrNotLoggedIn
	}

	claims := jwt.MapClaims{}
	if _, _, err := p.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	id := &Identity{}
	if sub, err := claims.GetSubject(); err == nil {
		id.ID = sub
	}
	if name, ok := claims["name"].(string); ok {
		id.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if id.ID == "" {
		return nil, common.ErrInvalidToken
	}
	return id, nil
}

// Static always returns the same identity. Intended for tests.
type Static struct {
	Identity Identity
}

func (s *Static) Current(ctx context.Context) (*Identity, error) {
	if s.Identity.ID == "" {
		return nil, common.ErrNotLoggedIn
	}
	id := s.Identity
	return &id, nil
}
