// Package auth holds the authentication collaborator consumed by the sync
// engine: a source of bearer tokens and a validity check. Token issuance
// and signature verification stay on the server; the client only inspects
// the expiry claim to avoid sending exchanges it knows will be rejected.
package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned by CurrentToken when no credential is held.
var ErrNoToken = errors.New("no auth token available")

// TokenProvider is the contract the sync components consume.
type TokenProvider interface {
	// IsAuthenticated reports whether a usable credential is held.
	IsAuthenticated() bool
	// CurrentToken returns the bearer token to attach to outbound
	// exchanges, or ErrNoToken.
	CurrentToken() (string, error)
}

// TokenStore is a TokenProvider fed by the host's login flow. When the held
// token is a JWT its exp claim is honoured; opaque tokens are treated as
// valid while present.
type TokenStore struct {
	mu    sync.RWMutex
	token string
	now   func() time.Time
}

// NewTokenStore returns an empty store; SetToken installs credentials as
// logins complete.
func NewTokenStore() *TokenStore {
	return &TokenStore{now: time.Now}
}

// SetToken replaces the held credential. An empty string clears it
// (revocation/logout).
func (s *TokenStore) SetToken(token string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
}

// IsAuthenticated implements TokenProvider.
func (s *TokenStore) IsAuthenticated() bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return false
	}
	return !s.expired(token)
}

// CurrentToken implements TokenProvider.
func (s *TokenStore) CurrentToken() (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" || s.expired(token) {
		return "", ErrNoToken
	}
	return token, nil
}

// expired inspects the exp claim of a JWT without verifying its signature.
// Non-JWT tokens never expire client-side.
func (s *TokenStore) expired(token string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(s.now())
}
