package authsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dricommerce/authcore/pkg/jwtx"
)

// refreshSkew refreshes the access token this long before it expires.
const refreshSkew = 30 * time.Second

var ErrNoRefreshToken = errors.New("authsdk: no refresh token")

// Session holds a token pair and refreshes the access token when needed.
// It is safe for concurrent use.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *SDKClient, tokens *TokenResponse) *Session {
	return &Session{
		client:       client,
		accessToken:  tokens.Token,
		refreshToken: tokens.RefreshToken,
		expiresAt:    time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - refreshSkew),
	}
}

// Me returns the profile of the session's user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.Me(ctx, token)
}

// Logout revokes the refresh token. The session is unusable afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.refreshToken
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if refreshToken == "" {
		return ErrNoRefreshToken
	}
	return s.client.Logout(ctx, refreshToken)
}

// getValidToken returns a valid access token, refreshing if it expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	resp, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = resp.Token
	s.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second - refreshSkew)

	return s.accessToken, nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Claims verifies the session's access token offline against v, refreshing
// it first when it is about to expire. Build v from VerificationKeys.
func (s *Session) Claims(ctx context.Context, v jwtx.Verifier) (jwtx.Claims, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return jwtx.Claims{}, err
	}
	return v.Verify(token)
}
