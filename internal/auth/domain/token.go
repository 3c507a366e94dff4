package domain

import "time"

// TokenTypeBearer is the token_type reported alongside every issued access token.
const TokenTypeBearer = "Bearer"

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration // access token lifetime
}

// RefreshResult carries a freshly minted access token. The presented refresh
// token stays valid until it expires or is revoked.
type RefreshResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

// RevokedToken is a refresh token jti that must no longer be accepted. Rows
// are only needed until ExpiresAt, after which the token would fail
// verification anyway.
type RevokedToken struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
}
