package authsdk

import (
	"github.com/dricommerce/authcore/pkg/jwtx"
)

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"correct horse battery staple"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	// Token is the signed access token.
	Token string `json:"token"`

	// RefreshToken trades for new access tokens until it expires or is revoked.
	RefreshToken string `json:"refreshToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType" example:"Bearer"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expiresIn" example:"3600"`
}

// RefreshRequest is the body of POST /api/v1/auth/refresh and /logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AccessTokenResponse is returned by a successful refresh. The refresh
// token is not rotated.
type AccessTokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType" example:"Bearer"`
	ExpiresIn int    `json:"expiresIn" example:"3600"`
}

// UserResponse is the profile returned by GET /api/v1/auth/me.
type UserResponse struct {
	ID    string `json:"id" example:"01JNB3R4Y8M2Q6W0ZK5T7V9XCD"`
	Name  string `json:"name" example:"Jane Doe"`
	Email string `json:"email" example:"jane@example.com"`
	Role  string `json:"role" example:"CUSTOMER" enums:"CUSTOMER,SELLER,ADMIN"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status is "ok" or "unavailable".
	Status string `json:"status"`

	// Uptime is the service uptime as a duration string, e.g. "1h23m45s".
	Uptime string `json:"uptime,omitempty"`

	Version string `json:"version,omitempty"`

	// Checks is only set by /readyz.
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the readiness of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the public key set served at /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS
