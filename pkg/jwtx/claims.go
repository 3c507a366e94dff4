package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token lifetimes used when the service config leaves them unset.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token kinds carried in the "type" claim.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims is the payload of every token we mint. Access tokens carry the
// profile fields; refresh tokens only identify the subject.
type Claims struct {
	jwt.RegisteredClaims

	// Display name of the subject.
	Name string `json:"name,omitempty"`

	// Email address of the subject, lowercased.
	Email string `json:"email,omitempty"`

	// Groups holds the subject's role, e.g. ["ADMIN"].
	Groups []string `json:"groups,omitempty"`

	// Type is "access" or "refresh".
	Type string `json:"type,omitempty"`
}

// NewAccessClaims builds access-token claims for subject valid for ttl from now.
func NewAccessClaims(subject, name, email string, groups []string, issuer string, ttl time.Duration, now time.Time) Claims {
	c := newClaims(subject, issuer, KindAccess, ttl, now)
	c.Name = name
	c.Email = email
	c.Groups = groups
	return c
}

// NewRefreshClaims builds refresh-token claims for subject valid for ttl from now.
func NewRefreshClaims(subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return newClaims(subject, issuer, KindRefresh, ttl, now)
}

func newClaims(subject, issuer, kind string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Type: kind,
	}
}

// NewJTI returns a random identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// IsKind reports whether the token type matches kind exactly.
func (c *Claims) IsKind(kind string) bool {
	return c.Type == kind
}

// HasGroup reports whether group is among the token's groups.
func (c *Claims) HasGroup(group string) bool {
	return slices.Contains(c.Groups, group)
}

// Expiry returns the "exp" time, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
