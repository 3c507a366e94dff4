package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is the single role carried by every account. It is emitted as the
// only entry of the "groups" claim on access tokens.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	RoleAdmin    Role = "ADMIN"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Roles lists every role in a stable order.
func Roles() []Role { return []Role{RoleCustomer, RoleSeller, RoleAdmin} }

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

type User struct {
	ID           string
	Name         string
	Email        string // stored normalised, see NormalizeEmail
	PasswordHash string // argon2id PHC string, or a legacy bcrypt hash
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail is the canonical form used for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
