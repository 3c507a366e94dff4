package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers an unknown email, a wrong password and an
	// inactive account alike. Callers must not be able to tell them apart.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for malformed, expired, wrongly signed or
	// wrong-kind tokens, and for tokens whose subject no longer exists.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrAccountInactive is only surfaced at refresh time. It also matches
	// ErrInvalidToken.
	ErrAccountInactive = fmt.Errorf("account is inactive: %w", ErrInvalidToken)

	ErrRateLimitExceeded = errors.New("too many login attempts")
)

// RateLimitExceededError carries what the caller needs to build a
// Retry-After style response.
type RateLimitExceededError struct {
	Remaining int
	ResetIn   time.Duration
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrRateLimitExceeded, e.ResetIn)
}

func (e *RateLimitExceededError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}
