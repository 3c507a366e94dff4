package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/store"
	"github.com/dricommerce/authcore/pkg/slogx"
)

// UserDirectory is the read side of the user store the auth flows need.
// Both lookups return store.ErrNotFound when there is no such user.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// PasswordHasher verifies a plaintext password against a stored hash.
// DummyHash returns a hash that costs as much to verify as a real one and
// never matches; it is used when there is no user to check against.
type PasswordHasher interface {
	Verify(plain, hash string) bool
	DummyHash() string
}

// PasswordUpgrader re-encodes passwords whose stored hash uses a legacy
// scheme or outdated parameters.
type PasswordUpgrader interface {
	NeedsRehash(hash string) bool
	Hash(plain string) (string, error)
}

// PasswordUpdater persists an upgraded hash.
type PasswordUpdater interface {
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// Authenticator is the only place plaintext passwords are handled on the
// login path.
type Authenticator struct {
	users  UserDirectory
	hasher PasswordHasher

	upgrader PasswordUpgrader
	updater  PasswordUpdater
}

func NewAuthenticator(users UserDirectory, hasher PasswordHasher) *Authenticator {
	return &Authenticator{users: users, hasher: hasher}
}

// WithRehash upgrades legacy hashes after a successful login, which shrinks
// the set of slow bcrypt hashes the dummy check has to keep up with.
func (a *Authenticator) WithRehash(upgrader PasswordUpgrader, updater PasswordUpdater) *Authenticator {
	a.upgrader = upgrader
	a.updater = updater
	return a
}

// Authenticate returns the user identified by email and password. Every
// rejection is ErrInvalidCredentials and every path runs exactly one hash
// verification. Unknown emails are checked against the hasher's dummy hash,
// which must be configured to cost as much as the slowest stored scheme for
// the timing to stay uniform.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return domain.User{}, err
		}
		_ = a.hasher.Verify(password, a.hasher.DummyHash())
		l.Info("login rejected", slog.String("reason", "unknown_email"))
		return domain.User{}, ErrInvalidCredentials
	}

	ok := a.hasher.Verify(password, user.PasswordHash)
	if !user.Active {
		l.Info("login rejected", slog.String("reason", "inactive"), slog.String("user_id", user.ID))
		return domain.User{}, ErrInvalidCredentials
	}
	if !ok {
		l.Info("login rejected", slog.String("reason", "bad_password"), slog.String("user_id", user.ID))
		return domain.User{}, ErrInvalidCredentials
	}

	a.rehash(ctx, &user, password)
	return user, nil
}

// rehash replaces an outdated hash. Failures are logged and never fail the
// login; the next successful login retries.
func (a *Authenticator) rehash(ctx context.Context, user *domain.User, password string) {
	if a.upgrader == nil || a.updater == nil || !a.upgrader.NeedsRehash(user.PasswordHash) {
		return
	}
	l := slogx.FromContext(ctx)

	hash, err := a.upgrader.Hash(password)
	if err != nil {
		l.Warn("password rehash failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	if err := a.updater.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		l.Warn("password rehash failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	user.PasswordHash = hash
	l.Info("password hash upgraded", slog.String("user_id", user.ID))
}
