package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/store"
	"github.com/dricommerce/authcore/internal/auth/store/drivers/sqlite"
	"github.com/dricommerce/authcore/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func newUser(email string) domain.User {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.User{
		ID:           idx.New().String(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "$argon2id$placeholder",
		Role:         domain.RoleCustomer,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestUsers_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	u := newUser("jane@example.com")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	byID, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)
	require.Equal(t, domain.RoleCustomer, byID.Role)
	require.True(t, byID.Active)
	require.WithinDuration(t, u.CreatedAt, byID.CreatedAt, time.Second)

	byEmail, err := s.Users().GetUserByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	empty, err = s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestUsers_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, s.Users().SetActive(ctx, "missing", false), store.ErrNotFound)
	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "x"), store.ErrNotFound)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Users().CreateUser(ctx, newUser("dup@example.com")))
	err := s.Users().CreateUser(ctx, newUser("dup@example.com"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsers_Updates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := newUser("update@example.com")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	require.NoError(t, s.Users().SetActive(ctx, u.ID, false))
	require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "$argon2id$new"))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Equal(t, "$argon2id$new", got.PasswordHash)
}

func TestRevokedTokens(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := newUser("revoke@example.com")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	now := time.Unix(1_700_000_000, 0).UTC()
	expired := domain.RevokedToken{JTI: "jti-old", UserID: u.ID, ExpiresAt: now.Add(-time.Minute), RevokedAt: now.Add(-time.Hour)}
	live := domain.RevokedToken{JTI: "jti-live", UserID: u.ID, ExpiresAt: now.Add(time.Hour), RevokedAt: now}

	require.NoError(t, s.RevokedTokens().RevokeToken(ctx, expired))
	require.NoError(t, s.RevokedTokens().RevokeToken(ctx, live))
	require.NoError(t, s.RevokedTokens().RevokeToken(ctx, live), "revoking twice is a no-op")

	revoked, err := s.RevokedTokens().IsTokenRevoked(ctx, "jti-live")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = s.RevokedTokens().IsTokenRevoked(ctx, "jti-unknown")
	require.NoError(t, err)
	require.False(t, revoked)

	n, err := s.RevokedTokens().DeleteExpiredRevokedTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	revoked, err = s.RevokedTokens().IsTokenRevoked(ctx, "jti-old")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	boom := errors.New("boom")
	u := newUser("tx@example.com")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().CreateUser(ctx, u))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, nestedErr := tx.Tx(ctx)
		require.Error(t, nestedErr)
		return tx.Users().CreateUser(ctx, u)
	}))

	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
}

func TestUsers_MaxBcryptCost(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cost, err := s.Users().MaxBcryptCost(ctx)
	require.NoError(t, err)
	require.Zero(t, cost)

	require.NoError(t, s.Users().CreateUser(ctx, newUser("argon@example.com")))
	cost, err = s.Users().MaxBcryptCost(ctx)
	require.NoError(t, err)
	require.Zero(t, cost, "argon2id hashes are not legacy")

	for email, hash := range map[string]string{
		"ten@example.com":    "$2a$10$abcdefghijklmnopqrstuuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ01",
		"twelve@example.com": "$2b$12$abcdefghijklmnopqrstuuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ01",
	} {
		u := newUser(email)
		u.PasswordHash = hash
		require.NoError(t, s.Users().CreateUser(ctx, u))
	}

	cost, err = s.Users().MaxBcryptCost(ctx)
	require.NoError(t, err)
	require.Equal(t, 12, cost)
}
