package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/pkg/clockx"
	"github.com/dricommerce/authcore/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestHousekeeping_Cleanup(t *testing.T) {
	ctx := context.Background()
	clock := clockx.NewFake(epoch)
	st := newSQLiteStore(t)

	u := testUser("01JNEXAMPLEUSER0000000000", "a@example.com", "pw", domain.RoleCustomer)
	u.CreatedAt, u.UpdatedAt = epoch, epoch
	require.NoError(t, st.Users().CreateUser(ctx, u))
	require.NoError(t, st.RevokedTokens().RevokeToken(ctx, domain.RevokedToken{
		JTI: "old", UserID: u.ID, ExpiresAt: epoch.Add(time.Minute), RevokedAt: epoch,
	}))
	require.NoError(t, st.RevokedTokens().RevokeToken(ctx, domain.RevokedToken{
		JTI: "fresh", UserID: u.ID, ExpiresAt: epoch.Add(time.Hour), RevokedAt: epoch,
	}))

	limiter := ratelimit.New(clock)
	limiter.Admit("login:a", 5, time.Minute)
	limiter.Admit("login:b", 5, time.Hour)

	hk := service.NewHousekeepingService(limiter, st.RevokedTokens(), clock,
		slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)

	clock.Advance(2 * time.Minute)
	hk.Cleanup(ctx)

	require.Equal(t, 1, limiter.Len())

	revoked, err := st.RevokedTokens().IsTokenRevoked(ctx, "old")
	require.NoError(t, err)
	require.False(t, revoked)

	revoked, err = st.RevokedTokens().IsTokenRevoked(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestHousekeeping_StartStop(t *testing.T) {
	limiter := ratelimit.New(clockx.NewFake(epoch))
	hk := service.NewHousekeepingService(limiter, nil, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.Equal(t, time.Minute, hk.Interval)

	hk.Start()
	hk.Stop()
}
