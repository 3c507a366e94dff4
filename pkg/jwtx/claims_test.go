package jwtx_test

import (
	"testing"
	"time"

	"github.com/dricommerce/authcore/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	c := jwtx.NewAccessClaims("u1", "Ana", "ana@example.com", []string{"SELLER"}, exampleIssuer, time.Hour, now)

	require.Equal(t, "u1", c.Subject)
	require.Equal(t, exampleIssuer, c.Issuer)
	require.Equal(t, now, c.IssuedAt.Time)
	require.Equal(t, now.Add(time.Hour), c.Expiry())
	require.True(t, c.IsKind(jwtx.KindAccess))
	require.False(t, c.IsKind(jwtx.KindRefresh))
	require.True(t, c.HasGroup("SELLER"))
	require.False(t, c.HasGroup("ADMIN"))
	require.NotEmpty(t, c.ID)
}

func TestNewRefreshClaims(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	c := jwtx.NewRefreshClaims("u1", exampleIssuer, 7*24*time.Hour, now)

	require.True(t, c.IsKind(jwtx.KindRefresh))
	require.Empty(t, c.Name)
	require.Empty(t, c.Email)
	require.Empty(t, c.Groups)
	require.Equal(t, now.Add(7*24*time.Hour), c.Expiry())
}

func TestNewJTI_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := jwtx.NewJTI()
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestClaims_ExpiryAbsent(t *testing.T) {
	var c jwtx.Claims
	require.True(t, c.Expiry().IsZero())
}
