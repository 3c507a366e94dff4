//go:build e2e

package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dricommerce/authcore/pkg/authsdk"
)

// TestLoginLockout checks the failed-attempt counter end to end: five
// attempts are answered, the sixth is refused even with the right password.
func TestLoginLockout(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t, nil))
	ctx := t.Context()

	for i := range 5 {
		_, err := client.Login(ctx, adminEmail, "wrong-password")
		var apiErr *authsdk.APIError
		require.True(t, errors.As(err, &apiErr))
		require.False(t, apiErr.IsRateLimited(), "attempt %d should not be limited", i+1)
	}

	_, err := client.Login(ctx, adminEmail, adminPassword)
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.True(t, apiErr.IsRateLimited())
	require.Equal(t, 0, apiErr.RemainingAttempts())
	require.Greater(t, apiErr.RetryAfter, 14*time.Minute)
	require.LessOrEqual(t, apiErr.RetryAfter, 15*time.Minute)
}

// TestLoginLockoutWindowIsConfigurable uses a short window so the reset can
// be observed.
func TestLoginLockoutWindowIsConfigurable(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t, map[string]string{
		"RATELIMIT_LOGIN_MAX_ATTEMPTS": "2",
		"RATELIMIT_LOGIN_WINDOW":       "3s",
	}))
	ctx := t.Context()

	for range 2 {
		_, err := client.Login(ctx, adminEmail, "wrong-password")
		require.Error(t, err)
	}
	_, err := client.Login(ctx, adminEmail, adminPassword)
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.True(t, apiErr.IsRateLimited())

	require.Eventually(t, func() bool {
		_, err := client.Login(ctx, adminEmail, adminPassword)
		return err == nil
	}, 10*time.Second, 500*time.Millisecond)
}
