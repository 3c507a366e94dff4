//go:build e2e

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dricommerce/authcore/pkg/authsdk"
)

func TestHealthEndpoints(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t, nil))

	live, err := client.Live(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.Ready(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
}

func TestJWKSEndpoint(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t, nil))

	jwks, err := client.JWKS(t.Context())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "ES256", jwks.Keys[0].Alg)
	require.Equal(t, "sig", jwks.Keys[0].Use)

	keys, err := client.VerificationKeys(t.Context())
	require.NoError(t, err)
	require.True(t, keys.IsReady())
}
