package authsdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/dricommerce/authcore/pkg/jwtx"
)

const jwksPath = "/.well-known/jwks.json"

// ErrNoSigningKeys is returned by VerificationKeys when the service
// publishes an empty key set.
var ErrNoSigningKeys = errors.New("authsdk: service published no signing keys")

// JWKS returns the raw public key set.
func (c *SDKClient) JWKS(ctx context.Context) (*JWKSResponse, error) {
	var jwks JWKSResponse
	if err := c.getJSON(ctx, jwksPath, &jwks); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// VerificationKeys loads the published keys into a KeySet for
// jwtx.NewVerifier, so resource services can check access tokens without
// calling back. A key that does not parse fails the whole set.
func (c *SDKClient) VerificationKeys(ctx context.Context) (*jwtx.KeySet, error) {
	jwks, err := c.JWKS(ctx)
	if err != nil {
		return nil, err
	}
	if len(jwks.Keys) == 0 {
		return nil, ErrNoSigningKeys
	}

	keys := jwtx.NewKeySet()
	for _, k := range jwks.Keys {
		if err := keys.AddJWK(k); err != nil {
			return nil, fmt.Errorf("authsdk: key %q: %w", k.Kid, err)
		}
	}
	return keys, nil
}
