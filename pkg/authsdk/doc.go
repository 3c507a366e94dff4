/*
Package authsdk is a Go client for the commerce authentication service.

# SDKClient vs Session

SDKClient covers the public endpoints: login, refresh, logout, health and
the JWKS. A successful login yields a Session, which holds the token pair
and transparently refreshes its access token before it expires:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "jane@example.com", password)
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.IsRateLimited() {
			time.Sleep(apiErr.RetryAfter)
		}
		return err
	}

	me, err := session.Me(ctx)

	// Revoke the refresh token when done.
	_ = session.Logout(ctx)

# Offline verification

Resource services can check access tokens without calling the service.
VerificationKeys loads the published JWKS into a jwtx.KeySet:

	keys, err := client.VerificationKeys(ctx)
	verifier, err := jwtx.NewVerifier(jwtx.AlgorithmES256, keys, jwtx.VerifyOptions{Issuer: "dricommerce-auth"})

	claims, err := session.Claims(ctx, verifier)

# Errors

Every non-2xx response is returned as *APIError, carrying the HTTP status,
the machine readable code (see the ErrorCode constants) and, for 429
responses, the Retry-After delay and remaining attempts. Ready is the one
exception: a 503 from /readyz returns the health body together with
ErrNotReady.
*/
package authsdk
