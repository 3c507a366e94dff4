package http

import (
	"net/http"

	"github.com/dricommerce/authcore/pkg/authsdk"
	"github.com/dricommerce/authcore/pkg/httpx"
	"github.com/dricommerce/authcore/pkg/jwtx"
)

// JWKSHandler publishes the verification key so other services can check
// access tokens without calling back.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify access and refresh tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
