package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/dricommerce/authcore/internal/auth/metrics"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/pkg/authsdk"
	"github.com/dricommerce/authcore/pkg/httpx"
	"github.com/dricommerce/authcore/pkg/jwtx"
	"github.com/dricommerce/authcore/pkg/slogx"
)

// AuthHandler serves the login, refresh and logout endpoints.
type AuthHandler struct {
	LoginService   *service.LoginService
	RefreshService *service.RefreshService
	Metrics        metrics.Recorder

	// LoginPolicy derives the attempt-counter key when the route was not
	// wrapped with httpx.WithAttemptKey.
	LoginPolicy httpx.AttemptPolicy
}

func (h *AuthHandler) recorder() metrics.Recorder {
	if h.Metrics == nil {
		return metrics.Discard
	}
	return h.Metrics
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges an email and password for an access token and a refresh token.
//	@Description	Failed attempts are counted per client; once the budget is spent the endpoint answers 429 until the window resets.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse	"token, refreshToken, tokenType, expiresIn"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid email or password"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many attempts; details carry remainingAttempts and resetInSeconds"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Header			429		{integer}	Retry-After				"Seconds until the window resets"
//	@Header			429		{integer}	X-RateLimit-Remaining	"Attempts left in the window"
//	@Router			/api/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	key, ok := httpx.AttemptKeyFromContext(ctx)
	if !ok {
		key = h.LoginPolicy.KeyFor(r)
	}

	res, err := h.LoginService.Login(ctx, req.Email, req.Password, key)
	if err != nil {
		h.recorder().RecordLogin(writeServiceError(w, r, err), time.Since(start))
		return
	}

	h.recorder().RecordLogin(metrics.OutcomeSuccess, time.Since(start))
	h.recorder().RecordTokensIssued(jwtx.KindAccess, 1)
	h.recorder().RecordTokensIssued(jwtx.KindRefresh, 1)

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		ExpiresIn:    int(res.ExpiresIn.Seconds()),
	})
}

// HandleRefresh godoc
//
//	@Summary		Refresh the access token
//	@Description	Trades a refresh token for a new access token. The refresh token is not rotated.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest			true	"Refresh token"
//	@Success		200		{object}	authsdk.AccessTokenResponse		"token, tokenType, expiresIn"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Invalid, expired, revoked or wrong-kind token"
//	@Failure		403		{object}	authsdk.ErrorResponse			"Account is inactive"
//	@Failure		500		{object}	authsdk.ErrorResponse			"Internal server error"
//	@Header			200		{string}	Cache-Control					"no-store"
//	@Router			/api/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeBadRequest(w, "refreshToken is required")
		return
	}

	res, err := h.RefreshService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.recorder().RecordRefresh(writeServiceError(w, r, err))
		return
	}

	h.recorder().RecordRefresh(metrics.OutcomeSuccess)
	h.recorder().RecordTokensIssued(jwtx.KindAccess, 1)

	httpx.WriteJSON(w, http.StatusOK, authsdk.AccessTokenResponse{
		Token:     res.AccessToken,
		TokenType: res.TokenType,
		ExpiresIn: int(res.ExpiresIn.Seconds()),
	})
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes a refresh token until it expires. Revoking an already revoked token succeeds.
//	@Tags			Auth
//	@Accept			json
//	@Param			body	body	authsdk.RefreshRequest	true	"Refresh token"
//	@Success		204		"Token revoked"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or expired token"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/api/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeBadRequest(w, "refreshToken is required")
		return
	}

	if err := h.RefreshService.Revoke(r.Context(), req.RefreshToken); err != nil {
		outcome := writeServiceError(w, r, err)
		h.recorder().RecordLogout(outcome)
		slogx.FromContext(r.Context()).Info("logout rejected", "outcome", outcome)
		return
	}

	h.recorder().RecordLogout(metrics.OutcomeSuccess)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
