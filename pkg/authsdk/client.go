package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const apiPrefix = "/api/v1/auth"

// SDKClient is a client for the authentication service's public endpoints.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a 10 second request timeout.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges credentials for a token pair and wraps it in a Session.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var tokens TokenResponse
	err := c.postJSON(ctx, apiPrefix+"/login", LoginRequest{Email: email, Password: password}, &tokens, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, &tokens), nil
}

// Refresh trades a refresh token for a new access token.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*AccessTokenResponse, error) {
	var out AccessTokenResponse
	err := c.postJSON(ctx, apiPrefix+"/refresh", RefreshRequest{RefreshToken: refreshToken}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes a refresh token.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	return c.postJSON(ctx, apiPrefix+"/logout", RefreshRequest{RefreshToken: refreshToken}, nil, http.StatusNoContent)
}

// Me returns the profile of the holder of accessToken.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*UserResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, apiPrefix+"/me", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}

	var me UserResponse
	if err := decodeJSON(resp, &me, http.StatusOK); err != nil {
		return nil, err
	}
	return &me, nil
}

// NewSessionFromTokens resumes a session from previously issued tokens.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, &TokenResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}
