package authsdk

import (
	"context"
	"errors"
	"net/http"
)

// ErrNotReady accompanies the /readyz body when the service answers 503.
var ErrNotReady = errors.New("authsdk: service not ready")

// Live calls /livez. Any 200 means the process is up; dependencies are not
// consulted.
func (c *SDKClient) Live(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.getJSON(ctx, "/livez", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Ready calls /readyz. When the service is up but a dependency is not, the
// 503 body is still returned so callers can see which check failed, along
// with ErrNotReady.
func (c *SDKClient) Ready(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if resp.StatusCode == http.StatusServiceUnavailable {
		if err := decodeJSON(resp, &health, http.StatusServiceUnavailable); err != nil {
			return nil, err
		}
		return &health, ErrNotReady
	}
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
