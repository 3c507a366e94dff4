package http

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/dricommerce/authcore/internal/auth/metrics"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/pkg/authsdk"
	"github.com/dricommerce/authcore/pkg/httpx"
	"github.com/dricommerce/authcore/pkg/slogx"
)

// writeServiceError maps an error returned by the auth flows onto the wire
// and returns the metrics outcome it corresponds to. Messages never say
// whether the email or the password was wrong.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) string {
	var limited *service.RateLimitExceededError

	switch {
	case errors.As(err, &limited):
		retryAfter := max(int(math.Ceil(limited.ResetIn.Seconds())), 1)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limited.Remaining))
		httpx.WriteError(w, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimitExceeded,
			"Too many login attempts. Please try again later.",
			map[string]any{
				"remainingAttempts": limited.Remaining,
				"resetInSeconds":    retryAfter,
			})
		return metrics.OutcomeRateLimited

	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials,
			"Invalid email or password", nil)
		return metrics.OutcomeInvalidCredentials

	// ErrAccountInactive wraps ErrInvalidToken, so it must be matched first.
	case errors.Is(err, service.ErrAccountInactive):
		httpx.WriteError(w, http.StatusForbidden, authsdk.ErrorCodeAccountInactive,
			"Account is inactive", nil)
		return metrics.OutcomeInactive

	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken,
			"Invalid or expired token", nil)
		return metrics.OutcomeInvalidToken

	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, authsdk.ErrorCodeServerError,
			"Internal server error", nil)
		return metrics.OutcomeError
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, msg, nil)
}
