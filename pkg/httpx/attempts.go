package httpx

import (
	"context"
	"net/http"
	"time"
)

// AttemptPolicy binds an endpoint to the failed-attempt counter: how many
// attempts a client gets per window and how the client is identified.
type AttemptPolicy struct {
	// Name namespaces the counter key, e.g. "login".
	Name string
	// MaxAttempts admitted per window, boundary inclusive.
	MaxAttempts int
	// Window is the fixed counting window.
	Window time.Duration
	// Key identifies the client. Defaults to IPKeyExtractor.
	Key KeyExtractor
}

// KeyFor returns the counter key for r, "<name>:<client>".
func (p AttemptPolicy) KeyFor(r *http.Request) string {
	extract := p.Key
	if extract == nil {
		extract = IPKeyExtractor
	}
	return p.Name + ":" + extract(r)
}

// WithAttemptKey stores the policy's counter key for r in the request
// context so the handler can hand it to the flow that does the counting.
func WithAttemptKey(p AttemptPolicy) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), CtxKeyAttemptKey, p.KeyFor(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AttemptKeyFromContext returns the key stored by WithAttemptKey.
func AttemptKeyFromContext(ctx context.Context) (string, bool) {
	k, ok := ctx.Value(CtxKeyAttemptKey).(string)
	return k, ok
}
