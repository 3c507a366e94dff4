package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	authhttp "github.com/dricommerce/authcore/internal/auth/http"
	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/metrics"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/internal/auth/store/drivers/sqlite"
	"github.com/dricommerce/authcore/pkg/authsdk"
	"github.com/dricommerce/authcore/pkg/clockx"
	"github.com/dricommerce/authcore/pkg/cryptox"
	"github.com/dricommerce/authcore/pkg/httpx"
	"github.com/dricommerce/authcore/pkg/jwtx"
	"github.com/dricommerce/authcore/pkg/ratelimit"
)

const (
	testIssuer   = "dricommerce-auth"
	testPassword = "correct horse battery staple"
)

type fixture struct {
	router  *authhttp.Router
	clock   *clockx.Fake
	store   *sqlite.Store
	tokens  *service.TokenService
	user    domain.User
	limiter *ratelimit.Limiter
}

func newFixture(t *testing.T, opts ...func(*authhttp.Router)) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := clockx.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmES256,
		Issuer:    testIssuer,
		Now:       clock.Now,
	})
	require.NoError(t, err)

	hasher := cryptox.NewHasher("test-pepper")
	user, err := service.NewBootstrapService(st, hasher, clock).CreateUser(ctx, service.NewUser{
		Name:     "Jane Doe",
		Email:    "jane@shop.example",
		Password: testPassword,
		Role:     domain.RoleCustomer,
	})
	require.NoError(t, err)

	tokens := service.NewTokenService(km.Signer(), km.Verifier, clock, service.TokenConfig{Issuer: testIssuer})
	limiter := ratelimit.New(clock)
	auth := service.NewAuthenticator(st.Users(), hasher).WithRehash(hasher, st.Users())

	reg := prometheus.NewRegistry()
	r := authhttp.NewRouter(km.KeySet, km.Verifier, "test", st, slog.New(slog.DiscardHandler))
	r.LoginService = service.NewLoginService(limiter, auth, tokens, service.DefaultLoginLimit)
	r.RefreshService = service.NewRefreshService(st.Users(), tokens, st.RevokedTokens(), clock)
	r.UserService = service.NewUserService(st.Users())
	r.Metrics = metrics.NewCollector(reg, limiter.Len)
	r.MetricsGatherer = reg
	for _, opt := range opts {
		opt(r)
	}
	r.ApplyRoutes()

	return &fixture{router: r, clock: clock, store: st, tokens: tokens, user: user, limiter: limiter}
}

func (f *fixture) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	return f.do(t, http.MethodPost, "/api/v1/auth/login", authsdk.LoginRequest{Email: email, Password: password}, nil)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)

	rec := f.login(t, "  JANE@shop.example ", testPassword)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	resp := decode[authsdk.TokenResponse](t, rec)
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, 3600, resp.ExpiresIn)

	me := f.do(t, http.MethodGet, "/api/v1/auth/me", nil, bearer(resp.Token))
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	profile := decode[authsdk.UserResponse](t, me)
	require.Equal(t, f.user.ID, profile.ID)
	require.Equal(t, "jane@shop.example", profile.Email)
	require.Equal(t, "CUSTOMER", profile.Role)
}

func TestLogin_InvalidCredentialsLookAlike(t *testing.T) {
	f := newFixture(t)

	wrongPassword := f.login(t, "jane@shop.example", "not the password")
	unknownEmail := f.login(t, "nobody@shop.example", testPassword)

	for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownEmail} {
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decode[authsdk.ErrorResponse](t, rec)
		require.Equal(t, authsdk.ErrorCodeInvalidCredentials, body.Error)
		require.Equal(t, "Invalid email or password", body.Message)
	}
}

func TestLogin_InactiveAccountIsInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Users().SetActive(context.Background(), f.user.ID, false))

	rec := f.login(t, "jane@shop.example", testPassword)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, authsdk.ErrorCodeInvalidCredentials, decode[authsdk.ErrorResponse](t, rec).Error)
}

func TestLogin_LockoutAfterFiveAttempts(t *testing.T) {
	f := newFixture(t)

	for range service.DefaultLoginLimit.MaxAttempts {
		rec := f.login(t, "jane@shop.example", "wrong")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// The correct password no longer helps until the window resets.
	f.clock.Advance(30 * time.Second)
	rec := f.login(t, "jane@shop.example", testPassword)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "870", rec.Header().Get("Retry-After"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	body := decode[authsdk.ErrorResponse](t, rec)
	require.Equal(t, authsdk.ErrorCodeRateLimitExceeded, body.Error)
	require.EqualValues(t, 0, body.Details["remainingAttempts"])
	require.EqualValues(t, 870, body.Details["resetInSeconds"])

	f.clock.Advance(service.DefaultLoginLimit.Window)
	rec = f.login(t, "jane@shop.example", testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
}

// behindProxy trusts the httptest peer, 192.0.2.1, as a reverse proxy.
func behindProxy(r *authhttp.Router) {
	r.TrustedProxies = httpx.TrustedProxies{netip.MustParsePrefix("192.0.2.0/24")}
}

func forwardedFor(chain string) http.Header {
	return http.Header{"X-Forwarded-For": []string{chain}}
}

func TestLogin_CountersAreKeyedByClientIP(t *testing.T) {
	f := newFixture(t, behindProxy)
	creds := authsdk.LoginRequest{Email: "jane@shop.example", Password: testPassword}
	wrong := authsdk.LoginRequest{Email: "jane@shop.example", Password: "wrong"}

	for range service.DefaultLoginLimit.MaxAttempts {
		f.do(t, http.MethodPost, "/api/v1/auth/login", wrong, forwardedFor("198.51.100.4"))
	}
	locked := f.do(t, http.MethodPost, "/api/v1/auth/login", creds, forwardedFor("198.51.100.4"))
	require.Equal(t, http.StatusTooManyRequests, locked.Code)

	// A prepended hop does not change who the proxy saw.
	spoofed := f.do(t, http.MethodPost, "/api/v1/auth/login", creds, forwardedFor("203.0.113.9, 198.51.100.4"))
	require.Equal(t, http.StatusTooManyRequests, spoofed.Code)

	other := f.do(t, http.MethodPost, "/api/v1/auth/login", creds, forwardedFor("203.0.113.7"))
	require.Equal(t, http.StatusOK, other.Code, other.Body.String())
}

func TestLogin_ForwardedForIgnoredFromUntrustedPeer(t *testing.T) {
	f := newFixture(t)

	for range service.DefaultLoginLimit.MaxAttempts {
		f.login(t, "jane@shop.example", "wrong")
	}

	for _, ip := range []string{"203.0.113.7", "203.0.113.8"} {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/login",
			authsdk.LoginRequest{Email: "jane@shop.example", Password: testPassword},
			http.Header{"X-Forwarded-For": []string{ip}, "X-Real-Ip": []string{ip}})
		require.Equal(t, http.StatusTooManyRequests, rec.Code, ip)
	}
}

func TestLogin_BadRequest(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "email=jane"},
		{"unknown field", `{"email":"jane@shop.example","password":"x","remember":true}`},
		{"missing password", `{"email":"jane@shop.example"}`},
		{"blank email", `{"email":"  ","password":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, authsdk.ErrorCodeInvalidRequest, decode[authsdk.ErrorResponse](t, rec).Error)
		})
	}

	// Malformed requests do not spend attempts.
	require.Equal(t, 0, f.limiter.Len())
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	pair := decode[authsdk.TokenResponse](t, f.login(t, "jane@shop.example", testPassword))

	f.clock.Advance(2 * time.Hour)

	// The old access token has expired by now.
	require.Equal(t, http.StatusUnauthorized,
		f.do(t, http.MethodGet, "/api/v1/auth/me", nil, bearer(pair.Token)).Code)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/refresh", authsdk.RefreshRequest{RefreshToken: pair.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := decode[authsdk.AccessTokenResponse](t, rec)
	require.NotEmpty(t, fresh.Token)
	require.Equal(t, "Bearer", fresh.TokenType)

	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodGet, "/api/v1/auth/me", nil, bearer(fresh.Token)).Code)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	pair := decode[authsdk.TokenResponse](t, f.login(t, "jane@shop.example", testPassword))

	rec := f.do(t, http.MethodPost, "/api/v1/auth/refresh", authsdk.RefreshRequest{RefreshToken: pair.Token}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, authsdk.ErrorCodeInvalidToken, decode[authsdk.ErrorResponse](t, rec).Error)
}

func TestRefresh_ExpiredAndGarbage(t *testing.T) {
	f := newFixture(t)
	pair := decode[authsdk.TokenResponse](t, f.login(t, "jane@shop.example", testPassword))

	for _, token := range []string{"garbage", pair.RefreshToken + "x"} {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/refresh", authsdk.RefreshRequest{RefreshToken: token}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	f.clock.Advance(f.tokens.RefreshTTL())
	rec := f.do(t, http.MethodPost, "/api/v1/auth/refresh", authsdk.RefreshRequest{RefreshToken: pair.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_InactiveAccount(t *testing.T) {
	f := newFixture(t)
	pair := decode[authsdk.TokenResponse](t, f.login(t, "jane@shop.example", testPassword))
	require.NoError(t, f.store.Users().SetActive(context.Background(), f.user.ID, false))

	rec := f.do(t, http.MethodPost, "/api/v1/auth/refresh", authsdk.RefreshRequest{RefreshToken: pair.RefreshToken}, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, authsdk.ErrorCodeAccountInactive, decode[authsdk.ErrorResponse](t, rec).Error)

	me := f.do(t, http.MethodGet, "/api/v1/auth/me", nil, bearer(pair.Token))
	require.Equal(t, http.StatusForbidden, me.Code)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	f := newFixture(t)
	pair := decode[authsdk.TokenResponse](t, f.login(t, "jane@shop.example", testPassword))
	body := authsdk.RefreshRequest{RefreshToken: pair.RefreshToken}

	rec := f.do(t, http.MethodPost, "/api/v1/auth/logout", body, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.Bytes())

	rec = f.do(t, http.MethodPost, "/api/v1/auth/refresh", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Idempotent.
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/v1/auth/logout", body, nil).Code)

	// Access tokens are not revoked and run out on their own.
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/auth/me", nil, bearer(pair.Token)).Code)
}

func TestMe_RequiresAccessToken(t *testing.T) {
	f := newFixture(t)
	pair := decode[authsdk.TokenResponse](t, f.login(t, "jane@shop.example", testPassword))

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/auth/me", nil, nil).Code)

	rec := f.do(t, http.MethodGet, "/api/v1/auth/me", nil, bearer(pair.RefreshToken))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestHealthAndKeys(t *testing.T) {
	f := newFixture(t)

	live := f.do(t, http.MethodGet, "/livez", nil, nil)
	require.Equal(t, http.StatusOK, live.Code)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, live).Status)

	ready := f.do(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, ready.Code)
	health := decode[authsdk.HealthResponse](t, ready)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Signer)

	jwks := decode[authsdk.JWKSResponse](t, f.do(t, http.MethodGet, "/.well-known/jwks.json", nil, nil))
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, jwtx.AlgorithmES256, jwks.Keys[0].Alg)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type readiness bool

func (r readiness) IsReady() bool { return bool(r) }

func TestReadyz_Unavailable(t *testing.T) {
	h := authhttp.ReadyzHandler(time.Now(), "test", failingPinger{}, readiness(false))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	health := decode[authsdk.HealthResponse](t, rec)
	require.Equal(t, "unavailable", health.Status)
	require.Equal(t, "unavailable", health.Checks.Database)
	require.Equal(t, "no keys loaded", health.Checks.Signer)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.login(t, "jane@shop.example", testPassword)
	f.login(t, "jane@shop.example", "wrong")

	rec := f.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	require.Contains(t, out, `auth_login_attempts_total{outcome="success"} 1`)
	require.Contains(t, out, `auth_login_attempts_total{outcome="invalid_credentials"} 1`)
	require.Contains(t, out, `auth_tokens_issued_total{kind="refresh"} 1`)
}

func TestAttemptKeyFallsBackToPolicy(t *testing.T) {
	f := newFixture(t)
	h := &authhttp.AuthHandler{
		LoginService: service.NewLoginService(f.limiter, nil, f.tokens, service.LoginLimit{MaxAttempts: 1, Window: time.Minute}),
		LoginPolicy:  httpx.AttemptPolicy{Name: "login"},
	}

	// Exhaust the budget on the key the policy derives for this client.
	require.True(t, f.limiter.Admit("login:192.0.2.1", 1, time.Minute))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"jane@shop.example","password":"x"}`))
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
