package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/metrics"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/pkg/httpx"
	"github.com/dricommerce/authcore/pkg/jwtx"
	"github.com/dricommerce/authcore/pkg/slogx"

	_ "github.com/dricommerce/authcore/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits are the token-bucket profiles for the routes that are not
// guarded by the login attempt counter.
type RateLimits struct {
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

// DefaultRateLimits uses the httpx presets.
var DefaultRateLimits = RateLimits{
	Moderate: httpx.ModerateLimit,
	Lenient:  httpx.LenientLimit,
	Public:   httpx.PublicLimit,
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	db           Pinger

	LoginService   *service.LoginService
	RefreshService *service.RefreshService
	UserService    *service.UserService

	// LoginPolicy keys the failed-attempt counter for POST /login.
	LoginPolicy httpx.AttemptPolicy
	RateLimits  RateLimits
	// TrustedProxies whose forwarding headers name the client. Empty means
	// every request is keyed by its peer address.
	TrustedProxies httpx.TrustedProxies

	Metrics         metrics.Recorder
	MetricsGatherer prometheus.Gatherer // optional, enables GET /metrics
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	db Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		db:           db,
		logger:       logger,
		LoginPolicy: httpx.AttemptPolicy{
			Name:        "login",
			MaxAttempts: service.DefaultLoginLimit.MaxAttempts,
			Window:      service.DefaultLoginLimit.Window,
		},
		RateLimits: DefaultRateLimits,
		Metrics:    metrics.Discard,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	if r.LoginPolicy.Key == nil {
		r.LoginPolicy.Key = r.TrustedProxies.ClientIP
	}

	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Commerce Authentication Service API
//	@version		0.1.0
//	@description	Email and password login issuing signed JWT access and refresh tokens for the commerce platform.
//	@description
//	@description				Tokens can be verified offline using the JWKS endpoint.
//
//	@contact.name				DRI Commerce Platform Team
//	@contact.url				https://github.com/dricommerce/authcore
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		LoginService:   r.LoginService,
		RefreshService: r.RefreshService,
		Metrics:        r.Metrics,
		LoginPolicy:    r.LoginPolicy,
	}

	// POST /login - counted by the login service, not throttled here
	r.Mux.Handle("POST /api/v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.WithAttemptKey(r.LoginPolicy),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.RateLimits.Moderate, r.TrustedProxies),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.RateLimits.Moderate, r.TrustedProxies),
		),
	)

	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.RateLimits.Public, r.TrustedProxies),
		),
	)
}

func (r *Router) registerUsers() {
	h := &MeHandler{UserService: r.UserService}

	roles := make([]string, 0, len(domain.Roles()))
	for _, role := range domain.Roles() {
		roles = append(roles, role.String())
	}

	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyRole(roles...),
		httpx.RateLimitByUser(r.RateLimits.Lenient, r.TrustedProxies),
	)

	r.Mux.Handle("GET /api/v1/auth/me", secured)
}

func (r *Router) registerSystem() {
	// Health checks and scrapes poll often; give them the public profile.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.RateLimits.Public, r.TrustedProxies),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.db, r.keys),
			httpx.RateLimitByIP(r.RateLimits.Public, r.TrustedProxies),
		),
	)

	if r.MetricsGatherer != nil {
		r.Mux.Handle("GET /metrics", metrics.Handler(r.MetricsGatherer))
	}
}
