package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/pkg/slogx"
)

// AttemptLimiter is the fixed-window failed-attempt counter consulted before
// every credential check.
type AttemptLimiter interface {
	Admit(key string, maxAttempts int, window time.Duration) bool
	Remaining(key string, maxAttempts int, window time.Duration) int
	ResetDelay(key string, window time.Duration) time.Duration
	RecordSuccess(key string)
}

// LoginLimit is the attempt budget for one rate-limit key.
type LoginLimit struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultLoginLimit allows five attempts per fifteen minutes.
var DefaultLoginLimit = LoginLimit{MaxAttempts: 5, Window: 15 * time.Minute}

type LoginService struct {
	limiter AttemptLimiter
	auth    *Authenticator
	tokens  *TokenService
	limit   LoginLimit
}

func NewLoginService(limiter AttemptLimiter, auth *Authenticator, tokens *TokenService, limit LoginLimit) *LoginService {
	if limit.MaxAttempts <= 0 {
		limit.MaxAttempts = DefaultLoginLimit.MaxAttempts
	}
	if limit.Window <= 0 {
		limit.Window = DefaultLoginLimit.Window
	}
	return &LoginService{limiter: limiter, auth: auth, tokens: tokens, limit: limit}
}

func (s *LoginService) Limit() LoginLimit { return s.limit }

// Login admits the attempt against rateLimitKey, checks the credentials and
// issues an access/refresh pair. Every attempt counts, including the
// successful one, whose counter is then cleared.
func (s *LoginService) Login(ctx context.Context, email, password, rateLimitKey string) (*domain.LoginResult, error) {
	l := slogx.FromContext(ctx)

	if !s.limiter.Admit(rateLimitKey, s.limit.MaxAttempts, s.limit.Window) {
		err := &RateLimitExceededError{
			Remaining: s.limiter.Remaining(rateLimitKey, s.limit.MaxAttempts, s.limit.Window),
			ResetIn:   s.limiter.ResetDelay(rateLimitKey, s.limit.Window),
		}
		l.Warn("login rate limited",
			slog.String("key", rateLimitKey),
			slog.Duration("reset_in", err.ResetIn),
		)
		return nil, err
	}

	user, err := s.auth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.limiter.RecordSuccess(rateLimitKey)

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, err
	}

	l.Info("login succeeded", slog.String("user_id", user.ID), slog.String("role", user.Role.String()))

	return &domain.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.TokenTypeBearer,
		ExpiresIn:    s.tokens.AccessTTL(),
	}, nil
}
