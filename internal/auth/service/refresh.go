package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/store"
	"github.com/dricommerce/authcore/pkg/clockx"
	"github.com/dricommerce/authcore/pkg/jwtx"
	"github.com/dricommerce/authcore/pkg/slogx"
)

// RevocationList records refresh tokens that were given up at logout.
type RevocationList interface {
	RevokeToken(ctx context.Context, t domain.RevokedToken) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// RefreshService trades a refresh token for a new access token. The refresh
// token itself is not rotated. With a nil RevocationList refresh tokens are
// purely stateless and stay valid until they expire.
type RefreshService struct {
	users   UserDirectory
	tokens  *TokenService
	revoked RevocationList
	clock   clockx.Clock
}

func NewRefreshService(users UserDirectory, tokens *TokenService, revoked RevocationList, clock clockx.Clock) *RefreshService {
	if clock == nil {
		clock = clockx.System()
	}
	return &RefreshService{users: users, tokens: tokens, revoked: revoked, clock: clock}
}

func (s *RefreshService) Refresh(ctx context.Context, refreshToken string) (*domain.RefreshResult, error) {
	l := slogx.FromContext(ctx)

	claims, user, err := s.resolve(ctx, refreshToken)
	if err != nil {
		l.Info("refresh rejected", slog.Any("error", err))
		return nil, err
	}

	if !user.Active {
		l.Info("refresh rejected", slog.String("user_id", user.ID), slog.String("reason", "inactive"))
		return nil, ErrAccountInactive
	}

	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			l.Info("refresh rejected", slog.String("user_id", user.ID), slog.String("reason", "revoked"))
			return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
		}
	}

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}

	return &domain.RefreshResult{
		AccessToken: access,
		TokenType:   domain.TokenTypeBearer,
		ExpiresIn:   s.tokens.AccessTTL(),
	}, nil
}

// Revoke gives up a refresh token until its natural expiry. Revoking an
// already revoked token succeeds. Without a RevocationList it only
// validates the token.
func (s *RefreshService) Revoke(ctx context.Context, refreshToken string) error {
	claims, user, err := s.resolve(ctx, refreshToken)
	if err != nil {
		return err
	}
	if s.revoked == nil {
		return nil
	}
	if claims.ID == "" {
		return fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}

	err = s.revoked.RevokeToken(ctx, domain.RevokedToken{
		JTI:       claims.ID,
		UserID:    user.ID,
		ExpiresAt: claims.Expiry(),
		RevokedAt: s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	slogx.FromContext(ctx).Info("refresh token revoked", slog.String("user_id", user.ID))
	return nil
}

// resolve verifies a refresh token and loads its subject.
func (s *RefreshService) resolve(ctx context.Context, raw string) (jwtx.Claims, domain.User, error) {
	claims, err := s.tokens.ParseAndVerify(raw)
	if err != nil {
		return jwtx.Claims{}, domain.User{}, err
	}
	if err := s.tokens.RequireKind(claims, jwtx.KindRefresh); err != nil {
		return jwtx.Claims{}, domain.User{}, err
	}
	sub, err := s.tokens.Subject(claims)
	if err != nil {
		return jwtx.Claims{}, domain.User{}, err
	}

	user, err := s.users.GetUserByID(ctx, sub)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jwtx.Claims{}, domain.User{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return jwtx.Claims{}, domain.User{}, err
	}
	return claims, user, nil
}
