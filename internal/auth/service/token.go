package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/pkg/clockx"
	"github.com/dricommerce/authcore/pkg/jwtx"
)

// TokenConfig holds the issuer name and the two independent lifetimes.
type TokenConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService mints and validates the signed access and refresh tokens.
// It holds no per-token state.
type TokenService struct {
	signer   jwtx.Signer
	verifier jwtx.Verifier
	clock    clockx.Clock
	cfg      TokenConfig
}

// NewTokenService wires a signer and the verifier for its public key. Zero
// TTLs fall back to the jwtx defaults. The verifier should be built with
// the same clock so expiry checks agree with issuance.
func NewTokenService(signer jwtx.Signer, verifier jwtx.Verifier, clock clockx.Clock, cfg TokenConfig) *TokenService {
	if clock == nil {
		clock = clockx.System()
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	return &TokenService{signer: signer, verifier: verifier, clock: clock, cfg: cfg}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// IssueAccess signs an access token carrying the user's profile and role.
func (s *TokenService) IssueAccess(user domain.User) (string, error) {
	claims := jwtx.NewAccessClaims(
		user.ID, user.Name, user.Email,
		[]string{user.Role.String()},
		s.cfg.Issuer, s.cfg.AccessTTL, s.clock.Now(),
	)
	tok, err := s.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return tok, nil
}

// IssueRefresh signs a refresh token. It carries the subject only; its sole
// use is obtaining a new access token.
func (s *TokenService) IssueRefresh(user domain.User) (string, error) {
	claims := jwtx.NewRefreshClaims(user.ID, s.cfg.Issuer, s.cfg.RefreshTTL, s.clock.Now())
	tok, err := s.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return tok, nil
}

// ParseAndVerify checks signature, structure, issuer and expiry. Any failure
// matches ErrInvalidToken; the jwtx reason stays in the chain for logging.
func (s *TokenService) ParseAndVerify(raw string) (jwtx.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return jwtx.Claims{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	claims, err := s.verifier.Verify(raw)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// RequireKind rejects claims whose type is not exactly kind.
func (s *TokenService) RequireKind(claims jwtx.Claims, kind string) error {
	if !claims.IsKind(kind) {
		return fmt.Errorf("%w: want %q token, got %q", ErrInvalidToken, kind, claims.Type)
	}
	return nil
}

// Subject returns the user id the token was issued to.
func (s *TokenService) Subject(claims jwtx.Claims) (string, error) {
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}
