package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/store"
	"github.com/dricommerce/authcore/pkg/clockx"
	"github.com/dricommerce/authcore/pkg/idx"
	"github.com/dricommerce/authcore/pkg/slogx"
)

var (
	ErrUserExists  = errors.New("user already exists")
	ErrInvalidUser = errors.New("invalid user")
)

// MinPasswordLength applies to accounts created by this service.
const MinPasswordLength = 12

// PasswordEncoder produces the stored form of a new password.
type PasswordEncoder interface {
	Hash(plain string) (string, error)
}

// NewUser is the input for account creation.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// BootstrapService provisions accounts outside the login path: the initial
// admin at startup and the auth-admin CLI.
type BootstrapService struct {
	store   store.Store
	encoder PasswordEncoder
	clock   clockx.Clock
}

func NewBootstrapService(s store.Store, encoder PasswordEncoder, clock clockx.Clock) *BootstrapService {
	if clock == nil {
		clock = clockx.System()
	}
	return &BootstrapService{store: s, encoder: encoder, clock: clock}
}

// CreateUser validates and stores a new active account.
func (s *BootstrapService) CreateUser(ctx context.Context, in NewUser) (domain.User, error) {
	return s.createUser(ctx, s.store.Users(), in)
}

// SeedAdmin creates an ADMIN account when the user table is empty. It
// reports whether an account was created. An empty email disables seeding.
func (s *BootstrapService) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	l := slogx.FromContext(ctx)
	if strings.TrimSpace(email) == "" {
		l.Debug("admin seeding disabled")
		return false, nil
	}

	var created domain.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return nil
		}
		created, err = s.createUser(ctx, tx.Users(), NewUser{
			Name:     name,
			Email:    email,
			Password: password,
			Role:     domain.RoleAdmin,
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	if created.ID == "" {
		l.Debug("users present, skipping admin seed")
		return false, nil
	}

	l.Info("seeded admin account", slog.String("user_id", created.ID), slog.String("email", created.Email))
	return true, nil
}

func (s *BootstrapService) createUser(ctx context.Context, users store.Users, in NewUser) (domain.User, error) {
	u, err := s.validate(in)
	if err != nil {
		return domain.User{}, err
	}

	u.PasswordHash, err = s.encoder.Hash(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	if err := users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *BootstrapService) validate(in NewUser) (domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.User{}, fmt.Errorf("%w: email %q is not a bare address", ErrInvalidUser, in.Email)
	}
	if !in.Role.Valid() {
		return domain.User{}, fmt.Errorf("%w: %w", ErrInvalidUser, domain.ErrUnknownRole)
	}
	if len(in.Password) < MinPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, MinPasswordLength)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}

	now := s.clock.Now()
	return domain.User{
		ID:        idx.NewAt(now).String(),
		Name:      name,
		Email:     email,
		Role:      in.Role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
