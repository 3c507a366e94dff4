package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/store"
)

type UserService struct {
	users UserDirectory
}

func NewUserService(users UserDirectory) *UserService {
	return &UserService{users: users}
}

// Me loads the account behind an authenticated access token. A token whose
// subject has been deleted or disabled is treated as invalid.
func (s *UserService) Me(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return domain.User{}, err
	}
	if !u.Active {
		return domain.User{}, ErrAccountInactive
	}
	return u, nil
}
