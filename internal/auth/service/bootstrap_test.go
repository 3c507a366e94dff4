package service_test

import (
	"context"
	"testing"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/internal/auth/store/drivers/sqlite"
	"github.com/dricommerce/authcore/pkg/clockx"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestSeedAdmin_OnlyOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	svc := service.NewBootstrapService(st, &plainHasher{}, clockx.NewFake(epoch))

	created, err := svc.SeedAdmin(ctx, "Root", "Admin@Shop.example", "a-long-admin-password")
	require.NoError(t, err)
	require.True(t, created)

	admin, err := st.Users().GetUserByEmail(ctx, "admin@shop.example")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)
	require.Equal(t, "Root", admin.Name)
	require.True(t, admin.Active)
	require.Equal(t, "plain:a-long-admin-password", admin.PasswordHash)

	created, err = svc.SeedAdmin(ctx, "Other", "other@shop.example", "a-long-admin-password")
	require.NoError(t, err)
	require.False(t, created)
}

func TestSeedAdmin_DisabledWithoutEmail(t *testing.T) {
	st := newSQLiteStore(t)
	svc := service.NewBootstrapService(st, &plainHasher{}, nil)

	created, err := svc.SeedAdmin(context.Background(), "", " ", "whatever")
	require.NoError(t, err)
	require.False(t, created)

	empty, err := st.Users().IsEmpty(context.Background())
	require.NoError(t, err)
	require.True(t, empty)
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	svc := service.NewBootstrapService(st, &plainHasher{}, clockx.NewFake(epoch))

	u, err := svc.CreateUser(ctx, service.NewUser{
		Email:    " Seller@Example.com ",
		Password: "twelve-chars-ok",
		Role:     domain.RoleSeller,
	})
	require.NoError(t, err)
	require.Equal(t, "seller@example.com", u.Email)
	require.Equal(t, "seller", u.Name, "name defaults to the local part")
	require.NotEmpty(t, u.ID)

	_, err = svc.CreateUser(ctx, service.NewUser{Email: "seller@example.com", Password: "twelve-chars-ok", Role: domain.RoleSeller})
	require.ErrorIs(t, err, service.ErrUserExists)
}

func TestCreateUser_Validation(t *testing.T) {
	st := newSQLiteStore(t)
	svc := service.NewBootstrapService(st, &plainHasher{}, nil)

	cases := map[string]service.NewUser{
		"bad email":      {Email: "not-an-email", Password: "twelve-chars-ok", Role: domain.RoleAdmin},
		"display name":   {Email: "Bob <bob@example.com>", Password: "twelve-chars-ok", Role: domain.RoleAdmin},
		"short password": {Email: "bob@example.com", Password: "short", Role: domain.RoleAdmin},
		"unknown role":   {Email: "bob@example.com", Password: "twelve-chars-ok", Role: "ROOT"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), in)
			require.ErrorIs(t, err, service.ErrInvalidUser)
		})
	}
}

func TestUserService_Me(t *testing.T) {
	active := testUser("u1", "a@example.com", "pw", domain.RoleCustomer)
	off := testUser("u2", "b@example.com", "pw", domain.RoleCustomer)
	off.Active = false
	svc := service.NewUserService(newUserMap(active, off))
	ctx := context.Background()

	got, err := svc.Me(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "a@example.com", got.Email)

	_, err = svc.Me(ctx, "u2")
	require.ErrorIs(t, err, service.ErrAccountInactive)

	_, err = svc.Me(ctx, "missing")
	require.ErrorIs(t, err, service.ErrInvalidToken)
}
