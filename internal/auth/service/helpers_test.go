package service_test

//go:generate mockgen -source=credentials.go -destination=mocks/mocks.go -package=mocks UserDirectory
//go:generate mockgen -source=refresh.go -destination=mocks/revocation_mock.go -package=mocks RevocationList

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dricommerce/authcore/internal/auth/domain"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/internal/auth/store"
	"github.com/dricommerce/authcore/pkg/clockx"
	"github.com/dricommerce/authcore/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "dricommerce-auth"

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// plainHasher stands in for argon2 so tests stay fast. It counts every
// verification so timing-equalisation paths can be asserted.
type plainHasher struct {
	verifications atomic.Int32
}

func (h *plainHasher) Hash(plain string) (string, error) { return "plain:" + plain, nil }
func (h *plainHasher) DummyHash() string                 { return "dummy" }

func (h *plainHasher) Verify(plain, hash string) bool {
	h.verifications.Add(1)
	return hash == "plain:"+plain
}

// userMap is an in-memory UserDirectory keyed by id.
type userMap struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newUserMap(users ...domain.User) *userMap {
	m := &userMap{users: make(map[string]domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *userMap) put(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *userMap) GetUserByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *userMap) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (m *userMap) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func testUser(id, email, password string, role domain.Role) domain.User {
	return domain.User{
		ID:           id,
		Name:         "User " + id,
		Email:        email,
		PasswordHash: "plain:" + password,
		Role:         role,
		Active:       true,
	}
}

type tokenFixture struct {
	clock  *clockx.Fake
	km     *jwtx.KeyManager
	tokens *service.TokenService
}

func newTokenFixture(t *testing.T) tokenFixture {
	t.Helper()
	clock := clockx.NewFake(epoch)
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmES256,
		Issuer:    testIssuer,
		Now:       clock.Now,
	})
	require.NoError(t, err)

	tokens := service.NewTokenService(km.Signer(), km.Verifier, clock, service.TokenConfig{
		Issuer:     testIssuer,
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	return tokenFixture{clock: clock, km: km, tokens: tokens}
}
