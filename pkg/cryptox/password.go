package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMismatch      = errors.New("password does not match")
	ErrInvalidFormat = errors.New("invalid hash format")
)

// Hasher hashes new passwords with Argon2id (peppered) and verifies both
// Argon2id PHC strings and legacy bcrypt hashes imported from older systems.
// Bcrypt hashes were produced without a pepper so none is applied to them.
type Hasher struct {
	pepper     string
	bcryptCost int // dummy scheme, 0 means Argon2id

	dummyOnce sync.Once
	dummy     string
}

// HasherOption configures a Hasher.
type HasherOption func(*Hasher)

// WithBcryptDummy makes DummyHash a bcrypt hash of the given cost. Use it
// while legacy bcrypt hashes are still stored, so that rejecting an unknown
// email costs as much as checking the slowest stored hash.
func WithBcryptDummy(cost int) HasherOption {
	return func(h *Hasher) {
		h.bcryptCost = min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
	}
}

// NewHasher returns a Hasher using pepper for Argon2id hashes.
func NewHasher(pepper string, opts ...HasherOption) *Hasher {
	h := &Hasher{pepper: pepper}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// currentPrefix identifies hashes produced with today's parameters.
var currentPrefix = fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$", memory, iterations, parallelism)

// NeedsRehash reports whether encoded should be replaced by a fresh Hash
// of the same password: legacy bcrypt hashes and Argon2id hashes with
// outdated parameters.
func (h *Hasher) NeedsRehash(encoded string) bool {
	return !strings.HasPrefix(encoded, currentPrefix)
}

// BcryptCost returns the cost of a bcrypt hash. ok is false for any other
// scheme.
func BcryptCost(encoded string) (cost int, ok bool) {
	if !isBcrypt(encoded) {
		return 0, false
	}
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return 0, false
	}
	return cost, true
}

// Hash generates a PHC-format Argon2id hash string including salt and parameters.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(password+h.pepper), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether password matches encoded. Malformed hashes never match.
func (h *Hasher) Verify(password, encoded string) bool {
	return h.Check(password, encoded) == nil
}

// Check is Verify with the reason for a failed match.
func (h *Hasher) Check(password, encoded string) error {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return h.checkArgon2id(password, encoded)
	case isBcrypt(encoded):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown scheme", ErrInvalidFormat)
	}
}

// DummyHash returns a well-formed hash of a random secret. Verifying against
// it costs the same as verifying a real password and never succeeds. The
// scheme is Argon2id, or bcrypt when configured with WithBcryptDummy.
func (h *Hasher) DummyHash() string {
	h.dummyOnce.Do(func() {
		secret, err := GenerateToken(TokenSize256)
		if err == nil {
			if h.bcryptCost > 0 {
				var b []byte
				b, err = bcrypt.GenerateFromPassword([]byte(secret), h.bcryptCost)
				h.dummy = string(b)
			} else {
				h.dummy, err = h.Hash(secret)
			}
		}
		if err != nil {
			// Well-formed but unmatchable fallback with the same parameters.
			h.dummy = fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
				memory, iterations, parallelism,
				base64.RawStdEncoding.EncodeToString(make([]byte, saltLength)),
				base64.RawStdEncoding.EncodeToString(make([]byte, keyLength)))
		}
	})
	return h.dummy
}

// checkArgon2id parses $argon2id$v=19$m=X,t=Y,p=Z$salt$hash and compares in
// constant time.
func (h *Hasher) checkArgon2id(password, encoded string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return fmt.Errorf("%w: expected 6 parts", ErrInvalidFormat)
	}
	if parts[2] != "v=19" {
		return fmt.Errorf("%w: wrong version", ErrInvalidFormat)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %w", ErrInvalidFormat, err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %w", ErrInvalidFormat, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return fmt.Errorf("%w: hash", ErrInvalidFormat)
	}

	got := argon2.IDKey(
		[]byte(password+h.pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(want)), // #nosec G115 - bounded by the decoded hash
	)
	if subtle.ConstantTimeCompare(got, want) == 1 {
		return nil
	}
	return ErrMismatch
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

// GeneratePassword returns a random 16 character alphanumeric password.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 16
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
