package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/dricommerce/authcore/pkg/cryptox"
)

// KeyManager owns the service's signing key and the matching verifier.
// Exactly one key signs; the KeySet publishes its public half.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	signer    Signer
	algorithm string
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Algorithm is one of "RS256", "ES256", "EdDSA".
	Algorithm string

	// Issuer is written into and required on every token.
	Issuer string

	// KeyID is the "kid" header value. Derived from the public key when empty.
	KeyID string

	// RSABits sizes generated RSA keys. Defaults to 4096, minimum 2048.
	RSABits int

	// Leeway tolerated on exp/nbf/iat during verification.
	Leeway time.Duration

	// Now overrides the verification clock.
	Now func() time.Time
}

// NewKeyManagerFromPEM builds a KeyManager from a PEM private key and its
// PEM public key. Loading fails if either is unreadable or if they are not
// two halves of the same pair. pubPEM may be nil, in which case the public
// key is taken from the private key.
func NewKeyManagerFromPEM(opts KeyManagerOptions, privPEM, pubPEM []byte) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	priv, err := cryptox.ParsePrivateKey(privPEM)
	if err != nil {
		return nil, fmt.Errorf("jwtx: private key: %w", err)
	}
	pub := priv.Public()
	if pubPEM != nil {
		if pub, err = cryptox.ParsePublicKey(pubPEM); err != nil {
			return nil, fmt.Errorf("jwtx: public key: %w", err)
		}
		if err := cryptox.CheckKeyPair(priv, pub); err != nil {
			return nil, fmt.Errorf("jwtx: %w", err)
		}
	}

	kid := opts.KeyID
	if kid == "" {
		if kid, err = Thumbprint(pub); err != nil {
			return nil, err
		}
	}

	signer, err := NewSignerFromKey(opts.Algorithm, kid, priv)
	if err != nil {
		return nil, err
	}

	keyset := NewKeySet()
	if err := keyset.AddPublicKey(kid, opts.Algorithm, pub); err != nil {
		return nil, fmt.Errorf("jwtx: add key to keyset: %w", err)
	}

	verifier, err := NewVerifier(opts.Algorithm, keyset, VerifyOptions{
		Issuer: opts.Issuer,
		Leeway: opts.Leeway,
		Now:    opts.Now,
	})
	if err != nil {
		return nil, err
	}

	return &KeyManager{
		Verifier:  verifier,
		KeySet:    keyset,
		signer:    signer,
		algorithm: opts.Algorithm,
	}, nil
}

// NewEphemeralKeyManager generates a key pair in memory. Tokens it signs
// stop verifying once the process exits, so this is for dev and tests.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}
	if _, err := signingMethod(opts.Algorithm); err != nil {
		return nil, err
	}

	privPEM, _, err := cryptox.GenerateKeyPair(opts.Algorithm, opts.RSABits)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate key: %w", err)
	}
	return NewKeyManagerFromPEM(opts, privPEM, nil)
}

// Signer returns the active signer.
func (km *KeyManager) Signer() Signer {
	return km.signer
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.signer != nil && km.KeySet.IsReady()
}
