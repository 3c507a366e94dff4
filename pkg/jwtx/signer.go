package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/dricommerce/authcore/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Supported JWT signing algorithms
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

var ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")

// Signer is anything that can sign our tokens.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	Public() crypto.PublicKey
	PublicJWK() JWK
}

// keySigner signs with a private key whose type matches method.
type keySigner struct {
	kid    string
	method jwt.SigningMethod
	key    crypto.Signer
}

// NewSigner loads a PEM private key (PKCS1, SEC1 or PKCS8) and binds it to
// alg. The key type must suit the algorithm.
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	key, err := cryptox.ParsePrivateKey(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}
	return NewSignerFromKey(alg, kid, key)
}

// NewSignerFromKey binds an already parsed private key to alg.
func NewSignerFromKey(alg, kid string, key crypto.Signer) (Signer, error) {
	method, err := signingMethod(alg)
	if err != nil {
		return nil, err
	}
	if err := checkKeyType(alg, key.Public()); err != nil {
		return nil, err
	}
	return &keySigner{kid: kid, method: method, key: key}, nil
}

func (s *keySigner) Alg() string              { return s.method.Alg() }
func (s *keySigner) KID() string              { return s.kid }
func (s *keySigner) Public() crypto.PublicKey { return s.key.Public() }

// Sign turns claims into a compact JWS with our kid in the header.
func (s *keySigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns the verification key for publishing in a JWKS.
func (s *keySigner) PublicJWK() JWK {
	j, _ := NewJWK(s.kid, s.Alg(), s.key.Public())
	return j
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch alg {
	case AlgorithmRS256:
		return jwt.SigningMethodRS256, nil
	case AlgorithmES256:
		return jwt.SigningMethodES256, nil
	case AlgorithmEdDSA:
		return jwt.SigningMethodEdDSA, nil
	default:
		return nil, fmt.Errorf("%w %q (supported: RS256, ES256, EdDSA)", ErrUnsupportedAlg, alg)
	}
}

// checkKeyType rejects keys that would only fail later at sign time.
func checkKeyType(alg string, pub crypto.PublicKey) error {
	ok := false
	switch k := pub.(type) {
	case *rsa.PublicKey:
		ok = alg == AlgorithmRS256
	case *ecdsa.PublicKey:
		ok = alg == AlgorithmES256 && k.Curve == elliptic.P256()
	case ed25519.PublicKey:
		ok = alg == AlgorithmEdDSA
	}
	if !ok {
		return fmt.Errorf("jwtx: %T key cannot be used with %s", pub, alg)
	}
	return nil
}
