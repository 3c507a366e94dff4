package cryptox

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// Key algorithms understood by the generators below. They line up with the
// JWS "alg" names used for signing.
const (
	KeyRS256 = "RS256"
	KeyES256 = "ES256"
	KeyEdDSA = "EdDSA"
)

// MinRSABits is the smallest RSA modulus we are willing to generate or load.
const MinRSABits = 2048

var (
	ErrInvalidPEM      = errors.New("cryptox: invalid PEM block")
	ErrUnsupportedKey  = errors.New("cryptox: unsupported key type")
	ErrKeyPairMismatch = errors.New("cryptox: public key does not match private key")
	ErrWeakKey         = errors.New("cryptox: RSA key too small")
)

// GenerateKeyPair creates a fresh private key for alg and returns it as a
// PKCS8 PEM alongside the matching PKIX public key PEM. rsaBits is ignored
// for the elliptic algorithms.
func GenerateKeyPair(alg string, rsaBits int) (privPEM, pubPEM []byte, err error) {
	var priv crypto.Signer

	switch alg {
	case KeyRS256:
		if rsaBits == 0 {
			rsaBits = 4096
		}
		if rsaBits < MinRSABits {
			return nil, nil, fmt.Errorf("%w: %d bits", ErrWeakKey, rsaBits)
		}
		priv, err = rsa.GenerateKey(rand.Reader, rsaBits)
	case KeyES256:
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case KeyEdDSA:
		_, priv, err = ed25519.GenerateKey(rand.Reader)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedKey, alg)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("cryptox: generate %s key: %w", alg, err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("cryptox: marshal PKCS8 key: %w", err)
	}
	pubPEM, err = MarshalPublicKeyPEM(priv.Public())
	if err != nil {
		return nil, nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), pubPEM, nil
}

// ParsePrivateKey decodes a PEM private key. PKCS1 ("RSA PRIVATE KEY"),
// SEC1 ("EC PRIVATE KEY") and PKCS8 ("PRIVATE KEY") are all accepted since
// openssl happily produces any of them depending on the flags used.
func ParsePrivateKey(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidPEM
	}

	var (
		key any
		err error
	)
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: PEM type %q", ErrUnsupportedKey, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse private key: %w", err)
	}

	switch k := key.(type) {
	case *rsa.PrivateKey:
		if k.N.BitLen() < MinRSABits {
			return nil, fmt.Errorf("%w: %d bits", ErrWeakKey, k.N.BitLen())
		}
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
}

// ParsePublicKey decodes a PKIX ("PUBLIC KEY") or PKCS1 ("RSA PUBLIC KEY")
// PEM public key.
func ParsePublicKey(pemBytes []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidPEM
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse PKCS1 public key: %w", err)
		}
		return pub, nil
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse PKIX public key: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: PEM type %q", ErrUnsupportedKey, block.Type)
	}
}

// MarshalPublicKeyPEM encodes pub as a PKIX PEM block.
func MarshalPublicKeyPEM(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// CheckKeyPair returns ErrKeyPairMismatch when pub is not the public half
// of priv.
func CheckKeyPair(priv crypto.Signer, pub crypto.PublicKey) error {
	type equaler interface {
		Equal(crypto.PublicKey) bool
	}

	own, ok := priv.Public().(equaler)
	if !ok || !own.Equal(pub) {
		return ErrKeyPairMismatch
	}
	return nil
}
