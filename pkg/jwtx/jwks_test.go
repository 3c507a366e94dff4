package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJWK_RoundTrip(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name string
		alg  string
		pub  crypto.PublicKey
		kty  string
	}{
		{"RSA", AlgorithmRS256, &rsaKey.PublicKey, "RSA"},
		{"EC", AlgorithmES256, &ecKey.PublicKey, "EC"},
		{"OKP", AlgorithmEdDSA, edPub, "OKP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewJWK("kid-1", tt.alg, tt.pub)
			require.NoError(t, err)
			require.Equal(t, tt.kty, j.Kty)
			require.Equal(t, "sig", j.Use)
			require.Equal(t, tt.alg, j.Alg)

			back, err := parseJWKToKey(j)
			require.NoError(t, err)

			eq, ok := back.(interface{ Equal(crypto.PublicKey) bool })
			require.True(t, ok)
			require.True(t, eq.Equal(tt.pub))
		})
	}
}

func TestNewJWK_RejectsUnsupportedCurve(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	_, err = NewJWK("k", AlgorithmES256, &key.PublicKey)
	require.Error(t, err)
}

func TestJWKS_JSON(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	ks := NewKeySet()
	require.NoError(t, ks.AddPublicKey("k1", AlgorithmEdDSA, edPub))
	require.Error(t, ks.AddPublicKey("k1", AlgorithmEdDSA, edPub), "duplicate kid")

	raw, err := json.Marshal(ks.PublicJWKS())
	require.NoError(t, err)

	var decoded JWKS
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Keys, 1)
	require.Equal(t, "k1", decoded.Keys[0].Kid)
	require.Equal(t, "Ed25519", decoded.Keys[0].Crv)
	require.Empty(t, decoded.Keys[0].N)
}

func TestParseJWKToKey_Errors(t *testing.T) {
	tests := []struct {
		name string
		jwk  JWK
	}{
		{"unsupported kty", JWK{Kty: "oct"}},
		{"bad RSA modulus", JWK{Kty: "RSA", N: "!!!", E: "AQAB"}},
		{"wrong OKP curve", JWK{Kty: "OKP", Crv: "X25519", X: "AAAA"}},
		{"short Ed25519 key", JWK{Kty: "OKP", Crv: "Ed25519", X: "AAAA"}},
		{"wrong EC curve", JWK{Kty: "EC", Crv: "P-384"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseJWKToKey(tt.jwk)
			require.Error(t, err)
		})
	}
}

func TestThumbprint_Stable(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	a, err := Thumbprint(edPub)
	require.NoError(t, err)
	b, err := Thumbprint(edPub)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 16)
}
