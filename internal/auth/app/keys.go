package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dricommerce/authcore/pkg/jwtx"
)

// ErrNoSigningKey is returned when file mode is selected without a key.
var ErrNoSigningKey = errors.New("no signing key configured: set AUTH_PRIVATE_KEY_FILE or AUTH_KEY_MODE=ephemeral")

// InitAuthKeys loads the signing key pair. The service must not start
// without one, so every failure here is fatal to New.
//
// Key modes:
//   - "file": PEM private key (PKCS#1, PKCS#8 or SEC 1) and an optional PEM
//     public key that must be the other half of the same pair.
//   - "ephemeral": a key pair generated in memory. Tokens stop verifying
//     when the process exits.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		KeyID:     cfg.KeyID,
		RSABits:   cfg.RSABits,
	}

	switch cfg.KeyMode {
	case KeyModeEphemeral:
		km, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("generate ephemeral keys: %w", err)
		}
		logger.Warn("using ephemeral signing key; issued tokens will not survive a restart",
			"algorithm", km.Algorithm(),
		)
		return km, nil

	case KeyModeFile:
		if cfg.PrivateKeyFile == "" {
			return nil, ErrNoSigningKey
		}

		privPEM, err := os.ReadFile(filepath.Clean(cfg.PrivateKeyFile))
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}

		var pubPEM []byte
		if cfg.PublicKeyFile != "" {
			if pubPEM, err = os.ReadFile(filepath.Clean(cfg.PublicKeyFile)); err != nil {
				return nil, fmt.Errorf("read public key: %w", err)
			}
		}

		km, err := jwtx.NewKeyManagerFromPEM(opts, privPEM, pubPEM)
		if err != nil {
			return nil, fmt.Errorf("load signing keys: %w", err)
		}
		logger.Info("signing key loaded",
			"algorithm", km.Algorithm(),
			"kid", km.Signer().KID(),
			"private_key_file", cfg.PrivateKeyFile,
		)
		return km, nil

	default:
		return nil, fmt.Errorf("unknown key mode %q", cfg.KeyMode)
	}
}
