package app

import (
	"os"
	"strconv"
	"time"

	authhttp "github.com/dricommerce/authcore/internal/auth/http"
	"github.com/dricommerce/authcore/internal/auth/service"
	"github.com/dricommerce/authcore/pkg/httpx"
	"github.com/dricommerce/authcore/pkg/jwtx"
)

// Key modes.
const (
	KeyModeFile      = "file"
	KeyModeEphemeral = "ephemeral"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Issuer string // Issuer claim written into and required on every token (default: dricommerce-auth)

	Algorithm      string // JWT signing algorithm (RS256, ES256, EdDSA) (default: RS256)
	KeyMode        string // file or ephemeral (default: file)
	PrivateKeyFile string // PEM private key, required in file mode
	PublicKeyFile  string // PEM public key, optional; must match the private key
	KeyID          string // Optional: "kid" header, derived from the key when empty
	RSABits        int    // RSA size for generated keys in ephemeral mode (default: 4096)

	AccessTTL  time.Duration // Access token lifetime (default: 1h)
	RefreshTTL time.Duration // Refresh token lifetime (default: 168h)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite database file (default: auth.db)
	DatabaseURL    string // Postgres DSN, required for the postgres driver
	PepperFile     string // File holding the password pepper (default: pepper)

	LoginLimit service.LoginLimit  // Failed-login budget per client (default: 5 per 15m)
	RateLimits authhttp.RateLimits // Token-bucket profiles for the other routes
	// Optional: comma-separated CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For is believed. Empty keys every client by its peer address.
	TrustedProxies string

	AdminName     string // Optional: name of the seeded admin
	AdminEmail    string // Optional: seeds an ADMIN account into an empty database
	AdminPassword string // Required with AdminEmail

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Counter and revocation cleanup interval (default: 5m)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "dricommerce-auth"),
		Algorithm:      getEnvOrDefault("AUTH_ALGORITHM", jwtx.AlgorithmRS256),
		KeyMode:        getEnvOrDefault("AUTH_KEY_MODE", KeyModeFile),
		PrivateKeyFile: os.Getenv("AUTH_PRIVATE_KEY_FILE"),
		PublicKeyFile:  os.Getenv("AUTH_PUBLIC_KEY_FILE"),
		KeyID:          os.Getenv("AUTH_KEY_ID"),
		RSABits:        getEnvIntOrDefault("AUTH_RSA_BITS", 0),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		DatabaseDriver: getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSQLite),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:    os.Getenv("AUTH_DATABASE_URL"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		LoginLimit: service.LoginLimit{
			MaxAttempts: getEnvIntOrDefault("RATELIMIT_LOGIN_MAX_ATTEMPTS", service.DefaultLoginLimit.MaxAttempts),
			Window:      getEnvDurationOrDefault("RATELIMIT_LOGIN_WINDOW", service.DefaultLoginLimit.Window),
		},
		RateLimits: authhttp.RateLimits{
			Moderate: httpx.ParseRateLimitFromEnv("MODERATE", httpx.ModerateLimit),
			Lenient:  httpx.ParseRateLimitFromEnv("LENIENT", httpx.LenientLimit),
			Public:   httpx.ParseRateLimitFromEnv("PUBLIC", httpx.PublicLimit),
		},
		TrustedProxies: os.Getenv("AUTH_TRUSTED_PROXIES"),

		AdminName:     os.Getenv("ADMIN_NAME"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
