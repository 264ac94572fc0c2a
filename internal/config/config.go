package config

import (
	"os"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Apple receipt verification
	AppleSharedSecret  string
	AppleProductionURL string
	AppleSandboxURL    string
	AppleVerifyTimeout time.Duration
	ExpectedBundleID   string

	// Identity tokens (Firebase / Sign in with Apple)
	IdentityJWKSURL  string
	IdentityIssuer   string
	IdentityAudience string

	// Webhooks
	AppStoreWebhookAuth string

	// Server
	Port        string
	CORSOrigins string

	// Product catalog
	ProductsConfigPath string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "braindumpster"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		AppleSharedSecret:  getEnv("APPLE_SHARED_SECRET", ""),
		AppleProductionURL: getEnv("APPLE_PRODUCTION_URL", "https://buy.itunes.apple.com/verifyReceipt"),
		AppleSandboxURL:    getEnv("APPLE_SANDBOX_URL", "https://sandbox.itunes.apple.com/verifyReceipt"),
		AppleVerifyTimeout: parseDuration(getEnv("APPLE_VERIFY_TIMEOUT", "30s"), 30*time.Second),
		ExpectedBundleID:   getEnv("EXPECTED_BUNDLE_ID", "com.braindumpster.app"),

		IdentityJWKSURL:  getEnv("IDENTITY_JWKS_URL", ""),
		IdentityIssuer:   getEnv("IDENTITY_ISSUER", ""),
		IdentityAudience: getEnv("IDENTITY_AUDIENCE", ""),

		AppStoreWebhookAuth: getEnv("APPSTORE_WEBHOOK_AUTH", ""),

		Port:        getEnv("PORT", "5001"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		ProductsConfigPath: getEnv("PRODUCTS_CONFIG_PATH", ""),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
