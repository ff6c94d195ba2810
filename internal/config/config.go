package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Token TTLs are kept as durations; the
// loader enforces that the refresh TTL exceeds the access TTL, since an
// access token that outlives its refresh token makes the refresh flow
// meaningless.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to sign access tokens

	AccessTTL  time.Duration // access token lifetime
	RefreshTTL time.Duration // refresh token lifetime
	VerifyTTL  time.Duration // email verification / password-reset token lifetime
	OTPTTL     time.Duration // phone OTP lifetime

	BcryptCost   int    // bcrypt cost for password hashing
	CookieSecure bool   // set Secure on session cookies (on behind TLS)
	CookieDomain string // optional cookie Domain attribute
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must() and missing values
// cause the process to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTL:    time.Duration(mustInt("ACCESS_TOKEN_TTL_MIN")) * time.Minute,
		RefreshTTL:   time.Duration(mustInt("REFRESH_TOKEN_TTL_DAYS")) * 24 * time.Hour,
		VerifyTTL:    time.Duration(intOr("VERIFY_TOKEN_TTL_MIN", 24*60)) * time.Minute,
		OTPTTL:       time.Duration(intOr("OTP_TTL_MIN", 10)) * time.Minute,
		BcryptCost:   mustInt("BCRYPT_COST"),
		CookieSecure: os.Getenv("COOKIE_SECURE") != "false", // default on; opt out for local http
		CookieDomain: os.Getenv("COOKIE_DOMAIN"),
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		log.Fatalf("REFRESH_TOKEN_TTL_DAYS must exceed ACCESS_TOKEN_TTL_MIN (%s <= %s)",
			cfg.RefreshTTL, cfg.AccessTTL)
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// intOr reads an optional integer variable with a default.
func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
