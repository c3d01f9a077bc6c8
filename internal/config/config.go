package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; a .env file is honored when present.
type Config struct {
	Env             string        // application environment (dev/test/prod)
	Port            string        // HTTP port to listen on
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	JWTSecret       string        // secret used to sign tokens
	JWTAlgorithm    string        // HMAC signing algorithm (HS256 by default)
	AccessTokenTTL  time.Duration // access token lifetime
	RefreshTokenTTL time.Duration // refresh token lifetime
	EmailTokenTTL   time.Duration // email verification token lifetime
	UserCacheTTL    time.Duration // lifetime of cached user snapshots
	BcryptCost      int           // bcrypt cost for password hashing
}

// Load reads configuration from the environment. Required variables are
// enforced by must(); token lifetimes and the cache TTL fall back to the
// documented defaults (15 min access, 15 days refresh, 7 days email, 900s
// cache) when unset.
func Load() Config {
	_ = godotenv.Load() // best effort; real env vars win

	return Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8000"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		JWTAlgorithm:    envStr("JWT_ALGORITHM", "HS256"),
		AccessTokenTTL:  time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTokenTTL: time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", 15)) * 24 * time.Hour,
		EmailTokenTTL:   time.Duration(envInt("EMAIL_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,
		UserCacheTTL:    time.Duration(envInt("USER_CACHE_TTL_SEC", 900)) * time.Second,
		BcryptCost:      envInt("BCRYPT_COST", 10),
	}
}

// must retrieves a required environment variable or exits with a fatal log.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
