package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// App
	Env string // dev / staging / prod
	// HTTP
	HTTPAddr      string
	SecureCookies bool

	// Sessions
	SessionSecret        string
	SessionTTL           time.Duration
	PersistentSessionTTL time.Duration

	// Credential policy
	MinPasswordLength int
	BcryptCost        int

	// Lockout
	LockoutThreshold int
	LockoutDuration  time.Duration

	// Password reset
	PasswordResetBaseURL  string
	PasswordResetTokenTTL time.Duration
	RevokeSessionsOnReset bool

	// Infrastructure
	DBAddr        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RabbitURL     string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

func Load() (*Config, error) {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}

	// required values
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("missing required env var: SESSION_SECRET")
	}

	sb, err := getBool("SECURE_COOKIES", cfg.Env == "prod")
	if err != nil {
		return nil, err
	}
	cfg.SecureCookies = sb

	// optional with defaults
	ttl, err := getDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = ttl

	ptl, err := getDuration("PERSISTENT_SESSION_TTL", 14*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.PersistentSessionTTL = ptl

	mpl, err := getInt("MIN_PASSWORD_LENGTH", 6)
	if err != nil {
		return nil, err
	}
	cfg.MinPasswordLength = mpl

	bc, err := getInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, err
	}
	cfg.BcryptCost = bc

	lt, err := getInt("LOCKOUT_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}
	cfg.LockoutThreshold = lt

	ld, err := getDuration("LOCKOUT_DURATION", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.LockoutDuration = ld

	// Reset link base URL (sent via the events exchange).
	// Must include `token=` because the service appends the token.
	cfg.PasswordResetBaseURL = os.Getenv("PASSWORD_RESET_BASE_URL")
	if cfg.PasswordResetBaseURL == "" {
		return nil, fmt.Errorf("missing required env var: PASSWORD_RESET_BASE_URL")
	}
	if !strings.Contains(cfg.PasswordResetBaseURL, "token=") {
		return nil, fmt.Errorf("PASSWORD_RESET_BASE_URL must contain `token=`")
	}

	prt, err := getDuration("PASSWORD_RESET_TOKEN_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.PasswordResetTokenTTL = prt

	rvk, err := getBool("REVOKE_SESSIONS_ON_RESET", true)
	if err != nil {
		return nil, err
	}
	cfg.RevokeSessionsOnReset = rvk

	// Infrastructure dependencies.
	// The service cannot operate correctly without its backing stores;
	// fail fast instead of starting partially initialized.

	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("missing required env var: REDIS_ADDR")
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	rdb, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.RedisDB = rdb

	cfg.RabbitURL = os.Getenv("RABBIT_URL")
	if cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}

	rt, err := getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPReadTimeout = rt

	wt, err := getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPWriteTimeout = wt

	it, err := getDuration("HTTP_IDLE_TIMEOUT", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.HTTPIdleTimeout = it

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %q: %w", key, v, err)
	}
	return b, nil
}
