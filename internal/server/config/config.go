// Package config handles configuration for the server component,
// including defaults, JSON overlay, dotenv/environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
)

// Config holds runtime settings for the gophauth server.
//
// Fields:
//   - HTTPAddress: bind address for the JSON API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps users in process memory.
//   - RedisAddress / RedisKeyPrefix: lockout counter backend. Empty address
//     keeps counters in process memory.
//   - LockoutThreshold: consecutive failures before an identifier is locked.
//   - SecretKey / SessionValidityDuration: HS256 session token settings.
//   - GoogleClientID / GoogleClientSecret / GoogleRedirectURL: OAuth client.
//     The client id is also the expected ID token audience.
//   - FrontendURL: where the browser is sent after Google sign-in.
//   - AdminToken: enables the administrative endpoints when non-empty.
//   - PasswordAlgorithm: "bcrypt" or "argon2id" for new hashes.
type Config struct {
	HTTPAddress             string        `env:"HTTP_ADDRESS"`
	DatabaseDSN             string        `env:"DATABASE_DSN"`
	RedisAddress            string        `env:"REDIS_ADDRESS"`
	RedisKeyPrefix          string        `env:"REDIS_KEY_PREFIX"`
	LockoutThreshold        int           `env:"LOCKOUT_THRESHOLD"`
	SecretKey               string        `env:"JWT_SECRET"`
	SessionValidityDuration time.Duration `env:"SESSION_VALIDITY"`
	GoogleClientID          string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret      string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL       string        `env:"GOOGLE_REDIRECT_URI"`
	FrontendURL             string        `env:"FRONTEND_URL"`
	AdminToken              string        `env:"ADMIN_TOKEN"`
	PasswordAlgorithm       string        `env:"PASSWORD_ALGORITHM"`
	LogLevel                string        `env:"LOG_LEVEL"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden outside local development.
func (c *Config) LoadDefaults() {
	c.HTTPAddress = ":5000"
	c.DatabaseDSN = ""
	c.RedisAddress = ""
	c.RedisKeyPrefix = lockout.DefaultKeyPrefix
	c.LockoutThreshold = lockout.DefaultThreshold
	c.SecretKey = "secretKey"
	c.SessionValidityDuration = 1 * time.Hour
	c.GoogleRedirectURL = "http://localhost:5000/api/auth/google/callback"
	c.FrontendURL = "http://localhost:3000"
	c.PasswordAlgorithm = cryptox.AlgorithmBcrypt
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment (after loading an optional
// .env file) and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// AdminEnabled reports whether administrative endpoints are exposed.
func (c *Config) AdminEnabled() bool {
	return c.AdminToken != ""
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddress == "" {
		errs = append(errs, errors.New("http address is empty"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("jwt secret is empty"))
	}
	if c.SessionValidityDuration <= 0 {
		errs = append(errs, fmt.Errorf("session validity must be positive, got %s", c.SessionValidityDuration))
	}
	if c.LockoutThreshold <= 0 {
		errs = append(errs, fmt.Errorf("lockout threshold must be positive, got %d", c.LockoutThreshold))
	}
	switch c.PasswordAlgorithm {
	case cryptox.AlgorithmBcrypt, cryptox.AlgorithmArgon2id:
	default:
		errs = append(errs, fmt.Errorf("unknown password algorithm %q", c.PasswordAlgorithm))
	}
	if c.GoogleEnabled() && c.GoogleClientSecret == "" {
		errs = append(errs, errors.New("google client secret is empty"))
	}
	return errors.Join(errs...)
}
