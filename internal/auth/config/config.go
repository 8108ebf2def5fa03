package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all configuration for the auth module.
type Config struct {
	// JWT Configuration
	JWTSecretKey   string        `env:"JWT_SECRET_KEY,required"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"thing-counter"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

	// PasswordSignIn enables /auth/register and /auth/login next to Google sign-in
	PasswordSignIn bool `env:"PASSWORD_SIGN_IN" envDefault:"true"`

	// Cookie Configuration
	CookieName     string `env:"COOKIE_NAME" envDefault:"tc_session"`
	CookiePath     string `env:"COOKIE_PATH" envDefault:"/"`
	CookieDomain   string `env:"COOKIE_DOMAIN" envDefault:""`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieHTTPOnly bool   `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"Lax"` // "Lax", "Strict", "None"
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load auth configuration from environment: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a config for tests with the given signing key
func DefaultConfig(secret string) *Config {
	return &Config{
		JWTSecretKey:   secret,
		JWTIssuer:      "thing-counter",
		AccessTokenTTL: 24 * time.Hour,
		PasswordSignIn: true,
		CookieName:     "tc_session",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	}
}

// Validate checks required values and normalizes CookieSameSite
func (c *Config) Validate() error {
	if c.JWTSecretKey == "" {
		return errors.New("jwt_secret_key is required")
	}
	if len(c.JWTSecretKey) < 16 {
		return errors.New("jwt_secret_key must be at least 16 characters")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("access_token_ttl must be positive")
	}

	switch strings.ToLower(c.CookieSameSite) {
	case "lax", "":
		c.CookieSameSite = "Lax"
	case "strict":
		c.CookieSameSite = "Strict"
	case "none":
		c.CookieSameSite = "None"
	default:
		return errors.New("cookie_same_site must be one of 'Lax', 'Strict', or 'None'")
	}
	if c.CookieName == "" {
		c.CookieName = "tc_session"
	}
	return nil
}
