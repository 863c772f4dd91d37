package authd

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/spf13/viper"

	"github.com/blogforge/authd/password"
	"github.com/blogforge/authd/session"
)

// GoogleConfig carries the federated provider's client credentials. Empty
// values disable the authorization-code redirect flow; the bearer-token
// exchange path needs no client credentials.
type GoogleConfig struct {
	ClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	ClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`
}

// Config is the explicit configuration value object for the service. It is
// constructed once at process start (via [Load] or literal) and injected;
// nothing in the package reads ambient globals.
type Config struct {
	// SecretBase64 is the Base64-encoded HMAC-SHA-256 key material shared
	// by all token operations.
	SecretBase64 string `mapstructure:"JWT_SECRET_KEY"`
	// AccessTTL is the access-token lifetime (minutes scale).
	AccessTTL time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	// RefreshTTL is the refresh-token lifetime (days scale); session
	// entries expire on the same schedule.
	RefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`
	// DefaultRole is granted when signup or federated reconcile supplies
	// no roles.
	DefaultRole string `mapstructure:"DEFAULT_ROLE"`
	// SessionKeyPrefix namespaces session-store keys.
	SessionKeyPrefix string `mapstructure:"SESSION_KEY_PREFIX"`
	// SessionTimeout bounds every session-store round trip.
	SessionTimeout time.Duration `mapstructure:"SESSION_TIMEOUT"`
	// ProviderTimeout bounds the outbound user-info call to the federated
	// provider.
	ProviderTimeout time.Duration `mapstructure:"PROVIDER_TIMEOUT"`

	Password password.Config `mapstructure:"-"`
	Google   GoogleConfig    `mapstructure:",squash"`

	// Process-level wiring, consumed by cmd/authd.
	HTTPAddr      string `mapstructure:"HTTP_ADDR"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
}

// DefaultConfig returns the production defaults: 15 minute access tokens,
// 7 day refresh tokens, the platform's standard role.
func DefaultConfig() Config {
	return Config{
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
		DefaultRole:      "ROLE_USER",
		SessionKeyPrefix: session.DefaultKeyPrefix,
		SessionTimeout:   3 * time.Second,
		ProviderTimeout:  5 * time.Second,
		Password:         password.DefaultConfig(),
		HTTPAddr:         ":8080",
		RedisAddr:        "localhost:6379",
	}
}

// Validate checks the invariants Build depends on.
func (c Config) Validate() error {
	if c.SecretBase64 == "" {
		return errors.New("config: JWT_SECRET_KEY must be set")
	}
	if _, err := base64.StdEncoding.DecodeString(c.SecretBase64); err != nil {
		return errors.New("config: JWT_SECRET_KEY must be valid base64")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.RefreshTTL < c.AccessTTL {
		return errors.New("config: refresh TTL must not be shorter than access TTL")
	}
	if c.DefaultRole == "" {
		return errors.New("config: DEFAULT_ROLE must not be empty")
	}
	return nil
}

// Load reads .env (if present) and the process environment via Viper and
// returns a validated Config. Environment variables override .env values;
// a missing .env file is ignored.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ACCESS_TTL", defaults.AccessTTL)
	v.SetDefault("JWT_REFRESH_TTL", defaults.RefreshTTL)
	v.SetDefault("DEFAULT_ROLE", defaults.DefaultRole)
	v.SetDefault("SESSION_KEY_PREFIX", defaults.SessionKeyPrefix)
	v.SetDefault("SESSION_TIMEOUT", defaults.SessionTimeout)
	v.SetDefault("PROVIDER_TIMEOUT", defaults.ProviderTimeout)
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
	v.SetDefault("HTTP_ADDR", defaults.HTTPAddr)
	v.SetDefault("REDIS_ADDR", defaults.RedisAddr)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("DATABASE_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Password = defaults.Password

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
