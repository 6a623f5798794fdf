package yoga

import (
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-yoga/auth"
)

// EnvPrefix marks the environment variables read by LoadEnvConfig.
// YOGA_JWT_SECRET maps to the jwt_secret key.
const EnvPrefix = "YOGA_"

// EnvConfig is a Config read from defaults and YOGA_* environment variables
type EnvConfig struct {
	Addr           string        `koanf:"addr" json:"addr"`
	DatabaseURL    string        `koanf:"database_url" json:"database_url"`
	SigningKey     string        `koanf:"jwt_secret" json:"-"`
	SigningMethod  string        `koanf:"jwt_alg" json:"signing_method"`
	TokenTTL       time.Duration `koanf:"jwt_ttl" json:"token_ttl"`
	Issuer         string        `koanf:"jwt_issuer" json:"issuer,omitempty"`
	ContextKey     string        `koanf:"context_key" json:"context_key"`
	TokenLookup    string        `koanf:"token_lookup" json:"token_lookup"`
	AuthScheme     string        `koanf:"auth_scheme" json:"auth_scheme"`
	BcryptCost     int           `koanf:"bcrypt_cost" json:"bcrypt_cost"`
	LogLevel       string        `koanf:"log_level" json:"log_level"`
	Debug          bool          `koanf:"debug" json:"debug"`
	RequestLogging bool          `koanf:"request_logging" json:"request_logging"`
}

var _ Config = (*EnvConfig)(nil)

func defaultConfig() map[string]any {
	return map[string]any{
		"addr":            ":8080",
		"database_url":    "file:yoga.db?cache=shared",
		"jwt_alg":         auth.DefaultSigningMethod,
		"jwt_ttl":         "24h",
		"context_key":     auth.DefaultContextKey,
		"token_lookup":    "header:Authorization",
		"auth_scheme":     "Bearer",
		"bcrypt_cost":     bcrypt.DefaultCost,
		"log_level":       "info",
		"debug":           false,
		"request_logging": true,
	}
}

// EnvProvider reads YOGA_* variables. Empty variables are skipped so
// they do not clear a default.
func EnvProvider() koanf.Provider {
	return env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
	})
}

// LoadEnvConfig reads the configuration from the process environment
func LoadEnvConfig() (*EnvConfig, error) {
	return LoadConfig(EnvProvider())
}

// LoadConfig layers providers over the defaults, later providers win.
func LoadConfig(providers ...koanf.Provider) (*EnvConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultConfig(), "."), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load default configuration")
	}

	for _, p := range providers {
		if p == nil {
			continue
		}
		if err := k.Load(p, nil); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to load configuration").
				WithTextCode("INVALID_CONFIG")
		}
	}

	cfg := &EnvConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration").
			WithTextCode("INVALID_CONFIG")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *EnvConfig) validate() error {
	if c.TokenTTL <= 0 {
		return invalidConfig("jwt_ttl")
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return invalidConfig("bcrypt_cost")
	}

	if c.SigningKey == "" {
		return goerrors.New(EnvPrefix+"JWT_SECRET must be set", goerrors.CategoryValidation).
			WithTextCode("MISSING_CONFIG").
			WithMetadata(map[string]any{"key": "jwt_secret"})
	}

	return nil
}

func invalidConfig(key string) error {
	return goerrors.New("invalid configuration value for "+key, goerrors.CategoryValidation).
		WithTextCode("INVALID_CONFIG").
		WithMetadata(map[string]any{"key": key})
}

func (c EnvConfig) GetAddr() string            { return c.Addr }
func (c EnvConfig) GetDatabaseURL() string     { return c.DatabaseURL }
func (c EnvConfig) GetSigningKey() string      { return c.SigningKey }
func (c EnvConfig) GetSigningMethod() string   { return c.SigningMethod }
func (c EnvConfig) GetTokenTTL() time.Duration { return c.TokenTTL }
func (c EnvConfig) GetIssuer() string          { return c.Issuer }
func (c EnvConfig) GetContextKey() string      { return c.ContextKey }
func (c EnvConfig) GetTokenLookup() string     { return c.TokenLookup }
func (c EnvConfig) GetAuthScheme() string      { return c.AuthScheme }
func (c EnvConfig) GetBcryptCost() int         { return c.BcryptCost }
func (c EnvConfig) GetLogLevel() string        { return c.LogLevel }
func (c EnvConfig) GetDebug() bool             { return c.Debug }
func (c EnvConfig) GetRequestLogging() bool    { return c.RequestLogging }
